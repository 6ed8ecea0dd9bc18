// Package bleve provides keyword search over chunk text using bleve.
// It implements the driven.SearchEngine interface.
//
// An empty path keeps the index in memory; otherwise the index lives in a
// directory that is created on first use and reopened afterwards.
package bleve
