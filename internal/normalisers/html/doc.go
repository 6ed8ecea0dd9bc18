// Package html provides a Normaliser implementation for HTML documents.
// It extracts readable text content from HTML, dropping scripts and styles,
// stripping tags with a strict sanitiser policy and decoding entities.
package html
