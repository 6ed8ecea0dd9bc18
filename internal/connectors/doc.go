// Package connectors holds the ingestion sources and the reconciliation
// helpers they share. Each source lists the items it currently holds with a
// cheap version; NewOrModified and Deleted diff that listing against the
// stored documents.
//
// Variants live in subpackages: filesystem (directory walking shared by
// code, pdf and text) and database (Postgres schemas).
package connectors
