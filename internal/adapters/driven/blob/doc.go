// Package blob stages file content for the ingestion pipeline.
//
// Two backends implement driven.BlobStore:
//   - FSStore: a directory on the local filesystem
//   - S3Store: an Amazon S3 bucket
package blob
