// Package mirror copies finished reports to S3-compatible object storage
// using minio-go.
package mirror
