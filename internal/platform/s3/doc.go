// Package s3 provides a small client for S3-compatible object storage.
//
// kubedash uses it to keep the credential store snapshot as a single object
// in a bucket. The bucket is created on first use when it does not exist.
package s3
