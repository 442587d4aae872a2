// Package retry retries an operation with exponential backoff.
//
// [Do] runs an operation until it succeeds, the attempt budget is spent, the
// context ends, or the operation returns an error marked with [Fatal]. kubedash
// uses it for SSH dials, where a refused TCP connection is worth another try
// but rejected credentials are not.
package retry
