// Package async runs named tasks concurrently and joins their errors.
package async
