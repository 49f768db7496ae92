// Package service implements the gateway's submission pipeline. It is the only
// place that knows the order of operations for a request: store the input
// blob, enqueue the job, then wait on the shared correlator for the result.
// The HTTP layer in package api only translates requests and errors.
package service
