// Package worker implements the processing loop run by each worker instance.
//
// A worker takes one request at a time from the request queue, classifies the
// referenced input and publishes the result. The request is acknowledged only
// after the result has been stored and published, so a crash at any earlier
// point leaves the request to be redelivered once its visibility timeout
// expires. Reprocessing is idempotent: the output is overwritten under the same
// key and a duplicate response is discarded by the gateway.
package worker
