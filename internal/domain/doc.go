// Package domain contains the entities shared by the gateway, the workers and
// the autoscaler: jobs, result records, worker instances and the JSON bodies
// exchanged over the request and response queues. It has no dependencies on
// any transport or storage implementation.
package domain
