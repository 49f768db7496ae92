// Package amazon adapts AWS services to the gateway's capability interfaces:
// SQS backs queue.Queue, S3 backs blob.Store and EC2 backs the autoscaler's
// Fleet.
//
// Every adapter takes the corresponding *iface client so tests can supply
// fakes without network access.
package amazon
