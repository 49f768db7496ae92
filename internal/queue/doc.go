// Package queue defines the work queue capability shared by the gateway, the
// workers and the autoscaler, along with an in-memory implementation that
// honours visibility timeouts and receipt handles the way a hosted queue does.
//
// Delivery is at-least-once: a received message stays invisible for the
// visibility timeout and reappears, under a fresh receipt handle, unless it is
// deleted first. Deleting with a handle that no longer refers to an in-flight
// delivery reports ErrMessageNotFound, which callers treat as success.
package queue
