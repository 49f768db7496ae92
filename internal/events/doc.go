// Package events provides a small in-process publish/subscribe mechanism for
// pipeline notifications: jobs being submitted and completed, and the
// autoscaler acting on the fleet.
package events
