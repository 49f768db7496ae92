// Package autoscaler sizes the worker fleet from the depth of the request
// queue.
//
// The core types are:
//
//   - [Policy]: the threshold rules and fleet bounds
//   - [Controller]: samples queue depth and fleet size on a fixed interval and
//     applies the policy's decision through a [Fleet]
//   - [Fleet]: the capability to list, launch and terminate worker instances
//   - [LocalFleet]: a Fleet whose instances are worker goroutines in this
//     process
//
// Each tick changes the fleet by at most one instance.
package autoscaler
