// Package config loads the gateway, worker and autoscaler settings from
// defaults, an optional YAML file and VISIONGW_-prefixed environment
// variables, and validates them before any component starts. Settings are
// fixed for the life of the process.
package config
