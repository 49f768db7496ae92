// Package classifier defines the Classifier capability used by workers and
// provides an implementation that runs an external program per input file.
package classifier
