// Package blob defines the byte-blob storage capability used for job inputs
// and classification outputs. A Store is bound to one bucket; the gateway and
// the workers each hold an input store and the workers also hold an output
// store.
package blob
