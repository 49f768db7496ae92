// Package postgres provides a PostgreSQL blob backend for deployments that
// keep inputs and outputs in a database instead of an object store.
// It also owns the embedded schema migrations applied with goose.
package postgres
