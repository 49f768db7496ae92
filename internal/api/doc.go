// Package api exposes the classification gateway over HTTP. It accepts a
// multipart upload, hands it to the classification service and writes the
// correlated result back as plain text.
package api
