package domain

import (
	"errors"
	"path/filepath"
	"strings"
)

// Common validation errors for Job
var (
	ErrEmptyJobID   = errors.New("job ID cannot be empty")
	ErrInvalidJobID = errors.New("job ID must be a plain file name")
	ErrEmptyBlobKey = errors.New("job blob key cannot be empty")
)

// Job is one unit of submitted classification work. Its ID is the base name of
// the uploaded artifact without extension and its BlobKey is the base name
// with extension, i.e. the key the input was stored under.
type Job struct {
	ID      string `json:"id"`
	BlobKey string `json:"blob_key"`
}

// NewJobFromFilename derives a Job from an uploaded filename. Any directory
// components are discarded so a client cannot choose a key outside the
// flat input namespace.
func NewJobFromFilename(filename string) (*Job, error) {
	if strings.TrimSpace(filename) == "" {
		return nil, ErrMissingFile
	}

	// Normalise both separator styles before taking the base name
	base := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return nil, ErrMissingFile
	}

	job := &Job{
		ID:      JobIDFromKey(base),
		BlobKey: base,
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}

	return job, nil
}

// JobIDFromKey strips the final extension from a blob key. An
// extension-only key such as ".jpg" yields an empty ID, which Validate
// rejects: workers fetch "<id><ext>" and could never find its input.
func JobIDFromKey(key string) string {
	return strings.TrimSuffix(key, filepath.Ext(key))
}

// ValidateJobID checks that id can be used as a blob key and a file name.
func ValidateJobID(id string) error {
	if id == "" {
		return ErrEmptyJobID
	}
	if id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return ErrInvalidJobID
	}
	return nil
}

// InputKey returns the blob key a worker should fetch for a job ID.
func InputKey(jobID, extension string) string {
	if extension != "" && !strings.HasPrefix(extension, ".") {
		extension = "." + extension
	}
	return jobID + extension
}

// Validate checks if the Job has all required fields.
func (j *Job) Validate() error {
	if err := ValidateJobID(j.ID); err != nil {
		return err
	}
	if j.BlobKey == "" {
		return ErrEmptyBlobKey
	}
	return nil
}
