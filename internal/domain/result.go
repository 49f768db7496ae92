package domain

import "fmt"

// ResultRecord is a completed classification observed on the response queue.
// AckToken is the transport handle (an SQS receipt handle, for example) needed
// to delete the underlying message; it is not part of the business payload.
type ResultRecord struct {
	JobID    string `json:"job_id"`
	Payload  string `json:"payload"`
	AckToken string `json:"-"`
}

// String renders the record the way the gateway returns it to clients.
func (r ResultRecord) String() string {
	return fmt.Sprintf("%s: %s", r.JobID, r.Payload)
}
