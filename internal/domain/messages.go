package domain

import (
	"encoding/json"
	"fmt"
)

// RequestMessage is the body sent from the gateway to workers.
type RequestMessage struct {
	ImageName string `json:"image_name"`
}

// ResponseMessage is the body sent from workers back to the gateway.
type ResponseMessage struct {
	ImageName string `json:"image_name"`
	Result    string `json:"result"`
}

// EncodeRequest serializes a request message for the given job ID.
func EncodeRequest(jobID string) (string, error) {
	if err := ValidateJobID(jobID); err != nil {
		return "", err
	}
	b, err := json.Marshal(RequestMessage{ImageName: jobID})
	if err != nil {
		return "", fmt.Errorf("failed to encode request message: %w", err)
	}
	return string(b), nil
}

// DecodeRequest parses a request message body and returns the job ID.
func DecodeRequest(body string) (string, error) {
	var msg RequestMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := ValidateJobID(msg.ImageName); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return msg.ImageName, nil
}

// EncodeResponse serializes a response message.
func EncodeResponse(jobID, result string) (string, error) {
	if err := ValidateJobID(jobID); err != nil {
		return "", err
	}
	b, err := json.Marshal(ResponseMessage{ImageName: jobID, Result: result})
	if err != nil {
		return "", fmt.Errorf("failed to encode response message: %w", err)
	}
	return string(b), nil
}

// DecodeResponse parses a response message body.
func DecodeResponse(body string) (*ResponseMessage, error) {
	var msg ResponseMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := ValidateJobID(msg.ImageName); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	return &msg, nil
}
