package amazon

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
)

// SessionConfig holds the settings shared by all AWS clients
type SessionConfig struct {
	// Region is the AWS region, e.g. "us-east-1"
	Region string

	// Endpoint overrides the service endpoint. Used with local emulators.
	Endpoint string
}

// NewSession creates an AWS session using the default credential chain.
func NewSession(cfg SessionConfig) (*session.Session, error) {
	if cfg.Region == "" {
		return nil, errors.New("aws region cannot be empty")
	}

	awsCfg := aws.NewConfig().WithRegion(cfg.Region)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint).WithS3ForcePathStyle(true)
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws session: %w", err)
	}
	return sess, nil
}

// hasErrorCode reports whether err is an AWS error with one of the codes.
func hasErrorCode(err error, codes ...string) bool {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return false
	}
	for _, code := range codes {
		if aerr.Code() == code {
			return true
		}
	}
	return false
}
