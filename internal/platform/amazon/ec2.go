package amazon

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/phrazzld/vision-gateway/internal/domain"
)

// FleetConfig describes the instances an EC2Fleet launches
type FleetConfig struct {
	// Tag is the value of the Name tag identifying fleet members
	Tag string

	// ImageID is the AMI with the worker preinstalled
	ImageID string

	// InstanceType defaults to t2.micro
	InstanceType string

	// KeyName is the optional SSH key pair
	KeyName string

	// SecurityGroupIDs are attached to every instance
	SecurityGroupIDs []string

	// UserData is an optional boot script, sent base64-encoded
	UserData string
}

// EC2Fleet manages worker instances identified by their Name tag.
type EC2Fleet struct {
	client ec2iface.EC2API
	config FleetConfig
	logger *slog.Logger
}

// NewEC2Fleet validates cfg and returns a fleet.
func NewEC2Fleet(client ec2iface.EC2API, cfg FleetConfig, logger *slog.Logger) (*EC2Fleet, error) {
	if cfg.ImageID == "" {
		return nil, errors.New("ec2 image id cannot be empty")
	}
	if cfg.Tag == "" {
		cfg.Tag = domain.DefaultInstanceTag
	}
	if cfg.InstanceType == "" {
		cfg.InstanceType = ec2.InstanceTypeT2Micro
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &EC2Fleet{
		client: client,
		config: cfg,
		logger: logger.With("component", "ec2_fleet", "tag", cfg.Tag),
	}, nil
}

// ListRunning returns running fleet members, oldest first.
func (f *EC2Fleet) ListRunning(ctx context.Context) ([]domain.WorkerInstance, error) {
	input := &ec2.DescribeInstancesInput{
		Filters: []*ec2.Filter{
			{
				Name:   aws.String("instance-state-name"),
				Values: aws.StringSlice([]string{ec2.InstanceStateNameRunning}),
			},
			{
				Name:   aws.String("tag:Name"),
				Values: aws.StringSlice([]string{f.config.Tag}),
			},
		},
	}

	var found []*ec2.Instance
	err := f.client.DescribeInstancesPagesWithContext(ctx, input,
		func(page *ec2.DescribeInstancesOutput, lastPage bool) bool {
			for _, r := range page.Reservations {
				found = append(found, r.Instances...)
			}
			return true
		})
	if err != nil {
		return nil, fmt.Errorf("failed to describe ec2 instances: %w", err)
	}

	sort.SliceStable(found, func(i, j int) bool {
		return aws.TimeValue(found[i].LaunchTime).Before(aws.TimeValue(found[j].LaunchTime))
	})

	out := make([]domain.WorkerInstance, 0, len(found))
	for _, inst := range found {
		out = append(out, f.toWorkerInstance(inst))
	}
	return out, nil
}

// LaunchOne runs a single tagged instance.
func (f *EC2Fleet) LaunchOne(ctx context.Context) (domain.WorkerInstance, error) {
	input := &ec2.RunInstancesInput{
		ImageId:      aws.String(f.config.ImageID),
		InstanceType: aws.String(f.config.InstanceType),
		MinCount:     aws.Int64(1),
		MaxCount:     aws.Int64(1),
		TagSpecifications: []*ec2.TagSpecification{
			{
				ResourceType: aws.String(ec2.ResourceTypeInstance),
				Tags: []*ec2.Tag{
					{Key: aws.String("Name"), Value: aws.String(f.config.Tag)},
				},
			},
		},
	}
	if f.config.KeyName != "" {
		input.KeyName = aws.String(f.config.KeyName)
	}
	if len(f.config.SecurityGroupIDs) > 0 {
		input.SecurityGroupIds = aws.StringSlice(f.config.SecurityGroupIDs)
	}
	if f.config.UserData != "" {
		input.UserData = aws.String(base64.StdEncoding.EncodeToString([]byte(f.config.UserData)))
	}

	reservation, err := f.client.RunInstancesWithContext(ctx, input)
	if err != nil {
		return domain.WorkerInstance{}, fmt.Errorf("failed to run ec2 instance: %w", err)
	}
	if len(reservation.Instances) == 0 {
		return domain.WorkerInstance{}, errors.New("ec2 returned no instances")
	}

	inst := f.toWorkerInstance(reservation.Instances[0])
	f.logger.Info("launched ec2 instance", "instance_id", inst.ID)
	return inst, nil
}

// TerminateOne terminates the instance with the given ID.
func (f *EC2Fleet) TerminateOne(ctx context.Context, id string) error {
	_, err := f.client.TerminateInstancesWithContext(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: aws.StringSlice([]string{id}),
	})
	if err != nil {
		return fmt.Errorf("failed to terminate ec2 instance %s: %w", id, err)
	}

	f.logger.Info("terminated ec2 instance", "instance_id", id)
	return nil
}

func (f *EC2Fleet) toWorkerInstance(inst *ec2.Instance) domain.WorkerInstance {
	state := domain.InstanceStatePending
	if inst.State != nil {
		switch aws.StringValue(inst.State.Name) {
		case ec2.InstanceStateNameRunning:
			state = domain.InstanceStateRunning
		case ec2.InstanceStateNameShuttingDown, ec2.InstanceStateNameStopping:
			state = domain.InstanceStateTerminating
		}
	}
	return domain.WorkerInstance{
		ID:    aws.StringValue(inst.InstanceId),
		State: state,
		Tag:   f.config.Tag,
	}
}
