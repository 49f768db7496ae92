package amazon

import (
	"context"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/ec2"
	"github.com/aws/aws-sdk-go/service/ec2/ec2iface"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockSQS implements the SQS calls used by SQSQueue
type MockSQS struct {
	sqsiface.SQSAPI

	GetQueueUrlFn        func(*sqs.GetQueueUrlInput) (*sqs.GetQueueUrlOutput, error)
	SendMessageFn        func(*sqs.SendMessageInput) (*sqs.SendMessageOutput, error)
	ReceiveMessageFn     func(*sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error)
	DeleteMessageFn      func(*sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error)
	GetQueueAttributesFn func(*sqs.GetQueueAttributesInput) (*sqs.GetQueueAttributesOutput, error)
}

func (m *MockSQS) GetQueueUrlWithContext(
	ctx context.Context,
	in *sqs.GetQueueUrlInput,
	opts ...request.Option,
) (*sqs.GetQueueUrlOutput, error) {
	return m.GetQueueUrlFn(in)
}

func (m *MockSQS) SendMessageWithContext(
	ctx context.Context,
	in *sqs.SendMessageInput,
	opts ...request.Option,
) (*sqs.SendMessageOutput, error) {
	return m.SendMessageFn(in)
}

func (m *MockSQS) ReceiveMessageWithContext(
	ctx context.Context,
	in *sqs.ReceiveMessageInput,
	opts ...request.Option,
) (*sqs.ReceiveMessageOutput, error) {
	return m.ReceiveMessageFn(in)
}

func (m *MockSQS) DeleteMessageWithContext(
	ctx context.Context,
	in *sqs.DeleteMessageInput,
	opts ...request.Option,
) (*sqs.DeleteMessageOutput, error) {
	return m.DeleteMessageFn(in)
}

func (m *MockSQS) GetQueueAttributesWithContext(
	ctx context.Context,
	in *sqs.GetQueueAttributesInput,
	opts ...request.Option,
) (*sqs.GetQueueAttributesOutput, error) {
	return m.GetQueueAttributesFn(in)
}

// MockS3 implements the S3 calls used by S3Store
type MockS3 struct {
	s3iface.S3API

	PutObjectFn func(*s3.PutObjectInput) (*s3.PutObjectOutput, error)
	GetObjectFn func(*s3.GetObjectInput) (*s3.GetObjectOutput, error)
}

func (m *MockS3) PutObjectWithContext(
	ctx context.Context,
	in *s3.PutObjectInput,
	opts ...request.Option,
) (*s3.PutObjectOutput, error) {
	return m.PutObjectFn(in)
}

func (m *MockS3) GetObjectWithContext(
	ctx context.Context,
	in *s3.GetObjectInput,
	opts ...request.Option,
) (*s3.GetObjectOutput, error) {
	return m.GetObjectFn(in)
}

// MockEC2 implements the EC2 calls used by EC2Fleet
type MockEC2 struct {
	ec2iface.EC2API

	DescribeInstancesPagesFn func(*ec2.DescribeInstancesInput, func(*ec2.DescribeInstancesOutput, bool) bool) error
	RunInstancesFn           func(*ec2.RunInstancesInput) (*ec2.Reservation, error)
	TerminateInstancesFn     func(*ec2.TerminateInstancesInput) (*ec2.TerminateInstancesOutput, error)
}

func (m *MockEC2) DescribeInstancesPagesWithContext(
	ctx context.Context,
	in *ec2.DescribeInstancesInput,
	fn func(*ec2.DescribeInstancesOutput, bool) bool,
	opts ...request.Option,
) error {
	return m.DescribeInstancesPagesFn(in, fn)
}

func (m *MockEC2) RunInstancesWithContext(
	ctx context.Context,
	in *ec2.RunInstancesInput,
	opts ...request.Option,
) (*ec2.Reservation, error) {
	return m.RunInstancesFn(in)
}

func (m *MockEC2) TerminateInstancesWithContext(
	ctx context.Context,
	in *ec2.TerminateInstancesInput,
	opts ...request.Option,
) (*ec2.TerminateInstancesOutput, error) {
	return m.TerminateInstancesFn(in)
}
