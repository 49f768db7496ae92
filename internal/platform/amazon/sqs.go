package amazon

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"
	"github.com/phrazzld/vision-gateway/internal/queue"
)

// SQS service limits
const (
	maxReceiveBatch = 10
	maxWaitSeconds  = 20
)

// SQSQueue implements queue.Queue and queue.DepthReporter on one SQS queue.
type SQSQueue struct {
	client sqsiface.SQSAPI
	url    string
	logger *slog.Logger
}

var (
	_ queue.Queue         = (*SQSQueue)(nil)
	_ queue.DepthReporter = (*SQSQueue)(nil)
)

// NewSQSQueue returns a queue bound to nameOrURL. Names are resolved to URLs
// with GetQueueUrl; URLs are used as given.
func NewSQSQueue(ctx context.Context, client sqsiface.SQSAPI, nameOrURL string, logger *slog.Logger) (*SQSQueue, error) {
	if nameOrURL == "" {
		return nil, fmt.Errorf("sqs queue name cannot be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	url := nameOrURL
	if !strings.HasPrefix(nameOrURL, "https://") && !strings.HasPrefix(nameOrURL, "http://") {
		out, err := client.GetQueueUrlWithContext(ctx, &sqs.GetQueueUrlInput{
			QueueName: aws.String(nameOrURL),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to resolve sqs queue %q: %w", nameOrURL, err)
		}
		url = aws.StringValue(out.QueueUrl)
	}

	return &SQSQueue{
		client: client,
		url:    url,
		logger: logger.With("component", "sqs_queue", "queue_url", url),
	}, nil
}

// URL returns the queue URL.
func (q *SQSQueue) URL() string {
	return q.url
}

// Send implements queue.Queue.
func (q *SQSQueue) Send(ctx context.Context, body string) error {
	if body == "" {
		return queue.ErrEmptyBody
	}

	out, err := q.client.SendMessageWithContext(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.url),
		MessageBody: aws.String(body),
	})
	if err != nil {
		return fmt.Errorf("failed to send sqs message: %w", err)
	}

	q.logger.Debug("sent message", "message_id", aws.StringValue(out.MessageId))
	return nil
}

// Receive implements queue.Queue. max is clamped to 1..10 and wait to whole
// seconds in 0..20, the ranges SQS accepts.
func (q *SQSQueue) Receive(ctx context.Context, max int, wait time.Duration) ([]queue.Message, error) {
	if max < 1 {
		max = 1
	}
	if max > maxReceiveBatch {
		max = maxReceiveBatch
	}
	waitSeconds := int64(wait / time.Second)
	if waitSeconds > maxWaitSeconds {
		waitSeconds = maxWaitSeconds
	}

	out, err := q.client.ReceiveMessageWithContext(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.url),
		MaxNumberOfMessages: aws.Int64(int64(max)),
		WaitTimeSeconds:     aws.Int64(waitSeconds),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to receive sqs messages: %w", err)
	}

	msgs := make([]queue.Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, queue.Message{
			ID:            aws.StringValue(m.MessageId),
			Body:          aws.StringValue(m.Body),
			ReceiptHandle: aws.StringValue(m.ReceiptHandle),
		})
	}
	return msgs, nil
}

// Delete implements queue.Queue. Invalid or expired receipt handles are
// reported as queue.ErrMessageNotFound.
func (q *SQSQueue) Delete(ctx context.Context, receiptHandle string) error {
	_, err := q.client.DeleteMessageWithContext(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.url),
		ReceiptHandle: aws.String(receiptHandle),
	})
	if err == nil {
		return nil
	}
	if hasErrorCode(err, sqs.ErrCodeReceiptHandleIsInvalid, sqs.ErrCodeMessageNotInflight) {
		return fmt.Errorf("%w: %v", queue.ErrMessageNotFound, err)
	}
	return fmt.Errorf("failed to delete sqs message: %w", err)
}

// ApproximateDepth implements queue.DepthReporter using the queue's
// ApproximateNumberOfMessages attribute.
func (q *SQSQueue) ApproximateDepth(ctx context.Context) (int, error) {
	out, err := q.client.GetQueueAttributesWithContext(ctx, &sqs.GetQueueAttributesInput{
		QueueUrl:       aws.String(q.url),
		AttributeNames: aws.StringSlice([]string{sqs.QueueAttributeNameApproximateNumberOfMessages}),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to get sqs queue attributes: %w", err)
	}

	raw, ok := out.Attributes[sqs.QueueAttributeNameApproximateNumberOfMessages]
	if !ok {
		return 0, fmt.Errorf("sqs response missing %s", sqs.QueueAttributeNameApproximateNumberOfMessages)
	}
	depth, err := strconv.Atoi(aws.StringValue(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid queue depth %q: %w", aws.StringValue(raw), err)
	}
	return depth, nil
}
