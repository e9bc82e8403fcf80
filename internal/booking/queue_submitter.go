package booking

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SQSSender is the slice of the SQS client the submitter needs.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// QueueSubmitter publishes confirmed bookings to an SQS queue for
// downstream fulfilment.
type QueueSubmitter struct {
	client   SQSSender
	queueURL string
}

func NewQueueSubmitter(client SQSSender, queueURL string) *QueueSubmitter {
	if client == nil {
		panic("booking: SQS client cannot be nil")
	}
	if queueURL == "" {
		panic("booking: SQS queueURL cannot be empty")
	}
	return &QueueSubmitter{client: client, queueURL: queueURL}
}

func (q *QueueSubmitter) Submit(ctx context.Context, sub Submission) error {
	body, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("booking: encode submission: %w", err)
	}
	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"flow":       {DataType: aws.String("String"), StringValue: aws.String(sub.Flow)},
			"session_id": {DataType: aws.String("String"), StringValue: aws.String(sub.SessionID)},
		},
	})
	if err != nil {
		return fmt.Errorf("booking: failed to send SQS message: %w", err)
	}
	return nil
}
