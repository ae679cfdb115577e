// Package queue notifies admins that a doctor verification awaits review.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// ReviewRequest is the message body put on the review queue.
type ReviewRequest struct {
	VerificationID string    `json:"verificationId"`
	UserID         string    `json:"userId"`
	Bucket         string    `json:"bucket,omitempty"`
	Key            string    `json:"key"`
	NotifyEmail    string    `json:"notifyEmail,omitempty"`
	UploadedAt     time.Time `json:"uploadedAt"`
}

type ReviewQueue interface {
	EnqueueReview(ctx context.Context, req ReviewRequest) error
}

// SQSQueue sends review requests to an SQS queue looked up by name.
type SQSQueue struct {
	client    *sqs.Client
	queueName string

	mu       sync.Mutex
	queueURL string
}

func NewSQSQueue(client *sqs.Client, queueName string) *SQSQueue {
	return &SQSQueue{client: client, queueName: queueName}
}

func (q *SQSQueue) url(ctx context.Context) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.queueURL != "" {
		return q.queueURL, nil
	}
	resp, err := q.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(q.queueName)})
	if err != nil {
		return "", fmt.Errorf("failed to get SQS queue URL: %w", err)
	}
	q.queueURL = aws.ToString(resp.QueueUrl)
	return q.queueURL, nil
}

func (q *SQSQueue) EnqueueReview(ctx context.Context, req ReviewRequest) error {
	queueURL, err := q.url(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal review request: %w", err)
	}

	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return fmt.Errorf("send review request: %w", err)
	}
	return nil
}

// NopQueue drops review requests. Used when no queue is configured; admins
// then poll the pending list.
type NopQueue struct{}

func (NopQueue) EnqueueReview(context.Context, ReviewRequest) error { return nil }
