package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lumiere-fiap-soat-hackaton/fiap-lumiere-extractor-lambda/internal/domain/entity"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

type Publisher struct {
	channel *amqp.Channel
}

func NewPublisher(conn *amqp.Connection) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open publisher channel: %w", err)
	}
	return &Publisher{channel: ch}, nil
}

// CompletionNotifier publishes the single completion message for a request
// to its notification target queue. Delivery failures are not retried here;
// the caller decides what a failed notification means.
type CompletionNotifier struct {
	pub    *Publisher
	logger *zap.Logger
}

func NewCompletionNotifier(pub *Publisher, logger *zap.Logger) *CompletionNotifier {
	return &CompletionNotifier{pub: pub, logger: logger}
}

func (n *CompletionNotifier) Notify(ctx context.Context, target, requestID, resultLocation string, status entity.ProcessingStatus) error {
	body, err := json.Marshal(entity.CompletionMessage{
		RequestID:    requestID,
		ResultS3Path: resultLocation,
		Status:       status,
	})
	if err != nil {
		return &entity.NotificationError{Target: target, RequestID: requestID, Err: err}
	}

	err = n.pub.channel.PublishWithContext(ctx,
		"",
		target,
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
		},
	)
	if err != nil {
		return &entity.NotificationError{Target: target, RequestID: requestID, Err: err}
	}

	n.logger.Info("completion notification sent",
		zap.String("request_id", requestID),
		zap.String("target", target),
		zap.String("status", string(status)),
	)
	return nil
}

type DLQPublisher struct {
	pub   *Publisher
	queue string
}

func NewDLQPublisher(pub *Publisher, dlqQueue string) *DLQPublisher {
	return &DLQPublisher{pub: pub, queue: dlqQueue}
}

func (dp *DLQPublisher) PublishToDLQ(ctx context.Context, msg []byte, reason string) error {
	return dp.pub.channel.PublishWithContext(ctx,
		"",
		dp.queue,
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         msg,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Headers: amqp.Table{
				"x-dlq-reason": reason,
			},
		},
	)
}
