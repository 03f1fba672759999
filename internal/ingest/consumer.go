// Package ingest delivers raw event envelopes from the queue to the
// lifecycle engine. Delivery is at-least-once: a message is only deleted
// once the engine has durably recorded its effect (or decided to drop it).
package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/rs/zerolog"

	"github.com/edvin/healops/internal/event"
	"github.com/edvin/healops/internal/store"
)

const (
	maxMessages     = 10
	waitTimeSeconds = 20
	receiveBackoff  = 5 * time.Second
)

// Handler processes one normalized event. A non-nil error requests
// redelivery of the originating message.
type Handler interface {
	Handle(ctx context.Context, evt event.Event) error
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Consumer long-polls the queue and feeds envelopes through the normalizer
// into the engine.
type Consumer struct {
	client     sqsAPI
	queueURL   string
	normalizer *event.Normalizer
	handler    Handler
	logger     zerolog.Logger
}

func NewConsumer(cfg aws.Config, queueURL string, normalizer *event.Normalizer, handler Handler, logger zerolog.Logger) *Consumer {
	return &Consumer{
		client:     sqs.NewFromConfig(cfg),
		queueURL:   queueURL,
		normalizer: normalizer,
		handler:    handler,
		logger:     logger.With().Str("component", "ingest").Logger(),
	}
}

// Run polls until the context is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info().Str("queue", c.queueURL).Msg("starting event consumer")
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: maxMessages,
			WaitTimeSeconds:     waitTimeSeconds,
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.Error().Err(err).Msg("receive failed, backing off")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(receiveBackoff):
			}
			continue
		}

		for _, msg := range out.Messages {
			c.handleMessage(ctx, msg)
		}
	}
}

// handleMessage processes one queue message. The message is deleted unless
// the store was unavailable, in which case it stays in flight and the queue
// redelivers it after the visibility timeout.
func (c *Consumer) handleMessage(ctx context.Context, msg types.Message) {
	var env event.Envelope
	if msg.Body == nil || json.Unmarshal([]byte(*msg.Body), &env) != nil {
		c.logger.Warn().Msg("undecodable message body, dropping")
		c.delete(ctx, msg)
		return
	}

	evt := c.normalizer.Normalize(env)
	if err := c.handler.Handle(ctx, evt); err != nil {
		if store.IsUnavailable(err) {
			c.logger.Error().Err(err).Str("event_id", env.ID).Msg("store unavailable, leaving message for redelivery")
			return
		}
		c.logger.Error().Err(err).Str("event_id", env.ID).Msg("event processing failed, dropping")
	}
	c.delete(ctx, msg)
}

func (c *Consumer) delete(ctx context.Context, msg types.Message) {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		// Redelivery of an already-applied event is safe: opens dedupe on
		// the source event id and resolves are no-ops once resolved.
		c.logger.Warn().Err(err).Msg("delete message failed")
	}
}
