// Package broker fans out document change notices between service instances
// over NATS JetStream, so every instance can refresh its live subscriptions
// after a write made elsewhere.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
)

// Notice says that a collection changed.
type Notice struct {
	Collection string `json:"collection"`
	DocumentID string `json:"document_id,omitempty"`
}

// Publisher sends change notices to the stream.
type Publisher struct {
	js jetstream.JetStream
}

// NewPublisher returns a Publisher on js.
func NewPublisher(js jetstream.JetStream) *Publisher {
	return &Publisher{js: js}
}

// Notify publishes a notice for collection.
func (p *Publisher) Notify(ctx context.Context, collection, documentID string) error {
	if p.js == nil {
		return fmt.Errorf("jetstream interface is nil")
	}

	data, err := json.Marshal(Notice{Collection: collection, DocumentID: documentID})
	if err != nil {
		return fmt.Errorf("could not encode notice to JSON: %w", err)
	}

	_, err = p.js.Publish(ctx,
		SubjectChanges,
		data,
		jetstream.WithMsgID(uuid.NewString()),
	)
	if err != nil {
		return fmt.Errorf("failed to publish to stream [%s]: %w", SubjectChanges, err)
	}

	return nil
}

// Subscribe consumes new notices from stream and calls handle for each one
// until ctx is done. Every call creates its own ephemeral consumer starting at
// the newest message, so each instance sees every notice.
func Subscribe(ctx context.Context, stream jetstream.Stream, handle func(Notice)) error {
	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckNonePolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create or update consumer: %w", err)
	}

	consumeHandler := func(msg jetstream.Msg) {
		var n Notice
		if err := json.Unmarshal(msg.Data(), &n); err != nil {
			slog.Warn("could not decode change notice", "error", err)
			return
		}
		handle(n)
	}

	optErrHandler := jetstream.ConsumeErrHandler(func(cc jetstream.ConsumeContext, err error) {
		slog.Error("consumer error", "error", err)
	})

	consumeCtx, err := consumer.Consume(consumeHandler, optErrHandler)
	if err != nil {
		return fmt.Errorf("failed to start consuming notices: %w", err)
	}

	go func() {
		<-ctx.Done()
		consumeCtx.Drain()
	}()

	return nil
}
