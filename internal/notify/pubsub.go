package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

// PubSubProvider publishes run completions to a Google Cloud Pub/Sub topic.
type PubSubProvider struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	logger *zap.Logger
}

// NewPubSubProvider creates a Pub/Sub-backed provider and verifies the topic
// exists. Authentication is handled via Application Default Credentials.
func NewPubSubProvider(ctx context.Context, projectID, topicID string, logger *zap.Logger) (*PubSubProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	topic := client.Topic(topicID)
	ok, err := topic.Exists(ctx)
	if err != nil {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("failed to close pubsub client after topic check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("check pubsub topic %q: %w", topicID, err)
	}
	if !ok {
		if closeErr := client.Close(); closeErr != nil {
			logger.Warn("failed to close pubsub client after topic check failure", zap.Error(closeErr))
		}
		return nil, fmt.Errorf("pubsub topic %q does not exist", topicID)
	}

	return &PubSubProvider{
		client: client,
		topic:  topic,
		logger: logger,
	}, nil
}

// Publish sends the completion as a JSON message. Delivery is fire-and-forget:
// publish failures are logged, not returned, so a broker outage never fails a
// finished run.
func (p *PubSubProvider) Publish(ctx context.Context, c Completion) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal completion message: %w", err)
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"run_id": c.RunID,
			"result": c.Result,
		},
	})

	go func() {
		id, err := result.Get(context.Background())
		if err != nil {
			p.logger.Warn("pubsub publish failed",
				zap.String("run_id", c.RunID),
				zap.Error(err),
			)
			return
		}
		p.logger.Debug("published run completion",
			zap.String("run_id", c.RunID),
			zap.String("message_id", id),
		)
	}()
	return nil
}

// Close stops the topic publisher and releases the client.
func (p *PubSubProvider) Close() error {
	p.topic.Stop()
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}
