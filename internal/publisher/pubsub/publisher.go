// Package pubsub announces finished crawl runs on a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"cloud.google.com/go/pubsub"

	"github.com/JakeFAU/corpus-crawler/internal/crawler"
)

// publishResult is satisfied by *pubsub.PublishResult.
type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type topicPublisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) publishResult
}

type topicAdapter struct {
	topic *pubsub.Topic
}

func (a topicAdapter) Publish(ctx context.Context, msg *pubsub.Message) publishResult {
	return a.topic.Publish(ctx, msg)
}

// Publisher publishes run summaries as JSON messages. It implements
// crawler.RunReporter.
type Publisher struct {
	client    *pubsub.Client
	publisher topicPublisher
}

// New connects to project and binds the publisher to topicID.
func New(ctx context.Context, project, topicID string) (*Publisher, error) {
	if project == "" || topicID == "" {
		return nil, fmt.Errorf("pubsub project and topic are required")
	}
	client, err := pubsub.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &Publisher{
		client:    client,
		publisher: topicAdapter{topic: client.Topic(topicID)},
	}, nil
}

// Report publishes summary and waits for the server acknowledgement.
func (p *Publisher) Report(ctx context.Context, summary crawler.RunSummary) error {
	_, err := p.Publish(ctx, summary)
	return err
}

// Publish marshals the summary to JSON, tags it with routing attributes and
// returns the server-assigned message ID.
func (p *Publisher) Publish(ctx context.Context, summary crawler.RunSummary) (string, error) {
	if p == nil || p.publisher == nil {
		return "", fmt.Errorf("pubsub publisher is not configured")
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return "", fmt.Errorf("marshal summary: %w", err)
	}
	msg := &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"job_name":    summary.JobName,
			"run_id":      summary.RunID,
			"shard_id":    strconv.Itoa(summary.ShardID),
			"stop_reason": string(summary.StopReason),
		},
	}
	id, err := p.publisher.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	return id, nil
}

// Close flushes pending messages and releases the client.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	if a, ok := p.publisher.(topicAdapter); ok {
		a.topic.Stop()
	}
	if p.client == nil {
		return nil
	}
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}
