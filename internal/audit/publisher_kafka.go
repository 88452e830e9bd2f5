package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaPublisher forwards events to a Kafka topic so downstream monitoring
// can consume the trail independently of the primary store.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
}

// NewKafkaPublisher connects to the brokers and ensures the topic exists.
func NewKafkaPublisher(ctx context.Context, brokers []string, topic string) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopic(ctx, 1, 1, nil, topic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("create topic %q: %w", topic, err)
	}
	if resp.Err != nil && resp.Err != kerr.TopicAlreadyExists {
		client.Close()
		return nil, fmt.Errorf("create topic %q: %w", topic, resp.Err)
	}

	return &KafkaPublisher{client: client, topic: topic}, nil
}

// Publish produces one event synchronously, keyed by user so per-user
// ordering survives partitioning.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	record := &kgo.Record{
		Key:   []byte(event.UserID),
		Value: value,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

// Close flushes buffered records and releases the client.
func (p *KafkaPublisher) Close() {
	p.client.Close()
}
