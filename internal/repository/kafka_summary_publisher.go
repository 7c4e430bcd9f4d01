package repository

import (
	"context"
	"fmt"

	"HeatDash/internal/domain/models"
	domrepo "HeatDash/internal/domain/repository"
)

// Producer is the publishing half of pkg/kafka.Producer.
type Producer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

var _ domrepo.SummaryPublisher = (*KafkaSummaryPublisher)(nil)

// KafkaSummaryPublisher emits signal summaries keyed by universe.
type KafkaSummaryPublisher struct {
	p     Producer
	topic string
}

func NewKafkaSummaryPublisher(p Producer, topic string) *KafkaSummaryPublisher {
	if topic == "" {
		topic = "heatdash.signals"
	}
	return &KafkaSummaryPublisher{p: p, topic: topic}
}

func (k *KafkaSummaryPublisher) PublishSummary(ctx context.Context, s *models.SignalSummary) error {
	if s == nil {
		return nil
	}
	if err := k.p.Publish(ctx, k.topic, []byte(s.Universe), s); err != nil {
		return fmt.Errorf("publish summary %s: %w", s.Universe, err)
	}
	return nil
}

func (k *KafkaSummaryPublisher) Close() error { return k.p.Close() }

// NopSummaryPublisher drops summaries; used when Kafka is disabled.
type NopSummaryPublisher struct{}

func (NopSummaryPublisher) PublishSummary(context.Context, *models.SignalSummary) error { return nil }
func (NopSummaryPublisher) Close() error                                               { return nil }
