package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/geo-codec-gateway/internal/core/observability"
)

// Kafka publishes events through a sarama AsyncProducer behind a bounded
// queue. Events are dropped when the queue is full.
type Kafka struct {
	topic  string
	logger *slog.Logger
	prod   sarama.AsyncProducer

	mu      sync.RWMutex
	closed  bool
	events  chan Event
	stopped chan struct{}
	errDone chan struct{}
}

var _ Publisher = (*Kafka)(nil)

func NewKafka(brokers []string, topic string, queueSize int, logger *slog.Logger) (*Kafka, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("events: no kafka brokers configured")
	}
	if topic == "" {
		return nil, fmt.Errorf("events: topic is required")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.ClientID = "geo-codec-gateway"
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("events: create async producer: %w", err)
	}
	return newKafka(prod, topic, queueSize, logger), nil
}

func newKafka(prod sarama.AsyncProducer, topic string, queueSize int, logger *slog.Logger) *Kafka {
	if queueSize <= 0 {
		queueSize = 1024
	}
	k := &Kafka{
		topic:   topic,
		logger:  logger,
		prod:    prod,
		events:  make(chan Event, queueSize),
		stopped: make(chan struct{}),
		errDone: make(chan struct{}),
	}

	go func() {
		defer close(k.stopped)
		for ev := range k.events {
			b, err := json.Marshal(ev)
			if err != nil {
				k.logger.Error("events: marshal", "err", err)
				observability.IncEvent("error")
				continue
			}
			k.prod.Input() <- &sarama.ProducerMessage{
				Topic: k.topic,
				Key:   sarama.StringEncoder(ev.Codec),
				Value: sarama.ByteEncoder(b),
			}
			observability.IncEvent("sent")
		}
	}()

	go func() {
		defer close(k.errDone)
		for err := range k.prod.Errors() {
			if err != nil {
				k.logger.Warn("events: producer error", "topic", k.topic, "err", err.Err)
				observability.IncEvent("error")
			}
		}
	}()

	return k
}

func (k *Kafka) Publish(ev Event) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.closed {
		return
	}
	select {
	case k.events <- ev:
	default:
		observability.IncEvent("dropped")
	}
}

// Close flushes queued events and shuts the producer down.
func (k *Kafka) Close() error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return nil
	}
	k.closed = true
	close(k.events)
	k.mu.Unlock()

	<-k.stopped
	err := k.prod.Close()
	<-k.errDone
	if err != nil {
		return fmt.Errorf("events: close producer: %w", err)
	}
	return nil
}
