package events

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mohammed-shakir/geo-codec-gateway/internal/core/observability"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func mockConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Errors = true
	return cfg
}

func TestKafka_PublishesJSONKeyedByCodec(t *testing.T) {
	mp := mocks.NewAsyncProducer(t, mockConfig())
	mp.ExpectInputWithMessageCheckerFunctionAndSucceed(func(m *sarama.ProducerMessage) error {
		if m.Topic != "batches" {
			return errors.New("wrong topic " + m.Topic)
		}
		key, _ := m.Key.Encode()
		if string(key) != "h3" {
			return errors.New("wrong key " + string(key))
		}
		raw, _ := m.Value.Encode()
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			return err
		}
		if ev.Op != "encode" || ev.Items != 3 || ev.Failed != 1 || ev.RequestID != "r1" {
			return errors.New("unexpected payload " + string(raw))
		}
		return nil
	})

	k := newKafka(mp, "batches", 4, discard())
	k.Publish(Event{Op: "encode", Codec: "h3", Items: 3, Failed: 1, RequestID: "r1", TS: time.Now().UTC()})

	if err := k.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestKafka_ProducerErrorsAreCounted(t *testing.T) {
	reg := prometheus.NewRegistry()
	observability.Init(reg, true)

	mp := mocks.NewAsyncProducer(t, mockConfig())
	mp.ExpectInputAndFail(errors.New("broker down"))

	k := newKafka(mp, "batches", 4, discard())
	k.Publish(Event{Op: "decode", Codec: "s2", Items: 1})
	_ = k.Close()

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, mf := range mfs {
		if mf.GetName() != "batch_events_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetValue() == "error" && m.GetCounter().GetValue() >= 1 {
					found = true
				}
			}
		}
	}
	if !found {
		t.Fatalf("expected batch_events_total{outcome=\"error\"} >= 1")
	}
}

func TestKafka_PublishAfterCloseIsNoop(t *testing.T) {
	mp := mocks.NewAsyncProducer(t, mockConfig())
	k := newKafka(mp, "batches", 1, discard())
	if err := k.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	k.Publish(Event{Op: "encode", Codec: "geohash"})
	if err := k.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestNewKafka_ValidatesArgs(t *testing.T) {
	if _, err := NewKafka(nil, "t", 1, discard()); err == nil {
		t.Fatalf("expected error without brokers")
	}
	if _, err := NewKafka([]string{"localhost:9092"}, "", 1, discard()); err == nil {
		t.Fatalf("expected error without topic")
	}
}

func TestNop_Publish(t *testing.T) {
	var p Publisher = Nop{}
	p.Publish(Event{})
}
