package kafkax

import (
	"testing"

	"github.com/segmentio/kafka-go"
)

func TestExtractEventMetaFallsBackToKeyAndTopic(t *testing.T) {
	meta := ExtractEventMeta(kafka.Message{Topic: "notification.sent.v1", Key: []byte("appt-1")})
	if meta.EventID != "appt-1" || meta.EventType != "notification.sent.v1" {
		t.Fatalf("unexpected meta: %+v", meta)
	}

	msg := kafka.Message{
		Topic:   "notification.sent.v1",
		Key:     []byte("appt-1"),
		Headers: MetaHeaders(EventMeta{EventID: "evt-9", EventType: "custom"}),
	}
	meta = ExtractEventMeta(msg)
	if meta.EventID != "evt-9" || meta.EventType != "custom" {
		t.Fatalf("headers should win: %+v", meta)
	}
}

func TestHeaderCarrierOverwrites(t *testing.T) {
	c := &headerCarrier{}
	c.Set("traceparent", "a")
	c.Set("traceparent", "b")
	if len(c.headers) != 1 || c.Get("traceparent") != "b" {
		t.Fatalf("unexpected headers: %#v", c.headers)
	}
}

func TestSplitBrokers(t *testing.T) {
	got := SplitBrokers(" kafka:9092, ,kafka2:9092")
	if len(got) != 2 || got[1] != "kafka2:9092" {
		t.Fatalf("unexpected brokers: %#v", got)
	}
}
