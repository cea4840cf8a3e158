package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/lashstudio/studio-backend/libs/kafkax"
	"github.com/lashstudio/studio-backend/libs/runtime"
	"github.com/segmentio/kafka-go"
)

type fakeReader struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	committed []int64
	drained   chan struct{}
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	select {
	case r.drained <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

type fakeInbox struct {
	mu      sync.Mutex
	seen    map[string]bool
	forgets int
}

func (i *fakeInbox) Record(_ context.Context, eventID, _ string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.seen[eventID] {
		return false, nil
	}
	i.seen[eventID] = true
	return true, nil
}

func (i *fakeInbox) Forget(_ context.Context, eventID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.seen, eventID)
	i.forgets++
	return nil
}

func message(offset int64, eventID string) kafka.Message {
	return kafka.Message{
		Topic:   "notification.sent.v1",
		Offset:  offset,
		Headers: kafkax.MetaHeaders(kafkax.EventMeta{EventID: eventID, EventType: "notification.sent.v1"}),
	}
}

func runUntilDrained(t *testing.T, c *Consumer, r *fakeReader) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()
	select {
	case <-r.drained:
	case <-time.After(2 * time.Second):
		t.Fatalf("consumer did not drain messages")
	}
	cancel()
	<-done
}

func TestConsumerSkipsDuplicates(t *testing.T) {
	r := &fakeReader{
		msgs:    []kafka.Message{message(1, "evt-1"), message(2, "evt-1"), message(3, "evt-2")},
		drained: make(chan struct{}, 1),
	}
	inbox := &fakeInbox{seen: map[string]bool{}}
	var handled []string
	c := NewWithReader(r, runtime.DiscardLogger(), inbox, Config{}, func(_ context.Context, msg kafka.Message) error {
		handled = append(handled, kafkax.ExtractEventMeta(msg).EventID)
		return nil
	})

	runUntilDrained(t, c, r)

	if len(handled) != 2 || handled[0] != "evt-1" || handled[1] != "evt-2" {
		t.Fatalf("unexpected handled events %v", handled)
	}
	if len(r.committed) != 3 {
		t.Fatalf("expected every offset committed, got %v", r.committed)
	}
}

func TestConsumerRetriesFailedHandler(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{message(1, "evt-1")}, drained: make(chan struct{}, 1)}
	inbox := &fakeInbox{seen: map[string]bool{}}
	calls := 0
	c := NewWithReader(r, runtime.DiscardLogger(), inbox, Config{MaxAttempts: 3, Backoff: time.Millisecond}, func(context.Context, kafka.Message) error {
		calls++
		if calls < 2 {
			return errors.New("db unavailable")
		}
		return nil
	})

	runUntilDrained(t, c, r)

	if calls != 2 {
		t.Fatalf("expected 2 handler calls, got %d", calls)
	}
	if inbox.forgets != 1 || !inbox.seen["evt-1"] {
		t.Fatalf("unexpected inbox state forgets=%d seen=%v", inbox.forgets, inbox.seen)
	}
	if len(r.committed) != 1 {
		t.Fatalf("expected commit after success, got %v", r.committed)
	}
}

func TestConsumerAbandonsAfterMaxAttempts(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{message(7, "evt-9")}, drained: make(chan struct{}, 1)}
	inbox := &fakeInbox{seen: map[string]bool{}}
	calls := 0
	c := NewWithReader(r, runtime.DiscardLogger(), inbox, Config{MaxAttempts: 2, Backoff: time.Millisecond}, func(context.Context, kafka.Message) error {
		calls++
		return errors.New("always fails")
	})

	runUntilDrained(t, c, r)

	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
	if inbox.seen["evt-9"] {
		t.Fatalf("abandoned event must not stay claimed")
	}
	if len(r.committed) != 1 || r.committed[0] != 7 {
		t.Fatalf("expected abandoned offset committed, got %v", r.committed)
	}
}
