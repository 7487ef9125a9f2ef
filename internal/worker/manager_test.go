package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"socialmaps/internal/queue"
)

// fakeConsumer hands out queued batches once, then idles until the context is cancelled.
type fakeConsumer struct {
	mu      sync.Mutex
	pending []queue.Message
	batches [][]queue.Message
	acked   []string
	groups  []string
	groupFn func() error
}

func (f *fakeConsumer) EnsureGroup(ctx context.Context, stream, group string) error {
	f.groups = append(f.groups, stream+"/"+group)
	if f.groupFn != nil {
		return f.groupFn()
	}
	return nil
}

func (f *fakeConsumer) Read(ctx context.Context, stream, group, consumer string, count int64, block time.Duration) ([]queue.Message, error) {
	f.mu.Lock()
	if len(f.batches) > 0 {
		batch := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()
		return batch, nil
	}
	f.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(block):
		return nil, nil
	}
}

func (f *fakeConsumer) ReadPending(ctx context.Context, stream, group, consumer string, count int64) ([]queue.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.pending
	f.pending = nil
	return msgs, nil
}

func (f *fakeConsumer) Ack(ctx context.Context, stream, group string, messageIDs ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acked = append(f.acked, messageIDs...)
	return nil
}

func (f *fakeConsumer) ackedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.acked)
}

type recordingHandler struct {
	mu     sync.Mutex
	seen   []string
	failOn string
}

func (h *recordingHandler) HandleEvent(ctx context.Context, event queue.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, event.NotificationID)
	if event.NotificationID == h.failOn {
		return errors.New("boom")
	}
	return nil
}

func TestManager_ProcessesPendingAndNewMessagesAndAcksFailures(t *testing.T) {
	// ARRANGE
	consumer := &fakeConsumer{
		pending: []queue.Message{{ID: "1-0", Event: queue.Event{Type: queue.EventNotificationCreated, NotificationID: "p1"}}},
		batches: [][]queue.Message{{
			{ID: "2-0", Event: queue.Event{Type: queue.EventNotificationCreated, NotificationID: "n1"}},
			{ID: "3-0", Event: queue.Event{Type: queue.EventNotificationCreated, NotificationID: "n2"}},
		}},
	}
	handler := &recordingHandler{failOn: "n1"}
	m := NewManager(consumer, handler, ManagerConfig{WorkerCount: 1, BlockTimeout: 10 * time.Millisecond, Instance: "test"})

	// ACT
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for consumer.ackedCount() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	m.Stop()

	// ASSERT
	if got := consumer.ackedCount(); got != 3 {
		t.Fatalf("expected 3 acks (failures included), got %d", got)
	}
	if len(consumer.groups) != 1 || consumer.groups[0] != queue.StreamNotifications+"/"+queue.ConsumerGroupPush {
		t.Errorf("unexpected groups: %v", consumer.groups)
	}
	if len(handler.seen) != 3 || handler.seen[0] != "p1" {
		t.Errorf("expected pending message first, saw %v", handler.seen)
	}
}

func TestManager_StartFailsWhenGroupCannotBeCreated(t *testing.T) {
	consumer := &fakeConsumer{groupFn: func() error { return errors.New("redis down") }}
	m := NewManager(consumer, &recordingHandler{}, DefaultManagerConfig())

	if err := m.Start(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	m.Stop()
}

func TestManager_ConsumerName(t *testing.T) {
	m := NewManager(&fakeConsumer{}, &recordingHandler{}, ManagerConfig{Instance: "api-1"})
	if got := m.consumerName(12); got != "api-1-worker-12" {
		t.Errorf("consumerName = %q", got)
	}
}

func TestManager_ConsumerNamesStableAcrossRestarts(t *testing.T) {
	// ARRANGE
	first := NewManager(&fakeConsumer{}, &recordingHandler{}, DefaultManagerConfig())
	restarted := NewManager(&fakeConsumer{}, &recordingHandler{}, DefaultManagerConfig())

	// ACT / ASSERT
	for i := 1; i <= DefaultWorkerCount; i++ {
		if first.consumerName(i) != restarted.consumerName(i) {
			t.Errorf("worker %d: consumer %q after restart, want %q", i, restarted.consumerName(i), first.consumerName(i))
		}
	}

	unset := NewManager(&fakeConsumer{}, &recordingHandler{}, ManagerConfig{})
	if unset.consumerName(1) != first.consumerName(1) {
		t.Errorf("empty instance gave %q, want %q", unset.consumerName(1), first.consumerName(1))
	}
}
