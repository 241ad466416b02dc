package ws

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeSubscriber struct {
	mu       sync.Mutex
	payloads [][]byte
	sendErr  error
	closed   bool
	notify   chan struct{}
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{notify: make(chan struct{}, 8)}
}

func (f *fakeSubscriber) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.payloads = append(f.payloads, payload)
	select {
	case f.notify <- struct{}{}:
	default:
	}
	return nil
}

func (f *fakeSubscriber) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeSubscriber) received() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.payloads))
	copy(out, f.payloads)
	return out
}

func waitForPayload(t *testing.T, sub *fakeSubscriber) []byte {
	t.Helper()
	select {
	case <-sub.notify:
	case <-time.After(time.Second):
		t.Fatal("no payload delivered")
	}
	payloads := sub.received()
	return payloads[len(payloads)-1]
}

func TestBroadcastReachesMemberSubscribers(t *testing.T) {
	hub := NewHub()
	sub := newFakeSubscriber()
	hub.Register("m-1", sub)

	hub.Broadcast("m-1", []byte(`{"type":"task.created"}`))

	if got := waitForPayload(t, sub); string(got) != `{"type":"task.created"}` {
		t.Fatalf("unexpected payload %s", got)
	}
}

func TestBroadcastIsolatedPerMember(t *testing.T) {
	hub := NewHub()
	mine := newFakeSubscriber()
	other := newFakeSubscriber()
	hub.Register("m-1", mine)
	hub.Register("m-2", other)

	hub.Broadcast("m-1", []byte("payload"))
	waitForPayload(t, mine)

	if len(other.received()) != 0 {
		t.Fatalf("subscriber of another member received payload")
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	hub := NewHub()
	sub := newFakeSubscriber()
	hub.Register("m-1", sub)
	hub.Unregister("m-1", sub)

	hub.Broadcast("m-1", []byte("late"))

	select {
	case <-sub.notify:
		t.Fatal("unregistered subscriber still receiving")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestFailingSubscriberIsDropped(t *testing.T) {
	hub := NewHub()
	broken := newFakeSubscriber()
	broken.sendErr = errors.New("write failed")
	healthy := newFakeSubscriber()
	hub.Register("m-1", broken)
	hub.Register("m-1", healthy)

	hub.Broadcast("m-1", []byte("first"))
	waitForPayload(t, healthy)

	hub.Broadcast("m-1", []byte("second"))
	waitForPayload(t, healthy)

	broken.mu.Lock()
	closed := broken.closed
	broken.mu.Unlock()
	if !closed {
		t.Fatal("failing subscriber was not closed")
	}
	if len(broken.received()) != 0 {
		t.Fatal("failing subscriber should not accumulate payloads")
	}
}
