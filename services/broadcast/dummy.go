package broadcastsvc

import (
	"context"
	"sync"

	"github.com/tmonsalve/aula/core"
)

// SentBroadcast is one recorded Broadcast call.
type SentBroadcast struct {
	Topic   string
	Event   string
	Payload interface{}
}

// DummyBroadcaster records broadcasts in memory; tests inspect Sent.
type DummyBroadcaster struct {
	mu   sync.Mutex
	sent []SentBroadcast

	// Err, when set, is returned by every Broadcast call.
	Err error
}

var _ core.Broadcaster = (*DummyBroadcaster)(nil)

func NewDummyBroadcaster() *DummyBroadcaster {
	return &DummyBroadcaster{}
}

func (b *DummyBroadcaster) Broadcast(_ context.Context, topic, event string, payload interface{}) error {
	if b.Err != nil {
		return b.Err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, SentBroadcast{Topic: topic, Event: event, Payload: payload})
	return nil
}

func (b *DummyBroadcaster) Sent() []SentBroadcast {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]SentBroadcast, len(b.sent))
	copy(out, b.sent)
	return out
}

func (b *DummyBroadcaster) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = nil
}
