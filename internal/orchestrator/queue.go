package orchestrator

import "sync"

// ChannelQueue serializes coordinated runs per channel: a second event on
// the same channel waits until the first run's message edits are finished.
type ChannelQueue struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewChannelQueue creates a new ChannelQueue.
func NewChannelQueue() *ChannelQueue {
	return &ChannelQueue{slots: make(map[string]chan struct{})}
}

// Acquire blocks until the channel's slot is free, then takes it.
func (q *ChannelQueue) Acquire(channelID string) {
	q.mu.Lock()
	slot, ok := q.slots[channelID]
	if !ok {
		slot = make(chan struct{}, 1)
		q.slots[channelID] = slot
	}
	q.mu.Unlock()

	slot <- struct{}{}
}

// Release frees the channel's slot for the next waiting run.
func (q *ChannelQueue) Release(channelID string) {
	q.mu.Lock()
	slot, ok := q.slots[channelID]
	q.mu.Unlock()

	if ok {
		<-slot
	}
}
