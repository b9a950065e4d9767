package store

import (
	"sort"
	"sync"
)

// subscriberBuffer is the channel buffer given to each subscriber.
const subscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// Updates are sent to subscribers non-blocking; if a subscriber's buffer is
// full, the update is dropped for that subscriber.
type MemoryStore struct {
	mu          sync.RWMutex
	statuses    map[string]TargetStatus
	subscribers map[chan TargetStatus]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory [Store] implementation.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		statuses:    make(map[string]TargetStatus),
		subscribers: make(map[chan TargetStatus]struct{}),
	}
}

// Update stores a [TargetStatus] and notifies all subscribers.
func (m *MemoryStore) Update(status TargetStatus) {
	status.Removed = false

	m.mu.Lock()
	m.statuses[status.ContextID] = status
	m.mu.Unlock()

	m.notifySubscribers(status)
}

// Remove forgets contextID. Subscribers get the last known status with
// Removed set.
func (m *MemoryStore) Remove(contextID string) {
	m.mu.Lock()
	status, ok := m.statuses[contextID]
	delete(m.statuses, contextID)
	m.mu.Unlock()

	if !ok {
		return
	}
	status.Removed = true
	m.notifySubscribers(status)
}

// Get returns the stored status for contextID.
func (m *MemoryStore) Get(contextID string) (TargetStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	status, ok := m.statuses[contextID]
	return status, ok
}

// GetAll returns a snapshot of all stored statuses ordered by ContextID.
func (m *MemoryStore) GetAll() []TargetStatus {
	m.mu.RLock()
	results := make([]TargetStatus, 0, len(m.statuses))
	for _, status := range m.statuses {
		results = append(results, status)
	}
	m.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool { return results[i].ContextID < results[j].ContextID })
	return results
}

// Subscribe creates a new subscription and returns a channel for receiving
// updates.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan TargetStatus {
	ch := make(chan TargetStatus, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
// Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan TargetStatus) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends status to every subscriber without blocking.
func (m *MemoryStore) notifySubscribers(status TargetStatus) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- status:
		default:
			// subscriber is slow, drop the message
		}
	}
}
