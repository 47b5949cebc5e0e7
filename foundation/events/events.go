// Package events lets goroutines register for, and broadcast, simple
// string notifications. It backs the node's websocket event feed: each
// connected client acquires its own channel and the blockchain core
// (through its evHandler callback) sends progress messages to every
// acquired channel at once.
package events

import (
	"fmt"
	"sync"
)

// messageBuffer bounds how far a slow receiver can fall behind before a
// Send to it is simply dropped. Since a message would otherwise be lost
// anyway if the receiver isn't ready, dropping rather than blocking is
// the only option that doesn't stall every other acquired channel too.
const messageBuffer = 100

// Events maintains the set of currently acquired channels, keyed by an
// id the caller chooses (a connection id, typically).
type Events struct {
	mu sync.RWMutex
	m  map[string]chan string
}

// New constructs an empty Events.
func New() *Events {
	return &Events{m: make(map[string]chan string)}
}

// Shutdown closes and removes every acquired channel.
func (e *Events) Shutdown() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id, ch := range e.m {
		delete(e.m, id)
		close(ch)
	}
}

// Acquire returns the channel registered for id, creating one if this is
// the first acquisition.
func (e *Events) Acquire(id string) chan string {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ch, exists := e.m[id]; exists {
		return ch
	}

	ch := make(chan string, messageBuffer)
	e.m[id] = ch
	return ch
}

// Release closes and removes id's channel.
func (e *Events) Release(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ch, exists := e.m[id]
	if !exists {
		return fmt.Errorf("events: id %q does not exist", id)
	}

	delete(e.m, id)
	close(ch)
	return nil
}

// Send delivers s to every acquired channel, without blocking for any
// receiver that isn't ready.
func (e *Events) Send(s string) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	for _, ch := range e.m {
		select {
		case ch <- s:
		default:
		}
	}
}
