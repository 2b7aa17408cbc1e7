// Package notify implements the prefix-keyed notification bus (spec
// component C3): waiters register a path prefix and are woken, with at
// least the happens-before guarantee of the mutation that triggered the
// wake, whenever a Notify call's path overlaps their prefix.
package notify

import (
	"sync"

	"github.com/ChristofferGreen/pathspace/path"
)

// waiter is one registered blocked caller. ch is buffered (capacity 1) so
// Notify never blocks on a slow or already-woken waiter, and repeated
// notifies before the waiter re-checks collapse into a single pending wake.
type waiter struct {
	prefix string
	ch     chan struct{}
}

// Bus is the process-wide coordination object shared by a PathSpace and
// its mounted layer providers (spec's "Context").
type Bus struct {
	mu      sync.Mutex
	waiters map[uint64]*waiter
	nextID  uint64
	stopped bool
	sinks   []func(path string)
}

// AddSink registers fn to be called, best-effort and after waiters have
// already been woken, with every path passed to Notify. Used by
// NatsMirror to republish local notifications onto NATS subjects
// without the mirror ever becoming part of the wake happens-before
// chain itself.
func (b *Bus) AddSink(fn func(path string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, fn)
}

// NewBus creates an empty notification bus.
func NewBus() *Bus {
	return &Bus{waiters: make(map[uint64]*waiter)}
}

// Register pins a new waiter to prefix and returns its id (for
// Unregister) and its wake channel. The channel receives a value every
// time a Notify call's path overlaps prefix, and is closed if the bus is
// shut down.
func (b *Bus) Register(prefix string) (id uint64, ch <-chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w := &waiter{prefix: prefix, ch: make(chan struct{}, 1)}
	b.nextID++
	id = b.nextID
	b.waiters[id] = w
	if b.stopped {
		close(w.ch)
	}
	return id, w.ch
}

// Unregister removes a waiter once it stops waiting (success, timeout, or
// shutdown), so the bus doesn't accumulate dead entries.
func (b *Bus) Unregister(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.waiters, id)
}

// Notify wakes every waiter whose registered prefix is a prefix-of or
// equal to path (per spec §4.3). The caller must have already made its
// mutation visible (e.g. released the node lock) before calling Notify,
// so a waiter that re-checks its predicate after waking observes at
// least the triggering effect.
func (b *Bus) Notify(p string) {
	b.mu.Lock()
	for _, w := range b.waiters {
		if overlaps(w.prefix, p) {
			wake(w.ch)
		}
	}
	sinks := b.sinks
	b.mu.Unlock()
	for _, sink := range sinks {
		sink(p)
	}
}

// NotifyAll wakes every registered waiter regardless of prefix.
func (b *Bus) NotifyAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range b.waiters {
		wake(w.ch)
	}
}

// Shutdown wakes every waiter (closing their channels, so further
// receives return immediately) and marks the bus so future Register
// calls return an already-closed channel.
func (b *Bus) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return
	}
	b.stopped = true
	for id, w := range b.waiters {
		close(w.ch)
		delete(b.waiters, id)
	}
}

// Stopped reports whether Shutdown has been called.
func (b *Bus) Stopped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stopped
}

func wake(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
		// already has a pending wake; idempotent per spec §4.3
	}
}

// overlaps reports whether waiterPrefix is a path-component prefix of (or
// equal to) notified, so e.g. a waiter on "/dev/mouse" wakes when
// Notify("/dev/mouse/events") fires, but not vice versa. Components are
// compared with path.MatchNames rather than literal equality, so a
// waiter registered on a glob prefix (e.g. "/dev/*") wakes the moment
// any matching concrete path is notified, not only an exact one.
func overlaps(waiterPrefix, notified string) bool {
	wit := path.NewIterator(waiterPrefix)
	nit := path.NewIterator(notified)
	for !wit.AtEnd() {
		if nit.AtEnd() || !path.MatchNames(wit.Component(), nit.Component()) {
			return false
		}
		wit.Advance()
		nit.Advance()
	}
	return true
}
