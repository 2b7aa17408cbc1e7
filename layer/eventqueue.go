package layer

import (
	"errors"
	"reflect"
	"sync"
	"time"

	"github.com/ChristofferGreen/pathspace/core"
	"github.com/ChristofferGreen/pathspace/notify"
)

// EventQueue is the shared FIFO backing most C6 providers: a single
// type-tagged queue plus a local notify.Bus used purely as a broadcast
// wake primitive (every push calls NotifyAll, every Out call registers
// under the empty prefix, so prefix matching never filters anything
// here — it's the bus's wait/timeout loop being reused, not its routing).
type EventQueue struct {
	mu    sync.Mutex
	items []queuedEvent
	bus   *notify.Bus
}

type queuedEvent struct {
	typ reflect.Type
	val any
}

func NewEventQueue() *EventQueue {
	return &EventQueue{bus: notify.NewBus()}
}

// Push appends v to the tail and wakes any blocked Out callers.
func (q *EventQueue) Push(v any) {
	q.mu.Lock()
	q.items = append(q.items, queuedEvent{typ: reflect.TypeOf(v), val: v})
	q.mu.Unlock()
	q.bus.NotifyAll()
}

// Len reports the current queue depth.
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Shutdown wakes and clears any blocked waiters.
func (q *EventQueue) Shutdown() {
	q.bus.Shutdown()
}

func (q *EventQueue) attempt(want reflect.Type, doPop bool) (any, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, core.ErrNoObjectFound
	}
	head := q.items[0]
	if head.typ != want {
		return nil, core.ErrTypeMismatch
	}
	if doPop {
		q.items = append(q.items[:0:0], q.items[1:]...)
	}
	return head.val, nil
}

// Out implements the full blocking read/take protocol against this
// queue: fast-path attempt, then (if opts.DoBlock) retry on every local
// wake until success or opts.Timeout elapses. A wrong-type head is a
// retryable spurious condition while blocking, matching the base trie's
// semantics (spec §8 property 5).
func (q *EventQueue) Out(want reflect.Type, opts core.Out) (any, error) {
	attempt := func() (any, error) { return q.attempt(want, opts.DoPop) }

	if !opts.DoBlock {
		return attempt()
	}

	deadline := time.Now().Add(opts.Timeout)
	retryable := func(err error) bool {
		return core.IsCode(err, core.CodeNoObjectFound) || core.IsCode(err, core.CodeTypeMismatch)
	}
	v, err := notify.WaitUntil(q.bus, "", deadline, retryable, attempt)
	if err != nil {
		return nil, mapWaitErr(err)
	}
	return v, nil
}

// mapWaitErr translates notify's generic wait-loop sentinels into the
// boundary *core.Error codes provider callers are expected to
// errors.Is against, the same mapping pathspace.access[T] applies.
func mapWaitErr(err error) error {
	switch {
	case errors.Is(err, notify.ErrTimeout):
		return core.ErrTimeout
	case errors.Is(err, notify.ErrShutdown):
		return core.New(core.CodeInvalidError, "wait aborted: provider shut down")
	default:
		return err
	}
}
