package layer

import (
	"reflect"

	"github.com/ChristofferGreen/pathspace/core"
	"github.com/ChristofferGreen/pathspace/notify"
	"github.com/ChristofferGreen/pathspace/path"
)

// MouseEvent is the payload type accepted/produced at a Mouse mount's
// /events path.
type MouseEvent struct {
	DX, DY     float64
	ButtonMask uint8
	Wheel      float64
}

var mouseEventType = reflect.TypeOf(MouseEvent{})

// Mouse is a C6 provider exposing a single device's pointer-delta stream
// at <mount>/events. It accepts synthetic inserts (for tests and replay)
// and forwards real events via Feed.
type Mouse struct {
	prefix string
	queue  *EventQueue
}

// NewMouse allocates a Mouse provider with its own event queue.
func NewMouse() *Mouse {
	return &Mouse{queue: NewEventQueue()}
}

// Feed injects an event as if it came from the physical device; used by
// the platform-specific input backend this provider would be wired to.
func (m *Mouse) Feed(ev MouseEvent) { m.queue.Push(ev) }

func (m *Mouse) In(tail path.Iterator, value any, opts core.InOptions) InsertReturn {
	if tail.Component() != "events" || !tail.AtFinalComponent() {
		return InsertReturn{Errors: []error{core.New(core.CodeNoSuchPath, "mouse exposes only /events").WithPath(tail.Full())}}
	}
	ev, ok := value.(MouseEvent)
	if !ok {
		return InsertReturn{Errors: []error{core.New(core.CodeInvalidType, "mouse accepts only MouseEvent").WithPath(tail.Full())}}
	}
	m.queue.Push(ev)
	return InsertReturn{NbrValuesInserted: 1}
}

func (m *Mouse) Out(tail path.Iterator, want reflect.Type, opts core.Out) (any, error) {
	if tail.Component() != "events" || !tail.AtFinalComponent() {
		return nil, core.New(core.CodeNoSuchPath, "mouse exposes only /events").WithPath(tail.Full())
	}
	if want != mouseEventType {
		return nil, core.ErrTypeMismatch
	}
	return m.queue.Out(want, opts)
}

func (m *Mouse) Shutdown()                                          { m.queue.Shutdown() }
func (m *Mouse) Notify(p string)                                     {}
func (m *Mouse) AdoptContextAndPrefix(bus *notify.Bus, prefix string) { m.prefix = prefix }
