package layer

import (
	"reflect"
	"sync"

	"github.com/ChristofferGreen/pathspace/core"
	"github.com/ChristofferGreen/pathspace/notify"
	"github.com/ChristofferGreen/pathspace/path"
)

// MixedPointerEvent is the output type of a PointerMixer: a MouseEvent
// plus the source device id it came from.
type MixedPointerEvent struct {
	Source DeviceID
	MouseEvent
}

var mixedPointerEventType = reflect.TypeOf(MixedPointerEvent{})

// PointerMixer is a C6 provider that fans in several Mouse sources (e.g.
// one per connected pointing device) into a single ordered stream at
// <mount>/events, so a consumer doesn't need to know how many physical
// pointers are attached.
type PointerMixer struct {
	prefix string
	out    *EventQueue

	mu      sync.Mutex
	sources map[DeviceID]*Mouse
}

func NewPointerMixer() *PointerMixer {
	return &PointerMixer{out: NewEventQueue(), sources: make(map[DeviceID]*Mouse)}
}

// AddSource registers a Mouse provider to be mixed in under id, draining
// it on a background goroutine until Shutdown or RemoveSource.
func (p *PointerMixer) AddSource(id DeviceID, m *Mouse) {
	p.mu.Lock()
	p.sources[id] = m
	p.mu.Unlock()

	go p.drain(id, m)
}

func (p *PointerMixer) drain(id DeviceID, m *Mouse) {
	for {
		v, err := m.queue.Out(mouseEventType, core.Out{DoBlock: true, Timeout: core.NeverTimeout})
		if err != nil {
			return
		}
		p.mu.Lock()
		_, stillAttached := p.sources[id]
		p.mu.Unlock()
		if !stillAttached {
			return
		}
		ev := v.(MouseEvent)
		p.out.Push(MixedPointerEvent{Source: id, MouseEvent: ev})
	}
}

// RemoveSource detaches a previously added source. Its drain goroutine
// stays blocked on the source's queue and exits only when the source's
// next event arrives (that event is dropped) or the source's queue is
// shut down; it is not cancelled eagerly.
func (p *PointerMixer) RemoveSource(id DeviceID) {
	p.mu.Lock()
	delete(p.sources, id)
	p.mu.Unlock()
}

func (p *PointerMixer) In(tail path.Iterator, value any, opts core.InOptions) InsertReturn {
	return InsertReturn{Errors: []error{core.New(core.CodeInvalidPermissions, "pointermixer is read-only; feed via AddSource").WithPath(tail.Full())}}
}

func (p *PointerMixer) Out(tail path.Iterator, want reflect.Type, opts core.Out) (any, error) {
	if !tail.AtFinalComponent() || tail.Component() != "events" {
		return nil, core.New(core.CodeNoSuchPath, "pointermixer exposes only /events").WithPath(tail.Full())
	}
	if want != mixedPointerEventType {
		return nil, core.ErrTypeMismatch
	}
	return p.out.Out(want, opts)
}

func (p *PointerMixer) Shutdown() {
	p.mu.Lock()
	p.sources = make(map[DeviceID]*Mouse)
	p.mu.Unlock()
	p.out.Shutdown()
}

func (p *PointerMixer) Notify(pth string)                              {}
func (p *PointerMixer) AdoptContextAndPrefix(bus *notify.Bus, prefix string) { p.prefix = prefix }
