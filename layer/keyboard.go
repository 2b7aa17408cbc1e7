package layer

import (
	"reflect"

	"github.com/ChristofferGreen/pathspace/core"
	"github.com/ChristofferGreen/pathspace/notify"
	"github.com/ChristofferGreen/pathspace/path"
)

// KeyEvent is the payload type for a Keyboard mount's /events path.
type KeyEvent struct {
	Key     string
	Pressed bool
}

var keyEventType = reflect.TypeOf(KeyEvent{})

// Keyboard is a C6 provider exposing a single device's key-event stream
// at <mount>/events.
type Keyboard struct {
	prefix string
	queue  *EventQueue
}

func NewKeyboard() *Keyboard {
	return &Keyboard{queue: NewEventQueue()}
}

// Feed injects an event as if it came from the physical device.
func (k *Keyboard) Feed(ev KeyEvent) { k.queue.Push(ev) }

func (k *Keyboard) In(tail path.Iterator, value any, opts core.InOptions) InsertReturn {
	if tail.Component() != "events" || !tail.AtFinalComponent() {
		return InsertReturn{Errors: []error{core.New(core.CodeNoSuchPath, "keyboard exposes only /events").WithPath(tail.Full())}}
	}
	ev, ok := value.(KeyEvent)
	if !ok {
		return InsertReturn{Errors: []error{core.New(core.CodeInvalidType, "keyboard accepts only KeyEvent").WithPath(tail.Full())}}
	}
	k.queue.Push(ev)
	return InsertReturn{NbrValuesInserted: 1}
}

func (k *Keyboard) Out(tail path.Iterator, want reflect.Type, opts core.Out) (any, error) {
	if tail.Component() != "events" || !tail.AtFinalComponent() {
		return nil, core.New(core.CodeNoSuchPath, "keyboard exposes only /events").WithPath(tail.Full())
	}
	if want != keyEventType {
		return nil, core.ErrTypeMismatch
	}
	return k.queue.Out(want, opts)
}

func (k *Keyboard) Shutdown()                                          { k.queue.Shutdown() }
func (k *Keyboard) Notify(p string)                                     {}
func (k *Keyboard) AdoptContextAndPrefix(bus *notify.Bus, prefix string) { k.prefix = prefix }
