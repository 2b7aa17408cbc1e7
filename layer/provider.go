// Package layer implements the pluggable layer-provider contract (spec
// component C4) and the built-in I/O providers (component C6): mouse,
// keyboard, gamepad, a pointer mixer, device discovery, a stdout sink,
// and two domain-stack mirrors (graph, vector) that exercise the rest of
// the example pack's dependency surface.
package layer

import (
	"reflect"

	"github.com/ChristofferGreen/pathspace/core"
	"github.com/ChristofferGreen/pathspace/notify"
	"github.com/ChristofferGreen/pathspace/path"
)

// InsertReturn reports the outcome of a layer's In call: how many values
// were actually accepted, plus one error per rejected target (partial
// success, matching PathSpace.Insert's glob semantics).
type InsertReturn struct {
	NbrValuesInserted int
	Errors            []error
}

// Provider is the capability set every layer implements: BaseTrie (the
// default, implemented in package pathspace) and every C6 provider below
// all satisfy this interface, dispatched on without inheritance.
type Provider interface {
	// In handles an insert whose path tail (relative to the mount
	// prefix) is tail. Providers that take no inserts (PointerMixer,
	// DeviceDiscovery) return a single InvalidPermissions error and zero
	// insertions; Mouse, Keyboard and Gamepad accept a value of their own
	// event type and queue it like a fed event.
	In(tail path.Iterator, value any, opts core.InOptions) InsertReturn

	// Out handles a read/take whose path tail is tail, want is the
	// caller's requested type, and opts carries block/pop/timeout. doPop
	// is read from opts.DoPop; the provider must not remove the value
	// unless doPop is set.
	Out(tail path.Iterator, want reflect.Type, opts core.Out) (any, error)

	// Shutdown stops any worker goroutines and releases backend handles.
	// Must be safe to call more than once.
	Shutdown()

	// Notify is the provider's inbound wake channel: the owning
	// PathSpace calls it when an external event (not necessarily from
	// this provider) might be relevant. Most providers no-op.
	Notify(p string)

	// AdoptContextAndPrefix binds the provider to its mount's shared bus
	// and prefix string, called once at Mount time.
	AdoptContextAndPrefix(bus *notify.Bus, prefix string)
}
