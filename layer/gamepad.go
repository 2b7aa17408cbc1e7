package layer

import (
	"reflect"
	"sync"

	"github.com/ChristofferGreen/pathspace/core"
	"github.com/ChristofferGreen/pathspace/notify"
	"github.com/ChristofferGreen/pathspace/path"
)

// DeviceID identifies one physical gamepad within a Gamepad provider.
type DeviceID uint32

// GamepadEvent is the payload type read from <mount>/events.
type GamepadEvent struct {
	Device       DeviceID
	Buttons      uint32
	LeftStickX   float64
	LeftStickY   float64
	RightStickX  float64
	RightStickY  float64
	Disconnected bool
}

// HapticsCommand is the payload type written to <mount>/haptics. Motor
// amplitudes are clamped to [0, 1] at the provider boundary, never by
// the caller.
type HapticsCommand struct {
	Device      DeviceID
	LowFreqMag  float64
	HighFreqMag float64
}

var (
	gamepadEventType   = reflect.TypeOf(GamepadEvent{})
	hapticsCommandType = reflect.TypeOf(HapticsCommand{})
)

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Gamepad is a C6 provider multiplexing an arbitrary number of physical
// controllers behind one mount: /events carries the inbound stream and
// /haptics accepts outbound force-feedback commands. Per device, only
// the most recent haptics command is kept (a command, not a queue), and
// a Disconnected event flushes any buffered events for that device.
type Gamepad struct {
	prefix string
	events *EventQueue

	mu          sync.Mutex
	lastHaptics map[DeviceID]HapticsCommand
}

func NewGamepad() *Gamepad {
	return &Gamepad{
		events:      NewEventQueue(),
		lastHaptics: make(map[DeviceID]HapticsCommand),
	}
}

// Feed injects an inbound controller event, applying disconnect-flush
// semantics when ev.Disconnected is set.
func (g *Gamepad) Feed(ev GamepadEvent) {
	if ev.Disconnected {
		g.handleDisconnect(ev.Device)
	}
	g.events.Push(ev)
}

// handleDisconnect drops any buffered events for device and its last
// haptics command, since nothing can be delivered to a disconnected pad.
func (g *Gamepad) handleDisconnect(device DeviceID) {
	g.events.mu.Lock()
	kept := g.events.items[:0]
	for _, item := range g.events.items {
		if ev, ok := item.val.(GamepadEvent); ok && ev.Device == device {
			continue
		}
		kept = append(kept, item)
	}
	g.events.items = kept
	g.events.mu.Unlock()

	g.mu.Lock()
	delete(g.lastHaptics, device)
	g.mu.Unlock()
}

// LastHaptics returns the most recently accepted haptics command for
// device, if any.
func (g *Gamepad) LastHaptics(device DeviceID) (HapticsCommand, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cmd, ok := g.lastHaptics[device]
	return cmd, ok
}

func (g *Gamepad) In(tail path.Iterator, value any, opts core.InOptions) InsertReturn {
	if !tail.AtFinalComponent() {
		return InsertReturn{Errors: []error{core.New(core.CodeNoSuchPath, "gamepad exposes only /events and /haptics").WithPath(tail.Full())}}
	}
	switch tail.Component() {
	case "events":
		ev, ok := value.(GamepadEvent)
		if !ok {
			return InsertReturn{Errors: []error{core.New(core.CodeInvalidType, "gamepad /events accepts only GamepadEvent").WithPath(tail.Full())}}
		}
		g.Feed(ev)
		return InsertReturn{NbrValuesInserted: 1}
	case "haptics":
		cmd, ok := value.(HapticsCommand)
		if !ok {
			return InsertReturn{Errors: []error{core.New(core.CodeInvalidType, "gamepad /haptics accepts only HapticsCommand").WithPath(tail.Full())}}
		}
		cmd.LowFreqMag = clamp01(cmd.LowFreqMag)
		cmd.HighFreqMag = clamp01(cmd.HighFreqMag)
		g.mu.Lock()
		g.lastHaptics[cmd.Device] = cmd
		g.mu.Unlock()
		return InsertReturn{NbrValuesInserted: 1}
	default:
		return InsertReturn{Errors: []error{core.New(core.CodeNoSuchPath, "gamepad exposes only /events and /haptics").WithPath(tail.Full())}}
	}
}

func (g *Gamepad) Out(tail path.Iterator, want reflect.Type, opts core.Out) (any, error) {
	if !tail.AtFinalComponent() || tail.Component() != "events" {
		return nil, core.New(core.CodeNoSuchPath, "gamepad exposes reads only at /events").WithPath(tail.Full())
	}
	if want != gamepadEventType {
		return nil, core.ErrTypeMismatch
	}
	return g.events.Out(want, opts)
}

func (g *Gamepad) Shutdown()                                          { g.events.Shutdown() }
func (g *Gamepad) Notify(p string)                                     {}
func (g *Gamepad) AdoptContextAndPrefix(bus *notify.Bus, prefix string) { g.prefix = prefix }
