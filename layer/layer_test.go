package layer

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ChristofferGreen/pathspace/core"
	"github.com/ChristofferGreen/pathspace/notify"
	"github.com/ChristofferGreen/pathspace/path"
)

func TestRegistryRejectsNestedMounts(t *testing.T) {
	bus := notify.NewBus()
	r := NewRegistry(bus)

	if err := r.Mount("/dev/mouse", NewMouse()); err != nil {
		t.Fatalf("first mount: %v", err)
	}
	if err := r.Mount("/dev/mouse/extra", NewMouse()); err == nil {
		t.Fatal("expected ErrNestedMount for a descendant prefix")
	}
	if err := r.Mount("/dev", NewMouse()); err == nil {
		t.Fatal("expected ErrNestedMount for an ancestor prefix")
	}
}

func TestRegistryResolveLongestPrefix(t *testing.T) {
	bus := notify.NewBus()
	r := NewRegistry(bus)
	m := NewMouse()
	if err := r.Mount("/dev/mouse", m); err != nil {
		t.Fatal(err)
	}

	p, tail, ok := r.Resolve("/dev/mouse/events")
	if !ok || p != Provider(m) {
		t.Fatal("expected to resolve the mounted mouse provider")
	}
	if tail.Component() != "events" {
		t.Fatalf("tail component = %q, want events", tail.Component())
	}

	if _, _, ok := r.Resolve("/dev/keyboard/events"); ok {
		t.Fatal("unrelated path should not resolve")
	}
}

func TestMouseInsertAndBlockingRead(t *testing.T) {
	m := NewMouse()
	tail := path.NewIterator("/events")

	res := m.In(tail, MouseEvent{DX: 1}, core.DefaultInOptions)
	if res.NbrValuesInserted != 1 {
		t.Fatalf("expected 1 insertion, got %+v", res)
	}

	v, err := m.Out(tail, mouseEventType, core.Out{DoBlock: true, Timeout: time.Second})
	if err != nil {
		t.Fatalf("Out: %v", err)
	}
	if v.(MouseEvent).DX != 1 {
		t.Fatalf("got %+v", v)
	}
}

func TestMouseBlockingReadWakesOnFeed(t *testing.T) {
	m := NewMouse()
	tail := path.NewIterator("/events")

	go func() {
		time.Sleep(10 * time.Millisecond)
		m.Feed(MouseEvent{DX: 2})
	}()

	v, err := m.Out(tail, mouseEventType, core.Out{DoBlock: true, Timeout: 500 * time.Millisecond})
	if err != nil {
		t.Fatalf("Out: %v", err)
	}
	if v.(MouseEvent).DX != 2 {
		t.Fatalf("got %+v", v)
	}
}

func TestGamepadHapticsClamped(t *testing.T) {
	g := NewGamepad()
	tail := path.NewIterator("/haptics")

	res := g.In(tail, HapticsCommand{Device: 1, LowFreqMag: 2.5, HighFreqMag: -1}, core.DefaultInOptions)
	if res.NbrValuesInserted != 1 {
		t.Fatalf("expected 1 insertion, got %+v", res)
	}

	cmd, ok := g.LastHaptics(1)
	if !ok {
		t.Fatal("expected a stored haptics command")
	}
	if cmd.LowFreqMag != 1 || cmd.HighFreqMag != 0 {
		t.Fatalf("clamp failed: %+v", cmd)
	}
}

func TestGamepadDisconnectFlushesBufferedEvents(t *testing.T) {
	g := NewGamepad()
	g.Feed(GamepadEvent{Device: 1})
	g.Feed(GamepadEvent{Device: 2})
	g.Feed(GamepadEvent{Device: 1, Disconnected: true})

	g.events.mu.Lock()
	n := len(g.events.items)
	g.events.mu.Unlock()
	// Device 1's buffered event is flushed; device 2's event and the
	// disconnect notice itself remain queued.
	if n != 2 {
		t.Fatalf("expected device 2's event plus the disconnect event, got %d items", n)
	}
	if _, ok := g.LastHaptics(1); ok {
		t.Fatal("expected haptics cleared for disconnected device")
	}
}

func TestPointerMixerFansInMultipleSources(t *testing.T) {
	mixer := NewPointerMixer()
	a, b := NewMouse(), NewMouse()
	mixer.AddSource(1, a)
	mixer.AddSource(2, b)

	a.Feed(MouseEvent{DX: 1})
	b.Feed(MouseEvent{DX: 2})

	seen := map[DeviceID]bool{}
	tail := path.NewIterator("/events")
	for i := 0; i < 2; i++ {
		v, err := mixer.Out(tail, mixedPointerEventType, core.Out{DoBlock: true, Timeout: time.Second})
		if err != nil {
			t.Fatalf("Out: %v", err)
		}
		seen[v.(MixedPointerEvent).Source] = true
	}
	if !seen[1] || !seen[2] {
		t.Fatalf("expected events from both sources, got %+v", seen)
	}
}

func TestDeviceDiscoveryClassSynonymsAndMeta(t *testing.T) {
	d := NewDeviceDiscovery()
	info := d.Register("mouse", "Generic USB Mouse")

	listTail := path.NewIterator("/mice")
	list, err := d.Out(listTail, deviceInfoType, core.DefaultOut)
	if err != nil {
		t.Fatalf("listing /mice: %v", err)
	}
	if len(list.([]DeviceInfo)) != 1 {
		t.Fatalf("expected 1 registered mouse, got %+v", list)
	}

	metaTail := path.NewIterator("/mice/" + info.ID + "/meta")
	v, err := d.Out(metaTail, reflect.TypeOf(""), core.DefaultOut)
	if err != nil {
		t.Fatalf("reading meta: %v", err)
	}
	meta := v.(string)
	if !strings.Contains(meta, "class=mouse") || !strings.Contains(meta, "name=Generic USB Mouse") {
		t.Fatalf("unexpected meta blob: %q", meta)
	}
}

func TestStdOutWritesLine(t *testing.T) {
	var buf bytes.Buffer
	s := NewStdOutWriter(&buf)
	tail := path.NewIterator("/log")

	res := s.In(tail, "hello", core.DefaultInOptions)
	if res.NbrValuesInserted != 1 {
		t.Fatalf("expected 1 insertion, got %+v", res)
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("expected output to contain hello, got %q", buf.String())
	}
}
