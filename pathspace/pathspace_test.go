package pathspace

import (
	"errors"
	"testing"
	"time"

	"github.com/ChristofferGreen/pathspace/core"
	"github.com/ChristofferGreen/pathspace/layer"
)

func TestS1ReadThenTake(t *testing.T) {
	ps := New()
	if _, err := ps.Insert("/a", 7); err != nil {
		t.Fatal(err)
	}
	if v, err := Read[int](ps, "/a"); err != nil || v != 7 {
		t.Fatalf("first read: v=%v err=%v", v, err)
	}
	if v, err := Read[int](ps, "/a"); err != nil || v != 7 {
		t.Fatalf("second read: v=%v err=%v", v, err)
	}
	if v, err := Take[int](ps, "/a"); err != nil || v != 7 {
		t.Fatalf("take: v=%v err=%v", v, err)
	}
	if _, err := Read[int](ps, "/a"); !errors.Is(err, core.ErrNoObjectFound) {
		t.Fatalf("expected NoObjectFound after take, got %v", err)
	}
}

func TestS2TypeMismatchThenCorrectTake(t *testing.T) {
	ps := New()
	if _, err := ps.Insert("/q", "hi"); err != nil {
		t.Fatal(err)
	}
	if _, err := Read[int](ps, "/q"); !errors.Is(err, core.ErrTypeMismatch) {
		t.Fatalf("expected TypeMismatch, got %v", err)
	}
	if v, err := Take[string](ps, "/q"); err != nil || v != "hi" {
		t.Fatalf("take: v=%v err=%v", v, err)
	}
}

func TestS3BlockingReadWakesOnInsert(t *testing.T) {
	ps := New()
	go func() {
		time.Sleep(10 * time.Millisecond)
		ps.Insert("/w", 42)
	}()

	start := time.Now()
	v, err := Read[int](ps, "/w", core.Block(500*time.Millisecond))
	if err != nil || v != 42 {
		t.Fatalf("v=%v err=%v", v, err)
	}
	if time.Since(start) >= 500*time.Millisecond {
		t.Fatal("expected to return well before the timeout")
	}
}

func TestS4TimeoutWithinSlack(t *testing.T) {
	ps := New()
	start := time.Now()
	_, err := Read[int](ps, "/missing", core.Block(20*time.Millisecond))
	elapsed := time.Since(start)
	if !errors.Is(err, core.ErrTimeout) {
		t.Fatalf("expected Timeout, got %v", err)
	}
	if elapsed < 18*time.Millisecond || elapsed > 200*time.Millisecond {
		t.Fatalf("elapsed = %v, want roughly [18ms, 60ms] (loosened for CI)", elapsed)
	}
}

func TestGlobInsertExpandsOverExistingTrie(t *testing.T) {
	ps := New()
	ps.Insert("/dev/a/events", 0)
	ps.Insert("/dev/b/events", 0)
	ps.Insert("/dev/c/other", 0)

	res, err := ps.Insert("/dev/*/events", 99)
	if err != nil {
		t.Fatal(err)
	}
	if res.NbrValuesInserted != 2 {
		t.Fatalf("expected 2 glob targets matched, got %+v", res)
	}

	if v, err := Take[int](ps, "/dev/a/events"); err != nil || v != 99 {
		t.Fatalf("/dev/a/events: v=%v err=%v", v, err)
	}
	if v, err := Take[int](ps, "/dev/b/events"); err != nil || v != 99 {
		t.Fatalf("/dev/b/events: v=%v err=%v", v, err)
	}
}

func TestListChildrenSorted(t *testing.T) {
	ps := New()
	ps.Insert("/dev/c", 1)
	ps.Insert("/dev/a", 1)
	ps.Insert("/dev/b", 1)

	names, err := ps.ListChildren("/dev")
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 3 || names[0] != "a" || names[1] != "b" || names[2] != "c" {
		t.Fatalf("unexpected order: %v", names)
	}
}

func TestClearDrainsEverything(t *testing.T) {
	ps := New()
	ps.Insert("/a/b/c", 1)
	ps.Clear()

	if _, err := Read[int](ps, "/a/b/c"); !errors.Is(err, core.ErrNoSuchPath) {
		t.Fatalf("expected NoSuchPath after Clear, got %v", err)
	}
}

func TestS6MountedMouseProviderTakeWakesOnSimulate(t *testing.T) {
	ps := New()
	m := layer.NewMouse()
	if err := ps.Mount("/dev/mouse", m); err != nil {
		t.Fatal(err)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		m.Feed(layer.MouseEvent{DX: 3, DY: 4})
	}()

	ev, err := Take[layer.MouseEvent](ps, "/dev/mouse/events", core.Block(100*time.Millisecond))
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if ev.DX != 3 || ev.DY != 4 {
		t.Fatalf("unexpected event: %+v", ev)
	}
}

func TestProviderForbidsWrongType(t *testing.T) {
	ps := New()
	m := layer.NewMouse()
	if err := ps.Mount("/dev/mouse", m); err != nil {
		t.Fatal(err)
	}
	res, err := ps.Insert("/dev/mouse/events", "not an event")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Errors) == 0 {
		t.Fatal("expected an error for an unsupported payload type")
	}
}

func TestMountRejectsNestedPrefix(t *testing.T) {
	ps := New()
	if err := ps.Mount("/dev/mouse", layer.NewMouse()); err != nil {
		t.Fatal(err)
	}
	if err := ps.Mount("/dev/mouse/extra", layer.NewMouse()); !errors.Is(err, layer.ErrNestedMount) {
		t.Fatalf("expected ErrNestedMount, got %v", err)
	}
}
