package notify

import (
	"context"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

func startTestNATS(t *testing.T) *nats.Conn {
	t.Helper()
	srv, err := natsserver.NewServer(&natsserver.Options{Port: -1})
	if err != nil {
		t.Fatal(err)
	}
	srv.Start()
	if !srv.ReadyForConnections(3 * time.Second) {
		t.Fatal("nats not ready")
	}
	nc, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		nc.Close()
		srv.Shutdown()
	})
	return nc
}

func TestNatsMirrorRepublishesNotifications(t *testing.T) {
	nc := startTestNATS(t)
	bus := NewBus()
	mirror := NewNatsMirror(nc, "pathspace.notify")
	mirror.Attach(bus)

	received := make(chan NotifyMessage, 1)
	sub, err := Subscribe(nc, "pathspace.notify", func(_ context.Context, msg NotifyMessage) {
		received <- msg
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Unsubscribe()

	// Give the subscription a moment to register before publishing.
	time.Sleep(50 * time.Millisecond)
	bus.Notify("/dev/mouse/events")

	select {
	case msg := <-received:
		if msg.Path != "/dev/mouse/events" {
			t.Fatalf("unexpected path: %q", msg.Path)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for mirrored notification")
	}
}

func TestNatsMirrorDoesNotBlockLocalWaiters(t *testing.T) {
	nc := startTestNATS(t)
	bus := NewBus()
	mirror := NewNatsMirror(nc, "pathspace.notify")
	mirror.Attach(bus)

	_, ch := bus.Register("/a")
	bus.Notify("/a/b")

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("local waiter was not woken despite a mirror being attached")
	}
}
