package htmlforward

import (
	"context"
	"testing"
	"time"

	"github.com/ChristofferGreen/pathspace/pathspace"
)

func TestRemoteMountServiceRoundTrip(t *testing.T) {
	orig := ListenReadyTimeout
	ListenReadyTimeout = 750 * time.Millisecond
	defer func() { ListenReadyTimeout = orig }()

	ps := pathspace.New()
	launcher := NewGRPCLauncher("", ps)

	addr, err := launcher.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer launcher.Stop()

	client, err := DialRemoteClient(addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Insert(ctx, "/scene/rev", float64(7)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	v, err := client.Read(ctx, "/scene/rev", Out{})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if v != float64(7) {
		t.Fatalf("read value = %v, want 7", v)
	}

	taken, err := client.Take(ctx, "/scene/rev", Out{})
	if err != nil {
		t.Fatalf("take: %v", err)
	}
	if taken != float64(7) {
		t.Fatalf("take value = %v, want 7", taken)
	}

	if _, err := client.Read(ctx, "/scene/rev", Out{}); err == nil {
		t.Fatal("expected error reading after take drained the value")
	}
}

func TestRemoteMountServiceListChildren(t *testing.T) {
	ps := pathspace.New()
	launcher := NewGRPCLauncher("", ps)
	addr, err := launcher.Start(context.Background())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer launcher.Stop()

	client, err := DialRemoteClient(addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	if err := client.Insert(ctx, "/a/x", "hi"); err != nil {
		t.Fatal(err)
	}
	if err := client.Insert(ctx, "/a/y", "there"); err != nil {
		t.Fatal(err)
	}

	children, err := client.ListChildren(ctx, "/a")
	if err != nil {
		t.Fatalf("list children: %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("expected 2 children, got %v", children)
	}
}

func TestGRPCLauncherStopIsIdempotent(t *testing.T) {
	ps := pathspace.New()
	launcher := NewGRPCLauncher("", ps)
	if _, err := launcher.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := launcher.Stop(); err != nil {
		t.Fatal(err)
	}
	if err := launcher.Stop(); err != nil {
		t.Fatalf("second stop should be a no-op, got %v", err)
	}
}
