package notify

import (
	"context"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/ChristofferGreen/pathspace/pkg/natsutil"
)

// NotifyMessage is the payload republished onto NATS for each local
// notification; out-of-process observers use it purely for awareness,
// never as a trigger for their own blocking waits (mirrors are never
// authoritative).
type NotifyMessage struct {
	Path string `json:"path"`
}

// NatsMirror republishes Bus.Notify calls onto a NATS subject tree so a
// separate process can observe write activity without being mounted
// into the PathSpace itself. It never subscribes back onto the bus: the
// data flow is one-way, local-bus to NATS.
type NatsMirror struct {
	nc          *nats.Conn
	subjectRoot string
}

// NewNatsMirror creates a mirror that publishes under subjectRoot (e.g.
// "pathspace.notify"); each local path becomes a subtopic by replacing
// "/" with ".".
func NewNatsMirror(nc *nats.Conn, subjectRoot string) *NatsMirror {
	return &NatsMirror{nc: nc, subjectRoot: strings.TrimSuffix(subjectRoot, ".")}
}

// Attach registers the mirror as a sink on bus; every subsequent Notify
// call best-effort-publishes a NotifyMessage onto the mirror's subject
// tree. Publish errors are swallowed: a mirror outage must never affect
// local notification delivery.
func (m *NatsMirror) Attach(bus *Bus) {
	bus.AddSink(func(p string) {
		_ = natsutil.Publish(context.Background(), m.nc, m.subject(p), NotifyMessage{Path: p})
	})
}

func (m *NatsMirror) subject(p string) string {
	trimmed := strings.Trim(p, "/")
	if trimmed == "" {
		return m.subjectRoot + ".root"
	}
	return m.subjectRoot + "." + strings.ReplaceAll(trimmed, "/", ".")
}

// Subscribe is a convenience for tests and out-of-process observers: it
// decodes NotifyMessage values published under subjectRoot.
func Subscribe(nc *nats.Conn, subjectRoot string, handler func(context.Context, NotifyMessage)) (*nats.Subscription, error) {
	return natsutil.Subscribe(nc, strings.TrimSuffix(subjectRoot, ".")+".>", handler)
}
