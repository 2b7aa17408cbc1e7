// Package htmlforward implements the remote-mount forwarding facade
// (spec component C8): a local PathSpace prefix is transparently
// forwarded, over a hand-wired gRPC service carried by structpb values,
// to a PathSpace living in a separate process.
package htmlforward

import (
	"google.golang.org/protobuf/types/known/structpb"
)

// ForwardedValue is the single concrete type every forwarded Insert/Read
// wraps its payload in on the remote side, so a generic "any" payload
// still has one fixed Go type the remote PathSpace's queue can match on
// (the base trie tags queue entries by concrete type, so a literal `any`
// could never round-trip through Read/Take).
type ForwardedValue struct {
	Value *structpb.Value
}

func toStructValue(v any) (*structpb.Value, error) {
	return structpb.NewValue(v)
}

func fromStructValue(v *structpb.Value) any {
	if v == nil {
		return nil
	}
	return v.AsInterface()
}
