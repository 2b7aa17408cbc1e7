// Package pathspace implements the public store (spec component C5):
// insert/read/take over a hierarchical, content-addressed namespace,
// glob expansion, validation ordering, and layer-provider dispatch.
package pathspace

import (
	"errors"
	"reflect"
	"sort"
	"time"

	"github.com/ChristofferGreen/pathspace/core"
	"github.com/ChristofferGreen/pathspace/layer"
	"github.com/ChristofferGreen/pathspace/notify"
	"github.com/ChristofferGreen/pathspace/path"
)

// PathSpace is the root handle: a trie of typed value queues, a shared
// notification bus, and a mount table of layer providers.
type PathSpace struct {
	root     *core.Node
	bus      *notify.Bus
	registry *layer.Registry
}

// New creates an empty PathSpace with no mounted providers.
func New() *PathSpace {
	bus := notify.NewBus()
	return &PathSpace{
		root:     core.NewNode(),
		bus:      bus,
		registry: layer.NewRegistry(bus),
	}
}

// Mount binds provider at prefix. prefix must not nest with an existing
// mount (see layer.ErrNestedMount).
func (ps *PathSpace) Mount(prefix string, provider layer.Provider) error {
	return ps.registry.Mount(prefix, provider)
}

// Unmount shuts down and removes the provider at prefix, if any.
func (ps *PathSpace) Unmount(prefix string) {
	ps.registry.Unmount(prefix)
}

// Shutdown wakes every blocked waiter and every mounted provider's
// workers, and marks the store's bus so further waits fail fast.
func (ps *PathSpace) Shutdown() {
	ps.registry.ShutdownAll()
	ps.bus.Shutdown()
}

// Clear drains every queue and drops every trie node below root. Mounted
// providers are untouched (they own their own state independently of
// the base trie).
func (ps *PathSpace) Clear() {
	ps.root.Clear()
	ps.root.ClearChildren()
	ps.bus.NotifyAll()
}

// Insert writes value at path, expanding glob patterns over the
// existing trie and returning per-target partial-success counts and
// errors (spec §4.5).
func (ps *PathSpace) Insert(p string, value any, opts ...core.InOption) (layer.InsertReturn, error) {
	in := core.NewInOptions(opts...)
	if err := path.Validate(p, in.ValidationLevel); err != nil {
		return layer.InsertReturn{}, err
	}

	if path.IsGlob(p) {
		var total layer.InsertReturn
		for _, target := range ps.expandGlob(p) {
			r := ps.insertConcrete(target, value, in)
			total.NbrValuesInserted += r.NbrValuesInserted
			total.Errors = append(total.Errors, r.Errors...)
		}
		return total, nil
	}

	return ps.insertConcrete(p, value, in), nil
}

func (ps *PathSpace) insertConcrete(p string, value any, in core.InOptions) layer.InsertReturn {
	if provider, tail, ok := ps.registry.Resolve(p); ok {
		return provider.In(tail, value, in)
	}
	node := ps.resolveNodeCreate(p)
	node.Enqueue(value)
	ps.bus.Notify(p)
	return layer.InsertReturn{NbrValuesInserted: 1}
}

// Read performs a non-destructive peek of the head value at path, typed
// as T. With Block(timeout), it waits for a matching value to appear
// (spec's blocking read/take protocol, §4.5).
func Read[T any](ps *PathSpace, p string, opts ...core.OutOption) (T, error) {
	return access[T](ps, p, false, opts...)
}

// Take is Read but removes the head value from the queue on success.
func Take[T any](ps *PathSpace, p string, opts ...core.OutOption) (T, error) {
	return access[T](ps, p, true, opts...)
}

func access[T any](ps *PathSpace, p string, pop bool, opts ...core.OutOption) (T, error) {
	var zero T
	out := core.NewOut(opts...)
	if pop {
		out.DoPop = true
	}

	if err := path.Validate(p, out.ValidationLevel); err != nil {
		return zero, err
	}
	if path.IsGlob(p) {
		return zero, core.New(core.CodeInvalidPath, "read/take requires a concrete path").WithPath(p)
	}

	want := reflect.TypeOf(zero)

	if provider, tail, ok := ps.registry.Resolve(p); ok {
		v, err := provider.Out(tail, want, out)
		if err != nil {
			return zero, err
		}
		typed, ok := v.(T)
		if !ok {
			return zero, core.ErrTypeMismatch.WithPath(p)
		}
		return typed, nil
	}

	attempt := func() (T, error) {
		node, err := ps.resolveNodeReadOnly(p)
		if err != nil {
			return zero, err
		}
		var raw any
		if out.DoPop {
			raw, err = node.PopHead(want)
		} else {
			raw, err = node.PeekHead(want)
		}
		if err != nil {
			return zero, err
		}
		return raw.(T), nil
	}

	if !out.DoBlock {
		return attempt()
	}

	deadline := time.Now().Add(out.Timeout)
	retryable := func(err error) bool {
		return core.IsCode(err, core.CodeNoObjectFound) || core.IsCode(err, core.CodeTypeMismatch)
	}
	v, err := notify.WaitUntil(ps.bus, p, deadline, retryable, attempt)
	if err != nil {
		return zero, mapWaitErr(err, p)
	}
	return v, nil
}

// mapWaitErr translates notify's generic wait-loop sentinels into the
// boundary *core.Error codes callers are expected to errors.Is against;
// notify itself stays error-code-agnostic since it's reused outside
// PathSpace (e.g. layer.EventQueue.Out).
func mapWaitErr(err error, p string) error {
	switch {
	case errors.Is(err, notify.ErrTimeout):
		return core.ErrTimeout.WithPath(p)
	case errors.Is(err, notify.ErrShutdown):
		return core.New(core.CodeInvalidError, "wait aborted: pathspace shut down").WithPath(p)
	default:
		return err
	}
}

// ListChildren returns the sorted component names of path's immediate
// children.
func (ps *PathSpace) ListChildren(p string) ([]string, error) {
	if _, _, ok := ps.registry.Resolve(p); ok {
		return nil, core.New(core.CodeInvalidPermissions, "listChildren is not supported inside a mounted provider").WithPath(p)
	}
	node, err := ps.resolveNodeReadOnly(p)
	if err != nil {
		return nil, err
	}
	names := node.ChildNames()
	sort.Strings(names)
	return names, nil
}

// DeleteSubtree removes path and everything below it from the base
// trie. It is a no-op (not an error) if the path doesn't exist, so
// callers like scene retention pruning can call it unconditionally.
func (ps *PathSpace) DeleteSubtree(p string) {
	it := path.NewIterator(p)
	if it.AtEnd() {
		ps.Clear()
		return
	}
	node := ps.root
	for {
		name := it.Component()
		it.Advance()
		if it.AtEnd() {
			node.RemoveChild(name)
			return
		}
		next := node.Child(name)
		if next == nil {
			return
		}
		node = next
	}
}

func (ps *PathSpace) resolveNodeReadOnly(p string) (*core.Node, error) {
	node := ps.root
	it := path.NewIterator(p)
	for !it.AtEnd() {
		next := node.Child(it.Component())
		if next == nil {
			return nil, core.ErrNoSuchPath.WithPath(p)
		}
		node = next
		it.Advance()
	}
	return node, nil
}

func (ps *PathSpace) resolveNodeCreate(p string) *core.Node {
	node := ps.root
	for it := path.NewIterator(p); !it.AtEnd(); it.Advance() {
		node = node.GetOrCreateChild(it.Component())
	}
	return node
}

// expandGlob walks the existing trie collecting every concrete path that
// matches pattern. Only the base trie is walked; mounted provider
// subtrees don't expose a child listing and are never glob targets.
func (ps *PathSpace) expandGlob(pattern string) []string {
	var matches []string
	var walk func(node *core.Node, prefix string)
	walk = func(node *core.Node, prefix string) {
		for _, name := range node.ChildNames() {
			child := node.Child(name)
			if child == nil {
				continue
			}
			full := prefix + "/" + name
			if path.MatchPaths(pattern, full) {
				matches = append(matches, full)
			}
			walk(child, full)
		}
	}
	walk(ps.root, "")
	return matches
}
