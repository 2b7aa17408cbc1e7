package layer

import (
	"errors"
	"strings"
	"sync"

	"github.com/ChristofferGreen/pathspace/notify"
	"github.com/ChristofferGreen/pathspace/path"
)

// ErrNestedMount is returned by Registry.Mount when the requested prefix
// is an ancestor or descendant of an already-mounted prefix. Nested
// mounts are forbidden so dispatch never has to choose between two
// providers that both claim a path.
var ErrNestedMount = errors.New("layer: mount prefixes may not nest")

// Registry is the C4 mount table: it maps path prefixes to Provider
// instances and resolves which provider (if any) owns a given path.
type Registry struct {
	mu     sync.RWMutex
	mounts map[string]Provider
	bus    *notify.Bus
}

// NewRegistry creates an empty mount table sharing bus with its owner
// PathSpace, so every mounted provider can participate in the same
// wait/notify protocol as the base trie.
func NewRegistry(bus *notify.Bus) *Registry {
	return &Registry{mounts: make(map[string]Provider), bus: bus}
}

func isAncestorOrSame(a, b string) bool {
	if a == "/" {
		return true
	}
	return b == a || strings.HasPrefix(b, a+"/")
}

// Mount registers p at prefix. prefix must be a validated concrete path;
// it's rejected with ErrNestedMount if it nests with any existing mount.
func (r *Registry) Mount(prefix string, p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for existing := range r.mounts {
		if isAncestorOrSame(existing, prefix) || isAncestorOrSame(prefix, existing) {
			return ErrNestedMount
		}
	}

	p.AdoptContextAndPrefix(r.bus, prefix)
	r.mounts[prefix] = p
	return nil
}

// Unmount shuts down and removes the provider at prefix, if any.
func (r *Registry) Unmount(prefix string) {
	r.mu.Lock()
	p, ok := r.mounts[prefix]
	delete(r.mounts, prefix)
	r.mu.Unlock()
	if ok {
		p.Shutdown()
	}
}

// Resolve finds the provider (if any) whose mount prefix is an ancestor
// of (or equal to) p, and returns it along with an iterator positioned
// at the path tail relative to that mount.
func (r *Registry) Resolve(p string) (Provider, path.Iterator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var bestPrefix string
	var bestProvider Provider
	for prefix, provider := range r.mounts {
		if isAncestorOrSame(prefix, p) && len(prefix) > len(bestPrefix) {
			bestPrefix, bestProvider = prefix, provider
		}
	}
	if bestProvider == nil {
		return nil, path.Iterator{}, false
	}

	tail := strings.TrimPrefix(p, bestPrefix)
	if tail == "" {
		tail = "/"
	}
	return bestProvider, path.NewIterator(tail), true
}

// ShutdownAll shuts down and removes every mounted provider.
func (r *Registry) ShutdownAll() {
	r.mu.Lock()
	mounts := r.mounts
	r.mounts = make(map[string]Provider)
	r.mu.Unlock()
	for _, p := range mounts {
		p.Shutdown()
	}
}
