package htmlforward

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ChristofferGreen/pathspace/pkg/mid"
	"github.com/ChristofferGreen/pathspace/pkg/resilience"
)

// Config describes one remote mount the facade forwards local calls
// into.
type Config struct {
	// Alias names this remote mount; combined with MountPrefix it forms
	// the alias path "<MountPrefix>/<Alias>" every forwarded call is
	// addressed under.
	Alias string
	// MetricsRoot is the local HTTP path the facade's admin surface is
	// served under (e.g. "/admin/remote/<alias>").
	MetricsRoot string
	// MountPrefix is the shared root every remote alias lives under
	// (e.g. "/remote"); defaults to "/remote" if empty.
	MountPrefix string
	// RequireHealthy makes Start fail if the remote doesn't answer a
	// ListChildren("/") probe within ListenReadyTimeout.
	RequireHealthy bool
	// ForwardRateLimit caps forward_* calls per second; zero means
	// unlimited.
	ForwardRateLimit float64
}

// Facade forwards Insert/Read/Take/ListChildren calls to a remote
// PathSpace reached via client, addressing every call under this
// facade's alias path ("<MountPrefix>/<Alias>") and wrapping the RPC in
// a circuit breaker so a wedged remote fails fast instead of hanging
// every local caller.
type Facade struct {
	cfg     Config
	client  RemoteClient
	breaker *resilience.Breaker
	limiter *rate.Limiter

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewFacade creates a facade forwarding calls under cfg's alias path
// onto client.
func NewFacade(cfg Config, client RemoteClient) *Facade {
	limit := rate.Inf
	if cfg.ForwardRateLimit > 0 {
		limit = rate.Limit(cfg.ForwardRateLimit)
	}
	return &Facade{
		cfg:     cfg,
		client:  client,
		breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Start optionally health-checks the remote before the facade is
// considered usable; safe to call once.
func (f *Facade) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return nil
	}
	f.started = true
	if !f.cfg.RequireHealthy {
		return nil
	}
	probeCtx, cancel := context.WithTimeout(ctx, ListenReadyTimeout)
	defer cancel()
	_, err := f.client.ListChildren(probeCtx, "/")
	if err != nil {
		return fmt.Errorf("htmlforward: remote %q failed health probe: %w", f.cfg.Alias, err)
	}
	return nil
}

// Stop closes the underlying client connection; safe to call more than
// once.
func (f *Facade) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.stopped {
		return nil
	}
	f.stopped = true
	return f.client.Close()
}

// aliasPath returns the full path every call this facade forwards is
// addressed under: cfg.MountPrefix (default "/remote") plus cfg.Alias.
func (f *Facade) aliasPath() string {
	mount := strings.TrimSuffix(f.cfg.MountPrefix, "/")
	if mount == "" {
		mount = "/remote"
	}
	return mount + "/" + f.cfg.Alias
}

// remotePath adds this facade's alias prefix onto an unprefixed caller
// path, e.g. alias path "/remote/gpu1" and caller path "/x/y" forwards
// as "/remote/gpu1/x/y" (spec property 12). A caller path that already
// starts with this facade's alias path is forwarded unchanged; a caller
// path under the shared mount but a different alias is rejected.
func (f *Facade) remotePath(localPath string) (string, error) {
	alias := f.aliasPath()
	if localPath == alias || strings.HasPrefix(localPath, alias+"/") {
		return localPath, nil
	}
	mount := strings.TrimSuffix(f.cfg.MountPrefix, "/")
	if mount == "" {
		mount = "/remote"
	}
	if localPath == mount || strings.HasPrefix(localPath, mount+"/") {
		return "", fmt.Errorf("htmlforward: path %q belongs to a different remote alias than %q", localPath, alias)
	}
	if localPath == "" {
		return alias, nil
	}
	if strings.HasPrefix(localPath, "/") {
		return alias + localPath, nil
	}
	return alias + "/" + localPath, nil
}

// ForwardInsert rewrites localPath and forwards the insert to the
// remote, guarded by the circuit breaker.
func (f *Facade) ForwardInsert(ctx context.Context, localPath string, value any) error {
	remote, err := f.remotePath(localPath)
	if err != nil {
		return err
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return err
	}
	return f.breaker.Call(ctx, func(ctx context.Context) error {
		return f.client.Insert(ctx, remote, value)
	})
}

// ForwardRead rewrites localPath and forwards a non-destructive read.
func (f *Facade) ForwardRead(ctx context.Context, localPath string, timeout time.Duration) (any, error) {
	return f.access(ctx, localPath, timeout, false)
}

// ForwardTake rewrites localPath and forwards a destructive take.
func (f *Facade) ForwardTake(ctx context.Context, localPath string, timeout time.Duration) (any, error) {
	return f.access(ctx, localPath, timeout, true)
}

func (f *Facade) access(ctx context.Context, localPath string, timeout time.Duration, pop bool) (any, error) {
	remote, err := f.remotePath(localPath)
	if err != nil {
		return nil, err
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var result any
	err = f.breaker.Call(ctx, func(ctx context.Context) error {
		var callErr error
		req := Out{TimeoutMs: timeout.Milliseconds()}
		if pop {
			result, callErr = f.client.Take(ctx, remote, req)
		} else {
			result, callErr = f.client.Read(ctx, remote, req)
		}
		return callErr
	})
	return result, err
}

// ForwardListChildren rewrites localPath and forwards a child listing.
func (f *Facade) ForwardListChildren(ctx context.Context, localPath string) ([]string, error) {
	remote, err := f.remotePath(localPath)
	if err != nil {
		return nil, err
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var children []string
	err = f.breaker.Call(ctx, func(ctx context.Context) error {
		var callErr error
		children, callErr = f.client.ListChildren(ctx, remote)
		return callErr
	})
	return children, err
}

// AdminHandler serves a minimal status surface at cfg.MetricsRoot,
// wrapped in the teacher's standard HTTP middleware chain plus an OTel
// span per request, matching how the teacher instruments its own
// internal admin surfaces.
func (f *Facade) AdminHandler(logger mid.Middleware) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(f.cfg.MetricsRoot+"/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintf(w, "alias=%s breaker=%s\n", f.cfg.Alias, f.breaker.State())
	})
	return mid.Chain(mux, logger, mid.OTel("pathspace-htmlforward-"+f.cfg.Alias))
}
