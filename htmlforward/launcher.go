package htmlforward

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"

	"github.com/ChristofferGreen/pathspace/pathspace"
)

// ListenReadyTimeout is how long Start waits for the listener to report
// ready before giving up, matching the original HTML server's 750ms
// listen-ready wait (spec Open Question 4). Overridable in tests.
var ListenReadyTimeout = 750 * time.Millisecond

// ServerLauncher starts and stops the process hosting a PathSpace's
// RemoteMount service. A real deployment's launcher binds a TCP
// listener; tests can substitute an in-memory launcher.
type ServerLauncher interface {
	Start(ctx context.Context) (addr string, err error)
	Stop() error
}

// grpcLauncher is the production ServerLauncher: a gRPC server fronting
// a remoteMountServer, bound to a real TCP listener.
type grpcLauncher struct {
	listenAddr string
	ps         *pathspace.PathSpace

	mu       sync.Mutex
	server   *grpc.Server
	stopped  bool
	listener net.Listener
}

// NewGRPCLauncher creates a launcher that will serve ps's RemoteMount
// RPCs once Start is called. listenAddr of "" binds an ephemeral port
// ("127.0.0.1:0"), useful for tests.
func NewGRPCLauncher(listenAddr string, ps *pathspace.PathSpace) *grpcLauncher {
	if listenAddr == "" {
		listenAddr = "127.0.0.1:0"
	}
	return &grpcLauncher{listenAddr: listenAddr, ps: ps}
}

// Start binds the listener, registers the RemoteMount service, and
// serves in the background. It blocks only long enough to bind the
// port and see the serving goroutine start (via a ready signal that
// goroutine closes just before it calls Serve on the bound listener),
// bounded by ListenReadyTimeout — mirroring the original's listen-ready
// future/promise.
func (l *grpcLauncher) Start(ctx context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.server != nil {
		return l.listener.Addr().String(), nil
	}

	lis, err := net.Listen("tcp", l.listenAddr)
	if err != nil {
		return "", fmt.Errorf("htmlforward: listen %s: %w", l.listenAddr, err)
	}

	srv := grpc.NewServer()
	srv.RegisterService(&remoteMountServiceDesc, newRemoteMountServer(l.ps))

	ready := make(chan struct{})
	go func() {
		close(ready) // the listener above is already bound and accepting
		_ = srv.Serve(lis)
	}()

	select {
	case <-ready:
	case <-time.After(ListenReadyTimeout):
		lis.Close()
		return "", fmt.Errorf("htmlforward: server did not become ready within %s", ListenReadyTimeout)
	case <-ctx.Done():
		lis.Close()
		return "", ctx.Err()
	}

	l.server = srv
	l.listener = lis
	return lis.Addr().String(), nil
}

// Stop is safe to call more than once (matching the original's
// idempotent stop()); only the first call does any work.
func (l *grpcLauncher) Stop() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopped || l.server == nil {
		l.stopped = true
		return nil
	}
	l.stopped = true
	l.server.GracefulStop()
	return nil
}
