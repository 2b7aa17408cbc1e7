package layer

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"sync"

	"github.com/ChristofferGreen/pathspace/core"
	"github.com/ChristofferGreen/pathspace/notify"
	"github.com/ChristofferGreen/pathspace/path"
)

// StdOut is a write-only C6 sink provider: anything inserted under its
// mount is formatted with fmt.Fprintln and written to w (os.Stdout by
// default). Reads always fail with NoObjectFound, since nothing is kept.
type StdOut struct {
	prefix string
	mu     sync.Mutex
	w      io.Writer
}

// NewStdOut creates a sink writing to os.Stdout.
func NewStdOut() *StdOut { return &StdOut{w: os.Stdout} }

// NewStdOutWriter creates a sink writing to an arbitrary io.Writer, for
// tests that want to capture the output.
func NewStdOutWriter(w io.Writer) *StdOut { return &StdOut{w: w} }

func (s *StdOut) In(tail path.Iterator, value any, opts core.InOptions) InsertReturn {
	s.mu.Lock()
	_, err := fmt.Fprintln(s.w, value)
	s.mu.Unlock()
	if err != nil {
		return InsertReturn{Errors: []error{core.Wrap(core.CodeUnknownError, "stdout write failed", err).WithPath(tail.Full())}}
	}
	return InsertReturn{NbrValuesInserted: 1}
}

func (s *StdOut) Out(tail path.Iterator, want reflect.Type, opts core.Out) (any, error) {
	return nil, core.New(core.CodeNoObjectFound, "stdout is write-only").WithPath(tail.Full())
}

func (s *StdOut) Shutdown()                                          {}
func (s *StdOut) Notify(p string)                                     {}
func (s *StdOut) AdoptContextAndPrefix(bus *notify.Bus, prefix string) { s.prefix = prefix }
