package tid

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// Clock returns the current time in milliseconds since the epoch.
type Clock interface {
	NowMillis() int64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// NowMillis implements Clock.
func (SystemClock) NowMillis() int64 {
	return time.Now().UnixMilli()
}

// Generator issues TIDs backed by a lock file holding the last issued value.
//
// Generate holds an in-process mutex and an exclusive flock(2) on the file
// for the whole read-increment-write cycle, so generators in other
// goroutines or processes that share the file never observe the same last
// value. Lock acquisition blocks without timeout.
type Generator struct {
	mu    sync.Mutex
	path  string
	clock Clock
}

// Option configures a Generator.
type Option func(*Generator)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(g *Generator) {
		g.clock = c
	}
}

// NewGenerator returns a generator persisting its state at path.
// The file is created on first use.
func NewGenerator(path string, opts ...Option) *Generator {
	g := &Generator{path: path, clock: SystemClock{}}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Path returns the lock file path.
func (g *Generator) Path() string {
	return g.path
}

// Generate returns a new TID strictly greater than every TID previously
// issued through the same lock file.
func (g *Generator) Generate() (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	f, err := os.OpenFile(g.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return 0, &GenerationError{Op: "open", Path: g.path, Err: err}
	}
	defer f.Close()

	if err := flock(f, unix.LOCK_EX); err != nil {
		return 0, &GenerationError{Op: "lock", Path: g.path, Err: err}
	}
	defer func() { _ = flock(f, unix.LOCK_UN) }()

	last, err := readLast(f)
	if err != nil {
		return 0, &GenerationError{Op: "read", Path: g.path, Err: err}
	}

	next := g.clock.NowMillis()
	if next <= last {
		next = last + 1
	}
	if !Valid(next) {
		return 0, &GenerationError{Op: "range", Path: g.path, Err: errors.New("tid out of range")}
	}

	if err := writeLast(f, next); err != nil {
		return 0, &GenerationError{Op: "write", Path: g.path, Err: err}
	}
	return next, nil
}

// flock retries on EINTR; any other error is returned.
func flock(f *os.File, how int) error {
	for {
		err := unix.Flock(int(f.Fd()), how)
		if !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}

func readLast(f *os.File) (int64, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return 0, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return 0, nil
	}
	return strconv.ParseInt(string(data), 10, 64)
}

func writeLast(f *os.File, t int64) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.WriteAt([]byte(strconv.FormatInt(t, 10)), 0); err != nil {
		return err
	}
	return f.Sync()
}
