package livesync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"trimreview/internal/instruction"
)

var errRefused = errors.New("connection refused")

var baseTime = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

// waitUntil polls cond until it holds or waitFor elapses.
func waitUntil(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.After(waitFor)
	for !cond() {
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for %s", what)
		case <-time.After(tick):
		}
	}
}

func rec(id string, status instruction.Status, tick int) instruction.Instruction {
	return instruction.Instruction{
		ID:        id,
		Title:     "instruction " + id,
		Status:    status,
		UpdatedAt: baseTime.Add(time.Duration(tick) * time.Second),
	}
}

type fakeStore struct {
	mu      sync.Mutex
	records []instruction.Instruction
	err     error
	calls   int
	// gate, when set, holds FetchPending after it has read the records.
	gate chan struct{}

	transition func(id string, action instruction.Action, reason string) (instruction.Instruction, error)
}

func (f *fakeStore) FetchPending(ctx context.Context) ([]instruction.Instruction, error) {
	f.mu.Lock()
	f.calls++
	out := make([]instruction.Instruction, len(f.records))
	copy(out, f.records)
	err, gate := f.err, f.gate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return out, err
}

func (f *fakeStore) Transition(_ context.Context, id string, action instruction.Action, reason string) (instruction.Instruction, error) {
	f.mu.Lock()
	fn := f.transition
	f.mu.Unlock()
	if fn == nil {
		return instruction.Instruction{}, instruction.ErrIllegalTransition
	}
	return fn(id, action, reason)
}

func (f *fakeStore) set(records []instruction.Instruction, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = records
	f.err = err
}

func (f *fakeStore) pollCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type frame struct {
	rec instruction.Instruction
	err error
}

type fakeConn struct {
	frames    chan frame
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{frames: make(chan frame, 16), closed: make(chan struct{})}
}

func (c *fakeConn) ReadRecord() (instruction.Instruction, error) {
	select {
	case f := <-c.frames:
		return f.rec, f.err
	case <-c.closed:
		return instruction.Instruction{}, errors.New("use of closed connection")
	}
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// fakeDialer hands out queued connections and refuses when none are queued.
type fakeDialer struct {
	conns chan *fakeConn

	mu    sync.Mutex
	dials int
}

func newFakeDialer(conns ...*fakeConn) *fakeDialer {
	d := &fakeDialer{conns: make(chan *fakeConn, 8)}
	for _, c := range conns {
		d.conns <- c
	}
	return d
}

func (d *fakeDialer) Dial(ctx context.Context) (PushConn, error) {
	d.mu.Lock()
	d.dials++
	d.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	select {
	case c := <-d.conns:
		return c, nil
	default:
		return nil, errRefused
	}
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

type warnings struct {
	mu   sync.Mutex
	errs []error
}

func (w *warnings) add(err error) {
	w.mu.Lock()
	w.errs = append(w.errs, err)
	w.mu.Unlock()
}

func (w *warnings) any(target error) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, err := range w.errs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
