// Package correlate pairs asynchronous replies with the requests that
// triggered them over a shared connection.
package correlate

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/foldlink/foldlink/internal/d2d"
)

var (
	ErrTimeout       = errors.New("correlate: reply timeout")
	ErrDuplicateCode = errors.New("correlate: request code already pending")
	ErrNotTracked    = errors.New("correlate: request code not tracked")
	ErrClosed        = errors.New("correlate: tracker closed")
)

// Generator produces correlation codes. It is an injected dependency so the
// entropy of the code space is explicit, not ambient.
type Generator interface {
	NewCode() string
}

// UUIDGenerator issues random version-4 UUIDs: collision-resistant across
// connections and process restarts.
type UUIDGenerator struct{}

func (UUIDGenerator) NewCode() string { return uuid.NewString() }

// PendingCall is the snapshot of one in-flight request.
type PendingCall struct {
	Code     string
	QueuedAt time.Time
}

type waiter struct {
	ch       chan d2d.Reply
	queuedAt time.Time
}

// Tracker is the correlation table: request code to waiting caller. Inserts
// and removals are mutually exclusive so a reply resolves exactly one caller
// and a removed entry can never be resurrected by a late reply.
type Tracker struct {
	mu      sync.Mutex
	pending map[string]waiter
	closed  bool
	closeCh chan struct{}
	failErr error
}

func NewTracker() *Tracker {
	return &Tracker{
		pending: make(map[string]waiter),
		closeCh: make(chan struct{}),
	}
}

// Track registers a pending entry for code before the request is sent.
func (t *Tracker) Track(code string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrClosed
	}
	if _, exists := t.pending[code]; exists {
		return ErrDuplicateCode
	}
	t.pending[code] = waiter{ch: make(chan d2d.Reply, 1), queuedAt: time.Now()}
	return nil
}

// Resolve delivers reply to the caller waiting on its reply code. It returns
// false for an orphan reply: no pending entry (already resolved, timed out,
// cancelled, or never sent).
func (t *Tracker) Resolve(reply d2d.Reply) bool {
	code := reply.ReplyCode()
	t.mu.Lock()
	w, ok := t.pending[code]
	if ok {
		// buffered send under the lock, so a concurrent timeout that finds
		// the entry gone can always drain the channel
		w.ch <- reply
		delete(t.pending, code)
	}
	t.mu.Unlock()
	return ok
}

// Await blocks until the reply for code arrives, the timeout elapses, or ctx
// is cancelled. On timeout or cancellation the pending entry is removed
// atomically, so a reply arriving later is an orphan and never misdelivered.
func (t *Tracker) Await(ctx context.Context, code string, timeout time.Duration) (d2d.Reply, error) {
	t.mu.Lock()
	w, ok := t.pending[code]
	if !ok {
		err := t.failErr
		t.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return nil, ErrNotTracked
	}
	t.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case reply := <-w.ch:
		return reply, nil
	case <-timer.C:
		return t.abandon(code, w, ErrTimeout)
	case <-ctx.Done():
		return t.abandon(code, w, ctx.Err())
	case <-t.closeCh:
		return t.abandon(code, w, t.failureCause())
	}
}

// abandon purges the entry unless a resolve won the race, in which case the
// reply is already buffered and still belongs to this caller.
func (t *Tracker) abandon(code string, w waiter, cause error) (d2d.Reply, error) {
	t.mu.Lock()
	_, stillPending := t.pending[code]
	if stillPending {
		delete(t.pending, code)
	}
	t.mu.Unlock()
	if stillPending {
		return nil, cause
	}
	select {
	case reply := <-w.ch:
		return reply, nil
	default:
		if t.failureCause() != nil {
			return nil, t.failureCause()
		}
		return nil, cause
	}
}

// Cancel purges the pending entry for code, if any.
func (t *Tracker) Cancel(code string) {
	t.mu.Lock()
	delete(t.pending, code)
	t.mu.Unlock()
}

// FailAll purges every pending entry and fails current and future waiters
// with cause. Used when the connection drops.
func (t *Tracker) FailAll(cause error) {
	if cause == nil {
		cause = ErrClosed
	}
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		t.failErr = cause
		close(t.closeCh)
	}
	t.pending = make(map[string]waiter)
	t.mu.Unlock()
}

func (t *Tracker) failureCause() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failErr
}

// PendingCount returns the number of in-flight entries.
func (t *Tracker) PendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Snapshot lists in-flight entries ordered by code.
func (t *Tracker) Snapshot() []PendingCall {
	t.mu.Lock()
	out := make([]PendingCall, 0, len(t.pending))
	for code, w := range t.pending {
		out = append(out, PendingCall{Code: code, QueuedAt: w.queuedAt})
	}
	t.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
