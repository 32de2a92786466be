package correlate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/foldlink/foldlink/internal/d2d"
	"github.com/foldlink/foldlink/internal/testutil/testlog"
)

func reply(code string, status d2d.StatusCode) d2d.Reply {
	return &d2d.FolderRemoveReply{ReplyBase: d2d.ReplyBase{Code: code, StatusCode: status}}
}

func TestAwaitReceivesResolvedReply(t *testing.T) {
	testlog.Start(t)
	tr := NewTracker()
	if err := tr.Track("c1"); err != nil {
		t.Fatalf("track: %v", err)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		if !tr.Resolve(reply("c1", d2d.StatusOK)) {
			t.Errorf("resolve found no pending entry")
		}
	}()

	got, err := tr.Await(context.Background(), "c1", time.Second)
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if got.ReplyCode() != "c1" {
		t.Fatalf("wrong reply: %q", got.ReplyCode())
	}
	if tr.PendingCount() != 0 {
		t.Fatalf("entry not purged after resolve")
	}
}

func TestConcurrentCallsNeverMisdeliver(t *testing.T) {
	testlog.Start(t)
	tr := NewTracker()
	const calls = 32

	codes := make([]string, calls)
	for i := range codes {
		codes[i] = fmt.Sprintf("code-%02d", i)
		if err := tr.Track(codes[i]); err != nil {
			t.Fatalf("track %s: %v", codes[i], err)
		}
	}

	// resolve in reverse order while every caller waits concurrently
	go func() {
		for i := calls - 1; i >= 0; i-- {
			tr.Resolve(reply(codes[i], d2d.StatusOK))
		}
	}()

	var wg sync.WaitGroup
	errs := make(chan error, calls)
	for i := 0; i < calls; i++ {
		wg.Add(1)
		go func(code string) {
			defer wg.Done()
			got, err := tr.Await(context.Background(), code, 5*time.Second)
			if err != nil {
				errs <- fmt.Errorf("%s: %v", code, err)
				return
			}
			if got.ReplyCode() != code {
				errs <- fmt.Errorf("misdelivered: wanted %s got %s", code, got.ReplyCode())
			}
		}(codes[i])
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
	if tr.PendingCount() != 0 {
		t.Fatalf("pending entries left: %d", tr.PendingCount())
	}
}

func TestAwaitTimeoutThenLateReplyIsOrphan(t *testing.T) {
	testlog.Start(t)
	tr := NewTracker()
	if err := tr.Track("c1"); err != nil {
		t.Fatalf("track: %v", err)
	}

	start := time.Now()
	_, err := tr.Await(context.Background(), "c1", 50*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("await returned before timeout: %v", elapsed)
	}

	// the late reply finds no pending entry and is discarded
	if tr.Resolve(reply("c1", d2d.StatusOK)) {
		t.Fatalf("late reply should be an orphan")
	}
}

func TestAwaitContextCancellation(t *testing.T) {
	tr := NewTracker()
	if err := tr.Track("c1"); err != nil {
		t.Fatalf("track: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := tr.Await(ctx, "c1", time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if tr.PendingCount() != 0 {
		t.Fatalf("cancelled entry not purged")
	}
}

func TestDuplicateCodeRejected(t *testing.T) {
	tr := NewTracker()
	if err := tr.Track("c1"); err != nil {
		t.Fatalf("track: %v", err)
	}
	if err := tr.Track("c1"); !errors.Is(err, ErrDuplicateCode) {
		t.Fatalf("expected ErrDuplicateCode, got %v", err)
	}
}

func TestAwaitUntrackedCode(t *testing.T) {
	tr := NewTracker()
	_, err := tr.Await(context.Background(), "nope", time.Second)
	if !errors.Is(err, ErrNotTracked) {
		t.Fatalf("expected ErrNotTracked, got %v", err)
	}
}

func TestFailAllWakesWaiters(t *testing.T) {
	testlog.Start(t)
	tr := NewTracker()
	if err := tr.Track("c1"); err != nil {
		t.Fatalf("track: %v", err)
	}

	cause := errors.New("connection lost")
	done := make(chan error, 1)
	go func() {
		_, err := tr.Await(context.Background(), "c1", time.Minute)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	tr.FailAll(cause)

	select {
	case err := <-done:
		if !errors.Is(err, cause) {
			t.Fatalf("expected failure cause, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("waiter not woken by FailAll")
	}

	if err := tr.Track("c2"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after FailAll, got %v", err)
	}
}

func TestResolveRacingTimeoutStillDelivers(t *testing.T) {
	// a resolve that wins the race against the timeout leaves the reply
	// buffered for the abandoning caller
	for i := 0; i < 50; i++ {
		tr := NewTracker()
		if err := tr.Track("c1"); err != nil {
			t.Fatalf("track: %v", err)
		}
		go tr.Resolve(reply("c1", d2d.StatusOK))
		got, err := tr.Await(context.Background(), "c1", time.Microsecond)
		if err == nil {
			if got.ReplyCode() != "c1" {
				t.Fatalf("wrong reply: %q", got.ReplyCode())
			}
		} else if !errors.Is(err, ErrTimeout) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

func TestSnapshotOrdersByCode(t *testing.T) {
	tr := NewTracker()
	for _, code := range []string{"zz", "aa", "mm"} {
		if err := tr.Track(code); err != nil {
			t.Fatalf("track: %v", err)
		}
	}
	snap := tr.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(snap))
	}
	if snap[0].Code != "aa" || snap[1].Code != "mm" || snap[2].Code != "zz" {
		t.Fatalf("snapshot not ordered: %+v", snap)
	}
	for _, e := range snap {
		if e.QueuedAt.IsZero() {
			t.Fatalf("queued_at not set for %s", e.Code)
		}
	}
}

func TestUUIDGeneratorUnique(t *testing.T) {
	g := UUIDGenerator{}
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		code := g.NewCode()
		if code == "" {
			t.Fatalf("empty code")
		}
		if _, dup := seen[code]; dup {
			t.Fatalf("duplicate code %s", code)
		}
		seen[code] = struct{}{}
	}
}
