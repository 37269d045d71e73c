package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/MrSnakeDoc/tonton/internal/logger"
	"github.com/MrSnakeDoc/tonton/internal/store"
	"github.com/MrSnakeDoc/tonton/internal/store/memory"
)

func TestChangeFeedFansOut(t *testing.T) {
	blob := memory.New()
	feed := NewChangeFeed(blob, "tonton:bookmarks", logger.New("error", false))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := feed.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer feed.Stop()

	a, unsubA := feed.Subscribe()
	b, unsubB := feed.Subscribe()
	defer unsubB()

	if feed.Listeners() != 2 {
		t.Fatalf("Listeners() = %d, want 2", feed.Listeners())
	}

	// The background watch may not be registered yet; keep writing until seen.
	deadline := time.Now().Add(2 * time.Second)
	var gotA, gotB bool
	for time.Now().Before(deadline) && !(gotA && gotB) {
		_ = blob.Set(ctx, "tonton:bookmarks", "[]")
		select {
		case c := <-a:
			gotA = gotA || c.Key == "tonton:bookmarks"
		case c := <-b:
			gotB = gotB || c.Key == "tonton:bookmarks"
		case <-time.After(10 * time.Millisecond):
		}
	}
	if !gotA || !gotB {
		t.Fatalf("listeners did not receive changes (a=%v b=%v)", gotA, gotB)
	}

	unsubA()
	unsubA()
	if feed.Listeners() != 1 {
		t.Errorf("Listeners() after unsubscribe = %d, want 1", feed.Listeners())
	}
}

func TestChangeFeedDisabled(t *testing.T) {
	feed := NewChangeFeed(nil, "k", logger.New("error", false))
	if feed.Enabled() {
		t.Fatal("feed without watcher should be disabled")
	}
	if err := feed.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	feed.Stop()
	ch, unsub := feed.Subscribe()
	defer unsub()
	if _, open := <-ch; open {
		t.Error("subscribing to a stopped feed should yield a closed channel")
	}
}

// taggedWatcher replays a fixed list of changes once.
type taggedWatcher struct {
	origin  string
	changes []store.Change
	served  bool
}

func (w *taggedWatcher) Origin() string { return w.origin }

func (w *taggedWatcher) Watch(ctx context.Context, _ string) (<-chan store.Change, error) {
	ch := make(chan store.Change, len(w.changes))
	if !w.served {
		w.served = true
		for _, c := range w.changes {
			ch <- c
		}
	}
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch, nil
}

func TestChangeFeedMarksLocalChanges(t *testing.T) {
	w := &taggedWatcher{origin: "self", changes: []store.Change{
		{Key: "k", Origin: "self"},
		{Key: "k", Origin: "other"},
	}}
	feed := NewChangeFeed(w, "k", logger.New("error", false))
	sub, unsub := feed.Subscribe()
	defer unsub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := feed.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer feed.Stop()

	var got []bool
	for len(got) < 2 {
		select {
		case c := <-sub:
			got = append(got, c.Local)
		case <-time.After(2 * time.Second):
			t.Fatalf("received %d changes, want 2", len(got))
		}
	}
	if !got[0] || got[1] {
		t.Errorf("Local flags = %v, want [true false]", got)
	}
	if local, remote := feed.Counts(); local != 1 || remote != 1 {
		t.Errorf("Counts() = (%d, %d), want (1, 1)", local, remote)
	}
}
