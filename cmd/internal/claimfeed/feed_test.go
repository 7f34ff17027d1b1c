package claimfeed

import (
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.Default()
}

func TestFeedBroadcastDelivers(t *testing.T) {
	t.Parallel()

	feed := newFeed(testLogger(), "drop-1")
	c := NewClient("s1", 8)
	feed.Join(c)

	ev := Event{Type: EventClaim, Drop: "drop-1", TS: time.Unix(1700000000, 0)}
	feed.Broadcast(ev)

	select {
	case got := <-c.Send:
		if got.Type != EventClaim || got.Drop != "drop-1" {
			t.Fatalf("got %+v", got)
		}
	default:
		t.Fatalf("broadcast did not deliver")
	}
}

func TestFeedBroadcastNeverBlocks(t *testing.T) {
	t.Parallel()

	feed := newFeed(testLogger(), "drop-1")
	c := NewClient("s1", 1)
	feed.Join(c)

	// Queue full: the second broadcast must drop, not block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		feed.Broadcast(Event{Type: EventClaim})
		feed.Broadcast(Event{Type: EventClaim})
		feed.Broadcast(Event{Type: EventClaim})
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("broadcast blocked on a full queue")
	}
	if len(c.Send) != 1 {
		t.Fatalf("queue length = %d, want 1", len(c.Send))
	}
}

func TestFeedBroadcastSkipsClosedClients(t *testing.T) {
	t.Parallel()

	feed := newFeed(testLogger(), "drop-1")
	c := NewClient("s1", 8)
	feed.Join(c)
	c.Close()

	feed.Broadcast(Event{Type: EventClaim})
	if len(c.Send) != 0 {
		t.Fatalf("event delivered to a closed client")
	}
}

func TestFeedLeaveClosesClient(t *testing.T) {
	t.Parallel()

	feed := newFeed(testLogger(), "drop-1")
	c := NewClient("s1", 8)
	feed.Join(c)
	feed.Leave("s1")

	select {
	case <-c.Done():
	default:
		t.Fatalf("leave did not close the client")
	}
	if feed.Subscribers() != 0 {
		t.Fatalf("subscribers = %d after leave", feed.Subscribers())
	}
}

func TestHubWatchedDrops(t *testing.T) {
	t.Parallel()

	hub := NewHub(testLogger())
	empty := hub.GetOrCreateFeed("drop-empty")
	_ = empty

	active := hub.GetOrCreateFeed("drop-active")
	active.Join(NewClient("s1", 8))

	watched := hub.WatchedDrops()
	if len(watched) != 1 || watched[0] != "drop-active" {
		t.Fatalf("watched = %v, want only drop-active", watched)
	}

	// Stable handle: asking again returns the same feed.
	if hub.GetOrCreateFeed("drop-active") != active {
		t.Fatalf("feed handle not stable")
	}
}
