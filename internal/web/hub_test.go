package web

import (
	"context"
	"testing"
	"time"
)

// These tests exercise hub behavior (fanout, slow-client eviction) without
// a real websocket server. Clients are built with nil conns; the hub guards
// conn access, so the no-network paths never dereference them.

func runTestHub(t *testing.T) *hub {
	t.Helper()
	h := newHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Error("hub did not stop in time")
		}
	})
	return h
}

func newHubClient(h *hub, addr string, buf int) *client {
	return &client{
		hub:        h,
		send:       make(chan []byte, buf),
		remoteAddr: addr,
		log:        testLogger(),
	}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout: %s", msg)
}

func waitForClients(t *testing.T, h *hub, n int) {
	t.Helper()
	waitUntil(t, time.Second, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()
		return len(h.clients) == n
	}, "client count did not settle")
}

func recvFrame(t *testing.T, c *client, what string) []byte {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for %s", what)
		return nil
	}
}

func TestHubBroadcastReachesAllClients(t *testing.T) {
	h := runTestHub(t)

	c1 := newHubClient(h, "c1", 4)
	c2 := newHubClient(h, "c2", 4)
	h.register <- c1
	h.register <- c2
	waitForClients(t, h, 2)

	msg := []byte(`{"type":"lamp","data":{"color":"#32000a"}}`)
	h.broadcast <- msg

	for _, c := range []*client{c1, c2} {
		got := recvFrame(t, c, c.remoteAddr)
		if string(got) != string(msg) {
			t.Errorf("%s got %q, want %q", c.remoteAddr, got, msg)
		}
	}
}

func TestHubEvictsSlowClient(t *testing.T) {
	h := runTestHub(t)

	slow := newHubClient(h, "slow", 1)
	fast := newHubClient(h, "fast", 8)
	h.register <- slow
	h.register <- fast
	waitForClients(t, h, 2)

	// Fill the slow client's queue so the next fanout hits its default case.
	slow.send <- []byte(`"stuck"`)

	msg := []byte(`{"type":"state"}`)
	h.broadcast <- msg

	got := recvFrame(t, fast, "fast client")
	if string(got) != string(msg) {
		t.Errorf("fast client got %q, want %q", got, msg)
	}

	waitForClients(t, h, 1)

	// Drain the pre-filled message; the channel must then report closed.
	<-slow.send
	waitUntil(t, time.Second, func() bool {
		select {
		case _, ok := <-slow.send:
			return !ok
		default:
			return false
		}
	}, "slow client send channel not closed")
}

func TestHubUnregisterIsIdempotent(t *testing.T) {
	h := runTestHub(t)

	c := newHubClient(h, "c", 4)
	h.register <- c
	waitForClients(t, h, 1)

	h.unregister <- c
	waitForClients(t, h, 0)

	// A second unregister for an already-removed client must not panic the
	// hub with a double close.
	h.unregister <- c

	d := newHubClient(h, "d", 4)
	h.register <- d
	waitForClients(t, h, 1)
}

func TestHubShutdownClosesClients(t *testing.T) {
	h := newHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.run(ctx)
	}()

	c := newHubClient(h, "c", 4)
	h.register <- c
	waitForClients(t, h, 1)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	if _, ok := <-c.send; ok {
		t.Error("client send channel still open after shutdown")
	}
}

func TestBroadcastBytesDropsWhenFull(t *testing.T) {
	// No run loop: the broadcast queue fills and stays full.
	h := newHub(testLogger())
	for i := 0; i < broadcastBuf; i++ {
		h.broadcastBytes([]byte("x"))
	}

	// Must not block.
	doneCh := make(chan struct{})
	go func() {
		h.broadcastBytes([]byte("overflow"))
		close(doneCh)
	}()
	select {
	case <-doneCh:
	case <-time.After(time.Second):
		t.Fatal("broadcastBytes blocked on a full queue")
	}
}
