package websocket

import (
	"testing"
	"time"
)

type noopLogger struct{}

func (noopLogger) Debug(module, message string, details map[string]interface{}) {}
func (noopLogger) Info(module, message string, details map[string]interface{})  {}
func (noopLogger) Warn(module, message string, details map[string]interface{})  {}
func (noopLogger) Error(module, message string, details map[string]interface{}) {}
func (noopLogger) Sync() error                                                  { return nil }

func (h *Hub) clientCount(tenantID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[tenantID])
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestHubDropsStalledClient(t *testing.T) {
	h := NewHub(nil, noopLogger{})
	go h.Run()

	// No reader drains Send, so the first push already overflows the buffer.
	client := &Client{Hub: h, TenantID: "acme", Send: make(chan []byte)}
	h.register <- client
	waitFor(t, func() bool { return h.clientCount("acme") == 1 }, "client never registered")

	h.SendToTenant("acme", "ticket_created", map[string]interface{}{"local_id": "t-1"})

	waitFor(t, func() bool { return h.clientCount("acme") == 0 }, "stalled client never dropped")

	// The hub closed the channel exactly once on the way out.
	select {
	case _, open := <-client.Send:
		if open {
			t.Fatal("expected the dropped client's send channel to be closed")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("dropped client's send channel never closed")
	}

	// A second push to the same tenant must not panic the hub goroutine.
	h.SendToTenant("acme", "ticket_created", map[string]interface{}{"local_id": "t-2"})

	healthy := &Client{Hub: h, TenantID: "acme", Send: make(chan []byte, 1)}
	h.register <- healthy
	waitFor(t, func() bool { return h.clientCount("acme") == 1 }, "hub stopped accepting registrations")

	h.SendToTenant("acme", "ticket_created", map[string]interface{}{"local_id": "t-3"})
	select {
	case <-healthy.Send:
	case <-time.After(2 * time.Second):
		t.Fatal("healthy client never received the update")
	}
}

func TestHubUnregisterIsIdempotent(t *testing.T) {
	h := NewHub(nil, noopLogger{})
	go h.Run()

	client := &Client{Hub: h, TenantID: "globex", Send: make(chan []byte, 1)}
	h.register <- client
	waitFor(t, func() bool { return h.clientCount("globex") == 1 }, "client never registered")

	// A pump teardown racing a full-buffer drop delivers two unregisters for
	// the same client; the second must be a no-op.
	h.unregister <- client
	h.unregister <- client
	waitFor(t, func() bool { return h.clientCount("globex") == 0 }, "client never removed")
}
