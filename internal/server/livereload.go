package server

import (
	"bufio"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/torn-open/docsmith/internal/logfields"
	"github.com/torn-open/docsmith/internal/metrics"
)

// LiveReloadHub manages SSE clients for site-hash broadcasts. Connected
// pages reload when the hash they hold stops matching the broadcast one.
type LiveReloadHub struct {
	mu       sync.RWMutex
	nextID   int
	clients  map[int]*lrClient
	recorder metrics.Recorder
	closed   bool
	lastHash string
}

type lrClient struct {
	id   int
	ch   chan string
	done chan struct{}
}

func NewLiveReloadHub(recorder metrics.Recorder) *LiveReloadHub {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &LiveReloadHub{clients: map[int]*lrClient{}, recorder: recorder}
}

// ServeHTTP implements the SSE endpoint at /livereload.
func (h *LiveReloadHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	closed := h.closed
	h.mu.RUnlock()
	if closed {
		http.Error(w, "livereload shutting down", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	client := &lrClient{ch: make(chan string, 8), done: make(chan struct{})}
	h.mu.Lock()
	client.id = h.nextID
	h.nextID++
	h.clients[client.id] = client
	current := h.lastHash
	count := len(h.clients)
	h.mu.Unlock()
	h.recorder.SetLiveReloadClients(count)

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(": connected\n\n"); err != nil {
		return
	}
	if current != "" {
		if _, err := bw.WriteString("data: {\"hash\":\"" + current + "\"}\n\n"); err != nil {
			return
		}
	}
	if err := bw.Flush(); err == nil {
		flusher.Flush()
	}

	hb := time.NewTicker(30 * time.Second)
	defer hb.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.removeClient(client.id)
			return
		case <-client.done:
			h.removeClient(client.id)
			return
		case <-hb.C:
			if _, err := bw.WriteString(": ping\n\n"); err != nil {
				h.removeClient(client.id)
				return
			}
			_ = bw.Flush()
			flusher.Flush()
		case hash := <-client.ch:
			if _, err := bw.WriteString("data: {\"hash\":\"" + hash + "\"}\n\n"); err != nil {
				h.removeClient(client.id)
				return
			}
			_ = bw.Flush()
			flusher.Flush()
		}
	}
}

// Broadcast pushes a new site hash to every connected client. Slow clients
// are skipped rather than blocking the build loop.
func (h *LiveReloadHub) Broadcast(hash string) {
	h.mu.Lock()
	h.lastHash = hash
	targets := make([]*lrClient, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		select {
		case c.ch <- hash:
		default:
			slog.Debug("Livereload client lagging, dropping broadcast", slog.Int("client", c.id))
		}
	}
}

// ClientCount reports connected clients.
func (h *LiveReloadHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects all clients.
func (h *LiveReloadHub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	targets := make([]*lrClient, 0, len(h.clients))
	for _, c := range h.clients {
		targets = append(targets, c)
	}
	h.clients = map[int]*lrClient{}
	h.mu.Unlock()

	for _, c := range targets {
		close(c.done)
	}
	h.recorder.SetLiveReloadClients(0)
}

func (h *LiveReloadHub) removeClient(id int) {
	h.mu.Lock()
	delete(h.clients, id)
	count := len(h.clients)
	h.mu.Unlock()
	h.recorder.SetLiveReloadClients(count)
	slog.Debug("Livereload client disconnected", logfields.Name("livereload"), slog.Int("clients", count))
}

// livereloadScript is served at /livereload.js and referenced by themes
// when livereload is enabled.
const livereloadScript = `(() => {
  if (window.__DOCSMITH_LR__) return;
  window.__DOCSMITH_LR__ = true;
  function connect() {
    const es = new EventSource('/livereload');
    let first = true;
    let current = null;
    es.onmessage = (e) => {
      try {
        const p = JSON.parse(e.data);
        if (first) { current = p.hash; first = false; return; }
        if (p.hash && p.hash !== current) { location.reload(); }
      } catch (_) {}
    };
    es.onerror = () => { es.close(); setTimeout(connect, 2000); };
  }
  connect();
})();
`

func serveLiveReloadScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	_, _ = w.Write([]byte(livereloadScript))
}
