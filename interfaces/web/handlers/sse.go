package handlers

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"spmodel/interfaces/web/presenters"
	"spmodel/logging"
	"spmodel/platform/events"
)

// SSEClient represents a connected Server-Sent Events client.
type SSEClient struct {
	id       string
	writer   http.ResponseWriter
	flusher  http.Flusher
	done     chan struct{}
	mu       sync.Mutex
	lastSent time.Time
}

// SSEManager manages Server-Sent Events connections and pushes activity
// entries to every connected client as they are recorded.
type SSEManager struct {
	clients   map[string]*SSEClient
	mu        sync.RWMutex
	logger    *logging.Logger
	presenter presenters.ActivityPresenterInterface
	stop      chan struct{}
	stopOnce  sync.Once
}

var _ events.ActivitySink = (*SSEManager)(nil)

// NewSSEManager creates a new SSE connection manager with cleanup routines.
func NewSSEManager(presenter presenters.ActivityPresenterInterface) *SSEManager {
	manager := &SSEManager{
		clients:   make(map[string]*SSEClient),
		logger:    logging.Default().WithComponent("sse_manager"),
		presenter: presenter,
		stop:      make(chan struct{}),
	}

	// Start cleanup routine for stale connections
	go manager.cleanupRoutine(30*time.Second, 2*time.Minute)

	return manager
}

// AddClient adds a new SSE client connection
func (s *SSEManager) AddClient(clientID string, w http.ResponseWriter) *SSEClient {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.logger.Error("Response writer does not support flushing")
		return nil
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	// Immediate flush to establish connection
	flusher.Flush()

	client := &SSEClient{
		id:       clientID,
		writer:   w,
		flusher:  flusher,
		done:     make(chan struct{}),
		lastSent: time.Now(),
	}

	s.mu.Lock()
	s.clients[clientID] = client
	total := len(s.clients)
	s.mu.Unlock()

	s.logger.Info("SSE client connected", "client_id", clientID, "total_clients", total)
	return client
}

// RemoveClient removes an SSE client connection
func (s *SSEManager) RemoveClient(clientID string) {
	s.mu.Lock()
	client, exists := s.clients[clientID]
	if exists {
		delete(s.clients, clientID)
	}
	s.mu.Unlock()

	if exists {
		// Close channel outside of lock to prevent double-close panic
		client.close()
		s.logger.Info("SSE client disconnected", "client_id", clientID)
	}
}

// ClientCount returns the number of connected clients.
func (s *SSEManager) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Record implements events.ActivitySink by pushing the entry as an activity toast.
func (s *SSEManager) Record(entry events.ActivityEntry) {
	if s.ClientCount() == 0 {
		return
	}
	html, err := s.presenter.FormatActivityNotification(entry)
	if err != nil {
		s.logger.Error("Failed to format activity notification", "error", err, "list", entry.ListName)
		return
	}
	s.Broadcast("activity", html)
}

// Broadcast sends an event to every client and drops the clients that fail.
func (s *SSEManager) Broadcast(event, data string) {
	// Copy clients list to avoid holding lock during I/O
	clientList := s.snapshot()

	failedClients := []string{}
	for clientID, client := range clientList {
		if err := s.sendToClient(client, event, data); err != nil {
			s.logger.Warn("Failed to send event to client",
				"client_id", clientID,
				"event", event,
				"error", err)
			failedClients = append(failedClients, clientID)
		}
	}

	// Remove failed clients after broadcasting
	for _, clientID := range failedClients {
		s.RemoveClient(clientID)
	}

	s.logger.Debug("Broadcasted event",
		"event", event,
		"total_clients", len(clientList),
		"failed", len(failedClients))
}

func (s *SSEManager) snapshot() map[string]*SSEClient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	clientList := make(map[string]*SSEClient, len(s.clients))
	for id, client := range s.clients {
		clientList[id] = client
	}
	return clientList
}

// sendToClient sends an SSE message to a specific client
func (s *SSEManager) sendToClient(client *SSEClient, event, data string) error {
	select {
	case <-client.done:
		return fmt.Errorf("client connection closed")
	default:
	}

	var message string
	if event == "keepalive" || event == "connected" {
		// Special events - send as comments to avoid triggering HTMX
		message = fmt.Sprintf(": %s\n\n", data)
	} else {
		message = fmt.Sprintf("event: %s\ndata: %s\n\n", event, data)
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if _, err := client.writer.Write([]byte(message)); err != nil {
		return fmt.Errorf("write error: %w", err)
	}
	client.flusher.Flush()
	client.lastSent = time.Now()
	return nil
}

func (c *SSEClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.done:
		// Already closed
	default:
		close(c.done)
	}
}

func (c *SSEClient) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSent
}

// SendKeepAlive sends keep-alive messages to all clients
func (s *SSEManager) SendKeepAlive() {
	failedClients := []string{}
	for clientID, client := range s.snapshot() {
		if err := s.sendToClient(client, "keepalive", time.Now().Format(time.RFC3339)); err != nil {
			s.logger.Debug("Keep-alive failed, removing client", "client_id", clientID)
			failedClients = append(failedClients, clientID)
		}
	}

	for _, clientID := range failedClients {
		s.RemoveClient(clientID)
	}
}

// cleanupRoutine periodically sends keep-alives and drops stale connections
func (s *SSEManager) cleanupRoutine(interval, staleAfter time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
		}

		s.SendKeepAlive()

		staleThreshold := time.Now().Add(-staleAfter)
		for clientID, client := range s.snapshot() {
			if client.idleSince().Before(staleThreshold) {
				s.logger.Info("Removing stale SSE client", "client_id", clientID)
				s.RemoveClient(clientID)
			}
		}
	}
}

// CloseAll disconnects every client and stops the cleanup routine.
func (s *SSEManager) CloseAll() {
	s.stopOnce.Do(func() { close(s.stop) })
	for clientID := range s.snapshot() {
		s.RemoveClient(clientID)
	}
}

// HandleSSEConnection handles the SSE endpoint
func (s *SSEManager) HandleSSEConnection(w http.ResponseWriter, r *http.Request) {
	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		clientID = uuid.NewString()
	}

	client := s.AddClient(clientID, w)
	if client == nil {
		http.Error(w, "Failed to establish SSE connection", http.StatusInternalServerError)
		return
	}

	// Send initial comment as confirmation; it does not trigger HTMX swaps
	if err := s.sendToClient(client, "connected", "client "+clientID); err != nil {
		s.logger.Error("Failed to send initial message", "client_id", clientID, "error", err)
		s.RemoveClient(clientID)
		return
	}

	// Wait for client disconnect - the cleanup routine handles keep-alives
	select {
	case <-r.Context().Done():
		s.logger.Debug("SSE client context cancelled", "client_id", clientID)
	case <-client.done:
		s.logger.Debug("SSE client connection closed", "client_id", clientID)
	}
	s.RemoveClient(clientID)
}
