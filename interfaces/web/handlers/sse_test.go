package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spmodel/interfaces/web/presenters"
	"spmodel/platform/events"
)

// syncRecorder guards the recorder body for reads while the handler writes.
type syncRecorder struct {
	*httptest.ResponseRecorder
	mu sync.Mutex
}

func (r *syncRecorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Write(p)
}

func (r *syncRecorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ResponseRecorder.Flush()
}

func (r *syncRecorder) body() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ResponseRecorder.Body.String()
}

func TestSSEManager_RecordBroadcastsActivity(t *testing.T) {
	// Arrange
	manager := NewSSEManager(presenters.NewActivityPresenter())
	defer manager.CloseAll()
	w := &syncRecorder{ResponseRecorder: httptest.NewRecorder()}
	client := manager.AddClient("client-1", w)
	require.NotNil(t, client)

	// Act
	manager.Record(events.ActivityEntry{
		Kind:     events.ActivityStorage,
		Level:    events.LevelError,
		ListName: "Tasks",
		Message:  "Snapshot storage disabled",
	})

	// Assert
	body := w.body()
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	assert.Contains(t, body, "event: activity\ndata: ")
	assert.Contains(t, body, "Snapshot storage disabled")
	assert.Contains(t, body, `data-kind="storage"`)
	assert.Equal(t, 1, manager.ClientCount())
}

func TestSSEManager_RecordWithoutClientsIsNoop(t *testing.T) {
	// Arrange
	manager := NewSSEManager(presenters.NewActivityPresenter())
	defer manager.CloseAll()

	// Act & Assert
	assert.NotPanics(t, func() {
		manager.Record(events.ActivityEntry{Message: "nobody listening"})
	})
	assert.Equal(t, 0, manager.ClientCount())
}

func TestSSEManager_RemoveClientStopsDelivery(t *testing.T) {
	// Arrange
	manager := NewSSEManager(presenters.NewActivityPresenter())
	defer manager.CloseAll()
	w := &syncRecorder{ResponseRecorder: httptest.NewRecorder()}
	client := manager.AddClient("client-1", w)
	require.NotNil(t, client)

	// Act
	manager.RemoveClient("client-1")
	manager.RemoveClient("client-1")
	err := manager.sendToClient(client, "activity", "late")

	// Assert
	assert.Error(t, err)
	assert.Equal(t, 0, manager.ClientCount())
	assert.NotContains(t, w.body(), "late")
}

func TestSSEManager_HandleConnectionUntilCancelled(t *testing.T) {
	// Arrange
	manager := NewSSEManager(presenters.NewActivityPresenter())
	defer manager.CloseAll()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events?client_id=abc", nil).WithContext(ctx)
	w := &syncRecorder{ResponseRecorder: httptest.NewRecorder()}

	done := make(chan struct{})
	go func() {
		manager.HandleSSEConnection(w, req)
		close(done)
	}()
	require.Eventually(t, func() bool { return manager.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	// Act
	manager.Broadcast("activity", "<div>hello</div>")
	cancel()

	// Assert
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler did not return after the request was cancelled")
	}
	body := w.body()
	assert.True(t, strings.HasPrefix(body, ": client abc"))
	assert.Contains(t, body, "event: activity\ndata: <div>hello</div>\n\n")
	assert.Equal(t, 0, manager.ClientCount())
}
