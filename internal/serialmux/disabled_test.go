package serialmux

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestDisabledSerialMux(t *testing.T) {
	mux := NewDisabledSerialMux()

	if err := mux.SendCommand("STREAM=1"); err != nil {
		t.Errorf("SendCommand: %v", err)
	}
	if err := mux.Initialize(); err != nil {
		t.Errorf("Initialize: %v", err)
	}

	id, ch := mux.Subscribe()
	mux.Unsubscribe(id)
	if _, ok := <-ch; ok {
		t.Error("channel still open after unsubscribe")
	}

	_, ch2 := mux.Subscribe()
	if err := mux.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := <-ch2; ok {
		t.Error("channel still open after Close")
	}

	// Subscribing after Close returns a closed channel.
	_, ch3 := mux.Subscribe()
	if _, ok := <-ch3; ok {
		t.Error("post-close subscription returned open channel")
	}
}

func TestDisabledMonitorRespectsContext(t *testing.T) {
	mux := NewDisabledSerialMux()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := mux.Monitor(ctx); err != context.DeadlineExceeded {
		t.Errorf("Monitor returned %v, want deadline exceeded", err)
	}
}

func TestDisabledAdminRoutes(t *testing.T) {
	mux := NewDisabledSerialMux()
	httpMux := http.NewServeMux()
	mux.AttachAdminRoutes(httpMux)

	rec := httptest.NewRecorder()
	httpMux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/tracker-disabled", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
