package engine

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestStartSearchRetriesOnceOnMalformedResponse(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			// A proxy error page instead of the JSON body.
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html><body>502 Bad Gateway</body></html>"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"accepted": true, "engine_id": "e-1"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, zerolog.Nop())
	resp, err := c.StartSearch(context.Background(), "r1", "golang berlin", nil, "http://cb", "tok")
	if err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if resp.EngineID != "e-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", calls)
	}
}

func TestStartSearchGivesUpAfterSecondMalformedResponse(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte("<html>still broken</html>"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, zerolog.Nop())
	_, err := c.StartSearch(context.Background(), "r1", "golang berlin", nil, "http://cb", "tok")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", calls)
	}
}

func TestStartSearchRejectedRun(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"accepted": false, "message": "engine at capacity"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, zerolog.Nop())
	_, err := c.StartSearch(context.Background(), "r1", "golang", nil, "http://cb", "tok")
	if err == nil {
		t.Fatal("rejected dispatch should be an error")
	}
}

func TestStartSearchUpstreamStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, zerolog.Nop())
	_, err := c.StartSearch(context.Background(), "r1", "golang", nil, "http://cb", "tok")
	if err == nil {
		t.Fatal("5xx reply should be an error")
	}
	if errors.Is(err, ErrMalformedResponse) {
		t.Fatal("status errors must not be reported as malformed responses")
	}
}
