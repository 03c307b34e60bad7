package whiteboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClientDo_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Errorf("Authorization = %q, want Bearer tok-1", got)
		}
		w.Write([]byte(`{"id":"abc"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	raw, err := c.get(context.Background(), "/boards/abc", "tok-1")
	if err != nil {
		t.Fatalf("do failed: %v", err)
	}
	if got := stringField(asObject(raw), "id"); got != "abc" {
		t.Errorf("id = %q, want abc", got)
	}
}

func TestClientDo_EmptyAndUndecodableBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"undecodable body", "<html>gateway</html>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, 0)
			raw, err := c.get(context.Background(), "/", "t")
			if err != nil {
				t.Fatalf("do failed: %v", err)
			}
			m := asObject(raw)
			if len(m) != 0 {
				t.Errorf("expected empty object, got %v", m)
			}
		})
	}
}

func TestClientDo_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"nope"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	_, err := c.get(context.Background(), "/", "t")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusForbidden {
		t.Errorf("Status = %d, want 403", apiErr.Status)
	}
	if apiErr.Body["message"] != "nope" {
		t.Errorf("Body = %v, want message nope", apiErr.Body)
	}
}

func TestClientDo_APIErrorNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("Bad Gateway"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	_, err := c.get(context.Background(), "/", "t")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if len(apiErr.Body) != 0 {
		t.Errorf("expected empty error body, got %v", apiErr.Body)
	}
}

func TestClientDo_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // Connection refused from here on.

	c := NewClient(srv.URL, 0)
	_, err := c.get(context.Background(), "/", "t")

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected *NetworkError, got %v", err)
	}
}

func TestClientDo_Timeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer func() {
		close(block)
		srv.Close()
	}()

	c := NewClient(srv.URL, 50*time.Millisecond)
	start := time.Now()
	_, err := c.get(context.Background(), "/", "t")

	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected *NetworkError on timeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("call was not cancelled on the bound, took %v", elapsed)
	}
}
