package whiteboard

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

type fakeTagBoard struct {
	mu        sync.Mutex
	tags      []map[string]any
	tagPosts  int
	applied   map[string]int
	failTags  map[string]bool // tag names whose creation should fail
	failApply map[string]bool // tag ids whose application should fail
}

func (f *fakeTagBoard) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /boards/{id}/tags", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"items": f.tags})
	})
	mux.HandleFunc("POST /boards/{id}/tags", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		name, _ := body["name"].(string)
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failTags[name] {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		f.tagPosts++
		tag := map[string]any{"id": fmt.Sprintf("tag-%d", f.tagPosts), "name": name}
		f.tags = append(f.tags, tag)
		json.NewEncoder(w).Encode(tag)
	})
	mux.HandleFunc("POST /boards/{board}/widgets/{widget}/tags", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		tagID, _ := body["tagId"].(string)
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.failApply[tagID] {
			w.WriteHeader(http.StatusConflict)
			return
		}
		f.applied[tagID]++
		w.Write([]byte(`{}`))
	})
	return mux
}

func newFakeTagBoard() *fakeTagBoard {
	return &fakeTagBoard{
		applied:   map[string]int{},
		failTags:  map[string]bool{},
		failApply: map[string]bool{},
	}
}

func TestEnsureTags_Idempotence(t *testing.T) {
	board := newFakeTagBoard()
	srv := httptest.NewServer(board.handler())
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	ids, err := c.EnsureTags(context.Background(), "t", "board-1", []string{"Risk", "risk", "RISK "})
	if err != nil {
		t.Fatalf("EnsureTags failed: %v", err)
	}

	if board.tagPosts != 1 {
		t.Errorf("created tags = %d, want at most 1", board.tagPosts)
	}
	if len(ids) != 3 {
		t.Fatalf("resolved ids = %d, want 3", len(ids))
	}
	for _, id := range ids {
		if id != ids[0] {
			t.Errorf("resolved ids differ: %v", ids)
		}
	}
}

func TestEnsureTags_ReusesExisting(t *testing.T) {
	board := newFakeTagBoard()
	board.tags = []map[string]any{{"id": "tag-old", "name": "Insight"}}
	srv := httptest.NewServer(board.handler())
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	ids, err := c.EnsureTags(context.Background(), "t", "board-1", []string{"insight"})
	if err != nil {
		t.Fatalf("EnsureTags failed: %v", err)
	}
	if len(ids) != 1 || ids[0] != "tag-old" {
		t.Errorf("ids = %v, want [tag-old]", ids)
	}
	if board.tagPosts != 0 {
		t.Errorf("created tags = %d, want 0", board.tagPosts)
	}
}

func TestEnsureTags_SkipsFailedCreates(t *testing.T) {
	board := newFakeTagBoard()
	board.failTags["Broken"] = true
	srv := httptest.NewServer(board.handler())
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	ids, err := c.EnsureTags(context.Background(), "t", "board-1", []string{"Broken", "Fine"})
	if err != nil {
		t.Fatalf("EnsureTags failed: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("ids = %v, want only the id for Fine", ids)
	}
}

func TestUpdateWidget_EmptyPatchIsNoOp(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	patch := map[string]any{
		"text":  42,          // wrong type
		"x":     math.NaN(),  // not finite
		"y":     math.Inf(1), // not finite
		"width": "240",       // wrong type
		"other": "ignored",
	}
	if err := c.UpdateWidget(context.Background(), "t", "board-1", "w-1", patch); err != nil {
		t.Fatalf("UpdateWidget failed: %v", err)
	}
	if calls != 0 {
		t.Errorf("network calls = %d, want 0", calls)
	}
}

func TestWidgetPatchBody(t *testing.T) {
	tests := []struct {
		name  string
		patch map[string]any
		want  int
	}{
		{"text and geometry", map[string]any{"text": "hi", "x": 1.0, "y": 2.0}, 3},
		{"drops non-finite", map[string]any{"x": math.NaN(), "height": math.Inf(-1)}, 0},
		{"drops wrong types", map[string]any{"text": 3, "width": true}, 0},
		{"keeps zero values", map[string]any{"x": 0.0, "text": ""}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(widgetPatchBody(tt.patch)); got != tt.want {
				t.Errorf("kept %d fields, want %d", got, tt.want)
			}
		})
	}
}

func TestUpdateWidget_SendsFilteredPatch(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s, want PATCH", r.Method)
		}
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	err := c.UpdateWidget(context.Background(), "t", "b", "w", map[string]any{
		"text": "updated", "y": 80.0, "width": math.NaN(),
	})
	if err != nil {
		t.Fatalf("UpdateWidget failed: %v", err)
	}
	if got["text"] != "updated" || got["y"] != 80.0 {
		t.Errorf("patch body = %v", got)
	}
	if _, present := got["width"]; present {
		t.Error("non-finite width should not be sent")
	}
}

func TestApplyTags(t *testing.T) {
	tests := []struct {
		name        string
		fail        []string
		ids         []string
		wantOK      bool
		wantPartial bool
	}{
		{"all applied", nil, []string{"a", "b"}, true, false},
		{"partial", []string{"b"}, []string{"a", "b"}, false, true},
		{"all failed", []string{"a", "b"}, []string{"a", "b"}, false, false},
		{"no tags", nil, nil, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board := newFakeTagBoard()
			for _, id := range tt.fail {
				board.failApply[id] = true
			}
			srv := httptest.NewServer(board.handler())
			defer srv.Close()

			c := NewClient(srv.URL, 0)
			res := c.ApplyTags(context.Background(), "t", "board-1", "w-1", tt.ids)
			if res.OK != tt.wantOK || res.Partial != tt.wantPartial {
				t.Errorf("result = %+v, want OK=%v Partial=%v", res, tt.wantOK, tt.wantPartial)
			}
		})
	}
}

func TestCreateWidget(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Write([]byte(`{"id":"widget-9"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	id, err := c.CreateWidget(context.Background(), "t", "board-1", CreateWidgetParams{
		Text: "finding", X: 10, Y: 20,
	})
	if err != nil {
		t.Fatalf("CreateWidget failed: %v", err)
	}
	if id != "widget-9" {
		t.Errorf("id = %q, want widget-9", id)
	}
	if got["width"] != DefaultWidgetWidth || got["height"] != DefaultWidgetHeight {
		t.Errorf("expected default geometry, got %v", got)
	}
	if got["type"] != "sticky_note" {
		t.Errorf("type = %v, want sticky_note", got["type"])
	}
}
