package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func fetchAsset(t *testing.T, path string) string {
	t.Helper()
	srv, _ := newTestServer(t)

	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status OK for %s, got %v", path, w.Code)
	}
	body, err := io.ReadAll(w.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	return string(body)
}

func TestIndexPage(t *testing.T) {
	content := fetchAsset(t, "/")

	if !strings.Contains(content, "<title>Trellis</title>") {
		t.Error("index.html missing <title>Trellis</title>")
	}
	if !strings.Contains(content, "TRELL<span class=\"trellis-i\">I</span>S") {
		t.Error("index.html missing TRELLIS header")
	}
	if !strings.Contains(content, "class=\"task-list-placeholder\"") {
		t.Error("index.html missing task list placeholder")
	}
	if !strings.Contains(content, "Loading tasks...</div>") {
		t.Error("index.html missing loading placeholder text")
	}
	if !strings.Contains(content, "width: 24vw;") {
		t.Error("index.html missing sidebar width for .task-panel")
	}
}

func TestGraphScript(t *testing.T) {
	content := fetchAsset(t, "/graph.js")

	if !strings.Contains(content, "let selectedNodeId = null;") {
		t.Error("graph.js missing selectedNodeId declaration")
	}
	if !strings.Contains(content, "task.uid === selectedNodeId ? '#ffffff' : 'none'") {
		t.Error("graph.js missing stroke highlight logic")
	}
	if !strings.Contains(content, "task.uid === selectedNodeId ? 3 : 0") {
		t.Error("graph.js missing stroke-width highlight logic")
	}
	if !strings.Contains(content, "/api/layout?graph=") {
		t.Error("graph.js missing layout fetch")
	}
	// The UI must render absent names as empty, never as a placeholder
	// string baked into the data.
	if strings.Contains(content, "'None'") || strings.Contains(content, "\"None\"") {
		t.Error("graph.js must not coerce absent fields to the string None")
	}
}
