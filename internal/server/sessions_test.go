package server

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/ldi/trellis/internal/db"
	"github.com/ldi/trellis/pkg/models"
)

func seedTasks(t *testing.T, database *db.DB, names ...string) {
	t.Helper()
	for _, name := range names {
		n := name
		if _, err := database.CreateTask(context.Background(), &n, nil); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}
	}
}

func TestHierarchySessionEndpoints(t *testing.T) {
	srv, database := newTestServer(t)
	handler := srv.Handler()
	seedTasks(t, database, "first", "second")

	w := doJSON(t, handler, "POST", "/api/sessions/hierarchy", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %v: %s", w.Code, w.Body.String())
	}

	var session struct {
		ID      string `json:"id"`
		Options []struct {
			UID   int64  `json:"uid"`
			Label string `json:"label"`
		} `json:"options"`
		SupertaskUID int64 `json:"supertask_uid"`
		SubtaskUID   int64 `json:"subtask_uid"`
	}
	decode(t, w, &session)
	if session.ID == "" {
		t.Fatal("Expected a session id")
	}
	if len(session.Options) != 2 {
		t.Fatalf("Expected 2 options, got %d", len(session.Options))
	}
	if session.Options[0].Label != "[1] first" {
		t.Errorf("Unexpected option label: %s", session.Options[0].Label)
	}
	if session.SupertaskUID != 1 || session.SubtaskUID != 1 {
		t.Errorf("Expected both selectors to default to task 1, got %d and %d",
			session.SupertaskUID, session.SubtaskUID)
	}

	path := "/api/sessions/hierarchy/" + session.ID

	t.Run("select subtask", func(t *testing.T) {
		w := doJSON(t, handler, "PUT", path, map[string]any{"subtask_uid": 2})
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status OK, got %v: %s", w.Code, w.Body.String())
		}
		decode(t, w, &session)
		if session.SubtaskUID != 2 {
			t.Errorf("Expected subtask 2, got %d", session.SubtaskUID)
		}
		// Selecting must never narrow the choices offered.
		if len(session.Options) != 2 {
			t.Errorf("Expected 2 options after selection, got %d", len(session.Options))
		}
	})

	t.Run("select unknown task", func(t *testing.T) {
		w := doJSON(t, handler, "PUT", path, map[string]any{"supertask_uid": 99})
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %v", w.Code)
		}
	})

	t.Run("get session", func(t *testing.T) {
		w := doJSON(t, handler, "GET", path, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status OK, got %v", w.Code)
		}
		decode(t, w, &session)
		if session.SupertaskUID != 1 || session.SubtaskUID != 2 {
			t.Errorf("Unexpected selections: %d, %d", session.SupertaskUID, session.SubtaskUID)
		}
	})

	t.Run("apply", func(t *testing.T) {
		w := doJSON(t, handler, "POST", path+"/apply", nil)
		if w.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %v: %s", w.Code, w.Body.String())
		}

		var hierarchies []*models.Hierarchy
		w = doJSON(t, handler, "GET", "/api/hierarchies", nil)
		decode(t, w, &hierarchies)
		if len(hierarchies) != 1 || hierarchies[0].SupertaskUID != 1 || hierarchies[0].SubtaskUID != 2 {
			t.Errorf("Hierarchy not created: %+v", hierarchies)
		}

		// Applying closes the session.
		w = doJSON(t, handler, "GET", path, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404 after apply, got %v", w.Code)
		}
	})
}

func TestHierarchySessionApplyFailureKeepsSession(t *testing.T) {
	srv, database := newTestServer(t)
	handler := srv.Handler()
	seedTasks(t, database, "only")

	w := doJSON(t, handler, "POST", "/api/sessions/hierarchy", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %v", w.Code)
	}
	var session struct {
		ID string `json:"id"`
	}
	decode(t, w, &session)

	// Both selectors default to the same task, so applying is a loop.
	path := fmt.Sprintf("/api/sessions/hierarchy/%s/apply", session.ID)
	w = doJSON(t, handler, "POST", path, nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %v", w.Code)
	}

	w = doJSON(t, handler, "GET", "/api/sessions/hierarchy/"+session.ID, nil)
	if w.Code != http.StatusOK {
		t.Errorf("Session should survive a failed apply, got %v", w.Code)
	}
}

func TestHierarchySessionLifecycle(t *testing.T) {
	srv, database := newTestServer(t)
	handler := srv.Handler()

	t.Run("open without tasks", func(t *testing.T) {
		w := doJSON(t, handler, "POST", "/api/sessions/hierarchy", nil)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %v", w.Code)
		}
	})

	t.Run("get unknown session", func(t *testing.T) {
		w := doJSON(t, handler, "GET", "/api/sessions/hierarchy/nope", nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %v", w.Code)
		}
	})

	t.Run("close", func(t *testing.T) {
		seedTasks(t, database, "a", "b")
		w := doJSON(t, handler, "POST", "/api/sessions/hierarchy", nil)
		if w.Code != http.StatusCreated {
			t.Fatalf("Expected status 201, got %v", w.Code)
		}
		var session struct {
			ID string `json:"id"`
		}
		decode(t, w, &session)

		w = doJSON(t, handler, "DELETE", "/api/sessions/hierarchy/"+session.ID, nil)
		if w.Code != http.StatusNoContent {
			t.Errorf("Expected status 204, got %v", w.Code)
		}
		w = doJSON(t, handler, "GET", "/api/sessions/hierarchy/"+session.ID, nil)
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404 after close, got %v", w.Code)
		}
	})
}
