// Package server exposes the task network over HTTP: a JSON API under
// /api and an embedded single-page UI at the root.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ldi/trellis/embed/webui"
	"github.com/ldi/trellis/internal/db"
	"github.com/ldi/trellis/internal/editor"
	"github.com/ldi/trellis/internal/task"
)

type Server struct {
	db       *db.DB
	sessions *editor.SessionManager
	server   *http.Server
}

func NewServer(database *db.DB) *Server {
	return &Server{db: database, sessions: editor.NewSessionManager()}
}

// Handler builds the full route table, API plus static UI.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/tasks", s.handleListTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks", s.handleCreateTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{uid:[0-9]+}", s.handleGetTask).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{uid:[0-9]+}", s.handleUpdateTask).Methods(http.MethodPatch)
	api.HandleFunc("/tasks/{uid:[0-9]+}", s.handleDeleteTask).Methods(http.MethodDelete)

	api.HandleFunc("/hierarchies", s.handleListHierarchies).Methods(http.MethodGet)
	api.HandleFunc("/hierarchies", s.handleCreateHierarchy).Methods(http.MethodPost)
	api.HandleFunc("/hierarchies", s.handleDeleteHierarchy).Methods(http.MethodDelete)

	api.HandleFunc("/dependencies", s.handleListDependencies).Methods(http.MethodGet)
	api.HandleFunc("/dependencies", s.handleCreateDependency).Methods(http.MethodPost)
	api.HandleFunc("/dependencies", s.handleDeleteDependency).Methods(http.MethodDelete)

	api.HandleFunc("/graph", s.handleGraph).Methods(http.MethodGet)
	api.HandleFunc("/layout", s.handleLayout).Methods(http.MethodGet)
	api.HandleFunc("/next", s.handleNext).Methods(http.MethodGet)

	api.HandleFunc("/sessions/hierarchy", s.handleOpenSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/hierarchy/{id}", s.handleGetSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/hierarchy/{id}", s.handleSelectSession).Methods(http.MethodPut)
	api.HandleFunc("/sessions/hierarchy/{id}", s.handleCloseSession).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/hierarchy/{id}/apply", s.handleApplySession).Methods(http.MethodPost)

	// Static files
	r.PathPrefix("/").Handler(http.FileServer(http.FS(webui.Assets)))
	return r
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// fail maps an error onto a status code. Not-found failures from the task
// system turn into 404s; everything else surfaces as a 500 with the error
// text for the UI to show.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var (
		taskMissing       task.NotFoundError
		hierarchyMissing  task.HierarchyNotFoundError
		dependencyMissing task.DependencyNotFoundError
	)
	switch {
	case errors.As(err, &taskMissing),
		errors.As(err, &hierarchyMissing),
		errors.As(err, &dependencyMissing):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
