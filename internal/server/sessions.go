package server

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/ldi/trellis/internal/editor"
)

type sessionResponse struct {
	ID           string          `json:"id"`
	Options      []editor.Option `json:"options"`
	SupertaskUID int64           `json:"supertask_uid"`
	SubtaskUID   int64           `json:"subtask_uid"`
}

func sessionJSON(session *editor.HierarchySession) sessionResponse {
	return sessionResponse{
		ID:           session.ID,
		Options:      session.Options(),
		SupertaskUID: session.Supertask(),
		SubtaskUID:   session.Subtask(),
	}
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	tasks, err := s.db.ListTasks(r.Context(), nil, nil)
	if err != nil {
		s.fail(w, err)
		return
	}

	session, err := s.sessions.Open(tasks)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.respond(w, http.StatusCreated, sessionJSON(session))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session := s.sessions.Get(mux.Vars(r)["id"])
	if session == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	s.respond(w, http.StatusOK, sessionJSON(session))
}

func (s *Server) handleSelectSession(w http.ResponseWriter, r *http.Request) {
	session := s.sessions.Get(mux.Vars(r)["id"])
	if session == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	var body struct {
		SupertaskUID *int64 `json:"supertask_uid"`
		SubtaskUID   *int64 `json:"subtask_uid"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	if body.SupertaskUID != nil {
		if err := session.SelectSupertask(*body.SupertaskUID); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	if body.SubtaskUID != nil {
		if err := session.SelectSubtask(*body.SubtaskUID); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	s.respond(w, http.StatusOK, sessionJSON(session))
}

func (s *Server) handleApplySession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	session := s.sessions.Get(id)
	if session == nil {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}

	if err := session.Apply(r.Context(), s.db); err != nil {
		s.fail(w, err)
		return
	}

	s.sessions.Close(id)
	s.respond(w, http.StatusCreated, map[string]int64{
		"supertask_uid": session.Supertask(),
		"subtask_uid":   session.Subtask(),
	})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	s.sessions.Close(mux.Vars(r)["id"])
	w.WriteHeader(http.StatusNoContent)
}
