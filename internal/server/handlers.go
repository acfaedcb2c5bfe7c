package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/ldi/trellis/internal/layout"
	"github.com/ldi/trellis/pkg/models"
)

func pathUID(r *http.Request) int64 {
	uid, _ := strconv.ParseInt(mux.Vars(r)["uid"], 10, 64)
	return uid
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	var progress *models.Progress
	var importance *models.Importance
	if v := r.URL.Query().Get("progress"); v != "" {
		parsed, ok := models.ParseProgress(v)
		if !ok {
			http.Error(w, "Invalid progress filter", http.StatusBadRequest)
			return
		}
		progress = &parsed
	}
	if v := r.URL.Query().Get("importance"); v != "" {
		parsed, ok := models.ParseImportance(v)
		if !ok {
			http.Error(w, "Invalid importance filter", http.StatusBadRequest)
			return
		}
		importance = &parsed
	}

	tasks, err := s.db.ListTasks(r.Context(), progress, importance)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, tasks)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	t, err := s.db.CreateTask(r.Context(), optional(body.Name), optional(body.Description))
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusCreated, t)
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	uid := pathUID(r)
	t, err := s.db.GetTask(r.Context(), uid)
	if err != nil {
		s.fail(w, err)
		return
	}
	if t == nil {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}

	out := map[string]any{"task": t}
	relations := map[string]func(context.Context, int64) ([]*models.Task, error){
		"supertask_uids": s.db.GetSupertasks,
		"subtask_uids":   s.db.GetSubtasks,
		"dependee_uids":  s.db.GetDependees,
		"dependent_uids": s.db.GetDependents,
	}
	for key, fetch := range relations {
		related, err := fetch(r.Context(), uid)
		if err != nil {
			s.fail(w, err)
			return
		}
		uids := make([]int64, 0, len(related))
		for _, rel := range related {
			uids = append(uids, rel.UID)
		}
		out[key] = uids
	}
	s.respond(w, http.StatusOK, out)
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	uid := pathUID(r)

	// Pointer fields make an omitted key distinguishable from an empty
	// string: omitted leaves the field alone, "" clears it to absent.
	var body struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		Progress    *string `json:"progress"`
		Importance  *string `json:"importance"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	t, err := s.db.GetTask(r.Context(), uid)
	if err != nil {
		s.fail(w, err)
		return
	}
	if t == nil {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}

	if body.Name != nil {
		if err := s.db.SetTaskName(r.Context(), uid, optional(body.Name)); err != nil {
			s.fail(w, err)
			return
		}
	}
	if body.Description != nil {
		if err := s.db.SetTaskDescription(r.Context(), uid, optional(body.Description)); err != nil {
			s.fail(w, err)
			return
		}
	}
	if body.Progress != nil {
		parsed, ok := models.ParseProgress(*body.Progress)
		if !ok {
			http.Error(w, "Invalid progress", http.StatusBadRequest)
			return
		}
		if err := s.db.SetTaskProgress(r.Context(), uid, parsed); err != nil {
			s.fail(w, err)
			return
		}
	}
	if body.Importance != nil {
		var value *models.Importance
		if *body.Importance != "" {
			parsed, ok := models.ParseImportance(*body.Importance)
			if !ok {
				http.Error(w, "Invalid importance", http.StatusBadRequest)
				return
			}
			value = &parsed
		}
		if err := s.db.SetTaskImportance(r.Context(), uid, value); err != nil {
			s.fail(w, err)
			return
		}
	}

	updated, err := s.db.GetTask(r.Context(), uid)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteTask(r.Context(), pathUID(r)); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type edgeRequest struct {
	SupertaskUID int64 `json:"supertask_uid"`
	SubtaskUID   int64 `json:"subtask_uid"`
	DependeeUID  int64 `json:"dependee_uid"`
	DependentUID int64 `json:"dependent_uid"`
}

func decodeEdge(w http.ResponseWriter, r *http.Request) (edgeRequest, bool) {
	var body edgeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return body, false
	}
	return body, true
}

func (s *Server) handleListHierarchies(w http.ResponseWriter, r *http.Request) {
	network, err := s.db.GetNetwork(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, network.Hierarchies)
}

func (s *Server) handleCreateHierarchy(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeEdge(w, r)
	if !ok {
		return
	}
	if err := s.db.CreateHierarchy(r.Context(), body.SupertaskUID, body.SubtaskUID); err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusCreated, map[string]int64{
		"supertask_uid": body.SupertaskUID,
		"subtask_uid":   body.SubtaskUID,
	})
}

func (s *Server) handleDeleteHierarchy(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeEdge(w, r)
	if !ok {
		return
	}
	if err := s.db.DeleteHierarchy(r.Context(), body.SupertaskUID, body.SubtaskUID); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListDependencies(w http.ResponseWriter, r *http.Request) {
	network, err := s.db.GetNetwork(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, network.Dependencies)
}

func (s *Server) handleCreateDependency(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeEdge(w, r)
	if !ok {
		return
	}
	if err := s.db.CreateDependency(r.Context(), body.DependeeUID, body.DependentUID); err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusCreated, map[string]int64{
		"dependee_uid":  body.DependeeUID,
		"dependent_uid": body.DependentUID,
	})
}

func (s *Server) handleDeleteDependency(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeEdge(w, r)
	if !ok {
		return
	}
	if err := s.db.DeleteDependency(r.Context(), body.DependeeUID, body.DependentUID); err != nil {
		s.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	network, err := s.db.GetNetwork(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}
	s.respond(w, http.StatusOK, network)
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	orientation := layout.OrientationVertical
	if v := r.URL.Query().Get("orientation"); v != "" {
		parsed, ok := layout.ParseOrientation(v)
		if !ok {
			http.Error(w, "Invalid orientation", http.StatusBadRequest)
			return
		}
		orientation = parsed
	}
	which := r.URL.Query().Get("graph")
	if which == "" {
		which = "hierarchy"
	}

	sys, err := s.db.LoadSystem(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}

	var positions map[int64]layout.Point
	switch which {
	case "hierarchy":
		positions = layout.Positions(sys.HierarchyGraph(), orientation)
	case "dependency":
		positions = layout.Positions(sys.DependencyGraph(), orientation)
	default:
		http.Error(w, "Invalid graph, want hierarchy or dependency", http.StatusBadRequest)
		return
	}

	s.respond(w, http.StatusOK, map[string]any{
		"graph":       which,
		"orientation": orientation,
		"positions":   positions,
	})
}

// rankedTask flattens a ranked task for the API, folding in the highest
// importance among the incomplete tasks it unblocks, itself included.
type rankedTask struct {
	*models.Task
	InheritedImportance *models.Importance `json:"inherited_importance,omitempty"`
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	ranked, err := s.db.NextTasks(r.Context())
	if err != nil {
		s.fail(w, err)
		return
	}

	tasks := make([]rankedTask, 0, len(ranked))
	for _, rt := range ranked {
		tasks = append(tasks, rankedTask{Task: rt.Task, InheritedImportance: rt.Importance})
	}
	s.respond(w, http.StatusOK, tasks)
}

// optional dereferences an update value, mapping both a nil pointer and an
// empty string to absent.
func optional(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
