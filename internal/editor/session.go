package editor

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/ldi/trellis/pkg/models"
)

// Option is one entry in a hierarchy selector.
type Option struct {
	UID   int64  `json:"uid"`
	Label string `json:"label"`
}

// HierarchyApplier persists a hierarchy edge once the session is applied.
type HierarchyApplier interface {
	CreateHierarchy(ctx context.Context, supertaskUID, subtaskUID int64) error
}

// HierarchySession is one open add-hierarchy dialog. It snapshots the
// task list when opened, and both selectors always offer that full
// snapshot: selecting a task in one selector never narrows the other.
type HierarchySession struct {
	ID string

	tasks     []*models.Task
	supertask int64
	subtask   int64
}

// NewHierarchySession opens a session over the given tasks. Both
// selectors start on the task with the lowest uid.
func NewHierarchySession(tasks []*models.Task) (*HierarchySession, error) {
	if len(tasks) == 0 {
		return nil, fmt.Errorf("no tasks to offer")
	}

	snapshot := append([]*models.Task(nil), tasks...)
	slices.SortFunc(snapshot, func(a, b *models.Task) int {
		return cmp.Compare(a.UID, b.UID)
	})

	return &HierarchySession{
		ID:        uuid.New().String(),
		tasks:     snapshot,
		supertask: snapshot[0].UID,
		subtask:   snapshot[0].UID,
	}, nil
}

// Options returns every task in the session snapshot, in uid order.
func (s *HierarchySession) Options() []Option {
	options := make([]Option, 0, len(s.tasks))
	for _, t := range s.tasks {
		options = append(options, Option{UID: t.UID, Label: optionLabel(t)})
	}
	return options
}

func optionLabel(t *models.Task) string {
	if t.DisplayName() == "" {
		return fmt.Sprintf("[%d]", t.UID)
	}
	return fmt.Sprintf("[%d] %s", t.UID, t.DisplayName())
}

// Supertask returns the currently selected supertask uid.
func (s *HierarchySession) Supertask() int64 {
	return s.supertask
}

// Subtask returns the currently selected subtask uid.
func (s *HierarchySession) Subtask() int64 {
	return s.subtask
}

// SelectSupertask points the supertask selector at a task from the
// snapshot.
func (s *HierarchySession) SelectSupertask(uid int64) error {
	if !s.offers(uid) {
		return fmt.Errorf("task [%d] is not offered by this session", uid)
	}
	s.supertask = uid
	return nil
}

// SelectSubtask points the subtask selector at a task from the snapshot.
func (s *HierarchySession) SelectSubtask(uid int64) error {
	if !s.offers(uid) {
		return fmt.Errorf("task [%d] is not offered by this session", uid)
	}
	s.subtask = uid
	return nil
}

func (s *HierarchySession) offers(uid int64) bool {
	for _, t := range s.tasks {
		if t.UID == uid {
			return true
		}
	}
	return false
}

// Apply submits the selected pair. Validation happens in the store, and
// every rule failure surfaces as its typed error.
func (s *HierarchySession) Apply(ctx context.Context, store HierarchyApplier) error {
	return store.CreateHierarchy(ctx, s.supertask, s.subtask)
}

// SessionManager tracks open hierarchy sessions by id. The web surface
// keeps several dialogs alive at once.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*HierarchySession
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*HierarchySession),
	}
}

// Open creates a session over the given tasks and tracks it.
func (sm *SessionManager) Open(tasks []*models.Task) (*HierarchySession, error) {
	session, err := NewHierarchySession(tasks)
	if err != nil {
		return nil, err
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.sessions[session.ID] = session
	return session, nil
}

// Get returns the session with the given id, or nil.
func (sm *SessionManager) Get(id string) *HierarchySession {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// Close drops the session with the given id.
func (sm *SessionManager) Close(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, id)
}
