package models

import "time"

// Progress describes how far along a concrete task is. Tasks with subtasks
// have no progress of their own; theirs is inferred from their subtasks.
type Progress string

const (
	ProgressNotStarted Progress = "not started"
	ProgressInProgress Progress = "in progress"
	ProgressCompleted  Progress = "completed"
)

// ParseProgress converts a string into a Progress value.
func ParseProgress(s string) (Progress, bool) {
	switch p := Progress(s); p {
	case ProgressNotStarted, ProgressInProgress, ProgressCompleted:
		return p, true
	}
	return "", false
}

// Step returns how far along p is, for ordering comparisons.
func (p Progress) Step() int {
	switch p {
	case ProgressInProgress:
		return 1
	case ProgressCompleted:
		return 2
	}
	return 0
}

// Importance is how important a task is.
type Importance string

const (
	ImportanceLow    Importance = "low"
	ImportanceMedium Importance = "medium"
	ImportanceHigh   Importance = "high"
)

// ParseImportance converts a string into an Importance value.
func ParseImportance(s string) (Importance, bool) {
	switch i := Importance(s); i {
	case ImportanceLow, ImportanceMedium, ImportanceHigh:
		return i, true
	}
	return "", false
}

// Rank returns the importance as an orderable number, low to high.
func (i Importance) Rank() int {
	switch i {
	case ImportanceLow:
		return 1
	case ImportanceMedium:
		return 2
	case ImportanceHigh:
		return 3
	}
	return 0
}

// Task is a unit of work. Name and description are optional: nil means the
// field is absent, which is distinct from every string value including "".
// Progress is nil for tasks whose progress is inferred from subtasks, and
// Importance is nil for tasks that carry none of their own.
type Task struct {
	UID         int64       `json:"uid"`
	Name        *string     `json:"name,omitempty"`
	Description *string     `json:"description,omitempty"`
	Progress    *Progress   `json:"progress,omitempty"`
	Importance  *Importance `json:"importance,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// DisplayName returns the task name, or the empty string when absent.
func (t *Task) DisplayName() string {
	if t.Name == nil {
		return ""
	}
	return *t.Name
}
