package models

import "time"

// Hierarchy is a supertask -> subtask edge: completing all of a task's
// subtasks is what completes the task itself.
type Hierarchy struct {
	SupertaskUID int64     `json:"supertask_uid"`
	SubtaskUID   int64     `json:"subtask_uid"`
	CreatedAt    time.Time `json:"created_at"`
}
