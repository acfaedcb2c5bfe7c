// Package editor holds the headless state behind the editing surfaces:
// the task field form and the add-hierarchy session. Surfaces render this
// state and push the results through the store; none of the rules about
// absent fields or selector options live in the surfaces themselves.
package editor

import (
	"github.com/ldi/trellis/pkg/models"
)

// ImportanceNone is the selector option for clearing a task's importance.
const ImportanceNone = "none"

// TaskForm is the editable view of a task's fields. Absent name and
// description load as empty strings, and empty strings save back as
// absent; the text a user never typed is never stored.
type TaskForm struct {
	UID         int64
	Name        string
	Description string
	Importance  string
}

// NewTaskForm loads a task into a form.
func NewTaskForm(t *models.Task) *TaskForm {
	f := &TaskForm{
		UID:        t.UID,
		Name:       t.DisplayName(),
		Importance: ImportanceNone,
	}
	if t.Description != nil {
		f.Description = *t.Description
	}
	if t.Importance != nil {
		f.Importance = string(*t.Importance)
	}
	return f
}

// NameValue returns the name to store. An empty field stores absent.
func (f *TaskForm) NameValue() *string {
	return optional(f.Name)
}

// DescriptionValue returns the description to store. An empty field
// stores absent.
func (f *TaskForm) DescriptionValue() *string {
	return optional(f.Description)
}

// ImportanceValue returns the importance to store. The "none" option and
// an empty field both store absent; anything else must parse.
func (f *TaskForm) ImportanceValue() (*models.Importance, bool) {
	if f.Importance == "" || f.Importance == ImportanceNone {
		return nil, true
	}
	importance, ok := models.ParseImportance(f.Importance)
	if !ok {
		return nil, false
	}
	return &importance, true
}

// ImportanceOptions returns the selector options for the importance field,
// the clearing option first.
func ImportanceOptions() []string {
	return []string{
		ImportanceNone,
		string(models.ImportanceLow),
		string(models.ImportanceMedium),
		string(models.ImportanceHigh),
	}
}

// NextProgress returns the progress one step ahead of p. Editing surfaces
// only ever step progress to an adjacent value.
func NextProgress(p models.Progress) (models.Progress, bool) {
	switch p {
	case models.ProgressNotStarted:
		return models.ProgressInProgress, true
	case models.ProgressInProgress:
		return models.ProgressCompleted, true
	}
	return p, false
}

// PrevProgress returns the progress one step behind p.
func PrevProgress(p models.Progress) (models.Progress, bool) {
	switch p {
	case models.ProgressCompleted:
		return models.ProgressInProgress, true
	case models.ProgressInProgress:
		return models.ProgressNotStarted, true
	}
	return p, false
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
