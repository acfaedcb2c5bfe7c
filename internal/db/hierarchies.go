package db

import (
	"context"
	"fmt"

	"github.com/ldi/trellis/pkg/models"
)

// CreateHierarchy records a supertask -> subtask edge after the domain
// rules allow it. A concrete supertask hands its own progress over to
// inference, so its stored progress is cleared in the same transaction.
func (db *DB) CreateHierarchy(ctx context.Context, supertaskUID, subtaskUID int64) error {
	sys, err := db.LoadSystem(ctx)
	if err != nil {
		return err
	}
	wasConcrete := sys.IsConcrete(supertaskUID)
	if err := sys.AddHierarchy(supertaskUID, subtaskUID); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO hierarchies (supertask_uid, subtask_uid) VALUES (?, ?)`
	if _, err := tx.ExecContext(ctx, query, supertaskUID, subtaskUID); err != nil {
		return fmt.Errorf("failed to create hierarchy: %w", err)
	}

	if wasConcrete {
		if err := db.writeTaskProgress(ctx, tx, supertaskUID, nil); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	db.triggerChange(ctx)
	return nil
}

// DeleteHierarchy removes a supertask -> subtask edge. A supertask whose
// last subtask is detached becomes concrete again and keeps the progress
// it showed while inferred.
func (db *DB) DeleteHierarchy(ctx context.Context, supertaskUID, subtaskUID int64) error {
	sys, err := db.LoadSystem(ctx)
	if err != nil {
		return err
	}
	if err := sys.RemoveHierarchy(supertaskUID, subtaskUID); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `DELETE FROM hierarchies WHERE supertask_uid = ? AND subtask_uid = ?`
	if _, err := tx.ExecContext(ctx, query, supertaskUID, subtaskUID); err != nil {
		return fmt.Errorf("failed to delete hierarchy: %w", err)
	}

	if sys.IsConcrete(supertaskUID) {
		if err := db.writeTaskProgress(ctx, tx, supertaskUID, sys.Task(supertaskUID).Progress); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	db.triggerChange(ctx)
	return nil
}

// GetSupertasks returns the direct supertasks of a task, ordered by uid.
func (db *DB) GetSupertasks(ctx context.Context, uid int64) ([]*models.Task, error) {
	query := `
		SELECT t.uid, t.name, t.description, t.progress, t.importance, t.created_at, t.updated_at
		FROM tasks t
		JOIN hierarchies h ON t.uid = h.supertask_uid
		WHERE h.subtask_uid = ?
		ORDER BY t.uid ASC
	`
	return db.queryTasks(ctx, db.DB, query, uid)
}

// GetSubtasks returns the direct subtasks of a task, ordered by uid.
func (db *DB) GetSubtasks(ctx context.Context, uid int64) ([]*models.Task, error) {
	query := `
		SELECT t.uid, t.name, t.description, t.progress, t.importance, t.created_at, t.updated_at
		FROM tasks t
		JOIN hierarchies h ON t.uid = h.subtask_uid
		WHERE h.supertask_uid = ?
		ORDER BY t.uid ASC
	`
	return db.queryTasks(ctx, db.DB, query, uid)
}
