package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ldi/trellis/internal/task"
	"github.com/ldi/trellis/pkg/models"
)

// CreateTask inserts a new task and returns it with its assigned uid.
// New tasks start out concrete and not started; nil name or description
// stays absent.
func (db *DB) CreateTask(ctx context.Context, name, description *string) (*models.Task, error) {
	t := &models.Task{Name: name, Description: description}
	progress := models.ProgressNotStarted
	t.Progress = &progress

	query := `
		INSERT INTO tasks (name, description, progress)
		VALUES (?, ?, ?)
		RETURNING uid, created_at, updated_at
	`
	err := db.QueryRowContext(ctx, query, t.Name, t.Description, t.Progress).
		Scan(&t.UID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	db.triggerChange(ctx)
	return t, nil
}

// GetTask retrieves a task by its uid. Returns nil when the task does not
// exist.
func (db *DB) GetTask(ctx context.Context, uid int64) (*models.Task, error) {
	query := `
		SELECT uid, name, description, progress, importance, created_at, updated_at
		FROM tasks
		WHERE uid = ?
	`
	t := &models.Task{}
	err := db.QueryRowContext(ctx, query, uid).Scan(
		&t.UID, &t.Name, &t.Description, &t.Progress, &t.Importance, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

// ListTasks returns tasks ordered by uid, optionally filtered by stored
// progress or importance. The filters match the stored columns, so tasks
// whose progress is inferred from subtasks never match a progress filter.
func (db *DB) ListTasks(ctx context.Context, progress *models.Progress, importance *models.Importance) ([]*models.Task, error) {
	query := `
		SELECT uid, name, description, progress, importance, created_at, updated_at
		FROM tasks
		WHERE 1=1
	`
	args := []any{}

	if progress != nil {
		query += " AND progress = ?"
		args = append(args, *progress)
	}

	if importance != nil {
		query += " AND importance = ?"
		args = append(args, *importance)
	}

	query += " ORDER BY uid ASC"

	return db.queryTasks(ctx, db.DB, query, args...)
}

func (db *DB) queryTasks(ctx context.Context, exec executor, query string, args ...any) ([]*models.Task, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		t := &models.Task{}
		err := rows.Scan(
			&t.UID, &t.Name, &t.Description, &t.Progress, &t.Importance, &t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return tasks, nil
}

// SetTaskName sets or clears the name of a task. nil clears it.
func (db *DB) SetTaskName(ctx context.Context, uid int64, name *string) error {
	return db.updateTaskField(ctx, uid, "name", name)
}

// SetTaskDescription sets or clears the description of a task. nil clears it.
func (db *DB) SetTaskDescription(ctx context.Context, uid int64, description *string) error {
	return db.updateTaskField(ctx, uid, "description", description)
}

func (db *DB) updateTaskField(ctx context.Context, uid int64, column string, value *string) error {
	query := fmt.Sprintf(`
		UPDATE tasks
		SET %s = ?, updated_at = CURRENT_TIMESTAMP
		WHERE uid = ?
	`, column)
	res, err := db.ExecContext(ctx, query, value, uid)
	if err != nil {
		return fmt.Errorf("failed to update task %s: %w", column, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return task.NotFoundError{UID: uid}
	}

	db.triggerChange(ctx)
	return nil
}

// SetTaskProgress updates the progress of a concrete task after the domain
// rules allow the transition.
func (db *DB) SetTaskProgress(ctx context.Context, uid int64, progress models.Progress) error {
	sys, err := db.LoadSystem(ctx)
	if err != nil {
		return err
	}
	if err := sys.SetProgress(uid, progress); err != nil {
		return err
	}

	if err := db.writeTaskProgress(ctx, db.DB, uid, &progress); err != nil {
		return err
	}

	db.triggerChange(ctx)
	return nil
}

func (db *DB) writeTaskProgress(ctx context.Context, exec executor, uid int64, progress *models.Progress) error {
	query := `
		UPDATE tasks
		SET progress = ?, updated_at = CURRENT_TIMESTAMP
		WHERE uid = ?
	`
	if _, err := exec.ExecContext(ctx, query, progress, uid); err != nil {
		return fmt.Errorf("failed to update task progress: %w", err)
	}
	return nil
}

// SetTaskImportance sets or clears the importance of a task after the
// domain rules allow it. nil clears it.
func (db *DB) SetTaskImportance(ctx context.Context, uid int64, importance *models.Importance) error {
	sys, err := db.LoadSystem(ctx)
	if err != nil {
		return err
	}
	if err := sys.SetImportance(uid, importance); err != nil {
		return err
	}

	query := `
		UPDATE tasks
		SET importance = ?, updated_at = CURRENT_TIMESTAMP
		WHERE uid = ?
	`
	if _, err := db.ExecContext(ctx, query, importance, uid); err != nil {
		return fmt.Errorf("failed to update task importance: %w", err)
	}

	db.triggerChange(ctx)
	return nil
}

// DeleteTask deletes a fully isolated task. Tasks still referenced by a
// hierarchy or dependency are rejected, and their uid is never reused.
func (db *DB) DeleteTask(ctx context.Context, uid int64) error {
	sys, err := db.LoadSystem(ctx)
	if err != nil {
		return err
	}
	if err := sys.RemoveTask(uid); err != nil {
		return err
	}

	query := `DELETE FROM tasks WHERE uid = ?`
	if _, err := db.ExecContext(ctx, query, uid); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	db.triggerChange(ctx)
	return nil
}
