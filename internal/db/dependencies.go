package db

import (
	"context"
	"fmt"

	"github.com/ldi/trellis/pkg/models"
)

// CreateDependency records a dependee -> dependent edge after the domain
// rules allow it.
func (db *DB) CreateDependency(ctx context.Context, dependeeUID, dependentUID int64) error {
	sys, err := db.LoadSystem(ctx)
	if err != nil {
		return err
	}
	if err := sys.AddDependency(dependeeUID, dependentUID); err != nil {
		return err
	}

	query := `INSERT INTO dependencies (dependee_uid, dependent_uid) VALUES (?, ?)`
	if _, err := db.ExecContext(ctx, query, dependeeUID, dependentUID); err != nil {
		return fmt.Errorf("failed to create dependency: %w", err)
	}

	db.triggerChange(ctx)
	return nil
}

// DeleteDependency removes a dependee -> dependent edge.
func (db *DB) DeleteDependency(ctx context.Context, dependeeUID, dependentUID int64) error {
	sys, err := db.LoadSystem(ctx)
	if err != nil {
		return err
	}
	if err := sys.RemoveDependency(dependeeUID, dependentUID); err != nil {
		return err
	}

	query := `DELETE FROM dependencies WHERE dependee_uid = ? AND dependent_uid = ?`
	if _, err := db.ExecContext(ctx, query, dependeeUID, dependentUID); err != nil {
		return fmt.Errorf("failed to delete dependency: %w", err)
	}

	db.triggerChange(ctx)
	return nil
}

// GetDependees returns the tasks a task directly depends on, ordered by uid.
func (db *DB) GetDependees(ctx context.Context, uid int64) ([]*models.Task, error) {
	query := `
		SELECT t.uid, t.name, t.description, t.progress, t.importance, t.created_at, t.updated_at
		FROM tasks t
		JOIN dependencies d ON t.uid = d.dependee_uid
		WHERE d.dependent_uid = ?
		ORDER BY t.uid ASC
	`
	return db.queryTasks(ctx, db.DB, query, uid)
}

// GetDependents returns the tasks directly depending on a task, ordered by uid.
func (db *DB) GetDependents(ctx context.Context, uid int64) ([]*models.Task, error) {
	query := `
		SELECT t.uid, t.name, t.description, t.progress, t.importance, t.created_at, t.updated_at
		FROM tasks t
		JOIN dependencies d ON t.uid = d.dependent_uid
		WHERE d.dependee_uid = ?
		ORDER BY t.uid ASC
	`
	return db.queryTasks(ctx, db.DB, query, uid)
}
