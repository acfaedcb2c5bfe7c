package db

import (
	"context"
	"fmt"

	"github.com/ldi/trellis/internal/task"
	"github.com/ldi/trellis/pkg/models"
)

// GetNetwork returns every task plus all hierarchy and dependency edges.
func (db *DB) GetNetwork(ctx context.Context) (*models.Network, error) {
	return db.getNetwork(ctx, db.DB)
}

func (db *DB) getNetwork(ctx context.Context, exec executor) (*models.Network, error) {
	tasks, err := db.queryTasks(ctx, exec, `
		SELECT uid, name, description, progress, importance, created_at, updated_at
		FROM tasks
		ORDER BY uid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}

	hierarchies, err := db.queryHierarchies(ctx, exec)
	if err != nil {
		return nil, err
	}

	dependencies, err := db.queryDependencies(ctx, exec)
	if err != nil {
		return nil, err
	}

	return &models.Network{
		Tasks:        tasks,
		Hierarchies:  hierarchies,
		Dependencies: dependencies,
	}, nil
}

func (db *DB) queryHierarchies(ctx context.Context, exec executor) ([]*models.Hierarchy, error) {
	rows, err := exec.QueryContext(ctx, `
		SELECT supertask_uid, subtask_uid, created_at
		FROM hierarchies
		ORDER BY supertask_uid ASC, subtask_uid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query hierarchies: %w", err)
	}
	defer rows.Close()

	var hierarchies []*models.Hierarchy
	for rows.Next() {
		h := &models.Hierarchy{}
		if err := rows.Scan(&h.SupertaskUID, &h.SubtaskUID, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan hierarchy: %w", err)
		}
		hierarchies = append(hierarchies, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return hierarchies, nil
}

func (db *DB) queryDependencies(ctx context.Context, exec executor) ([]*models.Dependency, error) {
	rows, err := exec.QueryContext(ctx, `
		SELECT dependee_uid, dependent_uid, created_at
		FROM dependencies
		ORDER BY dependee_uid ASC, dependent_uid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query dependencies: %w", err)
	}
	defer rows.Close()

	var dependencies []*models.Dependency
	for rows.Next() {
		d := &models.Dependency{}
		if err := rows.Scan(&d.DependeeUID, &d.DependentUID, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dependency: %w", err)
		}
		dependencies = append(dependencies, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return dependencies, nil
}

// LoadSystem builds the in-memory task system from the stored network.
func (db *DB) LoadSystem(ctx context.Context) (*task.System, error) {
	network, err := db.GetNetwork(ctx)
	if err != nil {
		return nil, err
	}
	sys, err := task.FromNetwork(network)
	if err != nil {
		return nil, fmt.Errorf("failed to load task system: %w", err)
	}
	return sys, nil
}

// NextTasks returns the active concrete tasks ordered by how pressing they
// are, most pressing first.
func (db *DB) NextTasks(ctx context.Context) ([]task.Ranked, error) {
	sys, err := db.LoadSystem(ctx)
	if err != nil {
		return nil, err
	}
	return sys.ActiveConcreteTasksByPriority(), nil
}
