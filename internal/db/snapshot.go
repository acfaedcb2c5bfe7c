package db

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ldi/trellis/internal/task"
	"github.com/ldi/trellis/pkg/models"
)

// Snapshot record types, one per JSONL line. Tasks come before edges so
// that an import never sees an edge whose endpoints are still unknown.
type metaRecord struct {
	RecordType      string    `json:"record_type"`
	ID              string    `json:"id"`
	ExportedAt      time.Time `json:"exported_at"`
	NextUID         int64     `json:"next_uid"`
	TaskCount       int       `json:"task_count"`
	HierarchyCount  int       `json:"hierarchy_count"`
	DependencyCount int       `json:"dependency_count"`
}

type taskRecord struct {
	RecordType string `json:"record_type"`
	models.Task
}

type hierarchyRecord struct {
	RecordType string `json:"record_type"`
	models.Hierarchy
}

type dependencyRecord struct {
	RecordType string `json:"record_type"`
	models.Dependency
}

// EnableAutoSnapshot sets up a hook that automatically exports a snapshot
// to the given path after every successful write operation.
func (db *DB) EnableAutoSnapshot(path string) {
	db.SetOnChange(func(ctx context.Context) {
		// Best effort: an export failure never fails the write that
		// triggered it.
		_ = db.ExportSnapshot(ctx, path)
	})
}

// ExportSnapshot writes the full network as JSONL to the given path,
// atomically via a temporary file. The first line is a meta record, then
// tasks ordered by uid, then hierarchy and dependency edges.
func (db *DB) ExportSnapshot(ctx context.Context, path string) error {
	network, err := db.GetNetwork(ctx)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, "snapshot-*.jsonl")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempFile.Name())
		}
	}()

	writer := bufio.NewWriter(tempFile)
	writeLine := func(record any) error {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal snapshot record: %w", err)
		}
		if _, err := writer.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("failed to write snapshot line: %w", err)
		}
		return nil
	}

	nextUID, err := db.nextUID(ctx)
	if err != nil {
		return err
	}
	meta := metaRecord{
		RecordType:      "meta",
		ID:              uuid.New().String(),
		ExportedAt:      time.Now().UTC(),
		NextUID:         nextUID,
		TaskCount:       len(network.Tasks),
		HierarchyCount:  len(network.Hierarchies),
		DependencyCount: len(network.Dependencies),
	}
	if err := writeLine(meta); err != nil {
		return err
	}
	for _, t := range network.Tasks {
		if err := writeLine(taskRecord{RecordType: "task", Task: *t}); err != nil {
			return err
		}
	}
	for _, h := range network.Hierarchies {
		if err := writeLine(hierarchyRecord{RecordType: "hierarchy", Hierarchy: *h}); err != nil {
			return err
		}
	}
	for _, d := range network.Dependencies {
		if err := writeLine(dependencyRecord{RecordType: "dependency", Dependency: *d}); err != nil {
			return err
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush snapshot: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	filename := tempFile.Name()
	tempFile = nil // Prevent defer from removing it

	if err := os.Rename(filename, path); err != nil {
		os.Remove(filename)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// nextUID reads the stored uid counter: the uid the next created task
// will receive. Exported in the snapshot meta so a restored database
// never hands out a uid the exporting one had already used, even when the
// task that held it was deleted before the export.
func (db *DB) nextUID(ctx context.Context) (int64, error) {
	var seq int64
	err := db.QueryRowContext(ctx, `SELECT seq FROM sqlite_sequence WHERE name = 'tasks'`).Scan(&seq)
	if err != nil && err != sql.ErrNoRows {
		return 0, fmt.Errorf("failed to read uid counter: %w", err)
	}
	return seq + 1, nil
}

func (db *DB) restoreUIDCounter(ctx context.Context, exec executor, nextUID int64) error {
	if nextUID <= 1 {
		return nil
	}
	target := nextUID - 1

	var seq int64
	err := exec.QueryRowContext(ctx, `SELECT seq FROM sqlite_sequence WHERE name = 'tasks'`).Scan(&seq)
	switch {
	case err == sql.ErrNoRows:
		_, err = exec.ExecContext(ctx, `INSERT INTO sqlite_sequence (name, seq) VALUES ('tasks', ?)`, target)
	case err != nil:
		return fmt.Errorf("failed to read uid counter: %w", err)
	case seq < target:
		// The counter only ever moves forward.
		_, err = exec.ExecContext(ctx, `UPDATE sqlite_sequence SET seq = ? WHERE name = 'tasks'`, target)
	}
	if err != nil {
		return fmt.Errorf("failed to restore uid counter: %w", err)
	}
	return nil
}

// ImportSnapshot reads a JSONL snapshot and merges it into the database,
// keyed by uid: known tasks are updated in place, unknown tasks are
// inserted with their snapshot uid, and duplicate edges are ignored. The
// merged network must stay structurally sound or the whole import rolls
// back.
func (db *DB) ImportSnapshot(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer file.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	known := make(map[int64]bool)
	err = func() error {
		rows, err := tx.QueryContext(ctx, "SELECT uid FROM tasks")
		if err != nil {
			return fmt.Errorf("failed to query tasks: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var uid int64
			if err := rows.Scan(&uid); err != nil {
				return err
			}
			known[uid] = true
		}
		return rows.Err()
	}()
	if err != nil {
		return err
	}

	var nextUID int64

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var base struct {
			RecordType string `json:"record_type"`
		}
		if err := json.Unmarshal(line, &base); err != nil {
			return fmt.Errorf("failed to unmarshal base record: %w", err)
		}

		switch base.RecordType {
		case "meta":
			var r metaRecord
			if err := json.Unmarshal(line, &r); err != nil {
				return fmt.Errorf("failed to unmarshal meta record: %w", err)
			}
			if r.NextUID > nextUID {
				nextUID = r.NextUID
			}

		case "task":
			var r taskRecord
			if err := json.Unmarshal(line, &r); err != nil {
				return fmt.Errorf("failed to unmarshal task: %w", err)
			}
			if r.UID <= 0 {
				return fmt.Errorf("invalid task uid in snapshot: %d", r.UID)
			}

			if known[r.UID] {
				_, err = tx.ExecContext(ctx, `
					UPDATE tasks
					SET name = ?, description = ?, progress = ?, importance = ?, created_at = ?, updated_at = ?
					WHERE uid = ?`,
					r.Name, r.Description, r.Progress, r.Importance, r.CreatedAt, r.UpdatedAt, r.UID)
			} else {
				_, err = tx.ExecContext(ctx, `
					INSERT INTO tasks (uid, name, description, progress, importance, created_at, updated_at)
					VALUES (?, ?, ?, ?, ?, ?, ?)`,
					r.UID, r.Name, r.Description, r.Progress, r.Importance, r.CreatedAt, r.UpdatedAt)
			}
			if err != nil {
				return fmt.Errorf("failed to sync task %d: %w", r.UID, err)
			}
			known[r.UID] = true

		case "hierarchy":
			var r hierarchyRecord
			if err := json.Unmarshal(line, &r); err != nil {
				return fmt.Errorf("failed to unmarshal hierarchy: %w", err)
			}
			if !known[r.SupertaskUID] || !known[r.SubtaskUID] {
				return fmt.Errorf("task not found for hierarchy: %d -> %d", r.SupertaskUID, r.SubtaskUID)
			}
			_, err = tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO hierarchies (supertask_uid, subtask_uid) VALUES (?, ?)",
				r.SupertaskUID, r.SubtaskUID)
			if err != nil {
				return fmt.Errorf("failed to insert hierarchy %d -> %d: %w", r.SupertaskUID, r.SubtaskUID, err)
			}

		case "dependency":
			var r dependencyRecord
			if err := json.Unmarshal(line, &r); err != nil {
				return fmt.Errorf("failed to unmarshal dependency: %w", err)
			}
			if !known[r.DependeeUID] || !known[r.DependentUID] {
				return fmt.Errorf("task not found for dependency: %d -> %d", r.DependeeUID, r.DependentUID)
			}
			_, err = tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO dependencies (dependee_uid, dependent_uid) VALUES (?, ?)",
				r.DependeeUID, r.DependentUID)
			if err != nil {
				return fmt.Errorf("failed to insert dependency %d -> %d: %w", r.DependeeUID, r.DependentUID, err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	if err := db.restoreUIDCounter(ctx, tx, nextUID); err != nil {
		return err
	}

	if err := db.validateNetwork(ctx, tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	db.triggerChange(ctx)
	return nil
}

// validateNetwork checks that the stored network still makes a sound task
// system: every edge resolves and neither graph contains a cycle. Finer
// rules like progress guards were enforced when the snapshot's source
// network was built, and replaying them here would wrongly reject valid
// states whose edges arrived in a different order.
func (db *DB) validateNetwork(ctx context.Context, exec executor) error {
	network, err := db.getNetwork(ctx, exec)
	if err != nil {
		return err
	}
	sys, err := task.FromNetwork(network)
	if err != nil {
		return fmt.Errorf("snapshot produced an invalid network: %w", err)
	}
	if sys.HierarchyGraph().HasCycle() {
		return fmt.Errorf("snapshot produced a hierarchy cycle")
	}
	if sys.DependencyGraph().HasCycle() {
		return fmt.Errorf("snapshot produced a dependency cycle")
	}
	return nil
}
