package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Record is one logged execution.
type Record struct {
	ID               int64         `json:"id"`
	Command          string        `json:"command"`
	Outcome          string        `json:"outcome"`
	Error            string        `json:"error,omitempty"`
	Dir              string        `json:"dir,omitempty"`
	Args             []string      `json:"args"`
	Artifact         string        `json:"artifact,omitempty"`
	ArtifactChecksum string        `json:"artifact_checksum,omitempty"`
	StartedAt        time.Time     `json:"started_at"`
	Duration         time.Duration `json:"duration"`
}

// Store is the history interface consumed by the toolchain service.
type Store interface {
	Append(ctx context.Context, r Record) (int64, error)
	Recent(ctx context.Context, command string, limit int) ([]Record, error)
}

// Verify *DB satisfies Store at compile time.
var _ Store = (*DB)(nil)

// Append inserts r and returns its id.
func (db *DB) Append(ctx context.Context, r Record) (int64, error) {
	args := r.Args
	if args == nil {
		args = []string{}
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return 0, fmt.Errorf("history: encode args: %w", err)
	}
	res, err := db.conn.ExecContext(ctx, `
		INSERT INTO executions (command, outcome, error, dir, args, artifact, artifact_checksum, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.Command, r.Outcome, r.Error, r.Dir, string(argsJSON), r.Artifact, r.ArtifactChecksum,
		r.StartedAt.UTC(), r.Duration.Milliseconds())
	if err != nil {
		return 0, fmt.Errorf("history: append: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit records, newest first. An empty command
// matches every command; limit <= 0 defaults to 50.
func (db *DB) Recent(ctx context.Context, command string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, command, outcome, error, dir, args, artifact, artifact_checksum, started_at, duration_ms
		FROM executions
		WHERE ? = '' OR command = ?
		ORDER BY id DESC
		LIMIT ?
	`, command, command, limit)
	if err != nil {
		return nil, fmt.Errorf("history: recent: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var argsJSON string
		var ms int64
		if err := rows.Scan(&r.ID, &r.Command, &r.Outcome, &r.Error, &r.Dir, &argsJSON,
			&r.Artifact, &r.ArtifactChecksum, &r.StartedAt, &ms); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		if err := json.Unmarshal([]byte(argsJSON), &r.Args); err != nil {
			return nil, fmt.Errorf("history: decode args: %w", err)
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, r)
	}
	return out, rows.Err()
}
