package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/opsdeck/opsdeck/internal/domain/monitor"
)

// ActionStore implements monitor.ActionStore.
type ActionStore struct {
	db *DB
}

// NewActionStore creates an action store over the shared handle.
func NewActionStore(db *DB) *ActionStore {
	return &ActionStore{db: db}
}

// CreateAction implements monitor.ActionStore.
func (s *ActionStore) CreateAction(ctx context.Context, a *monitor.Action) error {
	_, err := s.db.db.ExecContext(ctx,
		`INSERT INTO actions (id, incident_id, command_run, result, executed_by, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.IncidentID, a.CommandRun, a.Result, a.ExecutedBy, a.Timestamp)
	if err != nil {
		return fmt.Errorf("insert action: %w", err)
	}
	return nil
}

// GetAction implements monitor.ActionStore.
func (s *ActionStore) GetAction(ctx context.Context, id string) (*monitor.Action, error) {
	row := s.db.db.QueryRowContext(ctx,
		`SELECT id, incident_id, command_run, result, executed_by, timestamp FROM actions WHERE id = ?`, id)

	var a monitor.Action
	err := row.Scan(&a.ID, &a.IncidentID, &a.CommandRun, &a.Result, &a.ExecutedBy, &a.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, monitor.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select action: %w", err)
	}
	return &a, nil
}

// ListActions implements monitor.ActionStore.
func (s *ActionStore) ListActions(ctx context.Context, filter monitor.ActionFilter, page monitor.Page) ([]monitor.Action, int, error) {
	page = normalizePage(page)

	where := ""
	var args []any
	if filter.IncidentID != "" {
		where = " WHERE incident_id = ?"
		args = append(args, filter.IncidentID)
	}

	var total int
	if err := s.db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM actions"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count actions: %w", err)
	}

	query := `SELECT id, incident_id, command_run, result, executed_by, timestamp
		FROM actions` + where + ` ORDER BY timestamp DESC LIMIT ? OFFSET ?`
	rows, err := s.db.db.QueryContext(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("select actions: %w", err)
	}
	defer rows.Close()

	var out []monitor.Action
	for rows.Next() {
		var a monitor.Action
		if err := rows.Scan(&a.ID, &a.IncidentID, &a.CommandRun, &a.Result, &a.ExecutedBy, &a.Timestamp); err != nil {
			return nil, 0, fmt.Errorf("scan action: %w", err)
		}
		out = append(out, a)
	}
	return out, total, rows.Err()
}

// UpdateAction implements monitor.ActionStore.
func (s *ActionStore) UpdateAction(ctx context.Context, a *monitor.Action) error {
	res, err := s.db.db.ExecContext(ctx,
		`UPDATE actions SET command_run = ?, result = ?, executed_by = ? WHERE id = ?`,
		a.CommandRun, a.Result, a.ExecutedBy, a.ID)
	if err != nil {
		return fmt.Errorf("update action: %w", err)
	}
	return requireRow(res)
}

// DeleteAction implements monitor.ActionStore.
func (s *ActionStore) DeleteAction(ctx context.Context, id string) error {
	res, err := s.db.db.ExecContext(ctx, `DELETE FROM actions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete action: %w", err)
	}
	return requireRow(res)
}

// Compile-time interface verification.
var _ monitor.ActionStore = (*ActionStore)(nil)
