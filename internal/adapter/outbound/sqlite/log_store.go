package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/opsdeck/opsdeck/internal/domain/monitor"
)

// LogStore implements monitor.LogStore.
type LogStore struct {
	db *DB
}

// NewLogStore creates a log store over the shared handle.
func NewLogStore(db *DB) *LogStore {
	return &LogStore{db: db}
}

// CreateLog implements monitor.LogStore.
func (s *LogStore) CreateLog(ctx context.Context, entry *monitor.LogEntry) error {
	_, err := s.db.db.ExecContext(ctx,
		`INSERT INTO logs (id, service_id, level, message, stack_trace, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ServiceID, entry.Level, entry.Message, entry.StackTrace, entry.Timestamp)
	if err != nil {
		return fmt.Errorf("insert log: %w", err)
	}
	return nil
}

// CreateLogs inserts a batch of entries in a single transaction so a bulk
// ingest is all-or-nothing.
func (s *LogStore) CreateLogs(ctx context.Context, entries []monitor.LogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO logs (id, service_id, level, message, stack_trace, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare bulk insert: %w", err)
	}
	defer stmt.Close()

	for i := range entries {
		e := &entries[i]
		if _, err := stmt.ExecContext(ctx, e.ID, e.ServiceID, e.Level, e.Message, e.StackTrace, e.Timestamp); err != nil {
			return fmt.Errorf("insert log %s: %w", e.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk insert: %w", err)
	}
	return nil
}

// GetLog implements monitor.LogStore.
func (s *LogStore) GetLog(ctx context.Context, id string) (*monitor.LogEntry, error) {
	row := s.db.db.QueryRowContext(ctx,
		`SELECT id, service_id, level, message, stack_trace, timestamp FROM logs WHERE id = ?`, id)

	var e monitor.LogEntry
	err := row.Scan(&e.ID, &e.ServiceID, &e.Level, &e.Message, &e.StackTrace, &e.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, monitor.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select log: %w", err)
	}
	return &e, nil
}

// ListLogs implements monitor.LogStore. Entries come back newest first.
func (s *LogStore) ListLogs(ctx context.Context, filter monitor.LogFilter, page monitor.Page) ([]monitor.LogEntry, int, error) {
	page = normalizePage(page)

	var conds []string
	var args []any
	if filter.ServiceID != "" {
		conds = append(conds, "service_id = ?")
		args = append(args, filter.ServiceID)
	}
	if filter.Level != "" {
		conds = append(conds, "level = ?")
		args = append(args, filter.Level)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM logs"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count logs: %w", err)
	}

	query := `SELECT id, service_id, level, message, stack_trace, timestamp
		FROM logs` + where + ` ORDER BY timestamp DESC LIMIT ? OFFSET ?`
	rows, err := s.db.db.QueryContext(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("select logs: %w", err)
	}
	defer rows.Close()

	var out []monitor.LogEntry
	for rows.Next() {
		var e monitor.LogEntry
		if err := rows.Scan(&e.ID, &e.ServiceID, &e.Level, &e.Message, &e.StackTrace, &e.Timestamp); err != nil {
			return nil, 0, fmt.Errorf("scan log: %w", err)
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// DeleteLog implements monitor.LogStore.
func (s *LogStore) DeleteLog(ctx context.Context, id string) error {
	res, err := s.db.db.ExecContext(ctx, `DELETE FROM logs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete log: %w", err)
	}
	return requireRow(res)
}

// Compile-time interface verification.
var _ monitor.LogStore = (*LogStore)(nil)
