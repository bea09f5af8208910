package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/opsdeck/opsdeck/internal/domain/monitor"
)

// IncidentStore implements monitor.IncidentStore.
type IncidentStore struct {
	db *DB
}

// NewIncidentStore creates an incident store over the shared handle.
func NewIncidentStore(db *DB) *IncidentStore {
	return &IncidentStore{db: db}
}

// CreateIncident implements monitor.IncidentStore.
func (s *IncidentStore) CreateIncident(ctx context.Context, inc *monitor.Incident) error {
	_, err := s.db.db.ExecContext(ctx,
		`INSERT INTO incidents (id, service_id, title, description, severity, status, reported_at, resolved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inc.ID, inc.ServiceID, inc.Title, inc.Description, inc.Severity, inc.Status, inc.ReportedAt, inc.ResolvedAt)
	if err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}
	return nil
}

// GetIncident implements monitor.IncidentStore.
func (s *IncidentStore) GetIncident(ctx context.Context, id string) (*monitor.Incident, error) {
	row := s.db.db.QueryRowContext(ctx,
		`SELECT id, service_id, title, description, severity, status, reported_at, resolved_at
		 FROM incidents WHERE id = ?`, id)

	inc, err := scanIncident(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, monitor.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select incident: %w", err)
	}
	return inc, nil
}

// ListIncidents implements monitor.IncidentStore.
// Results are newest-first, matching the dashboard's default view.
func (s *IncidentStore) ListIncidents(ctx context.Context, filter monitor.IncidentFilter, page monitor.Page) ([]monitor.Incident, int, error) {
	page = normalizePage(page)

	var conds []string
	var args []any
	if filter.ServiceID != "" {
		conds = append(conds, "service_id = ?")
		args = append(args, filter.ServiceID)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Severity != "" {
		conds = append(conds, "severity = ?")
		args = append(args, filter.Severity)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM incidents"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count incidents: %w", err)
	}

	query := `SELECT id, service_id, title, description, severity, status, reported_at, resolved_at
		FROM incidents` + where + ` ORDER BY reported_at DESC LIMIT ? OFFSET ?`
	rows, err := s.db.db.QueryContext(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("select incidents: %w", err)
	}
	defer rows.Close()

	var out []monitor.Incident
	for rows.Next() {
		inc, err := scanIncident(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("scan incident: %w", err)
		}
		out = append(out, *inc)
	}
	return out, total, rows.Err()
}

// UpdateIncident implements monitor.IncidentStore.
func (s *IncidentStore) UpdateIncident(ctx context.Context, inc *monitor.Incident) error {
	res, err := s.db.db.ExecContext(ctx,
		`UPDATE incidents SET title = ?, description = ?, severity = ?, status = ?, resolved_at = ?
		 WHERE id = ?`,
		inc.Title, inc.Description, inc.Severity, inc.Status, inc.ResolvedAt, inc.ID)
	if err != nil {
		return fmt.Errorf("update incident: %w", err)
	}
	return requireRow(res)
}

// DeleteIncident implements monitor.IncidentStore.
func (s *IncidentStore) DeleteIncident(ctx context.Context, id string) error {
	res, err := s.db.db.ExecContext(ctx, `DELETE FROM incidents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete incident: %w", err)
	}
	return requireRow(res)
}

// scanIncident reads one incident row via the given scan function.
func scanIncident(scan func(dest ...any) error) (*monitor.Incident, error) {
	var inc monitor.Incident
	var resolvedAt sql.NullTime
	err := scan(&inc.ID, &inc.ServiceID, &inc.Title, &inc.Description, &inc.Severity, &inc.Status, &inc.ReportedAt, &resolvedAt)
	if err != nil {
		return nil, err
	}
	if resolvedAt.Valid {
		inc.ResolvedAt = &resolvedAt.Time
	}
	return &inc, nil
}

// Compile-time interface verification.
var _ monitor.IncidentStore = (*IncidentStore)(nil)
