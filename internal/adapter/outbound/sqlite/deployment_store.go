package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/opsdeck/opsdeck/internal/domain/monitor"
)

// DeploymentStore implements monitor.DeploymentStore.
type DeploymentStore struct {
	db *DB
}

// NewDeploymentStore creates a deployment store over the shared handle.
func NewDeploymentStore(db *DB) *DeploymentStore {
	return &DeploymentStore{db: db}
}

// CreateDeployment implements monitor.DeploymentStore.
func (s *DeploymentStore) CreateDeployment(ctx context.Context, d *monitor.Deployment) error {
	_, err := s.db.db.ExecContext(ctx,
		`INSERT INTO deployments (id, service_id, version, status, deployed_by, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ServiceID, d.Version, d.Status, d.DeployedBy, d.StartedAt, d.FinishedAt)
	if err != nil {
		return fmt.Errorf("insert deployment: %w", err)
	}
	return nil
}

// GetDeployment implements monitor.DeploymentStore.
func (s *DeploymentStore) GetDeployment(ctx context.Context, id string) (*monitor.Deployment, error) {
	row := s.db.db.QueryRowContext(ctx,
		`SELECT id, service_id, version, status, deployed_by, started_at, finished_at
		 FROM deployments WHERE id = ?`, id)

	d, err := scanDeployment(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, monitor.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select deployment: %w", err)
	}
	return d, nil
}

// ListDeployments implements monitor.DeploymentStore.
func (s *DeploymentStore) ListDeployments(ctx context.Context, filter monitor.DeploymentFilter, page monitor.Page) ([]monitor.Deployment, int, error) {
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
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM deployments"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count deployments: %w", err)
	}

	query := `SELECT id, service_id, version, status, deployed_by, started_at, finished_at
		FROM deployments` + where + ` ORDER BY started_at DESC LIMIT ? OFFSET ?`
	rows, err := s.db.db.QueryContext(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("select deployments: %w", err)
	}
	defer rows.Close()

	var out []monitor.Deployment
	for rows.Next() {
		d, err := scanDeployment(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("scan deployment: %w", err)
		}
		out = append(out, *d)
	}
	return out, total, rows.Err()
}

// UpdateDeployment implements monitor.DeploymentStore.
func (s *DeploymentStore) UpdateDeployment(ctx context.Context, d *monitor.Deployment) error {
	res, err := s.db.db.ExecContext(ctx,
		`UPDATE deployments SET version = ?, status = ?, deployed_by = ?, finished_at = ? WHERE id = ?`,
		d.Version, d.Status, d.DeployedBy, d.FinishedAt, d.ID)
	if err != nil {
		return fmt.Errorf("update deployment: %w", err)
	}
	return requireRow(res)
}

// DeleteDeployment implements monitor.DeploymentStore.
func (s *DeploymentStore) DeleteDeployment(ctx context.Context, id string) error {
	res, err := s.db.db.ExecContext(ctx, `DELETE FROM deployments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete deployment: %w", err)
	}
	return requireRow(res)
}

func scanDeployment(scan func(dest ...any) error) (*monitor.Deployment, error) {
	var d monitor.Deployment
	var finishedAt sql.NullTime
	err := scan(&d.ID, &d.ServiceID, &d.Version, &d.Status, &d.DeployedBy, &d.StartedAt, &finishedAt)
	if err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		d.FinishedAt = &finishedAt.Time
	}
	return &d, nil
}

// Compile-time interface verification.
var _ monitor.DeploymentStore = (*DeploymentStore)(nil)
