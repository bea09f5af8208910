package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/opsdeck/opsdeck/internal/domain/monitor"
)

// defaultPageSize bounds list queries when the caller passes a zero page.
const defaultPageSize = 20

// maxPageSize caps how many rows one list query may return.
const maxPageSize = 200

// normalizePage applies defaults and caps to a page request.
func normalizePage(p monitor.Page) monitor.Page {
	if p.Number <= 0 {
		p.Number = 1
	}
	if p.Size <= 0 {
		p.Size = defaultPageSize
	}
	if p.Size > maxPageSize {
		p.Size = maxPageSize
	}
	return p
}

// ServiceStore implements monitor.ServiceStore.
type ServiceStore struct {
	db *DB
}

// NewServiceStore creates a service store over the shared handle.
func NewServiceStore(db *DB) *ServiceStore {
	return &ServiceStore{db: db}
}

// CreateService implements monitor.ServiceStore.
func (s *ServiceStore) CreateService(ctx context.Context, svc *monitor.Service) error {
	_, err := s.db.db.ExecContext(ctx,
		`INSERT INTO services (id, name, url, health_check_url, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		svc.ID, svc.Name, svc.URL, svc.HealthCheckURL, svc.Status, svc.CreatedAt, svc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert service: %w", err)
	}
	return nil
}

// GetService implements monitor.ServiceStore.
func (s *ServiceStore) GetService(ctx context.Context, id string) (*monitor.Service, error) {
	row := s.db.db.QueryRowContext(ctx,
		`SELECT id, name, url, health_check_url, status, created_at, updated_at
		 FROM services WHERE id = ?`, id)

	var svc monitor.Service
	err := row.Scan(&svc.ID, &svc.Name, &svc.URL, &svc.HealthCheckURL, &svc.Status, &svc.CreatedAt, &svc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, monitor.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select service: %w", err)
	}
	return &svc, nil
}

// ListServices implements monitor.ServiceStore.
func (s *ServiceStore) ListServices(ctx context.Context, filter monitor.ServiceFilter, page monitor.Page) ([]monitor.Service, int, error) {
	page = normalizePage(page)

	var conds []string
	var args []any
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Name != "" {
		conds = append(conds, "name LIKE ?")
		args = append(args, "%"+filter.Name+"%")
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := s.db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM services"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count services: %w", err)
	}

	query := `SELECT id, name, url, health_check_url, status, created_at, updated_at
		FROM services` + where + ` ORDER BY name LIMIT ? OFFSET ?`
	rows, err := s.db.db.QueryContext(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("select services: %w", err)
	}
	defer rows.Close()

	var out []monitor.Service
	for rows.Next() {
		var svc monitor.Service
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.URL, &svc.HealthCheckURL, &svc.Status, &svc.CreatedAt, &svc.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("scan service: %w", err)
		}
		out = append(out, svc)
	}
	return out, total, rows.Err()
}

// UpdateService implements monitor.ServiceStore.
func (s *ServiceStore) UpdateService(ctx context.Context, svc *monitor.Service) error {
	res, err := s.db.db.ExecContext(ctx,
		`UPDATE services SET name = ?, url = ?, health_check_url = ?, status = ?, updated_at = ?
		 WHERE id = ?`,
		svc.Name, svc.URL, svc.HealthCheckURL, svc.Status, svc.UpdatedAt, svc.ID)
	if err != nil {
		return fmt.Errorf("update service: %w", err)
	}
	return requireRow(res)
}

// DeleteService implements monitor.ServiceStore.
func (s *ServiceStore) DeleteService(ctx context.Context, id string) error {
	res, err := s.db.db.ExecContext(ctx, `DELETE FROM services WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	return requireRow(res)
}

// requireRow maps zero affected rows to ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return monitor.ErrNotFound
	}
	return nil
}

// Compile-time interface verification.
var _ monitor.ServiceStore = (*ServiceStore)(nil)
