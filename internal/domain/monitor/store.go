package monitor

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Page bounds a list query. Zero values are replaced with defaults by
// implementations (page 1, size 20).
type Page struct {
	Number int
	Size   int
}

// Offset returns the row offset for the page.
func (p Page) Offset() int {
	if p.Number <= 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// ServiceFilter narrows a service list query.
type ServiceFilter struct {
	Status ServiceStatus
	Name   string
}

// IncidentFilter narrows an incident list query.
type IncidentFilter struct {
	ServiceID string
	Status    IncidentStatus
	Severity  Severity
}

// DeploymentFilter narrows a deployment list query.
type DeploymentFilter struct {
	ServiceID string
	Status    DeploymentStatus
}

// LogFilter narrows a log list query.
type LogFilter struct {
	ServiceID string
	Level     LogLevel
}

// ActionFilter narrows an action list query.
type ActionFilter struct {
	IncidentID string
}

// ServiceStore persists monitored services.
type ServiceStore interface {
	CreateService(ctx context.Context, s *Service) error
	GetService(ctx context.Context, id string) (*Service, error)
	ListServices(ctx context.Context, filter ServiceFilter, page Page) ([]Service, int, error)
	UpdateService(ctx context.Context, s *Service) error
	DeleteService(ctx context.Context, id string) error
}

// IncidentStore persists incidents.
type IncidentStore interface {
	CreateIncident(ctx context.Context, inc *Incident) error
	GetIncident(ctx context.Context, id string) (*Incident, error)
	ListIncidents(ctx context.Context, filter IncidentFilter, page Page) ([]Incident, int, error)
	UpdateIncident(ctx context.Context, inc *Incident) error
	DeleteIncident(ctx context.Context, id string) error
}

// DeploymentStore persists deployments.
type DeploymentStore interface {
	CreateDeployment(ctx context.Context, d *Deployment) error
	GetDeployment(ctx context.Context, id string) (*Deployment, error)
	ListDeployments(ctx context.Context, filter DeploymentFilter, page Page) ([]Deployment, int, error)
	UpdateDeployment(ctx context.Context, d *Deployment) error
	DeleteDeployment(ctx context.Context, id string) error
}

// LogStore persists log entries.
type LogStore interface {
	CreateLog(ctx context.Context, entry *LogEntry) error
	CreateLogs(ctx context.Context, entries []LogEntry) error
	GetLog(ctx context.Context, id string) (*LogEntry, error)
	ListLogs(ctx context.Context, filter LogFilter, page Page) ([]LogEntry, int, error)
	DeleteLog(ctx context.Context, id string) error
}

// ActionStore persists remediation actions.
type ActionStore interface {
	CreateAction(ctx context.Context, a *Action) error
	GetAction(ctx context.Context, id string) (*Action, error)
	ListActions(ctx context.Context, filter ActionFilter, page Page) ([]Action, int, error)
	UpdateAction(ctx context.Context, a *Action) error
	DeleteAction(ctx context.Context, id string) error
}
