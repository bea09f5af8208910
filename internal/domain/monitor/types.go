// Package monitor defines the dashboard's domain records: services under
// watch, incidents, deployments, log entries, and remediation actions.
package monitor

import "time"

// ServiceStatus describes the last observed health of a monitored service.
type ServiceStatus string

const (
	ServiceOperational ServiceStatus = "operational"
	ServiceDegraded    ServiceStatus = "degraded"
	ServiceDown        ServiceStatus = "down"
)

// Service is a system under watch.
type Service struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	URL            string        `json:"url"`
	HealthCheckURL string        `json:"healthCheckUrl,omitempty"`
	Status         ServiceStatus `json:"status"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// Severity ranks incident impact.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// IncidentStatus tracks an incident through its lifecycle.
type IncidentStatus string

const (
	IncidentOpen          IncidentStatus = "open"
	IncidentInvestigating IncidentStatus = "investigating"
	IncidentResolved      IncidentStatus = "resolved"
)

// Incident is a tracked service disruption.
type Incident struct {
	ID          string         `json:"id"`
	ServiceID   string         `json:"serviceId"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	Severity    Severity       `json:"severity"`
	Status      IncidentStatus `json:"status"`
	ReportedAt  time.Time      `json:"reportedAt"`
	ResolvedAt  *time.Time     `json:"resolvedAt,omitempty"`
}

// DeploymentStatus tracks a rollout.
type DeploymentStatus string

const (
	DeploymentPending    DeploymentStatus = "pending"
	DeploymentInProgress DeploymentStatus = "in_progress"
	DeploymentSucceeded  DeploymentStatus = "succeeded"
	DeploymentFailed     DeploymentStatus = "failed"
	DeploymentRolledBack DeploymentStatus = "rolled_back"
)

// Deployment is a recorded rollout of a service version.
type Deployment struct {
	ID         string           `json:"id"`
	ServiceID  string           `json:"serviceId"`
	Version    string           `json:"version"`
	Status     DeploymentStatus `json:"status"`
	DeployedBy string           `json:"deployedBy,omitempty"`
	StartedAt  time.Time        `json:"startedAt"`
	FinishedAt *time.Time       `json:"finishedAt,omitempty"`
}

// LogLevel classifies log entries.
type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
	LevelFatal LogLevel = "fatal"
)

// LogEntry is an ingested application log line.
type LogEntry struct {
	ID         string    `json:"id"`
	ServiceID  string    `json:"serviceId"`
	Level      LogLevel  `json:"level"`
	Message    string    `json:"message"`
	StackTrace string    `json:"stackTrace,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Action is a remediation step taken against an incident.
type Action struct {
	ID         string    `json:"id"`
	IncidentID string    `json:"incidentId"`
	CommandRun string    `json:"commandRun"`
	Result     string    `json:"result,omitempty"`
	ExecutedBy string    `json:"executedBy,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
