// Package opsdeck provides a Go SDK for the OpsDeck monitoring dashboard API.
//
// OpsDeck tracks services, incidents, deployments, logs, and remediation
// actions behind a JSON HTTP API. This SDK lets Go programs ingest logs,
// manage incidents, and request AI-backed analysis without hand-rolling HTTP
// calls. It uses only the Go standard library (net/http) with zero external
// dependencies.
//
// Quick start:
//
//	// Set OPSDECK_SERVER_ADDR and OPSDECK_API_TOKEN env vars, then:
//	client := opsdeck.NewClient()
//
//	entry, err := client.IngestLog(ctx, opsdeck.LogEntry{
//	    ServiceID: "payments",
//	    Level:     opsdeck.LevelError,
//	    Message:   "connection pool exhausted",
//	})
//	if err != nil {
//	    var limited *opsdeck.RateLimitedError
//	    if errors.As(err, &limited) {
//	        time.Sleep(limited.RetryAfter)
//	    }
//	}
package opsdeck

import "time"

// ServiceStatus describes the last observed health of a monitored service.
type ServiceStatus string

const (
	// ServiceOperational indicates the service is healthy.
	ServiceOperational ServiceStatus = "operational"

	// ServiceDegraded indicates the service responds but with errors.
	ServiceDegraded ServiceStatus = "degraded"

	// ServiceDown indicates the service is unreachable.
	ServiceDown ServiceStatus = "down"
)

// Service is a system under watch.
type Service struct {
	// ID is the server-assigned service identifier.
	ID string `json:"id"`

	// Name is the human-readable service name.
	Name string `json:"name"`

	// URL is the service's primary endpoint.
	URL string `json:"url"`

	// HealthCheckURL, when set, is probed periodically by the server.
	HealthCheckURL string `json:"healthCheckUrl,omitempty"`

	// Status is the last observed health of the service.
	Status ServiceStatus `json:"status"`

	// CreatedAt is the time the service record was created.
	CreatedAt time.Time `json:"createdAt"`

	// UpdatedAt is the time the service record was last modified.
	UpdatedAt time.Time `json:"updatedAt"`
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
	// ID is the server-assigned incident identifier.
	ID string `json:"id"`

	// ServiceID is the affected service.
	ServiceID string `json:"serviceId"`

	// Title is a short summary of the disruption.
	Title string `json:"title"`

	// Description holds optional detail about the disruption.
	Description string `json:"description,omitempty"`

	// Severity ranks the incident's impact.
	Severity Severity `json:"severity"`

	// Status is the incident's current lifecycle state.
	Status IncidentStatus `json:"status"`

	// ReportedAt is when the incident was opened.
	ReportedAt time.Time `json:"reportedAt"`

	// ResolvedAt is when the incident was resolved, if it has been.
	ResolvedAt *time.Time `json:"resolvedAt,omitempty"`
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
	// ID is the server-assigned deployment identifier.
	ID string `json:"id"`

	// ServiceID is the service being deployed.
	ServiceID string `json:"serviceId"`

	// Version is the version string for the rollout.
	Version string `json:"version"`

	// Status is the rollout's current state.
	Status DeploymentStatus `json:"status"`

	// DeployedBy identifies who triggered the rollout.
	DeployedBy string `json:"deployedBy,omitempty"`

	// StartedAt is when the rollout began.
	StartedAt time.Time `json:"startedAt"`

	// FinishedAt is when the rollout finished, if it has.
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
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
	// ID is the server-assigned entry identifier. Leave empty on ingest.
	ID string `json:"id,omitempty"`

	// ServiceID is the service the entry belongs to.
	ServiceID string `json:"serviceId"`

	// Level classifies the entry.
	Level LogLevel `json:"level"`

	// Message is the log line itself.
	Message string `json:"message"`

	// StackTrace holds an optional stack trace for error entries.
	StackTrace string `json:"stackTrace,omitempty"`

	// Timestamp is when the entry was recorded. The server fills it in
	// when left zero on ingest.
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Action is a remediation step taken against an incident.
type Action struct {
	// ID is the server-assigned action identifier.
	ID string `json:"id"`

	// IncidentID is the incident the action addresses.
	IncidentID string `json:"incidentId"`

	// CommandRun is the command or step that was executed.
	CommandRun string `json:"commandRun"`

	// Result records the outcome of the command.
	Result string `json:"result,omitempty"`

	// ExecutedBy identifies who ran the command.
	ExecutedBy string `json:"executedBy,omitempty"`

	// Timestamp is when the action was taken.
	Timestamp time.Time `json:"timestamp"`
}

// Role is the permission level of a dashboard user.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleViewer   Role = "viewer"
)

// User is a dashboard account.
type User struct {
	// ID is the server-assigned user identifier.
	ID string `json:"id"`

	// Email is the account's login email.
	Email string `json:"email"`

	// Name is the account's display name.
	Name string `json:"name"`

	// Role is the account's permission level.
	Role Role `json:"role"`

	// CreatedAt is when the account was registered.
	CreatedAt time.Time `json:"createdAt"`
}

// RegisterRequest creates a new dashboard account.
type RegisterRequest struct {
	// Email is the login email for the new account.
	Email string `json:"email"`

	// Name is the display name for the new account.
	Name string `json:"name"`

	// Password is the account password. The server enforces a minimum length.
	Password string `json:"password"`

	// Role is the permission level. Defaults to viewer when empty; roles
	// above viewer are granted only when the client is authenticated as
	// an admin (or when registering the first account).
	Role Role `json:"role,omitempty"`
}

// LoginResponse is the result of a successful login.
type LoginResponse struct {
	// User is the authenticated account.
	User *User `json:"user"`

	// Token is the bearer token for subsequent requests.
	Token string `json:"token"`
}

// List is a page of results returned by a list endpoint.
type List[T any] struct {
	// Data holds the records on this page.
	Data []T `json:"data"`

	// Total is the number of records matching the query across all pages.
	Total int `json:"total"`

	// Page is the page number that was served.
	Page int `json:"page"`

	// PageSize is the number of records per page.
	PageSize int `json:"pageSize"`
}

// Page selects a page of results. The zero value asks for the server's
// defaults.
type Page struct {
	// Number is the 1-based page number.
	Number int

	// Size is the number of records per page.
	Size int
}

// ServiceFilter narrows a service list query.
type ServiceFilter struct {
	// Status keeps only services with this status.
	Status ServiceStatus

	// Name keeps only services whose name contains this substring.
	Name string
}

// IncidentFilter narrows an incident list query.
type IncidentFilter struct {
	// ServiceID keeps only incidents for this service.
	ServiceID string

	// Status keeps only incidents in this lifecycle state.
	Status IncidentStatus

	// Severity keeps only incidents with this severity.
	Severity Severity
}

// DeploymentFilter narrows a deployment list query.
type DeploymentFilter struct {
	// ServiceID keeps only deployments for this service.
	ServiceID string

	// Status keeps only deployments in this state.
	Status DeploymentStatus
}

// LogFilter narrows a log list query.
type LogFilter struct {
	// ServiceID keeps only entries for this service.
	ServiceID string

	// Level keeps only entries at this level.
	Level LogLevel
}

// AnalyzeRequest asks the server for an AI-backed analysis of monitoring
// data.
type AnalyzeRequest struct {
	// Source selects what to analyze: "services", "incidents",
	// "deployments", "logs", or "actions".
	Source string `json:"source"`

	// Filters narrows the analyzed records, using the same keys as the
	// corresponding list endpoint's query parameters.
	Filters map[string]string `json:"filters,omitempty"`

	// Context is free-form text appended to the analysis prompt.
	Context string `json:"context,omitempty"`

	// DeepAnalysis requests a cross-referenced analysis that follows
	// relations out from the filtered records.
	DeepAnalysis bool `json:"deepAnalysis,omitempty"`
}

// AnalysisResponse is the result of an analysis request.
type AnalysisResponse struct {
	// Timestamp is when the analysis was produced.
	Timestamp time.Time `json:"timestamp"`

	// Source echoes the analyzed source.
	Source string `json:"source"`

	// Analysis is the generated write-up.
	Analysis string `json:"analysis"`

	// DataAnalyzed holds the records that were analyzed.
	DataAnalyzed any `json:"dataAnalyzed,omitempty"`

	// RelatedData holds related records pulled in by a deep analysis.
	RelatedData any `json:"relatedData,omitempty"`

	// Recommendations lists suggested follow-up steps.
	Recommendations []string `json:"recommendations,omitempty"`
}

// Stats is a snapshot of the server's request counters.
type Stats struct {
	// UptimeSeconds is how long the server has been running.
	UptimeSeconds int64 `json:"uptimeSeconds"`

	// Requests is the number of requests served.
	Requests int64 `json:"requests"`

	// RateLimited is the number of requests rejected by the rate limiter.
	RateLimited int64 `json:"rateLimited"`

	// Errors is the number of requests that ended in a server error.
	Errors int64 `json:"errors"`

	// CacheHits is the number of cache hits.
	CacheHits int64 `json:"cacheHits"`

	// CacheMisses is the number of cache misses.
	CacheMisses int64 `json:"cacheMisses"`

	// RouteCounts is the per-route request breakdown.
	RouteCounts map[string]int64 `json:"routeCounts"`
}

// Health is the server's health report.
type Health struct {
	// Status is "ok" when every required check passes.
	Status string `json:"status"`

	// Checks maps each dependency to its state.
	Checks map[string]string `json:"checks"`
}
