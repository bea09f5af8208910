package opsdeck

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Client is the OpsDeck SDK client. It communicates with the OpsDeck
// dashboard's JSON HTTP API.
//
// A Client is safe for concurrent use once configured. Login replaces the
// stored token, so call it before sharing the client across goroutines.
type Client struct {
	serverAddr string
	token      string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new OpsDeck SDK client.
// It reads configuration from OPSDECK_* environment variables by default.
// Options can be used to override the defaults.
func NewClient(opts ...Option) *Client {
	c := &Client{
		serverAddr: envOrDefault("OPSDECK_SERVER_ADDR", "http://127.0.0.1:8080"),
		token:      os.Getenv("OPSDECK_API_TOKEN"),
		timeout:    parseDurationEnv("OPSDECK_TIMEOUT", 10*time.Second),
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Timeout: c.timeout,
		}
	}

	return c
}

// SetToken replaces the bearer token used for authenticated requests.
func (c *Client) SetToken(token string) {
	c.token = token
}

// Token returns the bearer token currently in use.
func (c *Client) Token() string {
	return c.token
}

// Register creates a new dashboard account and returns it.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	var user User
	if err := c.doRequest(ctx, http.MethodPost, "/api/auth/register", nil, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates with the server. On success the returned token is also
// stored on the client, so subsequent calls are authenticated.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	body := map[string]string{"email": email, "password": password}
	var resp LoginResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/auth/login", nil, body, &resp); err != nil {
		return nil, err
	}
	c.token = resp.Token
	return &resp, nil
}

// Me returns the account behind the client's token.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var user User
	if err := c.doRequest(ctx, http.MethodGet, "/api/auth/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListServices returns a page of monitored services matching the filter.
func (c *Client) ListServices(ctx context.Context, filter ServiceFilter, page Page) (*List[Service], error) {
	q := pageQuery(page)
	setIfNotEmpty(q, "status", string(filter.Status))
	setIfNotEmpty(q, "name", filter.Name)
	var out List[Service]
	if err := c.doRequest(ctx, http.MethodGet, "/api/services", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetService returns one monitored service by ID.
func (c *Client) GetService(ctx context.Context, id string) (*Service, error) {
	var out Service
	if err := c.doRequest(ctx, http.MethodGet, "/api/services/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateService registers a new service to monitor. The server assigns the
// ID and timestamps.
func (c *Client) CreateService(ctx context.Context, svc Service) (*Service, error) {
	var out Service
	if err := c.doRequest(ctx, http.MethodPost, "/api/services", nil, svc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateService replaces a service record.
func (c *Client) UpdateService(ctx context.Context, id string, svc Service) (*Service, error) {
	var out Service
	if err := c.doRequest(ctx, http.MethodPut, "/api/services/"+url.PathEscape(id), nil, svc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteService removes a service. Requires an admin token.
func (c *Client) DeleteService(ctx context.Context, id string) error {
	return c.doRequest(ctx, http.MethodDelete, "/api/services/"+url.PathEscape(id), nil, nil, nil)
}

// ListIncidents returns a page of incidents matching the filter.
func (c *Client) ListIncidents(ctx context.Context, filter IncidentFilter, page Page) (*List[Incident], error) {
	q := pageQuery(page)
	setIfNotEmpty(q, "serviceId", filter.ServiceID)
	setIfNotEmpty(q, "status", string(filter.Status))
	setIfNotEmpty(q, "severity", string(filter.Severity))
	var out List[Incident]
	if err := c.doRequest(ctx, http.MethodGet, "/api/incidents", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetIncident returns one incident by ID.
func (c *Client) GetIncident(ctx context.Context, id string) (*Incident, error) {
	var out Incident
	if err := c.doRequest(ctx, http.MethodGet, "/api/incidents/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateIncident opens a new incident.
func (c *Client) CreateIncident(ctx context.Context, inc Incident) (*Incident, error) {
	var out Incident
	if err := c.doRequest(ctx, http.MethodPost, "/api/incidents", nil, inc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateIncident replaces an incident record. Setting Status to
// IncidentResolved stamps the resolution time on the server.
func (c *Client) UpdateIncident(ctx context.Context, id string, inc Incident) (*Incident, error) {
	var out Incident
	if err := c.doRequest(ctx, http.MethodPut, "/api/incidents/"+url.PathEscape(id), nil, inc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteIncident removes an incident. Requires an admin token.
func (c *Client) DeleteIncident(ctx context.Context, id string) error {
	return c.doRequest(ctx, http.MethodDelete, "/api/incidents/"+url.PathEscape(id), nil, nil, nil)
}

// ListDeployments returns a page of deployments matching the filter.
func (c *Client) ListDeployments(ctx context.Context, filter DeploymentFilter, page Page) (*List[Deployment], error) {
	q := pageQuery(page)
	setIfNotEmpty(q, "serviceId", filter.ServiceID)
	setIfNotEmpty(q, "status", string(filter.Status))
	var out List[Deployment]
	if err := c.doRequest(ctx, http.MethodGet, "/api/deployments", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetDeployment returns one deployment by ID.
func (c *Client) GetDeployment(ctx context.Context, id string) (*Deployment, error) {
	var out Deployment
	if err := c.doRequest(ctx, http.MethodGet, "/api/deployments/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateDeployment records a new rollout.
func (c *Client) CreateDeployment(ctx context.Context, d Deployment) (*Deployment, error) {
	var out Deployment
	if err := c.doRequest(ctx, http.MethodPost, "/api/deployments", nil, d, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateDeployment replaces a deployment record.
func (c *Client) UpdateDeployment(ctx context.Context, id string, d Deployment) (*Deployment, error) {
	var out Deployment
	if err := c.doRequest(ctx, http.MethodPut, "/api/deployments/"+url.PathEscape(id), nil, d, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteDeployment removes a deployment record. Requires an admin token.
func (c *Client) DeleteDeployment(ctx context.Context, id string) error {
	return c.doRequest(ctx, http.MethodDelete, "/api/deployments/"+url.PathEscape(id), nil, nil, nil)
}

// ListLogs returns a page of log entries matching the filter, newest first.
func (c *Client) ListLogs(ctx context.Context, filter LogFilter, page Page) (*List[LogEntry], error) {
	q := pageQuery(page)
	setIfNotEmpty(q, "serviceId", filter.ServiceID)
	setIfNotEmpty(q, "level", string(filter.Level))
	var out List[LogEntry]
	if err := c.doRequest(ctx, http.MethodGet, "/api/logs", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetLog returns one log entry by ID.
func (c *Client) GetLog(ctx context.Context, id string) (*LogEntry, error) {
	var out LogEntry
	if err := c.doRequest(ctx, http.MethodGet, "/api/logs/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IngestLog submits a single log entry.
func (c *Client) IngestLog(ctx context.Context, entry LogEntry) (*LogEntry, error) {
	var out LogEntry
	if err := c.doRequest(ctx, http.MethodPost, "/api/logs", nil, entry, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// IngestLogBatch submits several log entries in one request. The bulk
// endpoint has a stricter rate limit than single ingestion, so prefer it for
// backfills rather than steady streams.
func (c *Client) IngestLogBatch(ctx context.Context, entries []LogEntry) ([]LogEntry, error) {
	var out List[LogEntry]
	if err := c.doRequest(ctx, http.MethodPost, "/api/logs/bulk", nil, entries, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// DeleteLog removes a log entry. Requires an admin token.
func (c *Client) DeleteLog(ctx context.Context, id string) error {
	return c.doRequest(ctx, http.MethodDelete, "/api/logs/"+url.PathEscape(id), nil, nil, nil)
}

// ListActions returns a page of remediation actions, optionally narrowed to
// one incident.
func (c *Client) ListActions(ctx context.Context, incidentID string, page Page) (*List[Action], error) {
	q := pageQuery(page)
	setIfNotEmpty(q, "incidentId", incidentID)
	var out List[Action]
	if err := c.doRequest(ctx, http.MethodGet, "/api/actions", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetAction returns one remediation action by ID.
func (c *Client) GetAction(ctx context.Context, id string) (*Action, error) {
	var out Action
	if err := c.doRequest(ctx, http.MethodGet, "/api/actions/"+url.PathEscape(id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateAction records a remediation step against an incident.
func (c *Client) CreateAction(ctx context.Context, a Action) (*Action, error) {
	var out Action
	if err := c.doRequest(ctx, http.MethodPost, "/api/actions", nil, a, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAction replaces an action record.
func (c *Client) UpdateAction(ctx context.Context, id string, a Action) (*Action, error) {
	var out Action
	if err := c.doRequest(ctx, http.MethodPut, "/api/actions/"+url.PathEscape(id), nil, a, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAction removes an action record. Requires an admin token.
func (c *Client) DeleteAction(ctx context.Context, id string) error {
	return c.doRequest(ctx, http.MethodDelete, "/api/actions/"+url.PathEscape(id), nil, nil, nil)
}

// Analyze requests an AI-backed analysis of monitoring data. When the server
// has no AI key configured, the response still carries the fetched records
// with a placeholder write-up.
func (c *Client) Analyze(ctx context.Context, req AnalyzeRequest) (*AnalysisResponse, error) {
	var out AnalysisResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/ai/analyze", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetStats returns the server's request counters.
func (c *Client) GetStats(ctx context.Context) (*Stats, error) {
	var out Stats
	if err := c.doRequest(ctx, http.MethodGet, "/api/stats", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckHealth returns the server's health report. It returns the report even
// when the server answers 503, so callers can inspect which check failed;
// the error is non-nil only when the server could not be reached or the
// response could not be parsed.
func (c *Client) CheckHealth(ctx context.Context) (*Health, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.serverAddr, "/")+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &ServerUnreachableError{Cause: err}
	}
	defer httpResp.Body.Close()

	var health Health
	if err := json.NewDecoder(httpResp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &health, nil
}

// doRequest performs an HTTP request to the OpsDeck server and decodes the
// JSON response into result when it is non-nil.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body any, result any) error {
	u := strings.TrimRight(c.serverAddr, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &ServerUnreachableError{Cause: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		err := statusError(httpResp, respBody)
		var limited *RateLimitedError
		if errors.As(err, &limited) {
			c.logger.Warn("OpsDeck request rate limited",
				"path", path,
				"retry_after", limited.RetryAfter,
			)
		}
		return err
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

// statusError converts a non-2xx response into a typed SDK error.
func statusError(resp *http.Response, body []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	// Best effort: non-JSON error bodies keep an empty message.
	_ = json.Unmarshal(body, &payload)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return &UnauthorizedError{Message: payload.Error}
	case http.StatusForbidden:
		return &ForbiddenError{Message: payload.Error}
	case http.StatusNotFound:
		return &NotFoundError{Message: payload.Error}
	case http.StatusTooManyRequests:
		return &RateLimitedError{
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Message:    payload.Error,
		}
	default:
		return &APIError{StatusCode: resp.StatusCode, Message: payload.Error}
	}
}

// parseRetryAfter parses a Retry-After header expressed in seconds.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	secs, err := strconv.Atoi(value)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// pageQuery builds the page and pageSize query parameters.
func pageQuery(page Page) url.Values {
	q := url.Values{}
	if page.Number > 0 {
		q.Set("page", strconv.Itoa(page.Number))
	}
	if page.Size > 0 {
		q.Set("pageSize", strconv.Itoa(page.Size))
	}
	return q
}

func setIfNotEmpty(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

// Helper functions for env var parsing.

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func parseDurationEnv(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	// Try parsing as seconds (integer).
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	// Try parsing as duration string.
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return defaultVal
}
