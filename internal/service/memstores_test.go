package service

import (
	"context"
	"sort"
	"sync"

	"github.com/opsdeck/opsdeck/internal/domain/auth"
	"github.com/opsdeck/opsdeck/internal/domain/monitor"
)

// memStore is an in-memory implementation of every persistence interface,
// backing the service tests without a database.
type memStore struct {
	mu          sync.Mutex
	services    map[string]monitor.Service
	incidents   map[string]monitor.Incident
	deployments map[string]monitor.Deployment
	logs        map[string]monitor.LogEntry
	actions     map[string]monitor.Action
	users       map[string]auth.User
}

func newMemStore() *memStore {
	return &memStore{
		services:    make(map[string]monitor.Service),
		incidents:   make(map[string]monitor.Incident),
		deployments: make(map[string]monitor.Deployment),
		logs:        make(map[string]monitor.LogEntry),
		actions:     make(map[string]monitor.Action),
		users:       make(map[string]auth.User),
	}
}

func (m *memStore) CreateService(_ context.Context, s *monitor.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[s.ID] = *s
	return nil
}

func (m *memStore) GetService(_ context.Context, id string) (*monitor.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.services[id]
	if !ok {
		return nil, monitor.ErrNotFound
	}
	return &s, nil
}

func (m *memStore) ListServices(_ context.Context, filter monitor.ServiceFilter, page monitor.Page) ([]monitor.Service, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []monitor.Service
	for _, s := range m.services {
		if filter.Status != "" && s.Status != filter.Status {
			continue
		}
		if filter.Name != "" && s.Name != filter.Name {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, len(out), nil
}

func (m *memStore) UpdateService(_ context.Context, s *monitor.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.services[s.ID]; !ok {
		return monitor.ErrNotFound
	}
	m.services[s.ID] = *s
	return nil
}

func (m *memStore) DeleteService(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.services[id]; !ok {
		return monitor.ErrNotFound
	}
	delete(m.services, id)
	return nil
}

func (m *memStore) CreateIncident(_ context.Context, inc *monitor.Incident) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incidents[inc.ID] = *inc
	return nil
}

func (m *memStore) GetIncident(_ context.Context, id string) (*monitor.Incident, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inc, ok := m.incidents[id]
	if !ok {
		return nil, monitor.ErrNotFound
	}
	return &inc, nil
}

func (m *memStore) ListIncidents(_ context.Context, filter monitor.IncidentFilter, page monitor.Page) ([]monitor.Incident, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []monitor.Incident
	for _, inc := range m.incidents {
		if filter.ServiceID != "" && inc.ServiceID != filter.ServiceID {
			continue
		}
		if filter.Status != "" && inc.Status != filter.Status {
			continue
		}
		if filter.Severity != "" && inc.Severity != filter.Severity {
			continue
		}
		out = append(out, inc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReportedAt.After(out[j].ReportedAt) })
	return out, len(out), nil
}

func (m *memStore) UpdateIncident(_ context.Context, inc *monitor.Incident) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.incidents[inc.ID]; !ok {
		return monitor.ErrNotFound
	}
	m.incidents[inc.ID] = *inc
	return nil
}

func (m *memStore) DeleteIncident(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.incidents[id]; !ok {
		return monitor.ErrNotFound
	}
	delete(m.incidents, id)
	return nil
}

func (m *memStore) CreateDeployment(_ context.Context, d *monitor.Deployment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deployments[d.ID] = *d
	return nil
}

func (m *memStore) GetDeployment(_ context.Context, id string) (*monitor.Deployment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deployments[id]
	if !ok {
		return nil, monitor.ErrNotFound
	}
	return &d, nil
}

func (m *memStore) ListDeployments(_ context.Context, filter monitor.DeploymentFilter, page monitor.Page) ([]monitor.Deployment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []monitor.Deployment
	for _, d := range m.deployments {
		if filter.ServiceID != "" && d.ServiceID != filter.ServiceID {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	return out, len(out), nil
}

func (m *memStore) UpdateDeployment(_ context.Context, d *monitor.Deployment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.deployments[d.ID]; !ok {
		return monitor.ErrNotFound
	}
	m.deployments[d.ID] = *d
	return nil
}

func (m *memStore) DeleteDeployment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.deployments[id]; !ok {
		return monitor.ErrNotFound
	}
	delete(m.deployments, id)
	return nil
}

func (m *memStore) CreateLog(_ context.Context, entry *monitor.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs[entry.ID] = *entry
	return nil
}

func (m *memStore) CreateLogs(_ context.Context, entries []monitor.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.logs[e.ID] = e
	}
	return nil
}

func (m *memStore) GetLog(_ context.Context, id string) (*monitor.LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.logs[id]
	if !ok {
		return nil, monitor.ErrNotFound
	}
	return &e, nil
}

func (m *memStore) ListLogs(_ context.Context, filter monitor.LogFilter, page monitor.Page) ([]monitor.LogEntry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []monitor.LogEntry
	for _, e := range m.logs {
		if filter.ServiceID != "" && e.ServiceID != filter.ServiceID {
			continue
		}
		if filter.Level != "" && e.Level != filter.Level {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, len(out), nil
}

func (m *memStore) DeleteLog(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.logs[id]; !ok {
		return monitor.ErrNotFound
	}
	delete(m.logs, id)
	return nil
}

func (m *memStore) CreateAction(_ context.Context, a *monitor.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions[a.ID] = *a
	return nil
}

func (m *memStore) GetAction(_ context.Context, id string) (*monitor.Action, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actions[id]
	if !ok {
		return nil, monitor.ErrNotFound
	}
	return &a, nil
}

func (m *memStore) ListActions(_ context.Context, filter monitor.ActionFilter, page monitor.Page) ([]monitor.Action, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []monitor.Action
	for _, a := range m.actions {
		if filter.IncidentID != "" && a.IncidentID != filter.IncidentID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, len(out), nil
}

func (m *memStore) UpdateAction(_ context.Context, a *monitor.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.actions[a.ID]; !ok {
		return monitor.ErrNotFound
	}
	m.actions[a.ID] = *a
	return nil
}

func (m *memStore) DeleteAction(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.actions[id]; !ok {
		return monitor.ErrNotFound
	}
	delete(m.actions, id)
	return nil
}

func (m *memStore) CreateUser(_ context.Context, u *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return auth.ErrEmailTaken
		}
	}
	m.users[u.ID] = *u
	return nil
}

func (m *memStore) GetUser(_ context.Context, id string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return &u, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*auth.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (m *memStore) CountUsers(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

func (m *memStore) UpdateUser(_ context.Context, u *auth.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; !ok {
		return auth.ErrUserNotFound
	}
	m.users[u.ID] = *u
	return nil
}

var (
	_ monitor.ServiceStore    = (*memStore)(nil)
	_ monitor.IncidentStore   = (*memStore)(nil)
	_ monitor.DeploymentStore = (*memStore)(nil)
	_ monitor.LogStore        = (*memStore)(nil)
	_ monitor.ActionStore     = (*memStore)(nil)
	_ auth.UserStore          = (*memStore)(nil)
)
