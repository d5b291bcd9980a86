// Package sourcemgr owns the registry of configured Sources: CRUD,
// health checks, and rolling metrics (spec.md §4.7). Grounded on the
// teacher's internal/ingest/registry.go Registry type, generalized from a
// read-only embedded registry into a mutable, concurrency-safe manager.
package sourcemgr

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/david/grant-ingest/internal/model"
)

// HealthResult is the outcome of a single source health check.
type HealthResult struct {
	Healthy        bool
	StatusCode     int
	ResponseTimeMS int64
	Error          string
}

// Manager owns the Source registry. All mutation happens under its mutex —
// the spec calls this out explicitly as the system's one shared-mutable
// state (spec.md §5).
type Manager struct {
	mu      sync.RWMutex
	sources map[string]model.Source
	client  *http.Client
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{
		sources: make(map[string]model.Source),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// GetActive returns a Source if it exists and is active.
func (m *Manager) GetActive(id string) (model.Source, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sources[id]
	if !ok || s.Status != model.SourceStatusActive {
		return model.Source{}, false
	}
	return s, true
}

// ListActive returns all active sources.
func (m *Manager) ListActive() []model.Source {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Source
	for _, s := range m.sources {
		if s.Status == model.SourceStatusActive {
			out = append(out, s)
		}
	}
	return out
}

// Create validates config, health-checks it, and persists it. It returns an
// error only for an invalid config, which is not persisted; a valid source
// that fails the health check is persisted with status error.
func (m *Manager) Create(ctx context.Context, s model.Source) (model.Source, error) {
	if errs, _ := ValidateConfig(s); len(errs) > 0 {
		return model.Source{}, fmt.Errorf("invalid source config: %s", strings.Join(errs, "; "))
	}

	result := m.CheckHealth(ctx, s)
	if !result.Healthy {
		s.Status = model.SourceStatusError
		s.Metrics.LastError = result.Error
	} else {
		s.Status = model.SourceStatusActive
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[s.ID] = s
	return s, nil
}

// Update applies a partial mutation function to an existing Source.
func (m *Manager) Update(id string, mutate func(*model.Source)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sources[id]
	if !ok {
		return fmt.Errorf("source %q not found", id)
	}
	mutate(&s)
	m.sources[id] = s
	return nil
}

// Disable soft-deactivates a source; Sources are never destroyed
// (spec.md §3).
func (m *Manager) Disable(id, reason string) error {
	return m.Update(id, func(s *model.Source) {
		s.Status = model.SourceStatusInactive
		s.Metrics.LastError = reason
	})
}

// Enable reactivates a source only if a fresh health check succeeds.
func (m *Manager) Enable(ctx context.Context, id string) error {
	m.mu.RLock()
	s, ok := m.sources[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("source %q not found", id)
	}

	result := m.CheckHealth(ctx, s)
	if !result.Healthy {
		return fmt.Errorf("source %q failed health check: %s", id, result.Error)
	}
	return m.Update(id, func(s *model.Source) { s.Status = model.SourceStatusActive })
}

// MetricsDelta is the outcome of one completed scrape, applied to a
// Source's rolling counters.
type MetricsDelta struct {
	Success  bool
	ParseMS  float64
	ErrorMsg string
}

// UpdateMetrics folds a scrape outcome into the source's rolling counters
// and recomputes its success rate (spec.md §4.7).
func (m *Manager) UpdateMetrics(id string, delta MetricsDelta, now time.Time) error {
	return m.Update(id, func(s *model.Source) {
		if delta.Success {
			s.Metrics.SuccessCount++
		} else {
			s.Metrics.FailCount++
			s.Metrics.LastError = delta.ErrorMsg
		}
		total := s.Metrics.SuccessCount + s.Metrics.FailCount
		if total > 0 {
			s.Metrics.SuccessRate = float64(s.Metrics.SuccessCount) / float64(total)
		}
		if delta.ParseMS > 0 {
			if s.Metrics.AvgParseMS == 0 {
				s.Metrics.AvgParseMS = delta.ParseMS
			} else {
				s.Metrics.AvgParseMS = (s.Metrics.AvgParseMS + delta.ParseMS) / 2
			}
		}
		s.Metrics.LastScrapedAt = &now
	})
}

const staleAfter = 6 * time.Hour

// DueForHealthCheck returns sources whose FailCount is 3 or more (FailCount
// counts every failed scrape and is not reset by a success) or
// whose last scrape is older than the staleness window (spec.md §4.7).
func (m *Manager) DueForHealthCheck(now time.Time) []model.Source {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Source
	for _, s := range m.sources {
		if s.Metrics.FailCount >= 3 {
			out = append(out, s)
			continue
		}
		if s.Metrics.LastScrapedAt != nil && now.Sub(*s.Metrics.LastScrapedAt) > staleAfter {
			out = append(out, s)
		}
	}
	return out
}

// CheckHealth performs a single HTTP HEAD (falling back to GET if HEAD is
// rejected) against the source URL with a 10s timeout.
func (m *Manager) CheckHealth(ctx context.Context, s model.Source) HealthResult {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.URL, nil)
	if err != nil {
		return HealthResult{Error: err.Error()}
	}
	resp, err := m.client.Do(req)
	if err != nil || resp.StatusCode >= 400 {
		if resp != nil {
			resp.Body.Close()
		}
		req, err2 := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
		if err2 != nil {
			return HealthResult{Error: err2.Error()}
		}
		resp, err = m.client.Do(req)
	}
	elapsed := time.Since(start).Milliseconds()
	if err != nil {
		return HealthResult{Healthy: false, ResponseTimeMS: elapsed, Error: err.Error()}
	}
	defer resp.Body.Close()

	return HealthResult{
		Healthy:        resp.StatusCode < 400,
		StatusCode:     resp.StatusCode,
		ResponseTimeMS: elapsed,
	}
}
