package orchestrator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/david/grant-ingest/internal/classifier"
	"github.com/david/grant-ingest/internal/engines"
	"github.com/david/grant-ingest/internal/model"
	"github.com/david/grant-ingest/internal/ports"
	"github.com/david/grant-ingest/internal/processor"
	"github.com/david/grant-ingest/internal/sourcemgr"
	"github.com/david/grant-ingest/internal/validator"
)

type stubEngine struct {
	grants []model.RawGrant
	err    error
}

func (s *stubEngine) Fetch(ctx context.Context, source model.Source) ([]model.RawGrant, error) {
	return s.grants, s.err
}

type recordingAlerter struct {
	calls []string
}

func (a *recordingAlerter) Notify(ctx context.Context, severity ports.AlertSeverity, subject string, details map[string]any) {
	a.calls = append(a.calls, subject)
}

func newManagerWithHealthySource(t *testing.T, id string, engine model.EngineKind) *sourcemgr.Manager {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	m := sourcemgr.New()
	_, err := m.Create(context.Background(), model.Source{ID: id, URL: srv.URL, Type: model.SourceTypeOther, Engine: engine})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return m
}

func TestExecuteInsertsValidGrants(t *testing.T) {
	mgr := newManagerWithHealthySource(t, "s1", model.EngineAPI)
	engine := &stubEngine{grants: []model.RawGrant{
		{
			Title:          "Community Health Innovation Fund",
			Description:    "Supports clinics expanding preventive care access in rural counties across the state.",
			Deadline:       "2026-12-01",
			FundingAmount:  "$10,000 - $50,000",
			ApplicationURL: "https://example.org/apply",
			FunderName:     "State Health Department",
		},
	}}
	store := ports.NewMemoryGrantStore()

	orch := New(
		Config{MaxConcurrentSources: 2},
		mgr,
		map[model.EngineKind]engines.Engine{model.EngineAPI: engine},
		processor.New(),
		validator.New(),
		classifier.New(),
		store,
		nil,
		nil,
		nil,
		ports.SystemClock{},
	)

	job := &model.Job{ID: "j1", SourceID: "s1", Priority: 5, Status: model.JobRunning}
	result := orch.Execute(context.Background(), job)

	if result.TotalFound != 1 {
		t.Fatalf("expected 1 grant found, got %d", result.TotalFound)
	}
	if result.TotalInserted != 1 {
		t.Fatalf("expected 1 grant inserted, got %d (errors: %+v)", result.TotalInserted, result.Errors)
	}
	if len(result.Errors) != 0 {
		t.Errorf("expected no errors, got %+v", result.Errors)
	}
}

func TestExecuteSkipsInvalidGrants(t *testing.T) {
	mgr := newManagerWithHealthySource(t, "s2", model.EngineAPI)
	engine := &stubEngine{grants: []model.RawGrant{
		{Title: "x", Description: "too short"},
	}}
	store := ports.NewMemoryGrantStore()

	orch := New(
		Config{MaxConcurrentSources: 2},
		mgr,
		map[model.EngineKind]engines.Engine{model.EngineAPI: engine},
		processor.New(),
		validator.New(),
		classifier.New(),
		store,
		nil,
		nil,
		nil,
		ports.SystemClock{},
	)

	job := &model.Job{ID: "j2", SourceID: "s2", Priority: 5, Status: model.JobRunning}
	result := orch.Execute(context.Background(), job)

	if result.TotalInserted != 0 {
		t.Errorf("expected 0 inserted for invalid grant, got %d", result.TotalInserted)
	}
	if result.TotalSkipped != 1 {
		t.Errorf("expected 1 skipped, got %d", result.TotalSkipped)
	}
}

func TestExecuteCategorizesEngineFailureAndAlertsOnAuth(t *testing.T) {
	mgr := newManagerWithHealthySource(t, "s3", model.EngineAPI)
	engine := &stubEngine{err: &engines.FatalError{Reason: "api engine authentication failed", Err: errors.New("status 401")}}
	store := ports.NewMemoryGrantStore()
	alerter := &recordingAlerter{}

	orch := New(
		Config{MaxConcurrentSources: 2},
		mgr,
		map[model.EngineKind]engines.Engine{model.EngineAPI: engine},
		processor.New(),
		validator.New(),
		classifier.New(),
		store,
		alerter,
		nil,
		nil,
		ports.SystemClock{},
	)

	job := &model.Job{ID: "j3", SourceID: "s3", Priority: 5, Status: model.JobRunning}
	result := orch.Execute(context.Background(), job)

	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error, got %d", len(result.Errors))
	}
	if result.Errors[0].Category != ErrorAuthentication {
		t.Errorf("expected authentication category, got %s", result.Errors[0].Category)
	}
	if len(alerter.calls) != 1 {
		t.Errorf("expected alerter to fire once on authentication error, got %d calls", len(alerter.calls))
	}
}

func TestExecuteReturnsEarlyWhenCancelRequested(t *testing.T) {
	mgr := newManagerWithHealthySource(t, "s4", model.EngineAPI)
	engine := &stubEngine{}
	store := ports.NewMemoryGrantStore()

	orch := New(
		Config{MaxConcurrentSources: 2},
		mgr,
		map[model.EngineKind]engines.Engine{model.EngineAPI: engine},
		processor.New(),
		validator.New(),
		classifier.New(),
		store,
		nil,
		nil,
		nil,
		ports.SystemClock{},
	)

	job := &model.Job{ID: "j4", SourceID: "s4", Priority: 5, Status: model.JobRunning}
	job.Metadata.CancelRequested = true
	result := orch.Execute(context.Background(), job)

	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error for cancelled job, got %d", len(result.Errors))
	}
	if result.TotalFound != 0 {
		t.Errorf("expected no fetch to run once cancel flag is set at source lookup")
	}
}

func TestExecuteMissingEngineIsParsingError(t *testing.T) {
	mgr := newManagerWithHealthySource(t, "s5", model.EngineBrowser)
	store := ports.NewMemoryGrantStore()

	orch := New(
		Config{MaxConcurrentSources: 2},
		mgr,
		map[model.EngineKind]engines.Engine{},
		processor.New(),
		validator.New(),
		classifier.New(),
		store,
		nil,
		nil,
		nil,
		ports.SystemClock{},
	)

	job := &model.Job{ID: "j5", SourceID: "s5", Priority: 5, Status: model.JobRunning}
	result := orch.Execute(context.Background(), job)

	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 error for unregistered engine, got %d", len(result.Errors))
	}
	if result.Errors[0].Category != ErrorParsing {
		t.Errorf("expected parsing category for unregistered engine, got %s", result.Errors[0].Category)
	}
}

func TestClassifyHeuristics(t *testing.T) {
	cases := []struct {
		err  error
		want ErrorCategory
	}{
		{errors.New("dial tcp: connection refused"), ErrorNetwork},
		{errors.New("status 429 too many requests"), ErrorRateLimit},
		{errors.New("authentication failed: status 401"), ErrorAuthentication},
		{errors.New("failed to decode json"), ErrorParsing},
		{errors.New("database upsert failed"), ErrorDatabase},
		{errors.New("captcha challenge page detected"), ErrorCaptcha},
		{errors.New("selectors yielded zero containers"), ErrorContentChanged},
	}
	for _, c := range cases {
		if got := classify(c.err); got != c.want {
			t.Errorf("classify(%q) = %s, want %s", c.err.Error(), got, c.want)
		}
	}
}
