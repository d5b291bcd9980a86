package engines

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/david/grant-ingest/internal/model"
	"github.com/david/grant-ingest/internal/ratelimit"
)

func TestAPIEngineDecodesJSONArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"title":"Youth STEM Grant","description":"Funds robotics clubs.","fundingAmount":"$5000","funderName":"Acme Foundation"}]`))
	}))
	defer srv.Close()

	source := model.Source{ID: "s1", URL: srv.URL, Engine: model.EngineAPI}
	e := NewAPIEngine(ratelimit.New())
	grants, err := e.Fetch(context.Background(), source)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(grants) != 1 {
		t.Fatalf("expected 1 grant, got %d", len(grants))
	}
	if grants[0].Title != "Youth STEM Grant" {
		t.Errorf("unexpected title: %q", grants[0].Title)
	}
	if grants[0].FunderName != "Acme Foundation" {
		t.Errorf("unexpected funder: %q", grants[0].FunderName)
	}
}

func TestAPIEngineAbortsAfterAuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	source := model.Source{ID: "s2", URL: srv.URL, Engine: model.EngineAPI}
	e := NewAPIEngine(ratelimit.New())
	_, err := e.Fetch(context.Background(), source)
	if err == nil {
		t.Fatal("expected error on repeated 401s")
	}
	if _, ok := err.(*FatalError); !ok {
		t.Errorf("expected *FatalError, got %T", err)
	}
}

func TestAPIEngineOffsetPagination(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("offset") == "0" {
			w.Write([]byte(`[{"title":"Grant A"},{"title":"Grant B"}]`))
		} else {
			w.Write([]byte(`[]`))
		}
	}))
	defer srv.Close()

	source := model.Source{
		ID:     "s3",
		URL:    srv.URL,
		Engine: model.EngineAPI,
		Pagination: &model.PaginationConfig{
			Kind:     model.PaginationOffset,
			PageSize: 2,
			MaxPages: 3,
		},
	}
	e := NewAPIEngine(ratelimit.New())
	grants, err := e.Fetch(context.Background(), source)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(grants) != 2 {
		t.Fatalf("expected 2 grants, got %d", len(grants))
	}
	if calls != 2 {
		t.Errorf("expected fetchPage to stop after short page, got %d calls", calls)
	}
}

func TestApplyAuthBearer(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://example.invalid", nil)
	applyAuth(req, &model.AuthConfig{Kind: model.AuthBearer, Credentials: map[string]string{"token": "abc123"}})
	if got := req.Header.Get("Authorization"); got != "Bearer abc123" {
		t.Errorf("unexpected Authorization header: %q", got)
	}
}
