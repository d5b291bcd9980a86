package engines

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/david/grant-ingest/internal/model"
	"github.com/david/grant-ingest/internal/ratelimit"
)

func TestStaticEngineExtractsFromContainer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<div class="grant">
				<h2 class="title">Community Health Fund</h2>
				<p class="desc">Supports local clinics.</p>
				<span class="deadline">2026-12-01</span>
				<span class="amount">$10,000 - $50,000</span>
			</div>
		</body></html>`))
	}))
	defer srv.Close()

	source := model.Source{
		ID:     "s1",
		URL:    srv.URL,
		Engine: model.EngineStatic,
		Selectors: model.Selectors{
			Container:   ".grant",
			Title:       ".title",
			Description: ".desc",
			Deadline:    ".deadline",
			Amount:      ".amount",
		},
	}

	e := NewStaticEngine(ratelimit.New())
	grants, err := e.Fetch(context.Background(), source)
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if len(grants) != 1 {
		t.Fatalf("expected 1 grant, got %d", len(grants))
	}
	if grants[0].Title != "Community Health Fund" {
		t.Errorf("unexpected title: %q", grants[0].Title)
	}
	if grants[0].FundingAmount == "" {
		t.Error("expected funding amount to be populated")
	}
}

func TestStaticEngineRequiresContainerSelector(t *testing.T) {
	e := NewStaticEngine(ratelimit.New())
	_, err := e.Fetch(context.Background(), model.Source{ID: "s2", URL: "http://example.invalid"})
	if err == nil {
		t.Fatal("expected error for missing container selector")
	}
	var fatal *FatalError
	if _, ok := err.(*FatalError); !ok {
		t.Errorf("expected *FatalError, got %T (%v)", err, fatal)
	}
}
