package engines

import (
	"context"
	"testing"

	"github.com/david/grant-ingest/internal/model"
	"github.com/david/grant-ingest/internal/ratelimit"
)

// Exercising a real headless browser in a unit test requires a Chromium
// binary on the test host, so only the pre-navigation validation path is
// covered here; the navigation/extraction path (elText) has no unit test
// and shares no extraction code with the static engine.
func TestBrowserEngineRequiresContainerSelector(t *testing.T) {
	e := NewBrowserEngine(ratelimit.New())
	_, err := e.Fetch(context.Background(), model.Source{ID: "s1", URL: "http://example.invalid"})
	if err == nil {
		t.Fatal("expected error for missing container selector")
	}
	if _, ok := err.(*FatalError); !ok {
		t.Errorf("expected *FatalError, got %T", err)
	}
}
