package engines

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/david/grant-ingest/internal/model"
	"github.com/david/grant-ingest/internal/ratelimit"
)

// StaticEngine issues HTTP GETs and applies CSS selectors to extract grant
// containers, grounded on the teacher's CollyFetcher in
// internal/ingest/fetcher_colly.go.
type StaticEngine struct {
	limiter *ratelimit.Limiter
	uaNext  atomic.Uint32
}

// NewStaticEngine returns a StaticEngine sharing limiter across sources.
func NewStaticEngine(limiter *ratelimit.Limiter) *StaticEngine {
	return &StaticEngine{limiter: limiter}
}

func (e *StaticEngine) Fetch(ctx context.Context, source model.Source) ([]model.RawGrant, error) {
	if source.Selectors.Container == "" {
		return nil, &FatalError{Reason: "static engine requires selectors.container", Err: fmt.Errorf("missing config")}
	}

	var grants []model.RawGrant
	var collectErr error

	c := colly.NewCollector(colly.UserAgent(userAgentFor(int(e.uaNext.Add(1) - 1))))
	c.SetRequestTimeout(30 * time.Second)

	for k, v := range source.Headers {
		header := k
		value := v
		c.OnRequest(func(r *colly.Request) { r.Headers.Set(header, value) })
	}

	c.OnHTML(source.Selectors.Container, func(el *colly.HTMLElement) {
		grants = append(grants, extractFromElement(el, source))
	})

	c.OnError(func(r *colly.Response, err error) {
		collectErr = err
	})

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, source); err != nil {
			return nil, err
		}
	}

	if err := c.Visit(source.URL); err != nil {
		return nil, &FatalError{Reason: "static engine fetch failed", Err: err}
	}
	c.Wait()

	if collectErr != nil && len(grants) == 0 {
		return nil, &FatalError{Reason: "static engine produced no results", Err: collectErr}
	}

	return grants, nil
}

func extractFromElement(el interface{ ChildText(string) string }, source model.Source) model.RawGrant {
	sel := source.Selectors
	return model.RawGrant{
		Title:          strings.TrimSpace(el.ChildText(sel.Title)),
		Description:    strings.TrimSpace(el.ChildText(sel.Description)),
		Deadline:       strings.TrimSpace(el.ChildText(sel.Deadline)),
		FundingAmount:  strings.TrimSpace(el.ChildText(sel.Amount)),
		Eligibility:    strings.TrimSpace(el.ChildText(sel.Eligibility)),
		ApplicationURL: strings.TrimSpace(el.ChildText(sel.ApplicationURL)),
		FunderName:     strings.TrimSpace(el.ChildText(sel.FunderInfo)),
		SourceURL:      source.URL,
		ScrapedAt:      time.Now(),
		RawContent:     map[string]any{},
	}
}
