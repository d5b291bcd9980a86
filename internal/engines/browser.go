package engines

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/david/grant-ingest/internal/model"
	"github.com/david/grant-ingest/internal/ratelimit"
)

// BrowserEngine drives a headless browser for JS-rendered sources,
// grounded on the spec's browser-engine contract (spec.md §4.2); the
// teacher has no browser fetcher, so this is built fresh in the corpus's
// idiom using go-rod/rod, the only headless-browser driver in the
// retrieved pack.
type BrowserEngine struct {
	limiter *ratelimit.Limiter
}

// NewBrowserEngine returns a BrowserEngine sharing limiter across sources.
func NewBrowserEngine(limiter *ratelimit.Limiter) *BrowserEngine {
	return &BrowserEngine{limiter: limiter}
}

func (e *BrowserEngine) Fetch(ctx context.Context, source model.Source) ([]model.RawGrant, error) {
	if source.Selectors.Container == "" {
		return nil, &FatalError{Reason: "browser engine requires selectors.container", Err: fmt.Errorf("missing config")}
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, source); err != nil {
			return nil, err
		}
	}

	browser := rod.New().Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, &FatalError{Reason: "browser engine failed to start", Err: err}
	}
	defer browser.Close()

	page, err := browser.Page(proto.TargetCreateTarget{URL: source.URL})
	if err != nil {
		return nil, &FatalError{Reason: "browser engine navigation failed", Err: err}
	}
	defer page.Close()

	if source.BlockHeavyRes {
		router := browser.HijackRequests()
		router.MustAdd("*", func(h *rod.Hijack) {
			switch h.Request.Type() {
			case proto.NetworkResourceTypeImage, proto.NetworkResourceTypeFont, proto.NetworkResourceTypeMedia:
				h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
			default:
				h.ContinueRequest(&proto.FetchContinueRequest{})
			}
		})
		go router.Run()
		defer router.Stop()
	}

	wait := source.BrowserWait
	if wait == "" {
		wait = source.Selectors.Container
	}
	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()
	if _, err := page.Context(waitCtx).Element(wait); err != nil {
		return nil, &FatalError{Reason: "browser engine wait-selector never appeared", Err: err}
	}

	elements, err := page.Elements(source.Selectors.Container)
	if err != nil {
		return nil, &FatalError{Reason: "browser engine container query failed", Err: err}
	}

	var grants []model.RawGrant
	for _, el := range elements {
		grants = append(grants, model.RawGrant{
			Title:          elText(el, source.Selectors.Title),
			Description:    elText(el, source.Selectors.Description),
			Deadline:       elText(el, source.Selectors.Deadline),
			FundingAmount:  elText(el, source.Selectors.Amount),
			Eligibility:    elText(el, source.Selectors.Eligibility),
			ApplicationURL: elText(el, source.Selectors.ApplicationURL),
			FunderName:     elText(el, source.Selectors.FunderInfo),
			SourceURL:      source.URL,
			ScrapedAt:      time.Now(),
			RawContent:     map[string]any{},
		})
	}
	return grants, nil
}

func elText(el *rod.Element, selector string) string {
	if selector == "" {
		return ""
	}
	child, err := el.Element(selector)
	if err != nil {
		return ""
	}
	text, err := child.Text()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}
