package engines

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"

	"github.com/david/grant-ingest/internal/model"
	"github.com/david/grant-ingest/internal/ratelimit"
)

// APIEngine calls a paginated JSON/XML/CSV HTTP API, grounded on the
// teacher's HTTPFetcher/RateLimitedFetcher in internal/ingest/
// fetcher_http.go, generalized from a single-URL fetch to the spec's
// offset/cursor/page pagination schemes and multi-format response bodies.
type APIEngine struct {
	client  *http.Client
	limiter *ratelimit.Limiter
}

// NewAPIEngine returns an APIEngine sharing limiter across sources.
func NewAPIEngine(limiter *ratelimit.Limiter) *APIEngine {
	return &APIEngine{client: &http.Client{Timeout: 30 * time.Second}, limiter: limiter}
}

const maxConsecutivePageErrors = 3

func (e *APIEngine) Fetch(ctx context.Context, source model.Source) ([]model.RawGrant, error) {
	var all []model.RawGrant
	consecutiveErrors := 0

	maxPages := 1
	pageSize := 0
	if source.Pagination != nil {
		pageSize = source.Pagination.PageSize
		if source.Pagination.MaxPages > 0 {
			maxPages = source.Pagination.MaxPages
		}
	}

	for page := 0; page < maxPages; page++ {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx, source); err != nil {
				return all, err
			}
		}

		body, err := e.fetchPage(ctx, source, page)
		if err != nil {
			var fatal *FatalError
			if errors.As(err, &fatal) {
				return all, err
			}
			consecutiveErrors++
			if consecutiveErrors >= maxConsecutivePageErrors {
				return all, &FatalError{Reason: "api engine aborted after consecutive page errors", Err: err}
			}
			continue
		}
		consecutiveErrors = 0

		grants, err := decodeBody(body, source)
		if err != nil {
			consecutiveErrors++
			if consecutiveErrors >= maxConsecutivePageErrors {
				return all, &FatalError{Reason: "api engine aborted after consecutive decode errors", Err: err}
			}
			continue
		}

		all = append(all, grants...)
		if pageSize > 0 && len(grants) < pageSize {
			break
		}
		if source.Pagination == nil {
			break
		}
	}

	return all, nil
}

func (e *APIEngine) fetchPage(ctx context.Context, source model.Source, page int) ([]byte, error) {
	url := source.URL
	if source.Pagination != nil && source.Pagination.Kind != model.PaginationNone {
		url = paginatedURL(source, page)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, v := range source.Headers {
		req.Header.Set(k, v)
	}
	applyAuth(req, source.Auth)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, &FatalError{Reason: "api engine authentication failed", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("rate limited: status %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func applyAuth(req *http.Request, auth *model.AuthConfig) {
	if auth == nil {
		return
	}
	switch auth.Kind {
	case model.AuthBearer:
		req.Header.Set("Authorization", "Bearer "+auth.Credentials["token"])
	case model.AuthBasic:
		req.SetBasicAuth(auth.Credentials["username"], auth.Credentials["password"])
	case model.AuthAPIKey:
		req.Header.Set(auth.Credentials["header"], auth.Credentials["key"])
	case model.AuthOAuth2:
		req.Header.Set("Authorization", "Bearer "+auth.Credentials["access_token"])
	}
}

func paginatedURL(source model.Source, page int) string {
	sep := "?"
	if strings.Contains(source.URL, "?") {
		sep = "&"
	}
	switch source.Pagination.Kind {
	case model.PaginationOffset:
		offset := page * source.Pagination.PageSize
		return fmt.Sprintf("%s%soffset=%d&limit=%d", source.URL, sep, offset, source.Pagination.PageSize)
	case model.PaginationPage:
		return fmt.Sprintf("%s%spage=%d&pageSize=%d", source.URL, sep, page+1, source.Pagination.PageSize)
	case model.PaginationCursor:
		return fmt.Sprintf("%s%scursor=%d", source.URL, sep, page)
	default:
		return source.URL
	}
}

func decodeBody(body []byte, source model.Source) ([]model.RawGrant, error) {
	trimmed := strings.TrimSpace(string(body))
	switch {
	case strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "["):
		return decodeJSON(body, source)
	case strings.HasPrefix(trimmed, "<"):
		return decodeXML(body, source)
	default:
		return decodeCSV(body, source)
	}
}

func decodeJSON(body []byte, source model.Source) ([]model.RawGrant, error) {
	var records []map[string]any
	if err := json.Unmarshal(body, &records); err != nil {
		var wrapper map[string]json.RawMessage
		if err2 := json.Unmarshal(body, &wrapper); err2 != nil {
			return nil, err
		}
		for _, raw := range wrapper {
			if err3 := json.Unmarshal(raw, &records); err3 == nil {
				break
			}
		}
	}

	var out []model.RawGrant
	for _, rec := range records {
		out = append(out, model.RawGrant{
			Title:          stringField(rec, "title"),
			Description:    stringField(rec, "description"),
			Deadline:       stringField(rec, "deadline"),
			FundingAmount:  stringField(rec, "fundingAmount"),
			Eligibility:    stringField(rec, "eligibility"),
			ApplicationURL: stringField(rec, "applicationUrl"),
			FunderName:     stringField(rec, "funderName"),
			SourceURL:      source.URL,
			ScrapedAt:      time.Now(),
			RawContent:     rec,
		})
	}
	return out, nil
}

func stringField(rec map[string]any, key string) string {
	if v, ok := rec[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func decodeXML(body []byte, source model.Source) ([]model.RawGrant, error) {
	doc, err := xmlquery.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}

	var out []model.RawGrant
	nodes := xmlquery.Find(doc, "//item|//entry|//record")
	for _, n := range nodes {
		out = append(out, model.RawGrant{
			Title:          xmlField(n, "title"),
			Description:    xmlField(n, "description"),
			Deadline:       xmlField(n, "deadline"),
			FundingAmount:  xmlField(n, "fundingAmount"),
			Eligibility:    xmlField(n, "eligibility"),
			ApplicationURL: xmlField(n, "applicationUrl"),
			FunderName:     xmlField(n, "funderName"),
			SourceURL:      source.URL,
			ScrapedAt:      time.Now(),
			RawContent:     map[string]any{},
		})
	}
	return out, nil
}

func xmlField(n *xmlquery.Node, field string) string {
	found := xmlquery.FindOne(n, field)
	if found == nil {
		return ""
	}
	return strings.TrimSpace(found.InnerText())
}

func decodeCSV(body []byte, source model.Source) ([]model.RawGrant, error) {
	reader := csv.NewReader(strings.NewReader(string(body)))
	rows, err := reader.ReadAll()
	if err != nil || len(rows) < 2 {
		return nil, err
	}

	header := rows[0]
	colIndex := map[string]int{}
	for i, h := range header {
		colIndex[strings.ToLower(strings.TrimSpace(h))] = i
	}

	var out []model.RawGrant
	for _, row := range rows[1:] {
		out = append(out, model.RawGrant{
			Title:          csvField(row, colIndex, "title"),
			Description:    csvField(row, colIndex, "description"),
			Deadline:       csvField(row, colIndex, "deadline"),
			FundingAmount:  csvField(row, colIndex, "fundingamount"),
			Eligibility:    csvField(row, colIndex, "eligibility"),
			ApplicationURL: csvField(row, colIndex, "applicationurl"),
			FunderName:     csvField(row, colIndex, "fundername"),
			SourceURL:      source.URL,
			ScrapedAt:      time.Now(),
			RawContent:     map[string]any{"row_index": strconv.Itoa(len(out))},
		})
	}
	return out, nil
}

func csvField(row []string, colIndex map[string]int, key string) string {
	idx, ok := colIndex[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
