package sourcemgr

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/david/grant-ingest/internal/model"
)

// YAMLSource is the on-disk shape of one configured source, expanded from
// environment variables before being converted to model.Source. Grounded
// on the teacher's internal/ingest/registry.go SourceConfig/Selectors
// schema, extended with the auth/pagination/browser fields spec.md's
// Source type adds.
type YAMLSource struct {
	ID        string            `yaml:"id"`
	URL       string            `yaml:"url"`
	Type      string            `yaml:"type"`
	Engine    string            `yaml:"engine"`
	Frequency string            `yaml:"frequency"`
	Headers   map[string]string `yaml:"headers"`
	Selectors struct {
		Container      string `yaml:"container"`
		Title          string `yaml:"title"`
		Description    string `yaml:"description"`
		Deadline       string `yaml:"deadline"`
		Amount         string `yaml:"amount"`
		Eligibility    string `yaml:"eligibility"`
		ApplicationURL string `yaml:"application_url"`
		FunderInfo     string `yaml:"funder_info"`
	} `yaml:"selectors"`
	RateLimit struct {
		RequestsPerMinute int  `yaml:"requests_per_minute"`
		MinDelayMS        int  `yaml:"min_delay_ms"`
		RespectRobots     bool `yaml:"respect_robots"`
	} `yaml:"rate_limit"`
	Auth *struct {
		Kind        string            `yaml:"kind"`
		Credentials map[string]string `yaml:"credentials"`
	} `yaml:"auth"`
	Pagination *struct {
		Kind     string `yaml:"kind"`
		PageSize int    `yaml:"page_size"`
		MaxPages int    `yaml:"max_pages"`
	} `yaml:"pagination"`
	BrowserWait   string `yaml:"browser_wait"`
	BlockHeavyRes bool   `yaml:"block_heavy_resources"`
	OCRLanguage   string `yaml:"ocr_language"`
}

// FileRegistry is the top-level document LoadRegistryFile parses.
type FileRegistry struct {
	Sources []YAMLSource `yaml:"sources"`
}

// LoadRegistryFile reads and parses a source registry YAML file, expanding
// `${VAR}` references against the process environment before unmarshaling
// (grounded on the teacher's LoadRegistry os.ExpandEnv + yaml.v3 pattern).
func LoadRegistryFile(path string) ([]model.Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry file: %w", err)
	}
	expanded := os.ExpandEnv(string(raw))

	var doc FileRegistry
	if err := yaml.Unmarshal([]byte(expanded), &doc); err != nil {
		return nil, fmt.Errorf("parse registry yaml: %w", err)
	}

	sources := make([]model.Source, 0, len(doc.Sources))
	for _, s := range doc.Sources {
		sources = append(sources, s.toModel())
	}
	return sources, nil
}

func (s YAMLSource) toModel() model.Source {
	src := model.Source{
		ID:     s.ID,
		URL:    s.URL,
		Type:   model.SourceType(s.Type),
		Engine: model.EngineKind(s.Engine),
		Selectors: model.Selectors{
			Container:      s.Selectors.Container,
			Title:          s.Selectors.Title,
			Description:    s.Selectors.Description,
			Deadline:       s.Selectors.Deadline,
			Amount:         s.Selectors.Amount,
			Eligibility:    s.Selectors.Eligibility,
			ApplicationURL: s.Selectors.ApplicationURL,
			FunderInfo:     s.Selectors.FunderInfo,
		},
		RateLimit: model.RateLimit{
			RequestsPerMinute: s.RateLimit.RequestsPerMinute,
			MinDelayMS:        s.RateLimit.MinDelayMS,
			RespectRobots:     s.RateLimit.RespectRobots,
		},
		Headers:       s.Headers,
		Status:        model.SourceStatusActive,
		Frequency:     model.Frequency(s.Frequency),
		BrowserWait:   s.BrowserWait,
		BlockHeavyRes: s.BlockHeavyRes,
		OCRLanguage:   s.OCRLanguage,
	}
	if s.Auth != nil {
		src.Auth = &model.AuthConfig{Kind: model.AuthKind(s.Auth.Kind), Credentials: s.Auth.Credentials}
	}
	if s.Pagination != nil {
		src.Pagination = &model.PaginationConfig{
			Kind:     model.PaginationKind(s.Pagination.Kind),
			PageSize: s.Pagination.PageSize,
			MaxPages: s.Pagination.MaxPages,
		}
	}
	return src
}

var validSourceTypes = map[model.SourceType]bool{
	model.SourceTypeGovernment: true, model.SourceTypeFoundation: true,
	model.SourceTypeBusiness: true, model.SourceTypeNGO: true, model.SourceTypeOther: true,
}
var validEngines = map[model.EngineKind]bool{
	model.EngineStatic: true, model.EngineBrowser: true, model.EngineAPI: true, model.EnginePDF: true,
}

// ValidateConfig checks a Source against spec.md §4.7's config-validation
// rules, returning an error list (empty means valid) and a warning list.
func ValidateConfig(s model.Source) (errs []string, warnings []string) {
	u, err := url.Parse(s.URL)
	if err != nil || !u.IsAbs() {
		errs = append(errs, "url must be a parsable absolute URL")
	}
	if !validSourceTypes[s.Type] {
		errs = append(errs, fmt.Sprintf("type %q is not a recognized source type", s.Type))
	}
	if !validEngines[s.Engine] {
		errs = append(errs, fmt.Sprintf("engine %q is not a recognized engine", s.Engine))
	}
	if (s.Engine == model.EngineStatic || s.Engine == model.EngineBrowser) && s.Selectors.Container == "" {
		errs = append(errs, "selectors.container is required for static/browser engines")
	}
	if s.RateLimit.RequestsPerMinute < 0 || s.RateLimit.MinDelayMS < 0 {
		errs = append(errs, "rate-limit values must be non-negative")
	}
	if s.Auth != nil {
		if s.Auth.Kind == model.AuthNone {
			errs = append(errs, "auth block present but kind is unset")
		} else if len(s.Auth.Credentials) == 0 {
			errs = append(errs, "auth requires at least one credential entry")
		}
	}
	if s.RateLimit.RequestsPerMinute > 100 {
		warnings = append(warnings, "requests_per_minute exceeds 100; consider a lower rate")
	}
	return errs, warnings
}
