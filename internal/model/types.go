// Package model holds the shared data model for the ingestion engine:
// Source, RawGrant, Grant, Job, ChangeRecord and ValidationReport.
package model

import "time"

// SourceType is the closed set of external-origin types (spec §6).
type SourceType string

const (
	SourceTypeGovernment SourceType = "gov"
	SourceTypeFoundation SourceType = "foundation"
	SourceTypeBusiness   SourceType = "business"
	SourceTypeNGO        SourceType = "ngo"
	SourceTypeOther      SourceType = "other"
)

// EngineKind selects which scraping engine fetches a Source.
type EngineKind string

const (
	EngineStatic  EngineKind = "static"
	EngineBrowser EngineKind = "browser"
	EngineAPI     EngineKind = "api"
	EnginePDF     EngineKind = "pdf"
)

// SourceStatus is the closed set of source lifecycle states.
type SourceStatus string

const (
	SourceStatusActive   SourceStatus = "active"
	SourceStatusInactive SourceStatus = "inactive"
	SourceStatusError    SourceStatus = "error"
)

// Frequency is the closed set of recurring scrape cadences.
type Frequency string

const (
	FrequencyHourly  Frequency = "hourly"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Interval returns the duration a Frequency maps to (spec §4.8).
func (f Frequency) Interval() time.Duration {
	switch f {
	case FrequencyHourly:
		return time.Hour
	case FrequencyDaily:
		return 24 * time.Hour
	case FrequencyWeekly:
		return 7 * 24 * time.Hour
	case FrequencyMonthly:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

// AuthKind is the closed set of source authentication schemes.
type AuthKind string

const (
	AuthNone   AuthKind = ""
	AuthBearer AuthKind = "bearer"
	AuthBasic  AuthKind = "basic"
	AuthAPIKey AuthKind = "apikey"
	AuthOAuth2 AuthKind = "oauth2"
)

// PaginationKind is the closed set of pagination schemes an API source uses.
type PaginationKind string

const (
	PaginationNone   PaginationKind = ""
	PaginationOffset PaginationKind = "offset"
	PaginationCursor PaginationKind = "cursor"
	PaginationPage   PaginationKind = "page"
)

// RateLimit bounds how fast an engine may call a Source.
type RateLimit struct {
	RequestsPerMinute int
	MinDelayMS        int
	RespectRobots     bool
}

// AuthConfig carries a source's credential mapping. Values are opaque:
// this engine never logs them.
type AuthConfig struct {
	Kind        AuthKind
	Credentials map[string]string
}

// PaginationConfig describes how an API-strategy source paginates.
type PaginationConfig struct {
	Kind     PaginationKind
	PageSize int
	MaxPages int
}

// Selectors maps logical fields to CSS selectors for static/browser engines.
type Selectors struct {
	Container      string
	Title          string
	Description    string
	Deadline       string
	Amount         string
	Eligibility    string
	ApplicationURL string
	FunderInfo     string
}

// SourceMetrics are the rolling counters SourceManager maintains.
type SourceMetrics struct {
	SuccessCount  int
	FailCount     int
	AvgParseMS    float64
	LastScrapedAt *time.Time
	LastError     string
	SuccessRate   float64
}

// Source is a configured external endpoint to scrape.
type Source struct {
	ID            string
	URL           string
	Type          SourceType
	Engine        EngineKind
	Selectors     Selectors
	RateLimit     RateLimit
	Headers       map[string]string
	Auth          *AuthConfig
	Pagination    *PaginationConfig
	Status        SourceStatus
	Frequency     Frequency
	Metrics       SourceMetrics
	BrowserWait   string // selector to await for JS-rendered pages
	BlockHeavyRes bool   // block images/fonts in the browser engine
	OCRLanguage   string // PDF engine OCR fallback language
}

// DeadlineEvidence records one candidate deadline string surfaced by an
// engine, with its provenance and confidence (supplements spec.md with
// ranked, explainable deadline extraction, in the teacher's idiom).
type DeadlineEvidence struct {
	Source     string
	Label      string
	Snippet    string
	ParsedISO  string
	Confidence float64
}

// RawGrant is the untyped output of a scraping engine.
type RawGrant struct {
	Title             string
	Description       string
	Deadline          string
	FundingAmount     string
	Eligibility       string
	ApplicationURL    string
	FunderName        string
	SourceURL         string
	ScrapedAt         time.Time
	RawContent        map[string]any
	DeadlineEvidence  []DeadlineEvidence
}

// FunderInfo describes the organization behind a Grant.
type FunderInfo struct {
	Name         string
	Website      string
	ContactEmail string
	Type         SourceType
}

// Category is the closed set of grant categories (spec §6).
type Category string

const (
	CategoryHealthcare     Category = "healthcare_public_health"
	CategoryEducation      Category = "education_training"
	CategoryEnvironment    Category = "environment_sustainability"
	CategorySocialServices Category = "social_services"
	CategoryArtsCulture    Category = "arts_culture"
	CategoryTechnology     Category = "technology_innovation"
	CategoryResearch       Category = "research_development"
	CategoryCommunityDev   Category = "community_development"
)

// GrantStatus is the closed set of deadline-derived lifecycle states a
// stored Grant can be in (spec.md §6 recompute-status, a simplified form
// of the teacher's ComputeStatusDecision restricted to deadline proximity —
// this pipeline has no results-page/source-status-raw signal to fold in).
type GrantStatus string

const (
	GrantStatusOpen        GrantStatus = "open"
	GrantStatusClosingSoon GrantStatus = "closing_soon"
	GrantStatusClosed      GrantStatus = "closed"
	GrantStatusUnknown     GrantStatus = "unknown"
)

// Grant is the canonical, post-processing record.
type Grant struct {
	Title               string
	Description         string
	Deadline            *time.Time
	AmountMin           *int64
	AmountMax           *int64
	EligibilityCriteria string
	ApplicationURL      string
	Funder              FunderInfo
	Category            Category
	LocationEligibility  []string
	ConfidenceScore     int
	ContentHash         string
	DuplicateHash       string
	Tags                []string
	SourceURL           string
	Status              GrantStatus
}

// JobStatus is the closed set of Job lifecycle states.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// JobMetadata is the mutable bag of retry/cancellation bookkeeping.
type JobMetadata struct {
	Attempts       int
	LastError      string
	RetryDelayMS   int64
	CancelRequested bool
}

// Job is one scheduled attempt to scrape one Source.
type Job struct {
	ID          string
	SourceID    string
	ScheduledAt time.Time
	StartedAt   *time.Time
	FinishedAt  *time.Time
	Status      JobStatus
	Priority    int
	Metadata    JobMetadata
}

// ChangeType is the closed set of change-detection severities.
type ChangeType string

const (
	ChangeMinor    ChangeType = "minor"
	ChangeMajor    ChangeType = "major"
	ChangeCritical ChangeType = "critical"
)

// ChangeRecord describes the delta between two versions of the same Grant.
type ChangeRecord struct {
	GrantID      string
	PreviousHash string
	CurrentHash  string
	ChangedFields []string
	ChangeType   ChangeType
	DetectedAt   time.Time
}

// ValidationError is a single field-level rule violation.
type ValidationError struct {
	Field   string
	Message string
}

// ValidationWarning is a non-fatal field-level concern.
type ValidationWarning struct {
	Field      string
	Message    string
	Suggestion string
}

// ValidationReport is the Validator's verdict for one Grant.
type ValidationReport struct {
	Valid        bool
	Errors       []ValidationError
	Warnings     []ValidationWarning
	QualityScore int
}

// ClampPriority clamps a Job priority to the [1,10] range (spec §3).
func ClampPriority(p int) int {
	if p < 1 {
		return 1
	}
	if p > 10 {
		return 10
	}
	return p
}
