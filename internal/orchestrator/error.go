package orchestrator

import (
	"strings"
	"time"
)

// ErrorCategory is the closed 8-way taxonomy of spec.md §7.
type ErrorCategory string

const (
	ErrorNetwork        ErrorCategory = "network"
	ErrorParsing        ErrorCategory = "parsing"
	ErrorValidation     ErrorCategory = "validation"
	ErrorRateLimit      ErrorCategory = "rate-limit"
	ErrorAuthentication ErrorCategory = "authentication"
	ErrorCaptcha        ErrorCategory = "captcha"
	ErrorDatabase       ErrorCategory = "database"
	ErrorContentChanged ErrorCategory = "content-changed"
)

// JobError is one categorized entry on a job's error list.
type JobError struct {
	Category   ErrorCategory
	Message    string
	OccurredAt time.Time
}

// classify maps an error's message to one of the closed categories by
// heuristic keyword matching, per spec.md §7 ("using message/code
// heuristics"). Order matters: more specific signals are checked first.
func classify(err error) ErrorCategory {
	if err == nil {
		return ErrorParsing
	}
	msg := strings.ToLower(err.Error())

	switch {
	case containsAny(msg, "authentication", "unauthorized", "401", "403", "credential"):
		return ErrorAuthentication
	case containsAny(msg, "captcha", "challenge page"):
		return ErrorCaptcha
	case containsAny(msg, "rate limit", "429", "too many requests"):
		return ErrorRateLimit
	case containsAny(msg, "database", "store", "upsert", "persist"):
		return ErrorDatabase
	case containsAny(msg, "produced no results", "zero containers", "no container", "content changed"):
		return ErrorContentChanged
	case containsAny(msg, "no such host", "connection refused", "connection reset", "timeout", "dial tcp", "i/o timeout", "dns"):
		return ErrorNetwork
	case containsAny(msg, "decode", "unmarshal", "parse", "selector", "malformed"):
		return ErrorParsing
	case containsAny(msg, "required", "invalid", "must be"):
		return ErrorValidation
	default:
		return ErrorParsing
	}
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
