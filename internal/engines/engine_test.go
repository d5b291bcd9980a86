package engines

import (
	"errors"
	"testing"
)

func TestUserAgentForRotatesAndWraps(t *testing.T) {
	first := userAgentFor(0)
	wrapped := userAgentFor(len(userAgents))
	if first != wrapped {
		t.Errorf("expected userAgentFor to wrap around pool length, got %q vs %q", first, wrapped)
	}
}

func TestFatalErrorUnwraps(t *testing.T) {
	inner := errors.New("boom")
	fe := &FatalError{Reason: "engine failed", Err: inner}
	if !errors.Is(fe, inner) {
		t.Error("expected errors.Is to find wrapped error")
	}
	if fe.Error() != "engine failed: boom" {
		t.Errorf("unexpected error string: %q", fe.Error())
	}
}
