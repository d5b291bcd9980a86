package ports

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/david/grant-ingest/internal/model"
)

// MemoryGrantStore is an in-process GrantStore keyed by DuplicateHash. It
// exists so the Orchestrator and its tests have a working port without
// pulling in a concrete database — the spec treats persistence as an
// external collaborator (spec.md §1).
type MemoryGrantStore struct {
	mu     sync.RWMutex
	byHash map[string]model.Grant
}

// NewMemoryGrantStore returns an empty store.
func NewMemoryGrantStore() *MemoryGrantStore {
	return &MemoryGrantStore{byHash: make(map[string]model.Grant)}
}

// Upsert inserts a Grant or reports it as unchanged/updated by comparing
// ContentHash against the existing record.
func (s *MemoryGrantStore) Upsert(ctx context.Context, grant model.Grant) (UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.byHash[grant.DuplicateHash]
	if !ok {
		s.byHash[grant.DuplicateHash] = grant
		return UpsertResult{Action: ActionInserted}, nil
	}
	if existing.ContentHash == grant.ContentHash {
		return UpsertResult{Action: ActionSkipped}, nil
	}
	s.byHash[grant.DuplicateHash] = grant
	return UpsertResult{Action: ActionUpdated}, nil
}

// FindByDuplicateHash looks up a stored Grant by its duplicate hash.
func (s *MemoryGrantStore) FindByDuplicateHash(ctx context.Context, hash string) (model.Grant, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.byHash[hash]
	return g, ok, nil
}

// UpdateDeadline overwrites a stored Grant's Deadline in place, bypassing
// Upsert's content-hash skip so an enrichment pass can fill in a deadline
// a scrape originally missed.
func (s *MemoryGrantStore) UpdateDeadline(ctx context.Context, duplicateHash string, deadline time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.byHash[duplicateHash]
	if !ok {
		return fmt.Errorf("no grant stored under duplicate hash %q", duplicateHash)
	}
	g.Deadline = &deadline
	s.byHash[duplicateHash] = g
	return nil
}

// UpdateStatus overwrites a stored Grant's Status in place, bypassing
// Upsert's content-hash skip so a status recompute pass always persists.
func (s *MemoryGrantStore) UpdateStatus(ctx context.Context, duplicateHash string, status model.GrantStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.byHash[duplicateHash]
	if !ok {
		return fmt.Errorf("no grant stored under duplicate hash %q", duplicateHash)
	}
	g.Status = status
	s.byHash[duplicateHash] = g
	return nil
}

// ListAll returns every stored Grant, sorted by DuplicateHash for a
// deterministic iteration order (spec.md §6 enrich/recompute-status tools).
func (s *MemoryGrantStore) ListAll(ctx context.Context) ([]model.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Grant, 0, len(s.byHash))
	for _, g := range s.byHash {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DuplicateHash < out[j].DuplicateHash })
	return out, nil
}

// ListCandidatesForFunder returns up to limit stored Grants whose funder
// name matches exactly, for cross-batch dedup scoring.
func (s *MemoryGrantStore) ListCandidatesForFunder(ctx context.Context, funderName string, limit int) ([]model.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Grant
	for _, g := range s.byHash {
		if g.Funder.Name == funderName {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
