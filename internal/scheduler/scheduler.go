// Package scheduler implements the four-lane job scheduler (pending,
// running, completed, failed) described in spec.md §4.8: priority
// ordering, recurring schedules, retry with exponential backoff, and
// cooperative cancellation. Grounded on the teacher's worker-pool shape
// in internal/ingest/pipeline.go (a bounded set of goroutines pulling
// from a shared queue), generalized from a single run-to-completion
// pipeline to a persistent, priority-ordered job queue.
package scheduler

import (
	"container/heap"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/david/grant-ingest/internal/model"
	"github.com/david/grant-ingest/internal/ports"
)

const (
	defaultMaxConcurrentJobs = 5
	defaultRetryAttempts     = 3
	defaultBackoffBase       = time.Second
	defaultBackoffMultiplier = 2.0
	defaultBackoffCap        = 5 * time.Minute
	defaultStuckTimeout      = 30 * time.Minute
)

// Config tunes the Scheduler's concurrency and retry behavior. Zero
// values fall back to the spec's documented defaults.
type Config struct {
	MaxConcurrentJobs int
	RetryAttempts     int
	BackoffBase       time.Duration
	BackoffMultiplier float64
	BackoffCap        time.Duration
	StuckTimeout      time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrentJobs <= 0 {
		c.MaxConcurrentJobs = defaultMaxConcurrentJobs
	}
	if c.RetryAttempts <= 0 {
		c.RetryAttempts = defaultRetryAttempts
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = defaultBackoffBase
	}
	if c.BackoffMultiplier <= 0 {
		c.BackoffMultiplier = defaultBackoffMultiplier
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = defaultBackoffCap
	}
	if c.StuckTimeout <= 0 {
		c.StuckTimeout = defaultStuckTimeout
	}
	return c
}

// Scheduler owns the Job lifecycle exclusively; callers interact through
// Schedule/ScheduleRecurring/NextReadyJob/UpdateStatus/Cancel only.
type Scheduler struct {
	mu        sync.Mutex
	cfg       Config
	clock     ports.Clock
	pending   jobHeap
	running   map[string]*model.Job
	completed []*model.Job
	failed    []*model.Job
	cron      *cron.Cron
}

// New constructs a Scheduler. The returned Scheduler's recurring-schedule
// cron runner is not started until Start is called.
func New(cfg Config, clock ports.Clock) *Scheduler {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &Scheduler{
		cfg:     cfg.withDefaults(),
		clock:   clock,
		running: make(map[string]*model.Job),
		cron:    cron.New(),
	}
}

// Start begins running any registered recurring schedules.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts recurring schedules; in-flight jobs are unaffected.
func (s *Scheduler) Stop() { s.cron.Stop() }

// Schedule creates a one-off Job for sourceID at the given priority,
// becoming ready after delay elapses (spec.md §4.8).
func (s *Scheduler) Schedule(sourceID string, priority int, delay time.Duration) *model.Job {
	job := &model.Job{
		ID:          uuid.NewString(),
		SourceID:    sourceID,
		Priority:    model.ClampPriority(priority),
		Status:      model.JobPending,
		ScheduledAt: s.clock.Now().Add(delay),
	}

	if delay <= 0 {
		s.enqueue(job)
		return job
	}

	go func() {
		<-s.clock.After(delay)
		s.enqueue(job)
	}()
	return job
}

func (s *Scheduler) enqueue(job *model.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	heap.Push(&s.pending, job)
}

// ScheduleRecurring registers a cron entry that re-schedules sourceID
// every frequency.Interval(), using robfig/cron's "@every" schedule type
// for a relative (rather than wall-clock-boundary) recurrence.
func (s *Scheduler) ScheduleRecurring(sourceID string, freq model.Frequency, priority int) (cron.EntryID, error) {
	spec := fmt.Sprintf("@every %s", freq.Interval())
	return s.cron.AddFunc(spec, func() {
		s.Schedule(sourceID, priority, 0)
	})
}

// NextReadyJob returns the highest-priority pending job whose
// scheduledAt has elapsed, breaking ties by earlier scheduledAt, and
// atomically moves it to running. Returns nil if running is at
// maxConcurrentJobs or no pending job is yet ready (spec.md §4.8).
func (s *Scheduler) NextReadyJob() *model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.running) >= s.cfg.MaxConcurrentJobs {
		return nil
	}
	now := s.clock.Now()
	best := -1
	for i, j := range s.pending {
		if j.ScheduledAt.After(now) {
			continue
		}
		if best < 0 || s.pending.Less(i, best) {
			best = i
		}
	}
	if best < 0 {
		return nil
	}

	job := heap.Remove(&s.pending, best).(*model.Job)
	job.Status = model.JobRunning
	job.StartedAt = &now
	s.running[job.ID] = job
	return job
}

// UpdateStatus transitions a running job per spec.md §4.8's state
// machine: completed jobs move to the completed lane; failed jobs retry
// with exponential backoff until retryAttempts is exhausted, then move
// to the failed lane; cancelled jobs are marked, removed from the running
// set and kept in the failed lane.
func (s *Scheduler) UpdateStatus(jobID string, newStatus model.JobStatus, cause error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.running[jobID]
	if !ok {
		return
	}
	delete(s.running, jobID)
	now := s.clock.Now()

	switch newStatus {
	case model.JobCompleted:
		job.Status = model.JobCompleted
		job.FinishedAt = &now
		s.completed = append(s.completed, job)

	case model.JobFailed:
		job.Metadata.Attempts++
		if cause != nil {
			job.Metadata.LastError = cause.Error()
		}
		if job.Metadata.Attempts < s.cfg.RetryAttempts {
			delay := computeRetryDelay(job.Metadata.Attempts, s.cfg.BackoffBase, s.cfg.BackoffMultiplier, s.cfg.BackoffCap)
			job.Metadata.RetryDelayMS = delay.Milliseconds()
			job.Status = model.JobPending
			job.StartedAt = nil
			job.ScheduledAt = now.Add(delay)
			heap.Push(&s.pending, job)
		} else {
			job.Status = model.JobFailed
			job.FinishedAt = &now
			s.failed = append(s.failed, job)
		}

	case model.JobCancelled:
		job.Metadata.CancelRequested = true
		job.Status = model.JobCancelled
		job.FinishedAt = &now
		s.failed = append(s.failed, job)
	}
}

// Cancel sets cancelRequested on a job. A pending job is removed
// immediately; a running job is left to terminate at its next
// suspension point, per spec.md §4.8.
func (s *Scheduler) Cancel(jobID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, j := range s.pending {
		if j.ID == jobID {
			heap.Remove(&s.pending, i)
			j.Metadata.CancelRequested = true
			j.Status = model.JobCancelled
			now := s.clock.Now()
			j.FinishedAt = &now
			s.failed = append(s.failed, j)
			return true
		}
	}
	if j, ok := s.running[jobID]; ok {
		j.Metadata.CancelRequested = true
		return true
	}
	return false
}

// HealthCheck force-fails any running job that has exceeded the
// configured stuck-timeout, returning their job IDs (spec.md §4.8).
func (s *Scheduler) HealthCheck() []string {
	s.mu.Lock()
	now := s.clock.Now()
	var stuck []string
	for id, j := range s.running {
		if j.StartedAt != nil && now.Sub(*j.StartedAt) > s.cfg.StuckTimeout {
			stuck = append(stuck, id)
		}
	}
	s.mu.Unlock()

	for _, id := range stuck {
		s.UpdateStatus(id, model.JobFailed, fmt.Errorf("job exceeded stuck timeout of %s", s.cfg.StuckTimeout))
	}
	return stuck
}

// CleanupOldJobs discards completed/failed jobs whose finishedAt is
// older than maxAge, returning how many were discarded.
func (s *Scheduler) CleanupOldJobs(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	before := len(s.completed) + len(s.failed)
	s.completed = pruneOld(s.completed, now, maxAge)
	s.failed = pruneOld(s.failed, now, maxAge)
	return before - len(s.completed) - len(s.failed)
}

func pruneOld(jobs []*model.Job, now time.Time, maxAge time.Duration) []*model.Job {
	var kept []*model.Job
	for _, j := range jobs {
		if j.FinishedAt != nil && now.Sub(*j.FinishedAt) > maxAge {
			continue
		}
		kept = append(kept, j)
	}
	return kept
}

// Snapshot returns counts for each lane, useful for stats/health reporting.
func (s *Scheduler) Snapshot() (pending, running, completed, failed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending), len(s.running), len(s.completed), len(s.failed)
}
