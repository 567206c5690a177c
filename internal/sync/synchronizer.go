// Package sync keeps a per-run view of the job collection consistent with
// the store while an external producer is still appending to it. It layers
// a best-effort change subscription (latency) over a polling loop
// (correctness) and merges both through the same idempotent upsert-by-key
// path, so delivery order and duplicates never affect the final state.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/hireloop/hireloop-api/internal/authz"
	"github.com/hireloop/hireloop-api/internal/models"
)

// RunSource is the slice of the run registry the synchronizer reads.
type RunSource interface {
	GetRun(ctx context.Context, runID string) (models.Run, error)
}

// JobSource is the authoritative job fetch for one run.
type JobSource interface {
	ListByRun(ctx context.Context, runID string) ([]models.Job, error)
}

// Options tune the polling and failure behaviour.
type Options struct {
	PollInterval time.Duration
	MaxBackoff   time.Duration
	// MaxRetries is how many consecutive poll failures stay invisible
	// before the error is surfaced (once, non-blocking).
	MaxRetries int
	// SoftDeadline bounds backoff escalation for runs that never turn
	// terminal; past it the loop keeps polling at a steady rate and the
	// view stays in its collecting state. Only the producer's own failed
	// status ever declares failure.
	SoftDeadline time.Duration
	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.PollInterval == 0 {
		o.PollInterval = 3 * time.Second
	}
	if o.MaxBackoff == 0 {
		o.MaxBackoff = 30 * time.Second
	}
	if o.MaxRetries == 0 {
		o.MaxRetries = 5
	}
	if o.SoftDeadline == 0 {
		o.SoftDeadline = 10 * time.Minute
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Snapshot is one immutable view of the synchronized state. Jobs are sorted
// the same way the listing query sorts (posted_at desc nulls last, then
// created_at desc).
type Snapshot struct {
	Phase      models.RunStatus `json:"phase"`
	Jobs       []models.Job     `json:"jobs"`
	Stats      json.RawMessage  `json:"stats,omitempty"`
	StopReason string           `json:"stop_reason,omitempty"`
	// Err carries a sync error surfaced after the retry bound. The view
	// keeps whatever partial data it has.
	Err error `json:"-"`
}

// Synchronizer owns the jobsByID state for one active run. All mutation
// happens on the Run goroutine; consumers only ever see Snapshot copies.
type Synchronizer struct {
	claims authz.RunClaims
	runs   RunSource
	jobs   JobSource
	feed   Feed
	opts   Options
	logger zerolog.Logger

	jobsByID   map[string]models.Job
	phase      models.RunStatus
	stats      json.RawMessage
	stopReason string

	updates chan Snapshot
}

func New(claims authz.RunClaims, runs RunSource, jobs JobSource, feed Feed, opts Options, logger zerolog.Logger) *Synchronizer {
	return &Synchronizer{
		claims:   claims,
		runs:     runs,
		jobs:     jobs,
		feed:     feed,
		opts:     opts.withDefaults(),
		logger:   logger.With().Str("component", "synchronizer").Str("run_id", claims.RunID).Logger(),
		jobsByID: make(map[string]models.Job),
		phase:    models.RunStatusPending,
		updates:  make(chan Snapshot, 1),
	}
}

// Updates delivers the latest snapshot. Only the most recent pending
// snapshot is kept; a slow consumer never blocks the sync loop.
func (s *Synchronizer) Updates() <-chan Snapshot {
	return s.updates
}

// Run drives the synchronizer until the run reaches a terminal state or ctx
// is cancelled. Cancelling ctx is the deactivation path: the subscription
// and all timers are torn down before Run returns, nothing survives it.
func (s *Synchronizer) Run(ctx context.Context) error {
	// Fail closed before anything else: an absent or expired credential
	// means no store call is ever issued.
	if s.claims.IsExpired(s.opts.Now()) {
		s.phase = models.RunStatusFailed
		s.emit(Snapshot{Err: authz.ErrCredentialExpired})
		return authz.ErrCredentialExpired
	}
	start := s.opts.Now()

	// One authoritative fetch seeds the state, so a run that finished
	// before the subscription attaches still renders complete.
	if err := s.refresh(ctx); err != nil {
		if terminalErr := s.asTerminal(err); terminalErr != nil {
			return terminalErr
		}
		s.logger.Warn().Err(err).Msg("Initial fetch failed, polling will retry")
	}
	s.emitCurrent(nil)
	if s.phase.IsTerminal() {
		return nil
	}

	events, cancelSub, err := s.feed.Subscribe(ctx, s.claims.RunID)
	if err != nil {
		// The feed is best-effort; polling alone is still correct.
		s.logger.Warn().Err(err).Msg("Change subscription unavailable, falling back to polling only")
		events, cancelSub = nil, func() {}
	}
	defer cancelSub()

	interval := s.opts.PollInterval
	failures := 0
	surfaced := false
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case evt, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			s.apply(evt)
			s.emitCurrent(nil)
			if s.phase.IsTerminal() {
				return s.flush(ctx, events)
			}

		case <-timer.C:
			if s.claims.IsExpired(s.opts.Now()) {
				s.phase = models.RunStatusFailed
				s.emitCurrent(authz.ErrCredentialExpired)
				return authz.ErrCredentialExpired
			}
			err := s.refresh(ctx)
			switch {
			case err == nil:
				failures = 0
				surfaced = false
				interval = s.opts.PollInterval
				s.emitCurrent(nil)
			case errors.Is(err, authz.ErrCredentialExpired):
				return s.asTerminal(err)
			default:
				failures++
				s.logger.Warn().Err(err).Int("failures", failures).Msg("Poll failed")
				if s.opts.Now().Sub(start) < s.opts.SoftDeadline {
					interval = nextBackoff(interval, s.opts.MaxBackoff)
				}
				if failures >= s.opts.MaxRetries && !surfaced {
					surfaced = true
					s.emitCurrent(err)
				}
			}
			if s.phase.IsTerminal() {
				return s.flush(ctx, events)
			}
			timer.Reset(interval)
		}
	}
}

// refresh is the pull path: refetch the run and its full job collection and
// merge through the same upsert-by-key path the subscription uses.
func (s *Synchronizer) refresh(ctx context.Context) error {
	run, err := s.runs.GetRun(ctx, s.claims.RunID)
	if err != nil {
		return err
	}
	jobs, err := s.jobs.ListByRun(ctx, s.claims.RunID)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		s.upsert(job)
	}
	s.stats = run.Stats
	s.advancePhase(run.Status, run.StopReason)
	return nil
}

func (s *Synchronizer) apply(evt Event) {
	switch evt.Kind {
	case EventJobUpserted:
		if evt.Job != nil {
			s.upsert(*evt.Job)
		}
	case EventRunStatus:
		s.advancePhase(evt.Status, evt.StopReason)
	}
}

func (s *Synchronizer) upsert(job models.Job) {
	if job.JobID == "" {
		return
	}
	if existing, ok := s.jobsByID[job.JobID]; ok {
		s.jobsByID[job.JobID] = MergeJob(existing, job)
	} else {
		s.jobsByID[job.JobID] = job
	}
}

// advancePhase applies a status observation under the monotonic rule: once
// terminal, no event or stale poll result moves the phase again.
func (s *Synchronizer) advancePhase(status models.RunStatus, stopReason *string) {
	if !models.CanTransition(s.phase, status) {
		return
	}
	s.phase = status
	if stopReason != nil {
		s.stopReason = *stopReason
	}
}

// flush keeps the subscription open one final interval after the terminal
// transition so events published just before the status flip still land,
// then lets the deferred unsubscribe tear it down.
func (s *Synchronizer) flush(ctx context.Context, events <-chan Event) error {
	if events == nil {
		return nil
	}
	window := time.NewTimer(s.opts.PollInterval)
	defer window.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-events:
			if !ok {
				return nil
			}
			if evt.Kind == EventJobUpserted && evt.Job != nil {
				s.upsert(*evt.Job)
				s.emitCurrent(nil)
			}
		case <-window.C:
			return nil
		}
	}
}

func (s *Synchronizer) asTerminal(err error) error {
	if errors.Is(err, authz.ErrCredentialExpired) {
		s.phase = models.RunStatusFailed
		s.emitCurrent(err)
		return err
	}
	return nil
}

func (s *Synchronizer) emitCurrent(err error) {
	snap := Snapshot{
		Phase:      s.phase,
		Jobs:       s.sortedJobs(),
		Stats:      s.stats,
		StopReason: s.stopReason,
		Err:        err,
	}
	s.emit(snap)
}

func (s *Synchronizer) emit(snap Snapshot) {
	if snap.Phase == "" {
		snap.Phase = s.phase
	}
	for {
		select {
		case s.updates <- snap:
			return
		default:
			// Drop the stale pending snapshot in favour of this one.
			select {
			case <-s.updates:
			default:
			}
		}
	}
}

func (s *Synchronizer) sortedJobs() []models.Job {
	jobs := make([]models.Job, 0, len(s.jobsByID))
	for _, job := range s.jobsByID {
		jobs = append(jobs, job)
	}
	sort.SliceStable(jobs, func(i, k int) bool {
		a, b := jobs[i], jobs[k]
		switch {
		case a.PostedAt == nil && b.PostedAt == nil:
			// fall through to created_at
		case a.PostedAt == nil:
			return false
		case b.PostedAt == nil:
			return true
		case !a.PostedAt.Equal(*b.PostedAt):
			return a.PostedAt.After(*b.PostedAt)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.JobID < b.JobID
	})
	return jobs
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}
