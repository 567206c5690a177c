package sync

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hireloop/hireloop-api/internal/models"
)

// EventKind discriminates change-feed envelopes.
type EventKind string

const (
	EventJobUpserted EventKind = "job_upserted"
	EventRunStatus   EventKind = "run_status"
)

// Event is one change notification for a run: either a job row was
// inserted/updated, or the run's status moved.
type Event struct {
	Kind       EventKind        `json:"kind"`
	Job        *models.Job      `json:"job,omitempty"`
	Status     models.RunStatus `json:"status,omitempty"`
	StopReason *string          `json:"stop_reason,omitempty"`
}

// Feed is the push half of the hybrid sync: a best-effort, per-run change
// subscription. It may drop, reconnect, or silently stop; the polling loop
// is the correctness backstop.
type Feed interface {
	Subscribe(ctx context.Context, runID string) (<-chan Event, func(), error)
}

// Publisher is the producer-side half of the feed.
type Publisher interface {
	PublishJobUpserted(ctx context.Context, runID string, job models.Job) error
	PublishRunStatus(ctx context.Context, runID string, status models.RunStatus, stopReason *string) error
}

func runChannel(runID string) string {
	return "run:" + runID
}

// RedisFeed carries change events over one redis pub/sub channel per run.
type RedisFeed struct {
	client *redis.Client
	logger zerolog.Logger
}

func NewRedisFeed(client *redis.Client, logger zerolog.Logger) *RedisFeed {
	return &RedisFeed{
		client: client,
		logger: logger.With().Str("component", "change_feed").Logger(),
	}
}

func (f *RedisFeed) Subscribe(ctx context.Context, runID string) (<-chan Event, func(), error) {
	sub := f.client.Subscribe(ctx, runChannel(runID))
	// Force the SUBSCRIBE onto the wire so a broken connection fails here
	// rather than silently delivering nothing.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, nil, err
	}

	events := make(chan Event, 64)
	go func() {
		defer close(events)
		for msg := range sub.Channel() {
			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				f.logger.Warn().Err(err).Str("run_id", runID).Msg("Dropping malformed feed event")
				continue
			}
			select {
			case events <- evt:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() {
		if err := sub.Close(); err != nil {
			f.logger.Warn().Err(err).Str("run_id", runID).Msg("Closing feed subscription failed")
		}
	}
	return events, cancel, nil
}

func (f *RedisFeed) publish(ctx context.Context, runID string, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, runChannel(runID), payload).Err()
}

func (f *RedisFeed) PublishJobUpserted(ctx context.Context, runID string, job models.Job) error {
	return f.publish(ctx, runID, Event{Kind: EventJobUpserted, Job: &job})
}

func (f *RedisFeed) PublishRunStatus(ctx context.Context, runID string, status models.RunStatus, stopReason *string) error {
	return f.publish(ctx, runID, Event{Kind: EventRunStatus, Status: status, StopReason: stopReason})
}
