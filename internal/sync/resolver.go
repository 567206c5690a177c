package sync

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hireloop/hireloop-api/internal/models"
)

// ContactSource is the slice of the contact store the resolver reads.
type ContactSource interface {
	ListByCompany(ctx context.Context, companyID string) ([]models.Contact, error)
}

// Selection is the outcome of resolving contacts for one selected job.
type Selection struct {
	Job      models.Job       `json:"job"`
	Contacts []models.Contact `json:"contacts"`
	Err      error            `json:"-"`
}

// ContactResolver loads the contact list for whichever job the viewer
// selected most recently. Selecting a new job cancels any in-flight load,
// so a slow fetch for an earlier selection can never overwrite a later one.
type ContactResolver struct {
	contacts ContactSource
	logger   zerolog.Logger

	mu         sync.Mutex
	generation uint64
	cancel     context.CancelFunc

	results chan Selection
}

func NewContactResolver(contacts ContactSource, logger zerolog.Logger) *ContactResolver {
	return &ContactResolver{
		contacts: contacts,
		logger:   logger.With().Str("component", "contact_resolver").Logger(),
		results:  make(chan Selection, 1),
	}
}

// Results delivers the resolution for the latest selection only; a stale
// pending result is replaced, never queued behind.
func (r *ContactResolver) Results() <-chan Selection {
	return r.results
}

// Select resolves contacts for job. The call returns immediately; the
// outcome arrives on Results. A job without a known company resolves to an
// empty contact list without touching the store.
func (r *ContactResolver) Select(ctx context.Context, job models.Job) {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.generation++
	gen := r.generation
	loadCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.mu.Unlock()

	go func() {
		defer cancel()
		sel := Selection{Job: job, Contacts: []models.Contact{}}
		if job.CompanyID != nil && *job.CompanyID != "" {
			contacts, err := r.contacts.ListByCompany(loadCtx, *job.CompanyID)
			if err != nil {
				if loadCtx.Err() != nil {
					return // superseded, drop silently
				}
				r.logger.Warn().Err(err).Str("job_id", job.JobID).Msg("Contact load failed")
				sel.Err = err
			} else if contacts != nil {
				sel.Contacts = contacts
			}
		}
		r.deliver(gen, sel)
	}()
}

// Close cancels any in-flight load.
func (r *ContactResolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

// deliver publishes sel unless a newer selection has been made. The lock
// is held across the staleness check and the send so Select cannot bump
// the generation in between; the drain-then-send loop on a buffered
// channel never blocks, so holding the lock here is safe.
func (r *ContactResolver) deliver(gen uint64, sel Selection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation {
		return
	}
	for {
		select {
		case r.results <- sel:
			return
		default:
			select {
			case <-r.results:
			default:
			}
		}
	}
}
