package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hireloop/hireloop-api/internal/models"
	"github.com/hireloop/hireloop-api/internal/repository"
)

type fakeContacts struct {
	contact models.Contact
}

func (f *fakeContacts) ListByCompany(ctx context.Context, companyID string) ([]models.Contact, error) {
	return nil, nil
}

func (f *fakeContacts) GetContact(ctx context.Context, contactID string) (models.Contact, error) {
	if contactID != f.contact.ContactID {
		return models.Contact{}, repository.ErrNotFound
	}
	return f.contact, nil
}

func (f *fakeContacts) UpsertContact(ctx context.Context, contact models.Contact) error {
	return nil
}

type fakeJobs struct {
	job models.Job
}

func (f *fakeJobs) List(ctx context.Context, filter repository.JobFilter) ([]models.Job, int, error) {
	return nil, 0, nil
}

func (f *fakeJobs) ListByRun(ctx context.Context, runID string) ([]models.Job, error) {
	return nil, nil
}

func (f *fakeJobs) GetJob(ctx context.Context, jobID string) (models.Job, error) {
	if jobID != f.job.JobID {
		return models.Job{}, repository.ErrNotFound
	}
	return f.job, nil
}

func (f *fakeJobs) UpsertJob(ctx context.Context, job models.Job) error {
	return nil
}

type fakeMessages struct {
	created int32
	last    models.OutreachMessage
}

func (f *fakeMessages) CreateMessage(ctx context.Context, msg models.OutreachMessage) (models.OutreachMessage, error) {
	atomic.AddInt32(&f.created, 1)
	msg.CreatedAt = time.Now()
	msg.UpdatedAt = msg.CreatedAt
	f.last = msg
	return msg, nil
}

func (f *fakeMessages) LatestForPair(ctx context.Context, contactID, jobID string) (models.OutreachMessage, error) {
	return f.last, nil
}

func newTestGateway(url string) (*MessageGateway, *fakeMessages) {
	contacts := &fakeContacts{contact: models.Contact{ContactID: "c1", Name: "Alice"}}
	jobs := &fakeJobs{job: models.Job{JobID: "j1", Title: "Engineer"}}
	messages := &fakeMessages{}
	gw := NewMessageGateway(url, time.Second, contacts, jobs, messages, zerolog.Nop())
	return gw, messages
}

func TestGeneratePersistsDraft(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"subject": "Hello", "body": "Saw your posting."}`))
	}))
	defer srv.Close()

	gw, messages := newTestGateway(srv.URL)
	msg, err := gw.Generate(context.Background(), "c1", "j1", "friendly", "")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if msg.Subject != "Hello" || msg.Body != "Saw your posting." {
		t.Fatalf("unexpected draft: %+v", msg)
	}
	if msg.Channel != "email" {
		t.Fatalf("expected default channel email, got %q", msg.Channel)
	}
	if msg.Status != models.MessageDraft {
		t.Fatalf("expected draft status, got %s", msg.Status)
	}
	if atomic.LoadInt32(&messages.created) != 1 {
		t.Fatalf("expected one persisted message, got %d", messages.created)
	}
}

func TestGenerateFailureLeavesStoreUntouched(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>error</html>"))
	}))
	defer srv.Close()

	gw, messages := newTestGateway(srv.URL)
	_, err := gw.Generate(context.Background(), "c1", "j1", "", "email")
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
	if atomic.LoadInt32(&messages.created) != 0 {
		t.Fatal("failed generation must not persist a message")
	}
}

func TestGenerateUnknownContact(t *testing.T) {
	gw, messages := newTestGateway("http://unused.invalid")
	_, err := gw.Generate(context.Background(), "missing", "j1", "", "")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if atomic.LoadInt32(&messages.created) != 0 {
		t.Fatal("lookup failure must not persist a message")
	}
}
