package sync

import (
	"context"
	stdsync "sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hireloop/hireloop-api/internal/models"
)

type scriptedContacts struct {
	mu      stdsync.Mutex
	calls   int
	byID    map[string][]models.Contact
	blockOn map[string]chan struct{}
}

func (f *scriptedContacts) ListByCompany(ctx context.Context, companyID string) ([]models.Contact, error) {
	f.mu.Lock()
	f.calls++
	block := f.blockOn[companyID]
	contacts := f.byID[companyID]
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return contacts, nil
}

func (f *scriptedContacts) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestLastSelectionWins(t *testing.T) {
	releaseA := make(chan struct{})
	contacts := &scriptedContacts{
		byID: map[string][]models.Contact{
			"company-a": {{ContactID: "ca", Name: "Slow Alice"}},
			"company-b": {{ContactID: "cb", Name: "Fast Bob"}},
		},
		blockOn: map[string]chan struct{}{"company-a": releaseA},
	}
	r := NewContactResolver(contacts, zerolog.Nop())
	defer r.Close()

	companyA, companyB := "company-a", "company-b"
	jobA := models.Job{JobID: "ja", CompanyID: &companyA}
	jobB := models.Job{JobID: "jb", CompanyID: &companyB}

	ctx := context.Background()
	r.Select(ctx, jobA)
	r.Select(ctx, jobB)

	select {
	case sel := <-r.Results():
		if sel.Job.JobID != "jb" {
			t.Fatalf("expected result for later selection, got %s", sel.Job.JobID)
		}
		if len(sel.Contacts) != 1 || sel.Contacts[0].ContactID != "cb" {
			t.Fatalf("unexpected contacts: %+v", sel.Contacts)
		}
	case <-time.After(time.Second):
		t.Fatal("no resolution for the later selection")
	}

	// Unblock the earlier load; its result must never surface.
	close(releaseA)
	select {
	case sel := <-r.Results():
		t.Fatalf("superseded selection delivered: %+v", sel)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStaleDeliveryNeverSurfaces(t *testing.T) {
	contacts := &scriptedContacts{
		byID: map[string][]models.Contact{
			"company-b": {{ContactID: "cb", Name: "Bob"}},
		},
	}
	r := NewContactResolver(contacts, zerolog.Nop())
	defer r.Close()

	companyB := "company-b"
	r.Select(context.Background(), models.Job{JobID: "jb", CompanyID: &companyB})
	select {
	case sel := <-r.Results():
		if sel.Job.JobID != "jb" {
			t.Fatalf("unexpected result: %+v", sel)
		}
	case <-time.After(time.Second):
		t.Fatal("no resolution delivered")
	}

	// A load for an earlier selection finishing after the newer result
	// was already consumed must be dropped, not re-published.
	r.mu.Lock()
	staleGen := r.generation - 1
	r.mu.Unlock()
	r.deliver(staleGen, Selection{Job: models.Job{JobID: "ja"}})

	select {
	case sel := <-r.Results():
		t.Fatalf("stale delivery surfaced: %+v", sel)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestJobWithoutCompanyResolvesEmpty(t *testing.T) {
	contacts := &scriptedContacts{}
	r := NewContactResolver(contacts, zerolog.Nop())
	defer r.Close()

	r.Select(context.Background(), models.Job{JobID: "j1"})

	select {
	case sel := <-r.Results():
		if len(sel.Contacts) != 0 {
			t.Fatalf("expected empty contacts, got %+v", sel.Contacts)
		}
		if sel.Err != nil {
			t.Fatalf("unexpected error: %v", sel.Err)
		}
	case <-time.After(time.Second):
		t.Fatal("no resolution delivered")
	}
	if contacts.callCount() != 0 {
		t.Fatalf("expected no store calls, got %d", contacts.callCount())
	}
}
