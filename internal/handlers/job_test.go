package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hireloop/hireloop-api/internal/authz"
	"github.com/hireloop/hireloop-api/internal/models"
	"github.com/hireloop/hireloop-api/internal/repository"
)

type stubJobRepo struct {
	jobs  []models.Job
	total int
}

func (s *stubJobRepo) List(ctx context.Context, filter repository.JobFilter) ([]models.Job, int, error) {
	start := filter.Offset()
	if start >= len(s.jobs) {
		return []models.Job{}, s.total, nil
	}
	end := start + filter.PageSize
	if end > len(s.jobs) {
		end = len(s.jobs)
	}
	return s.jobs[start:end], s.total, nil
}

func (s *stubJobRepo) ListByRun(ctx context.Context, runID string) ([]models.Job, error) {
	return s.jobs, nil
}

func (s *stubJobRepo) GetJob(ctx context.Context, jobID string) (models.Job, error) {
	for _, j := range s.jobs {
		if j.JobID == jobID {
			return j, nil
		}
	}
	return models.Job{}, repository.ErrNotFound
}

func (s *stubJobRepo) UpsertJob(ctx context.Context, job models.Job) error { return nil }

func seedJobs(n int) []models.Job {
	jobs := make([]models.Job, n)
	for i := range jobs {
		jobs[i] = models.Job{JobID: string(rune('a' + i)), Title: "Job"}
	}
	return jobs
}

func TestListJobsOutOfRangePage(t *testing.T) {
	repo := &stubJobRepo{jobs: seedJobs(5), total: 5}
	h := NewJobHandler(repo, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/jobs?page=99", nil)
	rec := httptest.NewRecorder()
	h.ListJobs(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Data  []models.Job `json:"data"`
		Total int          `json:"total"`
		Page  int          `json:"page"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Data) != 0 {
		t.Fatalf("out-of-range page should be empty, got %d rows", len(resp.Data))
	}
	if resp.Total != 5 {
		t.Fatalf("total must stay accurate, got %d", resp.Total)
	}
	if resp.Page != 99 {
		t.Fatalf("requested page should echo back, got %d", resp.Page)
	}
}

func TestListJobsRejectsMalformedDate(t *testing.T) {
	h := NewJobHandler(&stubJobRepo{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/jobs?dateFrom=01-03-2026", nil)
	rec := httptest.NewRecorder()
	h.ListJobs(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed date should be 400, got %d", rec.Code)
	}
}

func TestListJobsRunScopeRequiresCredential(t *testing.T) {
	h := NewJobHandler(&stubJobRepo{jobs: seedJobs(2), total: 2}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/jobs?run_id=r1", nil)
	rec := httptest.NewRecorder()
	h.ListJobs(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credential, got %d", rec.Code)
	}
}

func TestListJobsRunScopeWithCredential(t *testing.T) {
	const secret = "test-secret"
	h := NewJobHandler(&stubJobRepo{jobs: seedJobs(2), total: 2}, zerolog.Nop())
	guarded := authz.AttachRunAccess(secret)(http.HandlerFunc(h.ListJobs))

	token, _, err := authz.IssueRunCredential(secret, "r1", "vt", time.Hour)
	if err != nil {
		t.Fatalf("IssueRunCredential: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/jobs?run_id=r1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	guarded.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with matching credential, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestListJobsRunScopeWrongRun(t *testing.T) {
	const secret = "test-secret"
	h := NewJobHandler(&stubJobRepo{jobs: seedJobs(2), total: 2}, zerolog.Nop())
	guarded := authz.AttachRunAccess(secret)(http.HandlerFunc(h.ListJobs))

	token, _, err := authz.IssueRunCredential(secret, "other-run", "vt", time.Hour)
	if err != nil {
		t.Fatalf("IssueRunCredential: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/jobs?run_id=r1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	guarded.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("credential for another run must be rejected, got %d", rec.Code)
	}
}
