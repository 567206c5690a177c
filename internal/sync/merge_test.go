package sync

import (
	"testing"
	"time"

	"github.com/hireloop/hireloop-api/internal/models"
)

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func TestMergeJobNewerWins(t *testing.T) {
	older := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	existing := models.Job{
		JobID:     "j1",
		Title:     "Backend Engineer",
		Location:  strPtr("Berlin"),
		UpdatedAt: timePtr(older),
	}
	incoming := models.Job{
		JobID:     "j1",
		Title:     "Senior Backend Engineer",
		UpdatedAt: timePtr(newer),
	}

	merged := MergeJob(existing, incoming)
	if merged.Title != "Senior Backend Engineer" {
		t.Fatalf("expected newer title to win, got %q", merged.Title)
	}
	if merged.Location == nil || *merged.Location != "Berlin" {
		t.Fatalf("expected missing location backfilled from older row")
	}
}

func TestMergeJobStaleDeliveryCannotRegress(t *testing.T) {
	older := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	fresh := models.Job{JobID: "j1", Title: "Senior Backend Engineer", UpdatedAt: timePtr(newer)}
	stale := models.Job{JobID: "j1", Title: "Backend Engineer", Salary: strPtr("90k"), UpdatedAt: timePtr(older)}

	merged := MergeJob(fresh, stale)
	if merged.Title != "Senior Backend Engineer" {
		t.Fatalf("stale delivery regressed title to %q", merged.Title)
	}
	if merged.Salary == nil || *merged.Salary != "90k" {
		t.Fatalf("expected salary backfilled from stale row")
	}
}

func TestMergeJobCommutative(t *testing.T) {
	older := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	a := models.Job{JobID: "j1", Title: "A", Location: strPtr("Remote"), UpdatedAt: timePtr(older)}
	b := models.Job{JobID: "j1", Title: "B", Salary: strPtr("100k"), UpdatedAt: timePtr(newer)}

	ab := MergeJob(a, b)
	ba := MergeJob(b, a)
	if ab.Title != ba.Title || *ab.Location != *ba.Location || *ab.Salary != *ba.Salary {
		t.Fatalf("merge order changed outcome: %+v vs %+v", ab, ba)
	}
}

func TestMergeJobMissingUpdatedAtTreatedOldest(t *testing.T) {
	known := models.Job{JobID: "j1", Title: "Known", UpdatedAt: timePtr(time.Now())}
	unknown := models.Job{JobID: "j1", Title: "Unknown", Tags: []string{"go"}}

	merged := MergeJob(known, unknown)
	if merged.Title != "Known" {
		t.Fatalf("row without updated_at should lose, got title %q", merged.Title)
	}
	if len(merged.Tags) != 1 {
		t.Fatalf("expected tags backfilled")
	}
}
