package sync

import "github.com/hireloop/hireloop-api/internal/models"

// MergeJob combines an incoming job snapshot into the locally known row.
// The merge is commutative and idempotent: duplicate or reordered delivery
// across the subscription and the poll path converges on the same row, and
// a field present in at least one delivered snapshot is never lost. Row
// freshness is decided by updated_at, not arrival order, so a stale
// snapshot arriving late cannot regress newer fields.
func MergeJob(existing, incoming models.Job) models.Job {
	if olderThan(incoming, existing) {
		return fillMissing(existing, incoming)
	}
	return fillMissing(incoming, existing)
}

// olderThan reports whether a carries a strictly older updated_at than b.
// Rows without updated_at are treated as oldest.
func olderThan(a, b models.Job) bool {
	if a.UpdatedAt == nil {
		return b.UpdatedAt != nil
	}
	if b.UpdatedAt == nil {
		return false
	}
	return a.UpdatedAt.Before(*b.UpdatedAt)
}

// fillMissing keeps every field of the winning row and backfills fields it
// does not carry from the losing one.
func fillMissing(win, lose models.Job) models.Job {
	if win.Title == "" {
		win.Title = lose.Title
	}
	if win.CompanyName == "" {
		win.CompanyName = lose.CompanyName
	}
	if win.CompanyID == nil {
		win.CompanyID = lose.CompanyID
	}
	if win.Location == nil {
		win.Location = lose.Location
	}
	if win.Salary == nil {
		win.Salary = lose.Salary
	}
	if win.PostedAt == nil {
		win.PostedAt = lose.PostedAt
	}
	if win.Source == nil {
		win.Source = lose.Source
	}
	if win.SourceType == nil {
		win.SourceType = lose.SourceType
	}
	if win.Link == nil {
		win.Link = lose.Link
	}
	if win.Function == nil {
		win.Function = lose.Function
	}
	if win.ScheduleType == nil {
		win.ScheduleType = lose.ScheduleType
	}
	if len(win.Tags) == 0 {
		win.Tags = lose.Tags
	}
	if win.RelevanceScore == nil {
		win.RelevanceScore = lose.RelevanceScore
	}
	if win.RunID == nil {
		win.RunID = lose.RunID
	}
	if win.UpdatedAt == nil {
		win.UpdatedAt = lose.UpdatedAt
	}
	if win.CreatedAt.IsZero() {
		win.CreatedAt = lose.CreatedAt
	}
	if win.ScrapedAt.IsZero() {
		win.ScrapedAt = lose.ScrapedAt
	}
	return win
}
