package repository

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ValidationError is a field-level rejection raised at the query boundary.
// Malformed input is never coerced or sent upstream.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// JobFilter is the declarative filter for the job listing. A nil RunID is
// browse mode; a set RunID scopes the same query path to one run. Both
// modes share a single composition, run scope is just one more predicate.
type JobFilter struct {
	RunID       *string
	Search      string
	Company     string
	Location    string
	Source      string
	DateFrom    *time.Time
	DateTo      *time.Time
	HasContacts bool
	Page        int
	PageSize    int
}

// ParseJobFilter reads a filter from request query parameters, validating
// dates and bounds at the boundary.
func ParseJobFilter(values url.Values) (JobFilter, error) {
	f := JobFilter{Page: 1, PageSize: defaultPageSize}

	if v := values.Get("run_id"); v != "" {
		runID := v
		f.RunID = &runID
	}
	f.Search = strings.TrimSpace(values.Get("search"))
	f.Company = strings.TrimSpace(values.Get("company"))
	f.Location = strings.TrimSpace(values.Get("location"))
	f.Source = strings.TrimSpace(values.Get("source"))

	if v := values.Get("dateFrom"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, &ValidationError{Field: "dateFrom", Reason: "expected YYYY-MM-DD"}
		}
		f.DateFrom = &t
	}
	if v := values.Get("dateTo"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, &ValidationError{Field: "dateTo", Reason: "expected YYYY-MM-DD"}
		}
		f.DateTo = &t
	}
	if f.DateFrom != nil && f.DateTo != nil && f.DateTo.Before(*f.DateFrom) {
		return f, &ValidationError{Field: "dateTo", Reason: "before dateFrom"}
	}

	if v := values.Get("hasContacts"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, &ValidationError{Field: "hasContacts", Reason: "expected boolean"}
		}
		f.HasContacts = b
	}

	if v := values.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, &ValidationError{Field: "page", Reason: "expected positive integer"}
		}
		f.Page = n
	}
	if v := values.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return f, &ValidationError{Field: "limit", Reason: "expected positive integer"}
		}
		if n > maxPageSize {
			n = maxPageSize
		}
		f.PageSize = n
	}

	return f, nil
}

// SameCriteria reports whether two filters select the same rows, ignoring
// pagination.
func (f JobFilter) SameCriteria(other JobFilter) bool {
	sameRun := (f.RunID == nil) == (other.RunID == nil) &&
		(f.RunID == nil || *f.RunID == *other.RunID)
	sameFrom := (f.DateFrom == nil) == (other.DateFrom == nil) &&
		(f.DateFrom == nil || f.DateFrom.Equal(*other.DateFrom))
	sameTo := (f.DateTo == nil) == (other.DateTo == nil) &&
		(f.DateTo == nil || f.DateTo.Equal(*other.DateTo))
	return sameRun && sameFrom && sameTo &&
		f.Search == other.Search &&
		f.Company == other.Company &&
		f.Location == other.Location &&
		f.Source == other.Source &&
		f.HasContacts == other.HasContacts
}

// ResetPageOnChange returns next with its page forced back to 1 whenever any
// filter criterion differs from prev. Pagination-only changes pass through.
func ResetPageOnChange(prev, next JobFilter) JobFilter {
	if !next.SameCriteria(prev) {
		next.Page = 1
	}
	return next
}

// BuildJobQuery composes the WHERE clause and arguments for a filter. Pure:
// identical filters always produce identical SQL and argument lists, so a
// repeated query over an unchanged dataset is deterministic.
func BuildJobQuery(f JobFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.RunID != nil {
		conds = append(conds, "j.run_id = "+arg(*f.RunID))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		conds = append(conds, fmt.Sprintf("(j.title ILIKE %s OR j.company_name ILIKE %s)", p, p))
	}
	if f.Company != "" {
		conds = append(conds, "j.company_name ILIKE "+arg("%"+f.Company+"%"))
	}
	if f.DateFrom != nil {
		conds = append(conds, "j.posted_at >= "+arg(*f.DateFrom))
	}
	if f.DateTo != nil {
		conds = append(conds, "j.posted_at <= "+arg(*f.DateTo))
	}
	if f.Location != "" {
		conds = append(conds, "j.location ILIKE "+arg("%"+f.Location+"%"))
	}
	if f.Source != "" {
		p := arg("%" + f.Source + "%")
		conds = append(conds, fmt.Sprintf("(j.source ILIKE %s OR j.source_type ILIKE %s)", p, p))
	}
	if f.HasContacts {
		conds = append(conds, "EXISTS (SELECT 1 FROM contacts c WHERE c.company_id = j.company_id)")
	}

	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// Offset is the 1-based page converted to a row offset.
func (f JobFilter) Offset() int {
	return (f.Page - 1) * f.PageSize
}
