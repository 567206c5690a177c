package repository

import (
	"net/url"
	"strings"
	"testing"
)

func TestParseJobFilterDefaults(t *testing.T) {
	f, err := ParseJobFilter(url.Values{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.Page != 1 || f.PageSize != 20 {
		t.Fatalf("unexpected defaults: page=%d limit=%d", f.Page, f.PageSize)
	}
}

func TestParseJobFilterRejectsMalformedDate(t *testing.T) {
	cases := []string{"03-01-2026", "2026/03/01", "yesterday", "2026-13-40"}
	for _, raw := range cases {
		_, err := ParseJobFilter(url.Values{"dateFrom": {raw}})
		if err == nil {
			t.Fatalf("date %q should have been rejected", raw)
		}
		verr, ok := err.(*ValidationError)
		if !ok {
			t.Fatalf("expected ValidationError, got %T", err)
		}
		if verr.Field != "dateFrom" {
			t.Fatalf("wrong field: %s", verr.Field)
		}
	}
}

func TestParseJobFilterRejectsInvertedRange(t *testing.T) {
	_, err := ParseJobFilter(url.Values{
		"dateFrom": {"2026-03-10"},
		"dateTo":   {"2026-03-01"},
	})
	if err == nil {
		t.Fatal("inverted date range should have been rejected")
	}
}

func TestParseJobFilterCapsPageSize(t *testing.T) {
	f, err := ParseJobFilter(url.Values{"limit": {"500"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.PageSize != 100 {
		t.Fatalf("limit should cap at 100, got %d", f.PageSize)
	}
}

func TestParseJobFilterRejectsBadPage(t *testing.T) {
	for _, raw := range []string{"0", "-1", "two"} {
		if _, err := ParseJobFilter(url.Values{"page": {raw}}); err == nil {
			t.Fatalf("page %q should have been rejected", raw)
		}
	}
}

func TestResetPageOnChange(t *testing.T) {
	prev, _ := ParseJobFilter(url.Values{"search": {"go"}, "page": {"4"}})

	// Same criteria, new page: page change passes through.
	next, _ := ParseJobFilter(url.Values{"search": {"go"}, "page": {"5"}})
	got := ResetPageOnChange(prev, next)
	if got.Page != 5 {
		t.Fatalf("pagination-only change reset the page to %d", got.Page)
	}

	// Criteria changed: page snaps back to 1.
	next, _ = ParseJobFilter(url.Values{"search": {"rust"}, "page": {"5"}})
	got = ResetPageOnChange(prev, next)
	if got.Page != 1 {
		t.Fatalf("criteria change should reset page, got %d", got.Page)
	}
}

func TestOffsetMath(t *testing.T) {
	f := JobFilter{Page: 3, PageSize: 20}
	if f.Offset() != 40 {
		t.Fatalf("expected offset 40, got %d", f.Offset())
	}
	f = JobFilter{Page: 1, PageSize: 50}
	if f.Offset() != 0 {
		t.Fatalf("first page offset should be 0, got %d", f.Offset())
	}
}

func TestBuildJobQueryDeterministic(t *testing.T) {
	values := url.Values{
		"search":      {"engineer"},
		"company":     {"acme"},
		"location":    {"berlin"},
		"hasContacts": {"true"},
		"dateFrom":    {"2026-01-01"},
	}
	f, err := ParseJobFilter(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	where1, args1 := BuildJobQuery(f)
	where2, args2 := BuildJobQuery(f)
	if where1 != where2 || len(args1) != len(args2) {
		t.Fatal("identical filters produced different queries")
	}
	if !strings.Contains(where1, "EXISTS") {
		t.Fatal("hasContacts filter missing EXISTS subquery")
	}
	if !strings.Contains(where1, "ILIKE") {
		t.Fatal("text filters should be case-insensitive")
	}
}

func TestBuildJobQueryEmptyFilter(t *testing.T) {
	where, args := BuildJobQuery(JobFilter{Page: 1, PageSize: 20})
	if where != "" {
		t.Fatalf("empty filter should produce no WHERE clause, got %q", where)
	}
	if len(args) != 0 {
		t.Fatalf("empty filter should produce no args, got %d", len(args))
	}
}
