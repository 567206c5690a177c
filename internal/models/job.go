package models

import "time"

// Job is one discovered posting. Rows are written by the producer during a
// run; the API only ever reads them. The job_id is unique across the whole
// store, not just within one run, and the same physical posting found again
// by a later run is a distinct row linked to that run.
type Job struct {
	JobID          string     `json:"job_id" db:"job_id"`
	Title          string     `json:"title" db:"title"`
	CompanyName    string     `json:"company_name" db:"company_name"`
	CompanyID      *string    `json:"company_id,omitempty" db:"company_id"`
	Location       *string    `json:"location,omitempty" db:"location"`
	Salary         *string    `json:"salary,omitempty" db:"salary"`
	PostedAt       *time.Time `json:"posted_at,omitempty" db:"posted_at"`
	Source         *string    `json:"source,omitempty" db:"source"`
	SourceType     *string    `json:"source_type,omitempty" db:"source_type"`
	Link           *string    `json:"link,omitempty" db:"link"`
	Function       *string    `json:"function,omitempty" db:"function"`
	ScheduleType   *string    `json:"schedule_type,omitempty" db:"schedule_type"`
	Tags           []string   `json:"tags,omitempty" db:"tags"`
	RelevanceScore *float64   `json:"relevance_score,omitempty" db:"relevance_score"`
	RunID          *string    `json:"run_id,omitempty" db:"run_id"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at,omitempty" db:"updated_at"`
	ScrapedAt      time.Time  `json:"scraped_at" db:"scraped_at"`
}

// Company is the normalized employer entity. A Job carries a denormalized
// company_name from insert time; the company_id linkage appears later, once
// upstream resolution finishes.
type Company struct {
	CompanyID string    `json:"company_id" db:"company_id"`
	Name      string    `json:"name" db:"name"`
	Domain    *string   `json:"domain,omitempty" db:"domain"`
	Industry  *string   `json:"industry,omitempty" db:"industry"`
	LinkedIn  *string   `json:"linkedin,omitempty" db:"linkedin"`
	Size      *string   `json:"size,omitempty" db:"size"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
