package models

import "time"

// EmailStatus is the verification state of a contact's email address.
type EmailStatus string

const (
	EmailVerified   EmailStatus = "verified"
	EmailUnverified EmailStatus = "unverified"
	EmailPending    EmailStatus = "pending"
	EmailUnknown    EmailStatus = "unknown"
)

// Contact is a person at a Company, discovered by the producer on its own
// schedule (contact rows may lag job rows significantly).
type Contact struct {
	ContactID   string      `json:"contact_id" db:"contact_id"`
	Name        string      `json:"name" db:"name"`
	Title       *string     `json:"title,omitempty" db:"title"`
	Email       *string     `json:"email,omitempty" db:"email"`
	EmailStatus EmailStatus `json:"email_status" db:"email_status"`
	LinkedIn    *string     `json:"linkedin,omitempty" db:"linkedin"`
	Phone       *string     `json:"phone,omitempty" db:"phone"`
	CompanyID   *string     `json:"company_id,omitempty" db:"company_id"`
	JobID       *string     `json:"job_id,omitempty" db:"job_id"`
	Confidence  *float64    `json:"confidence,omitempty" db:"confidence"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}
