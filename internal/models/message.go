package models

import "time"

// MessageStatus is the delivery state of an outreach draft.
type MessageStatus string

const (
	MessageDraft  MessageStatus = "draft"
	MessageSent   MessageStatus = "sent"
	MessageFailed MessageStatus = "failed"
)

// OutreachMessage is a generated outreach draft for a (contact, job) pair.
// Generation is not idempotent; the most recently updated draft per pair is
// the one shown.
type OutreachMessage struct {
	MessageID string        `json:"message_id" db:"message_id"`
	ContactID string        `json:"contact_id" db:"contact_id"`
	JobID     string        `json:"job_id" db:"job_id"`
	CompanyID *string       `json:"company_id,omitempty" db:"company_id"`
	Subject   string        `json:"subject" db:"subject"`
	Body      string        `json:"body" db:"body"`
	Tone      *string       `json:"tone,omitempty" db:"tone"`
	Channel   string        `json:"channel" db:"channel"`
	Status    MessageStatus `json:"status" db:"status"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt time.Time     `json:"updated_at" db:"updated_at"`
}
