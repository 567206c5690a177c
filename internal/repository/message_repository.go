package repository

import (
	"context"
	"database/sql"

	"github.com/hireloop/hireloop-api/internal/models"
)

type MessageRepository interface {
	CreateMessage(ctx context.Context, msg models.OutreachMessage) (models.OutreachMessage, error)
	// LatestForPair returns the most recently updated draft for a
	// (contact, job) pair; generation is not idempotent, so this is how
	// the caller picks the display row.
	LatestForPair(ctx context.Context, contactID, jobID string) (models.OutreachMessage, error)
}

type messageRepository struct {
	db *sql.DB
}

func NewMessageRepository(db *sql.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) CreateMessage(ctx context.Context, msg models.OutreachMessage) (models.OutreachMessage, error) {
	query := `
		INSERT INTO outreach_messages (message_id, contact_id, job_id, company_id, subject, body, tone, channel, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	if msg.Channel == "" {
		msg.Channel = "email"
	}
	if msg.Status == "" {
		msg.Status = models.MessageDraft
	}
	err := r.db.QueryRowContext(ctx, query,
		msg.MessageID,
		msg.ContactID,
		msg.JobID,
		msg.CompanyID,
		msg.Subject,
		msg.Body,
		msg.Tone,
		msg.Channel,
		msg.Status,
	).Scan(&msg.CreatedAt, &msg.UpdatedAt)
	return msg, err
}

func (r *messageRepository) LatestForPair(ctx context.Context, contactID, jobID string) (models.OutreachMessage, error) {
	query := `
		SELECT message_id, contact_id, job_id, company_id, subject, body, tone, channel, status, created_at, updated_at
		FROM outreach_messages
		WHERE contact_id = $1 AND job_id = $2
		ORDER BY updated_at DESC
		LIMIT 1
	`
	var (
		msg       models.OutreachMessage
		companyID sql.NullString
		tone      sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, contactID, jobID).Scan(
		&msg.MessageID,
		&msg.ContactID,
		&msg.JobID,
		&companyID,
		&msg.Subject,
		&msg.Body,
		&tone,
		&msg.Channel,
		&msg.Status,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return msg, ErrNotFound
		}
		return msg, err
	}
	if companyID.Valid {
		msg.CompanyID = &companyID.String
	}
	if tone.Valid {
		msg.Tone = &tone.String
	}
	return msg, nil
}
