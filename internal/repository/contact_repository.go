package repository

import (
	"context"
	"database/sql"

	"github.com/hireloop/hireloop-api/internal/models"
)

type ContactRepository interface {
	// ListByCompany returns every contact for one company, ordered by title
	// then name so identical queries return identical slices.
	ListByCompany(ctx context.Context, companyID string) ([]models.Contact, error)
	GetContact(ctx context.Context, contactID string) (models.Contact, error)
	UpsertContact(ctx context.Context, contact models.Contact) error
}

type contactRepository struct {
	db *sql.DB
}

func NewContactRepository(db *sql.DB) ContactRepository {
	return &contactRepository{db: db}
}

const contactColumns = `
	contact_id, name, title, email, email_status, linkedin, phone,
	company_id, job_id, confidence, created_at
`

func (r *contactRepository) ListByCompany(ctx context.Context, companyID string) ([]models.Contact, error) {
	query := `
		SELECT ` + contactColumns + `
		FROM contacts
		WHERE company_id = $1
		ORDER BY title ASC NULLS LAST, name ASC
	`
	rows, err := r.db.QueryContext(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanContacts(rows)
}

func (r *contactRepository) GetContact(ctx context.Context, contactID string) (models.Contact, error) {
	query := `SELECT ` + contactColumns + ` FROM contacts WHERE contact_id = $1`
	rows, err := r.db.QueryContext(ctx, query, contactID)
	if err != nil {
		return models.Contact{}, err
	}
	defer rows.Close()
	contacts, err := scanContacts(rows)
	if err != nil {
		return models.Contact{}, err
	}
	if len(contacts) == 0 {
		return models.Contact{}, ErrNotFound
	}
	return contacts[0], nil
}

func (r *contactRepository) UpsertContact(ctx context.Context, contact models.Contact) error {
	query := `
		INSERT INTO contacts (contact_id, name, title, email, email_status, linkedin, phone, company_id, job_id, confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (contact_id) DO UPDATE SET
			name         = EXCLUDED.name,
			title        = COALESCE(EXCLUDED.title, contacts.title),
			email        = COALESCE(EXCLUDED.email, contacts.email),
			email_status = EXCLUDED.email_status,
			linkedin     = COALESCE(EXCLUDED.linkedin, contacts.linkedin),
			phone        = COALESCE(EXCLUDED.phone, contacts.phone),
			company_id   = COALESCE(EXCLUDED.company_id, contacts.company_id),
			job_id       = COALESCE(EXCLUDED.job_id, contacts.job_id),
			confidence   = COALESCE(EXCLUDED.confidence, contacts.confidence)
	`
	status := contact.EmailStatus
	if status == "" {
		status = models.EmailUnknown
	}
	_, err := r.db.ExecContext(ctx, query,
		contact.ContactID,
		contact.Name,
		contact.Title,
		contact.Email,
		status,
		contact.LinkedIn,
		contact.Phone,
		contact.CompanyID,
		contact.JobID,
		contact.Confidence,
	)
	return err
}

func scanContacts(rows *sql.Rows) ([]models.Contact, error) {
	contacts := []models.Contact{}
	for rows.Next() {
		var (
			c          models.Contact
			title      sql.NullString
			email      sql.NullString
			linkedin   sql.NullString
			phone      sql.NullString
			companyID  sql.NullString
			jobID      sql.NullString
			confidence sql.NullFloat64
		)
		if err := rows.Scan(
			&c.ContactID,
			&c.Name,
			&title,
			&email,
			&c.EmailStatus,
			&linkedin,
			&phone,
			&companyID,
			&jobID,
			&confidence,
			&c.CreatedAt,
		); err != nil {
			return nil, err
		}
		if title.Valid {
			c.Title = &title.String
		}
		if email.Valid {
			c.Email = &email.String
		}
		if linkedin.Valid {
			c.LinkedIn = &linkedin.String
		}
		if phone.Valid {
			c.Phone = &phone.String
		}
		if companyID.Valid {
			c.CompanyID = &companyID.String
		}
		if jobID.Valid {
			c.JobID = &jobID.String
		}
		if confidence.Valid {
			c.Confidence = &confidence.Float64
		}
		contacts = append(contacts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return contacts, nil
}
