package repository

import (
	"context"
	"database/sql"

	"github.com/hireloop/hireloop-api/internal/models"
)

type CompanyRepository interface {
	GetCompany(ctx context.Context, companyID string) (models.Company, error)
	UpsertCompany(ctx context.Context, company models.Company) error
}

type companyRepository struct {
	db *sql.DB
}

func NewCompanyRepository(db *sql.DB) CompanyRepository {
	return &companyRepository{db: db}
}

func (r *companyRepository) GetCompany(ctx context.Context, companyID string) (models.Company, error) {
	query := `
		SELECT company_id, name, domain, industry, linkedin, size, created_at
		FROM companies
		WHERE company_id = $1
	`
	var (
		c        models.Company
		domain   sql.NullString
		industry sql.NullString
		linkedin sql.NullString
		size     sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, companyID).Scan(
		&c.CompanyID, &c.Name, &domain, &industry, &linkedin, &size, &c.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return c, ErrNotFound
		}
		return c, err
	}
	if domain.Valid {
		c.Domain = &domain.String
	}
	if industry.Valid {
		c.Industry = &industry.String
	}
	if linkedin.Valid {
		c.LinkedIn = &linkedin.String
	}
	if size.Valid {
		c.Size = &size.String
	}
	return c, nil
}

func (r *companyRepository) UpsertCompany(ctx context.Context, company models.Company) error {
	query := `
		INSERT INTO companies (company_id, name, domain, industry, linkedin, size)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (company_id) DO UPDATE SET
			name     = EXCLUDED.name,
			domain   = COALESCE(EXCLUDED.domain, companies.domain),
			industry = COALESCE(EXCLUDED.industry, companies.industry),
			linkedin = COALESCE(EXCLUDED.linkedin, companies.linkedin),
			size     = COALESCE(EXCLUDED.size, companies.size)
	`
	_, err := r.db.ExecContext(ctx, query,
		company.CompanyID,
		company.Name,
		company.Domain,
		company.Industry,
		company.LinkedIn,
		company.Size,
	)
	return err
}
