package repository

import (
	"context"
	"database/sql"

	"github.com/hireloop/hireloop-api/internal/models"
)

type SearchRepository interface {
	CreateSearch(ctx context.Context, search models.Search) (models.Search, error)
	ListRecent(ctx context.Context, limit int) ([]models.Search, error)
}

type searchRepository struct {
	db *sql.DB
}

func NewSearchRepository(db *sql.DB) SearchRepository {
	return &searchRepository{db: db}
}

func (r *searchRepository) CreateSearch(ctx context.Context, search models.Search) (models.Search, error) {
	query := `
		INSERT INTO searches (search_id, query, location, params)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		search.SearchID,
		search.Query,
		search.Location,
		search.Params,
	).Scan(&search.CreatedAt)
	return search, err
}

func (r *searchRepository) ListRecent(ctx context.Context, limit int) ([]models.Search, error) {
	query := `
		SELECT search_id, query, location, params, created_at
		FROM searches
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	searches := []models.Search{}
	for rows.Next() {
		var s models.Search
		if err := rows.Scan(&s.SearchID, &s.Query, &s.Location, &s.Params, &s.CreatedAt); err != nil {
			return nil, err
		}
		searches = append(searches, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return searches, nil
}
