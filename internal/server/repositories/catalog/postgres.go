package catalog

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/multichat/internal/dbx"
	"github.com/dmitrijs2005/multichat/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.Model, error) {
	query := `
		SELECT id, tag, name, description, created_at
		FROM models
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Model, 0)
	for rows.Next() {
		var (
			m           models.Model
			description sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.Tag, &m.Name, &description, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		if description.Valid {
			d := description.String
			m.Description = &d
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}
