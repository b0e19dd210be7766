package messages

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/multichat/internal/dbx"
	"github.com/dmitrijs2005/multichat/internal/server/models"
	"github.com/google/uuid"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, msg *models.Message) (*models.Message, error) {
	query := `
		INSERT INTO messages (user_id, model_tag, role, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query, msg.UserID, msg.ModelTag, string(msg.Role), msg.Content).
		Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return msg, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]models.Message, error) {
	query := `
		SELECT id, user_id, model_tag, role, content, created_at
		FROM messages
		WHERE user_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]models.Message, 0)
	for rows.Next() {
		var (
			m    models.Message
			role string
		)
		if err := rows.Scan(&m.ID, &m.UserID, &m.ModelTag, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		m.Role = models.Role(role)
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string, userID string) error {
	// ids are UUIDs; anything else cannot match a row
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}

	query := `
		DELETE FROM messages
		WHERE id = $1 AND user_id = $2
	`
	if _, err := r.db.ExecContext(ctx, query, id, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
