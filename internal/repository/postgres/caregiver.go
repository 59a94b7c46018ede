package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/brightmed/medremind/internal/models"
	"github.com/brightmed/medremind/internal/repository"
)

type caregiverRepository struct {
	db *sql.DB
}

// NewCaregiverRepository creates a new caregiver repository
func NewCaregiverRepository(db *sql.DB) repository.CaregiverRepository {
	return &caregiverRepository{db: db}
}

func (r *caregiverRepository) Create(ctx context.Context, caregiver *models.Caregiver) (*models.Caregiver, error) {
	query := `
		INSERT INTO caregivers (name, email, phone_number, telegram_chat_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	now := time.Now()
	caregiver.CreatedAt = now
	caregiver.UpdatedAt = now

	err := r.db.QueryRowContext(ctx, query,
		caregiver.Name,
		caregiver.Email,
		caregiver.PhoneNumber,
		caregiver.TelegramChatID,
		caregiver.CreatedAt,
		caregiver.UpdatedAt,
	).Scan(&caregiver.ID, &caregiver.CreatedAt, &caregiver.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create caregiver: %w", err)
	}

	return caregiver, nil
}

func (r *caregiverRepository) GetByID(ctx context.Context, id int64) (*models.Caregiver, error) {
	query := `
		SELECT id, name, email, phone_number, telegram_chat_id, created_at, updated_at
		FROM caregivers
		WHERE id = $1`

	caregiver := &models.Caregiver{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&caregiver.ID,
		&caregiver.Name,
		&caregiver.Email,
		&caregiver.PhoneNumber,
		&caregiver.TelegramChatID,
		&caregiver.CreatedAt,
		&caregiver.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("caregiver %d: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get caregiver: %w", err)
	}

	return caregiver, nil
}

func (r *caregiverRepository) List(ctx context.Context) ([]*models.Caregiver, error) {
	query := `
		SELECT id, name, email, phone_number, telegram_chat_id, created_at, updated_at
		FROM caregivers
		ORDER BY name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query caregivers: %w", err)
	}
	defer rows.Close()

	var caregivers []*models.Caregiver
	for rows.Next() {
		caregiver := &models.Caregiver{}
		if err := rows.Scan(
			&caregiver.ID,
			&caregiver.Name,
			&caregiver.Email,
			&caregiver.PhoneNumber,
			&caregiver.TelegramChatID,
			&caregiver.CreatedAt,
			&caregiver.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan caregiver: %w", err)
		}
		caregivers = append(caregivers, caregiver)
	}

	return caregivers, rows.Err()
}
