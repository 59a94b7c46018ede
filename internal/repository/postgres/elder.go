package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/brightmed/medremind/internal/models"
	"github.com/brightmed/medremind/internal/repository"
)

type elderRepository struct {
	db *sql.DB
}

// NewElderRepository creates a new elder repository
func NewElderRepository(db *sql.DB) repository.ElderRepository {
	return &elderRepository{db: db}
}

func (r *elderRepository) Create(ctx context.Context, elder *models.Elder) (*models.Elder, error) {
	query := `
		INSERT INTO elders (name, phone_number, preferred_language, caregiver_id, age, address, emergency_contact, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	now := time.Now()
	elder.CreatedAt = now
	elder.UpdatedAt = now

	if elder.PreferredLanguage == "" {
		elder.PreferredLanguage = models.LanguageEnglish
	}

	err := r.db.QueryRowContext(ctx, query,
		elder.Name,
		elder.PhoneNumber,
		elder.PreferredLanguage,
		elder.CaregiverID,
		elder.Age,
		elder.Address,
		elder.EmergencyContact,
		elder.CreatedAt,
		elder.UpdatedAt,
	).Scan(&elder.ID, &elder.CreatedAt, &elder.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create elder: %w", err)
	}

	return elder, nil
}

func (r *elderRepository) GetByID(ctx context.Context, id int64) (*models.Elder, error) {
	query := `
		SELECT id, name, phone_number, preferred_language, caregiver_id, age, address, emergency_contact, created_at, updated_at
		FROM elders
		WHERE id = $1`

	elder := &models.Elder{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&elder.ID,
		&elder.Name,
		&elder.PhoneNumber,
		&elder.PreferredLanguage,
		&elder.CaregiverID,
		&elder.Age,
		&elder.Address,
		&elder.EmergencyContact,
		&elder.CreatedAt,
		&elder.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("elder %d: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get elder: %w", err)
	}

	return elder, nil
}

func (r *elderRepository) GetByCaregiverID(ctx context.Context, caregiverID int64) ([]*models.Elder, error) {
	query := `
		SELECT id, name, phone_number, preferred_language, caregiver_id, age, address, emergency_contact, created_at, updated_at
		FROM elders
		WHERE caregiver_id = $1
		ORDER BY created_at DESC`

	return r.queryElders(ctx, query, caregiverID)
}

func (r *elderRepository) List(ctx context.Context) ([]*models.Elder, error) {
	query := `
		SELECT id, name, phone_number, preferred_language, caregiver_id, age, address, emergency_contact, created_at, updated_at
		FROM elders
		ORDER BY created_at DESC`

	return r.queryElders(ctx, query)
}

func (r *elderRepository) Update(ctx context.Context, elder *models.Elder) (*models.Elder, error) {
	query := `
		UPDATE elders
		SET name = $2, phone_number = $3, preferred_language = $4, age = $5, address = $6, emergency_contact = $7, updated_at = $8
		WHERE id = $1
		RETURNING updated_at`

	elder.UpdatedAt = time.Now()

	err := r.db.QueryRowContext(ctx, query,
		elder.ID,
		elder.Name,
		elder.PhoneNumber,
		elder.PreferredLanguage,
		elder.Age,
		elder.Address,
		elder.EmergencyContact,
		elder.UpdatedAt,
	).Scan(&elder.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("elder %d: %w", elder.ID, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update elder: %w", err)
	}

	return elder, nil
}

// DeleteCascade removes the elder and everything that references it inside
// one transaction, so a partial failure cannot leave orphaned schedules.
func (r *elderRepository) DeleteCascade(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reminder_logs WHERE elder_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete reminder logs for elder %d: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM medications WHERE elder_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete medications for elder %d: %w", id, err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM elders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete elder %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("elder %d: %w", id, repository.ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit elder deletion: %w", err)
	}

	return nil
}

func (r *elderRepository) queryElders(ctx context.Context, query string, args ...any) ([]*models.Elder, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query elders: %w", err)
	}
	defer rows.Close()

	var elders []*models.Elder
	for rows.Next() {
		elder := &models.Elder{}
		if err := rows.Scan(
			&elder.ID,
			&elder.Name,
			&elder.PhoneNumber,
			&elder.PreferredLanguage,
			&elder.CaregiverID,
			&elder.Age,
			&elder.Address,
			&elder.EmergencyContact,
			&elder.CreatedAt,
			&elder.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan elder: %w", err)
		}
		elders = append(elders, elder)
	}

	return elders, rows.Err()
}
