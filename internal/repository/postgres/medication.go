package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/brightmed/medremind/internal/models"
	"github.com/brightmed/medremind/internal/repository"
)

type medicationRepository struct {
	db *sql.DB
}

// NewMedicationRepository creates a new medication repository
func NewMedicationRepository(db *sql.DB) repository.MedicationRepository {
	return &medicationRepository{db: db}
}

func (r *medicationRepository) Create(ctx context.Context, med *models.Medication) (*models.Medication, error) {
	query := `
		INSERT INTO medications (elder_id, name, dosage, times, start_date, end_date, instructions, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`

	now := time.Now()
	med.CreatedAt = now
	med.UpdatedAt = now
	if med.StartDate.IsZero() {
		med.StartDate = now
	}

	err := r.db.QueryRowContext(ctx, query,
		med.ElderID,
		med.Name,
		med.Dosage,
		pq.Array(med.Times),
		med.StartDate,
		med.EndDate,
		med.Instructions,
		med.Active,
		med.CreatedAt,
		med.UpdatedAt,
	).Scan(&med.ID, &med.CreatedAt, &med.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create medication: %w", err)
	}

	return med, nil
}

func (r *medicationRepository) GetByID(ctx context.Context, id int64) (*models.Medication, error) {
	query := `
		SELECT id, elder_id, name, dosage, times, start_date, end_date, instructions, active, created_at, updated_at
		FROM medications
		WHERE id = $1`

	med := &models.Medication{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&med.ID,
		&med.ElderID,
		&med.Name,
		&med.Dosage,
		pq.Array(&med.Times),
		&med.StartDate,
		&med.EndDate,
		&med.Instructions,
		&med.Active,
		&med.CreatedAt,
		&med.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("medication %d: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get medication: %w", err)
	}

	return med, nil
}

func (r *medicationRepository) GetByElderID(ctx context.Context, elderID int64) ([]*models.Medication, error) {
	query := `
		SELECT id, elder_id, name, dosage, times, start_date, end_date, instructions, active, created_at, updated_at
		FROM medications
		WHERE elder_id = $1
		ORDER BY created_at DESC`

	return r.queryMedications(ctx, query, elderID)
}

func (r *medicationRepository) GetActive(ctx context.Context, asOf time.Time) ([]*models.Medication, error) {
	query := `
		SELECT id, elder_id, name, dosage, times, start_date, end_date, instructions, active, created_at, updated_at
		FROM medications
		WHERE active = true AND (end_date IS NULL OR end_date >= $1)
		ORDER BY id ASC`

	return r.queryMedications(ctx, query, asOf)
}

func (r *medicationRepository) Update(ctx context.Context, med *models.Medication) (*models.Medication, error) {
	query := `
		UPDATE medications
		SET name = $2, dosage = $3, times = $4, start_date = $5, end_date = $6, instructions = $7, active = $8, updated_at = $9
		WHERE id = $1
		RETURNING updated_at`

	med.UpdatedAt = time.Now()

	err := r.db.QueryRowContext(ctx, query,
		med.ID,
		med.Name,
		med.Dosage,
		pq.Array(med.Times),
		med.StartDate,
		med.EndDate,
		med.Instructions,
		med.Active,
		med.UpdatedAt,
	).Scan(&med.UpdatedAt)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("medication %d: %w", med.ID, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update medication: %w", err)
	}

	return med, nil
}

func (r *medicationRepository) Deactivate(ctx context.Context, id int64) error {
	query := `
		UPDATE medications
		SET active = false, updated_at = $2
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to deactivate medication: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("medication %d: %w", id, repository.ErrNotFound)
	}

	return nil
}

func (r *medicationRepository) Delete(ctx context.Context, id int64) error {
	query := `DELETE FROM medications WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete medication: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("medication %d: %w", id, repository.ErrNotFound)
	}

	return nil
}

func (r *medicationRepository) queryMedications(ctx context.Context, query string, args ...any) ([]*models.Medication, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query medications: %w", err)
	}
	defer rows.Close()

	var meds []*models.Medication
	for rows.Next() {
		med := &models.Medication{}
		if err := rows.Scan(
			&med.ID,
			&med.ElderID,
			&med.Name,
			&med.Dosage,
			pq.Array(&med.Times),
			&med.StartDate,
			&med.EndDate,
			&med.Instructions,
			&med.Active,
			&med.CreatedAt,
			&med.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan medication: %w", err)
		}
		meds = append(meds, med)
	}

	return meds, rows.Err()
}
