package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/lib/pq"

	"github.com/brightmed/medremind/internal/models"
	"github.com/brightmed/medremind/internal/repository"
)

const reminderLogColumns = `id, medication_id, elder_id, scheduled_time, status,
		voice_call_sent, voice_call_time, sms_sent, sms_time,
		confirmation_method, confirmation_time, caregiver_alert_sent, caregiver_alert_time,
		notes, created_at`

type reminderLogRepository struct {
	db *sql.DB
}

// NewReminderLogRepository creates a new reminder log repository
func NewReminderLogRepository(db *sql.DB) repository.ReminderLogRepository {
	return &reminderLogRepository{db: db}
}

func (r *reminderLogRepository) Create(ctx context.Context, log *models.ReminderLog) (*models.ReminderLog, error) {
	query := `
		INSERT INTO reminder_logs (medication_id, elder_id, scheduled_time, status, confirmation_method, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	log.CreatedAt = time.Now()
	if log.Status == "" {
		log.Status = models.ReminderStatusSent
	}
	if log.ConfirmationMethod == "" {
		log.ConfirmationMethod = models.ConfirmationNone
	}

	err := r.db.QueryRowContext(ctx, query,
		log.MedicationID,
		log.ElderID,
		log.ScheduledTime,
		log.Status,
		log.ConfirmationMethod,
		log.Notes,
		log.CreatedAt,
	).Scan(&log.ID, &log.CreatedAt)

	if err != nil {
		var pqErr *pq.Error
		// The unique index on (medication_id, day) backstops the scanner's
		// dedupe query against concurrent ticks.
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return nil, fmt.Errorf("medication %d: %w", log.MedicationID, repository.ErrDuplicateReminder)
		}
		return nil, fmt.Errorf("failed to create reminder log: %w", err)
	}

	return log, nil
}

func (r *reminderLogRepository) GetByID(ctx context.Context, id int64) (*models.ReminderLog, error) {
	query := `
		SELECT ` + reminderLogColumns + `
		FROM reminder_logs
		WHERE id = $1`

	log, err := r.scanOne(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("reminder log %d: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get reminder log: %w", err)
	}

	return log, nil
}

func (r *reminderLogRepository) FindByMedicationAndDay(ctx context.Context, medicationID int64, day time.Time) (*models.ReminderLog, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	query := `
		SELECT ` + reminderLogColumns + `
		FROM reminder_logs
		WHERE medication_id = $1 AND scheduled_time >= $2 AND scheduled_time < $3
		LIMIT 1`

	log, err := r.scanOne(r.db.QueryRowContext(ctx, query, medicationID, dayStart, dayEnd))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find reminder for medication %d: %w", medicationID, err)
	}

	return log, nil
}

// FindVoiceGraceExpired selects on the attempt timestamp rather than the
// delivery flag, so a failed voice call still progresses to the SMS tier
// instead of stalling the record.
func (r *reminderLogRepository) FindVoiceGraceExpired(ctx context.Context, cutoff time.Time) ([]*models.ReminderLog, error) {
	query := `
		SELECT ` + reminderLogColumns + `
		FROM reminder_logs
		WHERE status = 'sent'
		  AND confirmation_method = 'none'
		  AND voice_call_time IS NOT NULL
		  AND voice_call_time <= $1
		  AND sms_time IS NULL
		ORDER BY voice_call_time ASC`

	return r.queryLogs(ctx, query, cutoff)
}

func (r *reminderLogRepository) FindSMSGraceExpired(ctx context.Context, cutoff time.Time) ([]*models.ReminderLog, error) {
	query := `
		SELECT ` + reminderLogColumns + `
		FROM reminder_logs
		WHERE status = 'sent'
		  AND confirmation_method = 'none'
		  AND sms_time IS NOT NULL
		  AND sms_time <= $1
		  AND caregiver_alert_time IS NULL
		ORDER BY sms_time ASC`

	return r.queryLogs(ctx, query, cutoff)
}

func (r *reminderLogRepository) RecordVoiceAttempt(ctx context.Context, id int64, delivered bool, at time.Time) error {
	query := `
		UPDATE reminder_logs
		SET voice_call_sent = $2, voice_call_time = $3
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, delivered, at)
	if err != nil {
		return fmt.Errorf("failed to record voice attempt: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("reminder log %d: %w", id, repository.ErrNotFound)
	}

	return nil
}

// RecordSMSAttempt re-checks that the record is still unconfirmed inside the
// update itself, so a confirmation racing the sweep wins.
func (r *reminderLogRepository) RecordSMSAttempt(ctx context.Context, id int64, delivered bool, at time.Time) (bool, error) {
	query := `
		UPDATE reminder_logs
		SET sms_sent = $2, sms_time = $3
		WHERE id = $1
		  AND status = 'sent'
		  AND confirmation_method = 'none'
		  AND sms_time IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, delivered, at)
	if err != nil {
		return false, fmt.Errorf("failed to record SMS attempt: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

func (r *reminderLogRepository) MarkMissed(ctx context.Context, id int64, at time.Time) (bool, error) {
	query := `
		UPDATE reminder_logs
		SET status = 'missed', caregiver_alert_sent = true, caregiver_alert_time = $2
		WHERE id = $1
		  AND status = 'sent'
		  AND confirmation_method = 'none'
		  AND caregiver_alert_time IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("failed to mark reminder missed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected == 1, nil
}

func (r *reminderLogRepository) Confirm(ctx context.Context, id int64, method models.ConfirmationMethod, at time.Time) (*models.ReminderLog, error) {
	query := `
		UPDATE reminder_logs
		SET status = 'taken', confirmation_method = $2, confirmation_time = $3
		WHERE id = $1
		RETURNING ` + reminderLogColumns

	log, err := r.scanOne(r.db.QueryRowContext(ctx, query, id, method, at))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("reminder log %d: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to confirm reminder log: %w", err)
	}

	return log, nil
}

func (r *reminderLogRepository) ListRecent(ctx context.Context, limit int) ([]*models.ReminderLog, error) {
	query := `
		SELECT ` + reminderLogColumns + `
		FROM reminder_logs
		ORDER BY scheduled_time DESC
		LIMIT $1`

	return r.queryLogs(ctx, query, limit)
}

func (r *reminderLogRepository) ListByElder(ctx context.Context, elderID int64) ([]*models.ReminderLog, error) {
	query := `
		SELECT ` + reminderLogColumns + `
		FROM reminder_logs
		WHERE elder_id = $1
		ORDER BY scheduled_time DESC`

	return r.queryLogs(ctx, query, elderID)
}

func (r *reminderLogRepository) ListByDay(ctx context.Context, day time.Time) ([]*models.ReminderLog, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	query := `
		SELECT ` + reminderLogColumns + `
		FROM reminder_logs
		WHERE scheduled_time >= $1 AND scheduled_time < $2
		ORDER BY scheduled_time DESC`

	return r.queryLogs(ctx, query, dayStart, dayEnd)
}

func (r *reminderLogRepository) Stats(ctx context.Context, since time.Time) (*models.AdherenceStats, error) {
	query := `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'taken'),
		       COUNT(*) FILTER (WHERE status = 'missed'),
		       COUNT(*) FILTER (WHERE status = 'sent')
		FROM reminder_logs
		WHERE scheduled_time >= $1`

	stats := &models.AdherenceStats{}
	err := r.db.QueryRowContext(ctx, query, since).Scan(
		&stats.Total,
		&stats.Taken,
		&stats.Missed,
		&stats.Pending,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute adherence stats: %w", err)
	}

	if stats.Total > 0 {
		stats.AdherenceRate = int(math.Round(float64(stats.Taken) / float64(stats.Total) * 100))
	}

	return stats, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *reminderLogRepository) scanOne(row rowScanner) (*models.ReminderLog, error) {
	log := &models.ReminderLog{}
	err := row.Scan(
		&log.ID,
		&log.MedicationID,
		&log.ElderID,
		&log.ScheduledTime,
		&log.Status,
		&log.VoiceCallSent,
		&log.VoiceCallTime,
		&log.SMSSent,
		&log.SMSTime,
		&log.ConfirmationMethod,
		&log.ConfirmationTime,
		&log.CaregiverAlertSent,
		&log.CaregiverAlertTime,
		&log.Notes,
		&log.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return log, nil
}

func (r *reminderLogRepository) queryLogs(ctx context.Context, query string, args ...any) ([]*models.ReminderLog, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminder logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.ReminderLog
	for rows.Next() {
		log, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder log: %w", err)
		}
		logs = append(logs, log)
	}

	return logs, rows.Err()
}
