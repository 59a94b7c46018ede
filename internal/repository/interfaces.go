package repository

import (
	"context"
	"errors"
	"time"

	"github.com/brightmed/medremind/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicateReminder is returned by ReminderLogRepository.Create when a
// reminder already exists for the same medication and calendar day. The
// scanner treats it as a benign dedupe outcome, not a failure.
var ErrDuplicateReminder = errors.New("reminder already exists for this medication today")

// CaregiverRepository defines the interface for caregiver data operations
type CaregiverRepository interface {
	Create(ctx context.Context, caregiver *models.Caregiver) (*models.Caregiver, error)
	GetByID(ctx context.Context, id int64) (*models.Caregiver, error)
	List(ctx context.Context) ([]*models.Caregiver, error)
}

// ElderRepository defines the interface for elder data operations
type ElderRepository interface {
	Create(ctx context.Context, elder *models.Elder) (*models.Elder, error)
	GetByID(ctx context.Context, id int64) (*models.Elder, error)
	GetByCaregiverID(ctx context.Context, caregiverID int64) ([]*models.Elder, error)
	List(ctx context.Context) ([]*models.Elder, error)
	Update(ctx context.Context, elder *models.Elder) (*models.Elder, error)
	// DeleteCascade removes the elder together with its medications and
	// reminder logs in a single transaction.
	DeleteCascade(ctx context.Context, id int64) error
}

// MedicationRepository defines the interface for medication schedule operations
type MedicationRepository interface {
	Create(ctx context.Context, med *models.Medication) (*models.Medication, error)
	GetByID(ctx context.Context, id int64) (*models.Medication, error)
	GetByElderID(ctx context.Context, elderID int64) ([]*models.Medication, error)
	// GetActive returns active medications whose end date, if set, has not
	// passed as of the given instant.
	GetActive(ctx context.Context, asOf time.Time) ([]*models.Medication, error)
	Update(ctx context.Context, med *models.Medication) (*models.Medication, error)
	Deactivate(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

// ReminderLogRepository defines the interface for reminder log operations.
// Escalation transitions are atomic conditional updates: they apply only
// while the record is still unconfirmed and the target stage has not been
// reached, and report whether the transition was applied. A confirmation
// racing a sweep therefore always wins.
type ReminderLogRepository interface {
	Create(ctx context.Context, log *models.ReminderLog) (*models.ReminderLog, error)
	GetByID(ctx context.Context, id int64) (*models.ReminderLog, error)
	// FindByMedicationAndDay returns the reminder for the medication within
	// the calendar day containing the given instant, or nil if none exists.
	FindByMedicationAndDay(ctx context.Context, medicationID int64, day time.Time) (*models.ReminderLog, error)

	// FindVoiceGraceExpired returns unconfirmed sent records whose voice
	// attempt is older than the cutoff and that have no SMS attempt yet.
	FindVoiceGraceExpired(ctx context.Context, cutoff time.Time) ([]*models.ReminderLog, error)
	// FindSMSGraceExpired returns unconfirmed sent records whose SMS attempt
	// is older than the cutoff and that have no caregiver alert yet.
	FindSMSGraceExpired(ctx context.Context, cutoff time.Time) ([]*models.ReminderLog, error)

	RecordVoiceAttempt(ctx context.Context, id int64, delivered bool, at time.Time) error
	// RecordSMSAttempt stamps the SMS escalation stage. It returns false
	// when the record was confirmed or already escalated in the meantime.
	RecordSMSAttempt(ctx context.Context, id int64, delivered bool, at time.Time) (bool, error)
	// MarkMissed transitions the record to missed and stamps the caregiver
	// alert stage. It returns false when the record was confirmed or already
	// alerted in the meantime.
	MarkMissed(ctx context.Context, id int64, at time.Time) (bool, error)
	// Confirm unconditionally marks the dose taken, overwriting any prior
	// status, and returns the updated record.
	Confirm(ctx context.Context, id int64, method models.ConfirmationMethod, at time.Time) (*models.ReminderLog, error)

	ListRecent(ctx context.Context, limit int) ([]*models.ReminderLog, error)
	ListByElder(ctx context.Context, elderID int64) ([]*models.ReminderLog, error)
	ListByDay(ctx context.Context, day time.Time) ([]*models.ReminderLog, error)
	// Stats aggregates reminder outcomes for records scheduled at or after
	// the given instant.
	Stats(ctx context.Context, since time.Time) (*models.AdherenceStats, error)
}
