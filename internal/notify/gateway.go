package notify

import (
	"context"
	"time"

	"github.com/brightmed/medremind/internal/models"
)

// Result is the outcome of a single delivery attempt. Success reflects what
// the provider reported, not whether the patient ever received the message.
type Result struct {
	Success    bool      `json:"success"`
	ProviderID string    `json:"provider_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// Gateway places voice calls and sends SMS messages for medication reminders.
// Implementations must honor context cancellation; a timed-out call is
// reported as a failed Result, never as a hang.
type Gateway interface {
	PlaceVoiceCall(ctx context.Context, phoneNumber string, language models.Language, medicationName string) (Result, error)
	SendSMS(ctx context.Context, phoneNumber string, language models.Language, medicationName string) (Result, error)
}

// Alert carries everything a caregiver needs to act on a missed dose.
type Alert struct {
	Caregiver  *models.Caregiver
	Elder      *models.Elder
	Medication *models.Medication
	MissedAt   time.Time
}

// CaregiverAlerter delivers missed-medication alerts. Fire-and-forget from
// the engine's perspective: failures are logged by the caller, never retried.
type CaregiverAlerter interface {
	AlertCaregiver(ctx context.Context, alert Alert) (Result, error)
}
