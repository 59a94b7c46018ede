package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/brightmed/medremind/internal/models"
)

// ConsoleGateway logs calls and SMS messages instead of contacting a real
// telephony provider. It mirrors the provider contract (success flag plus a
// reference ID) so the engine code is identical against a real gateway.
type ConsoleGateway struct {
	logger *logrus.Logger
}

// NewConsoleGateway creates a gateway that writes to the log
func NewConsoleGateway(logger *logrus.Logger) *ConsoleGateway {
	return &ConsoleGateway{logger: logger}
}

func (g *ConsoleGateway) PlaceVoiceCall(ctx context.Context, phoneNumber string, language models.Language, medicationName string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{Timestamp: time.Now()}, fmt.Errorf("voice call cancelled: %w", err)
	}

	g.logger.WithFields(logrus.Fields{
		"phone":      phoneNumber,
		"language":   string(language),
		"medication": medicationName,
	}).Infof("Voice call: %s", VoiceMessage(language, medicationName))

	return Result{
		Success:    true,
		ProviderID: providerRef("CALL"),
		Timestamp:  time.Now(),
	}, nil
}

func (g *ConsoleGateway) SendSMS(ctx context.Context, phoneNumber string, language models.Language, medicationName string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{Timestamp: time.Now()}, fmt.Errorf("SMS cancelled: %w", err)
	}

	g.logger.WithFields(logrus.Fields{
		"phone":      phoneNumber,
		"language":   string(language),
		"medication": medicationName,
	}).Infof("SMS: %s", SMSMessage(language, medicationName))

	return Result{
		Success:    true,
		ProviderID: providerRef("SMS"),
		Timestamp:  time.Now(),
	}, nil
}

// ConsoleAlerter logs caregiver alerts. It is the fallback channel when no
// Telegram token is configured or the caregiver has no chat ID.
type ConsoleAlerter struct {
	logger *logrus.Logger
}

// NewConsoleAlerter creates an alerter that writes to the log
func NewConsoleAlerter(logger *logrus.Logger) *ConsoleAlerter {
	return &ConsoleAlerter{logger: logger}
}

func (a *ConsoleAlerter) AlertCaregiver(ctx context.Context, alert Alert) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{Timestamp: time.Now()}, fmt.Errorf("caregiver alert cancelled: %w", err)
	}

	a.logger.WithFields(logrus.Fields{
		"caregiver":       alert.Caregiver.Name,
		"caregiver_phone": alert.Caregiver.PhoneNumber,
		"caregiver_email": alert.Caregiver.Email,
		"elder":           alert.Elder.Name,
		"medication":      alert.Medication.Name,
		"dosage":          alert.Medication.Dosage,
	}).Warnf("MISSED MEDICATION: %s did not confirm %s scheduled at %s",
		alert.Elder.Name, alert.Medication.Name, alert.MissedAt.Format("15:04"))

	return Result{
		Success:    true,
		ProviderID: providerRef("ALERT"),
		Timestamp:  time.Now(),
	}, nil
}

// providerRef builds reference IDs in the "CALL_..." / "SMS_..." shape real
// providers return.
func providerRef(prefix string) string {
	return prefix + "_" + strings.ToUpper(uuid.NewString()[:8])
}
