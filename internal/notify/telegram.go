package notify

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// TelegramAlerter delivers missed-medication alerts to the caregiver's
// Telegram chat. Caregivers without a registered chat ID fall back to the
// wrapped alerter.
type TelegramAlerter struct {
	api      *tgbotapi.BotAPI
	logger   *logrus.Logger
	fallback CaregiverAlerter
}

// NewTelegramAlerter creates a new Telegram alert channel
func NewTelegramAlerter(token string, logger *logrus.Logger, fallback CaregiverAlerter) (*TelegramAlerter, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	logger.Infof("Telegram alerts authorized on account %s", api.Self.UserName)

	return &TelegramAlerter{
		api:      api,
		logger:   logger,
		fallback: fallback,
	}, nil
}

func (a *TelegramAlerter) AlertCaregiver(ctx context.Context, alert Alert) (Result, error) {
	if alert.Caregiver.TelegramChatID == nil {
		return a.fallback.AlertCaregiver(ctx, alert)
	}
	if err := ctx.Err(); err != nil {
		return Result{Timestamp: time.Now()}, fmt.Errorf("caregiver alert cancelled: %w", err)
	}

	text := fmt.Sprintf("🔴 *Missed Medication Alert*\n\n"+
		"👴 Elder: %s\n💊 Medication: %s (%s)\n⏰ Scheduled: %s\n\n"+
		"No confirmation was received after the voice call and SMS reminder.",
		alert.Elder.Name,
		alert.Medication.Name,
		alert.Medication.Dosage,
		alert.MissedAt.Format("Mon, 02 Jan 15:04"))

	msg := tgbotapi.NewMessage(*alert.Caregiver.TelegramChatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	sent, err := a.api.Send(msg)
	if err != nil {
		return Result{Timestamp: time.Now()}, fmt.Errorf("failed to send Telegram alert: %w", err)
	}

	return Result{
		Success:    true,
		ProviderID: fmt.Sprintf("TG_%d", sent.MessageID),
		Timestamp:  time.Now(),
	}, nil
}
