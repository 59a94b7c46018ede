package service

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/brightmed/medremind/internal/models"
	"github.com/brightmed/medremind/internal/notify"
)

// SendReminder creates the reminder log for a due dose and places the initial
// voice call. The record is created before the call is attempted: a gateway
// failure leaves the record in place with voice_call_sent=false so the dose
// is still tracked and escalates through the SMS tier on schedule.
func (s *Service) SendReminder(ctx context.Context, med *models.Medication) (*models.ReminderLog, error) {
	elder, err := s.Elders.GetByID(ctx, med.ElderID)
	if err != nil {
		return nil, fmt.Errorf("send reminder for medication %d: %w", med.ID, err)
	}

	log, err := s.Reminders.Create(ctx, &models.ReminderLog{
		MedicationID:  med.ID,
		ElderID:       elder.ID,
		ScheduledTime: s.now(),
	})
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	delivered := false
	result, err := s.gateway.PlaceVoiceCall(callCtx, elder.PhoneNumber, elder.PreferredLanguage, med.Name)
	if err != nil {
		s.logger.Warnf("Voice call failed for %s (%s): %v", elder.Name, med.Name, err)
	} else {
		delivered = result.Success
	}

	attemptAt := s.now()
	if err := s.Reminders.RecordVoiceAttempt(ctx, log.ID, delivered, attemptAt); err != nil {
		s.logger.Errorf("Failed to record voice attempt for reminder %d: %v", log.ID, err)
	} else {
		log.VoiceCallSent = delivered
		log.VoiceCallTime = &attemptAt
	}

	remindersSentTotal.Inc()
	s.logger.Infof("Reminder %d created for %s - %s (voice delivered=%v, provider=%s)",
		log.ID, elder.Name, med.Name, delivered, result.ProviderID)

	return log, nil
}

// SweepVoiceGracePeriod escalates to SMS every unconfirmed reminder whose
// voice attempt is older than the voice grace period. A single record's
// failure never aborts the rest of the batch.
func (s *Service) SweepVoiceGracePeriod(ctx context.Context) error {
	cutoff := s.now().Add(-s.cfg.VoiceGracePeriod)

	expired, err := s.Reminders.FindVoiceGraceExpired(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("voice grace sweep: %w", err)
	}

	var errs *multierror.Error
	for _, log := range expired {
		if err := s.escalateToSMS(ctx, log); err != nil {
			sweepErrorsTotal.Inc()
			s.logger.Errorf("Failed to escalate reminder %d to SMS: %v", log.ID, err)
			errs = multierror.Append(errs, err)
		}
	}

	return errs.ErrorOrNil()
}

func (s *Service) escalateToSMS(ctx context.Context, log *models.ReminderLog) error {
	elder, err := s.Elders.GetByID(ctx, log.ElderID)
	if err != nil {
		return fmt.Errorf("reminder %d: %w", log.ID, err)
	}
	med, err := s.Medications.GetByID(ctx, log.MedicationID)
	if err != nil {
		return fmt.Errorf("reminder %d: %w", log.ID, err)
	}

	smsCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	delivered := false
	result, err := s.gateway.SendSMS(smsCtx, elder.PhoneNumber, elder.PreferredLanguage, med.Name)
	if err != nil {
		s.logger.Warnf("SMS failed for %s (%s): %v", elder.Name, med.Name, err)
	} else {
		delivered = result.Success
	}

	applied, err := s.Reminders.RecordSMSAttempt(ctx, log.ID, delivered, s.now())
	if err != nil {
		return fmt.Errorf("reminder %d: %w", log.ID, err)
	}
	if !applied {
		// Confirmed or escalated by a concurrent writer between the sweep
		// query and this update. The confirmation wins.
		s.logger.Debugf("Reminder %d changed state during SMS escalation, skipping", log.ID)
		return nil
	}

	smsEscalationsTotal.Inc()
	s.logger.Infof("Reminder %d escalated to SMS for %s - %s (delivered=%v)",
		log.ID, elder.Name, med.Name, delivered)

	return nil
}

// SweepSMSGracePeriod marks missed every unconfirmed reminder whose SMS
// attempt is older than the SMS grace period, and alerts the caregiver. The
// missed transition is committed before the alert is sent, so a record can
// produce at most one alert.
func (s *Service) SweepSMSGracePeriod(ctx context.Context) error {
	cutoff := s.now().Add(-s.cfg.SMSGracePeriod)

	expired, err := s.Reminders.FindSMSGraceExpired(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("SMS grace sweep: %w", err)
	}

	var errs *multierror.Error
	for _, log := range expired {
		if err := s.markMissed(ctx, log); err != nil {
			sweepErrorsTotal.Inc()
			s.logger.Errorf("Failed to mark reminder %d missed: %v", log.ID, err)
			errs = multierror.Append(errs, err)
		}
	}

	return errs.ErrorOrNil()
}

func (s *Service) markMissed(ctx context.Context, log *models.ReminderLog) error {
	elder, err := s.Elders.GetByID(ctx, log.ElderID)
	if err != nil {
		return fmt.Errorf("reminder %d: %w", log.ID, err)
	}
	med, err := s.Medications.GetByID(ctx, log.MedicationID)
	if err != nil {
		return fmt.Errorf("reminder %d: %w", log.ID, err)
	}
	caregiver, err := s.Caregivers.GetByID(ctx, elder.CaregiverID)
	if err != nil {
		return fmt.Errorf("reminder %d: %w", log.ID, err)
	}

	applied, err := s.Reminders.MarkMissed(ctx, log.ID, s.now())
	if err != nil {
		return fmt.Errorf("reminder %d: %w", log.ID, err)
	}
	if !applied {
		s.logger.Debugf("Reminder %d changed state during missed transition, skipping alert", log.ID)
		return nil
	}

	caregiverAlertsTotal.Inc()
	s.logger.Warnf("Reminder %d MISSED: %s - %s, alerting caregiver %s",
		log.ID, elder.Name, med.Name, caregiver.Name)

	alertCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	// Fire-and-forget: an alert delivery failure is logged, never retried.
	if _, err := s.alerter.AlertCaregiver(alertCtx, notify.Alert{
		Caregiver:  caregiver,
		Elder:      elder,
		Medication: med,
		MissedAt:   log.ScheduledTime,
	}); err != nil {
		s.logger.Errorf("Caregiver alert failed for reminder %d: %v", log.ID, err)
	}

	return nil
}

// ConfirmMedication marks a dose taken. The overwrite is unconditional, even
// for records already taken or missed; it is the only externally triggered
// mutation and short-circuits any further escalation.
func (s *Service) ConfirmMedication(ctx context.Context, reminderID int64, method models.ConfirmationMethod) (*models.ReminderLog, error) {
	if !method.Valid() {
		return nil, fmt.Errorf("invalid confirmation method %q", method)
	}

	log, err := s.Reminders.Confirm(ctx, reminderID, method, s.now())
	if err != nil {
		return nil, err
	}

	confirmationsTotal.WithLabelValues(string(method)).Inc()
	s.logger.Infof("Reminder %d confirmed as taken via %s", reminderID, method)

	return log, nil
}
