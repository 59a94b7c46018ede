package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/brightmed/medremind/internal/repository"
)

// ScanDueDoses finds active medications scheduled for the current minute and
// creates a reminder for each that has none yet today. The scanner only ever
// creates records; all later mutations belong to the escalation engine.
func (s *Service) ScanDueDoses(ctx context.Context) error {
	now := s.now().Truncate(time.Minute)

	meds, err := s.Medications.GetActive(ctx, now)
	if err != nil {
		return fmt.Errorf("due-dose scan: %w", err)
	}

	var errs *multierror.Error
	for _, med := range meds {
		if !med.IsDueAt(now) {
			continue
		}

		existing, err := s.Reminders.FindByMedicationAndDay(ctx, med.ID, now)
		if err != nil {
			sweepErrorsTotal.Inc()
			s.logger.Errorf("Dedupe lookup failed for medication %d: %v", med.ID, err)
			errs = multierror.Append(errs, err)
			continue
		}
		if existing != nil {
			// Already reminded today, either at this time or an earlier one.
			continue
		}

		if _, err := s.SendReminder(ctx, med); err != nil {
			if errors.Is(err, repository.ErrDuplicateReminder) {
				// A concurrent tick won the insert race; nothing to do.
				s.logger.Debugf("Reminder for medication %d already created concurrently", med.ID)
				continue
			}
			sweepErrorsTotal.Inc()
			s.logger.Errorf("Failed to send reminder for medication %d: %v", med.ID, err)
			errs = multierror.Append(errs, err)
		}
	}

	return errs.ErrorOrNil()
}
