package service

import (
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/atomic"

	"github.com/brightmed/medremind/internal/config"
	"github.com/brightmed/medremind/internal/notify"
	"github.com/brightmed/medremind/internal/repository"
)

// Service is the central business logic layer. It owns the escalation engine,
// the due-dose scanner, and the scheduler loop, and is the only writer of
// reminder log state transitions.
type Service struct {
	cfg    *config.Config
	logger *logrus.Logger

	Caregivers  repository.CaregiverRepository
	Elders      repository.ElderRepository
	Medications repository.MedicationRepository
	Reminders   repository.ReminderLogRepository

	gateway notify.Gateway
	alerter notify.CaregiverAlerter

	// now is swapped out in tests to drive grace-period expiry.
	now func() time.Time

	// tickRunning guards against overlapping scheduler ticks.
	tickRunning atomic.Bool
}

// New creates a new Service with all required dependencies.
func New(cfg *config.Config, logger *logrus.Logger,
	caregivers repository.CaregiverRepository,
	elders repository.ElderRepository,
	medications repository.MedicationRepository,
	reminders repository.ReminderLogRepository,
	gateway notify.Gateway,
	alerter notify.CaregiverAlerter,
) *Service {
	return &Service{
		cfg: cfg, logger: logger,
		Caregivers: caregivers, Elders: elders,
		Medications: medications, Reminders: reminders,
		gateway: gateway, alerter: alerter,
		now: time.Now,
	}
}
