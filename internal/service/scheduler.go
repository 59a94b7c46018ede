package service

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StartScheduler runs the periodic driver: every tick it performs, in order,
// the due-dose scan, the voice-grace sweep, and the SMS-grace sweep. It
// blocks until the context is cancelled, so it should be launched in a
// separate goroutine.
func (s *Service) StartScheduler(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	s.logger.Infof("Reminder scheduler started (tick interval %v, voice grace %v, SMS grace %v)",
		s.cfg.TickInterval, s.cfg.VoiceGracePeriod, s.cfg.SMSGracePeriod)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Reminder scheduler stopped")
			return
		case <-ticker.C:
			// Run the tick off the loop so a slow tick cannot delay the
			// ticker; RunTick itself skips overlapping invocations.
			go s.RunTick(ctx)
		}
	}
}

// RunTick executes one full scheduler tick. If a previous tick is still
// running the call is skipped: two ticks must never mutate the same record
// set concurrently.
func (s *Service) RunTick(ctx context.Context) {
	if !s.tickRunning.CompareAndSwap(false, true) {
		schedulerTicksTotal.WithLabelValues("skipped").Inc()
		s.logger.Warn("Previous scheduler tick still running, skipping this tick")
		return
	}
	defer s.tickRunning.Store(false)

	defer func() {
		// A panicking tick must not take down the scheduler loop.
		if r := recover(); r != nil {
			s.logger.Errorf("Scheduler tick panicked: %v", r)
		}
	}()

	timer := prometheus.NewTimer(tickDuration)
	defer timer.ObserveDuration()

	if err := s.ScanDueDoses(ctx); err != nil {
		s.logger.Errorf("Due-dose scan finished with errors: %v", err)
	}
	if err := s.SweepVoiceGracePeriod(ctx); err != nil {
		s.logger.Errorf("Voice grace sweep finished with errors: %v", err)
	}
	if err := s.SweepSMSGracePeriod(ctx); err != nil {
		s.logger.Errorf("SMS grace sweep finished with errors: %v", err)
	}

	schedulerTicksTotal.WithLabelValues("ok").Inc()
}
