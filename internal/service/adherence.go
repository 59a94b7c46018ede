package service

import (
	"context"
	"math"

	"github.com/brightmed/medremind/internal/models"
)

// AdherenceStats returns reminder outcome statistics for the past N days.
func (s *Service) AdherenceStats(ctx context.Context, days int) (*models.AdherenceStats, error) {
	since := s.now().AddDate(0, 0, -days)
	return s.Reminders.Stats(ctx, since)
}

// Summarize computes status counts and the adherence rate for a set of
// reminder logs. The rate is round(100 * taken / total), 0 when total is 0.
func Summarize(logs []*models.ReminderLog) *models.AdherenceStats {
	stats := &models.AdherenceStats{Total: len(logs)}
	for _, log := range logs {
		switch log.Status {
		case models.ReminderStatusTaken:
			stats.Taken++
		case models.ReminderStatusMissed:
			stats.Missed++
		case models.ReminderStatusSent:
			stats.Pending++
		}
	}
	if stats.Total > 0 {
		stats.AdherenceRate = int(math.Round(float64(stats.Taken) / float64(stats.Total) * 100))
	}
	return stats
}
