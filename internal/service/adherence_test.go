package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightmed/medremind/internal/models"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name     string
		statuses []models.ReminderStatus
		want     models.AdherenceStats
	}{
		{
			name: "empty",
			want: models.AdherenceStats{},
		},
		{
			name:     "all taken",
			statuses: []models.ReminderStatus{models.ReminderStatusTaken, models.ReminderStatusTaken},
			want:     models.AdherenceStats{Total: 2, Taken: 2, AdherenceRate: 100},
		},
		{
			name:     "none taken",
			statuses: []models.ReminderStatus{models.ReminderStatusMissed, models.ReminderStatusSent},
			want:     models.AdherenceStats{Total: 2, Missed: 1, Pending: 1},
		},
		{
			name: "rate rounds to nearest",
			statuses: []models.ReminderStatus{
				models.ReminderStatusTaken, models.ReminderStatusTaken,
				models.ReminderStatusMissed,
			},
			want: models.AdherenceStats{Total: 3, Taken: 2, Missed: 1, AdherenceRate: 67},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs []*models.ReminderLog
			for _, st := range tt.statuses {
				logs = append(logs, &models.ReminderLog{Status: st})
			}
			assert.Equal(t, &tt.want, Summarize(logs))
		})
	}
}

func TestAdherenceStatsWindowsBySince(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// One old record outside the 7 day window, two inside.
	old := &models.ReminderLog{MedicationID: 1, ElderID: 1,
		ScheduledTime: time.Date(2025, 5, 1, 8, 0, 0, 0, time.Local),
		Status:        models.ReminderStatusMissed}
	_, err := env.reminders.Create(ctx, old)
	require.NoError(t, err)

	for day, status := range map[int]models.ReminderStatus{
		1: models.ReminderStatusTaken,
		2: models.ReminderStatusMissed,
	} {
		_, err := env.reminders.Create(ctx, &models.ReminderLog{
			MedicationID:  int64(day + 1),
			ElderID:       1,
			ScheduledTime: time.Date(2025, 6, day, 8, 0, 0, 0, time.Local),
			Status:        status,
		})
		require.NoError(t, err)
	}

	env.clock.Set(time.Date(2025, 6, 2, 12, 0, 0, 0, time.Local))
	stats, err := env.svc.AdherenceStats(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, &models.AdherenceStats{Total: 2, Taken: 1, Missed: 1, AdherenceRate: 50}, stats)
}
