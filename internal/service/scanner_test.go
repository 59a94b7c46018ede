package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanCreatesReminderOnlyAtDueMinute(t *testing.T) {
	env := newTestEnv()
	env.addMedication(10, "Aspirin", "08:00")
	ctx := context.Background()

	env.at(7, 59)
	require.NoError(t, env.svc.ScanDueDoses(ctx))
	assert.Equal(t, 0, env.gateway.voiceCount())

	env.at(8, 0)
	require.NoError(t, env.svc.ScanDueDoses(ctx))
	assert.Equal(t, 1, env.gateway.voiceCount())

	env.at(8, 1)
	require.NoError(t, env.svc.ScanDueDoses(ctx))
	assert.Equal(t, 1, env.gateway.voiceCount())
}

func TestScanDedupesWithinCalendarDay(t *testing.T) {
	env := newTestEnv()
	env.addMedication(10, "Aspirin", "08:00", "20:00")
	ctx := context.Background()

	env.at(8, 0)
	require.NoError(t, env.svc.ScanDueDoses(ctx))
	require.NoError(t, env.svc.ScanDueDoses(ctx))
	assert.Equal(t, 1, env.gateway.voiceCount())

	// The evening slot falls on the same calendar day, so no second record.
	env.at(20, 0)
	require.NoError(t, env.svc.ScanDueDoses(ctx))
	assert.Equal(t, 1, env.gateway.voiceCount())

	// The next day starts fresh.
	env.clock.Set(time.Date(2025, 6, 3, 8, 0, 0, 0, time.Local))
	require.NoError(t, env.svc.ScanDueDoses(ctx))
	assert.Equal(t, 2, env.gateway.voiceCount())
}

func TestScanSkipsInactiveAndExpiredMedications(t *testing.T) {
	env := newTestEnv()
	inactive := env.addMedication(10, "Old Med", "08:00")
	inactive.Active = false

	ended := env.addMedication(11, "Finished Med", "08:00")
	endDate := time.Date(2025, 5, 1, 0, 0, 0, 0, time.Local)
	ended.EndDate = &endDate

	env.at(8, 0)
	require.NoError(t, env.svc.ScanDueDoses(context.Background()))
	assert.Equal(t, 0, env.gateway.voiceCount())
}

func TestScanNormalizesSingleDigitHour(t *testing.T) {
	env := newTestEnv()
	env.addMedication(10, "Aspirin", "8:05")

	env.at(8, 5)
	require.NoError(t, env.svc.ScanDueDoses(context.Background()))
	assert.Equal(t, 1, env.gateway.voiceCount())
}

func TestScanTreatsDuplicateInsertAsBenign(t *testing.T) {
	env := newTestEnv()
	med := env.addMedication(10, "Aspirin", "08:00")
	ctx := context.Background()

	env.at(8, 0)
	_, err := env.svc.SendReminder(ctx, med)
	require.NoError(t, err)

	// A concurrent tick can miss the dedupe lookup and lose the insert race
	// to the unique index. That outcome is not an error.
	env.reminders.findAlwaysNil = true
	require.NoError(t, env.svc.ScanDueDoses(ctx))
	assert.Equal(t, 1, env.gateway.voiceCount())
}

func TestScanReportsDedupeLookupFailure(t *testing.T) {
	env := newTestEnv()
	env.addMedication(10, "Aspirin", "08:00")
	env.reminders.findErr = errors.New("connection reset")

	env.at(8, 0)
	err := env.svc.ScanDueDoses(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, env.gateway.voiceCount())
}
