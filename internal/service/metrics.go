package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	remindersSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medremind_reminders_sent_total",
		Help: "Reminder records created by the due-dose scanner.",
	})

	smsEscalationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medremind_sms_escalations_total",
		Help: "Reminders escalated from voice call to SMS.",
	})

	caregiverAlertsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medremind_caregiver_alerts_total",
		Help: "Missed doses that triggered a caregiver alert.",
	})

	confirmationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medremind_confirmations_total",
		Help: "Dose confirmations by method.",
	}, []string{"method"})

	sweepErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "medremind_sweep_errors_total",
		Help: "Per-record failures during scan and sweep phases.",
	})

	schedulerTicksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medremind_scheduler_ticks_total",
		Help: "Scheduler ticks by outcome (ok or skipped).",
	}, []string{"result"})

	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "medremind_tick_duration_seconds",
		Help:    "Duration of a full scheduler tick (scan plus both sweeps).",
		Buckets: prometheus.DefBuckets,
	})
)
