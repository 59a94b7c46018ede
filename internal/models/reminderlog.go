package models

import "time"

// ReminderStatus is the lifecycle state of a reminder log.
type ReminderStatus string

const (
	ReminderStatusSent   ReminderStatus = "sent"
	ReminderStatusTaken  ReminderStatus = "taken"
	ReminderStatusMissed ReminderStatus = "missed"
)

// ConfirmationMethod is the channel through which a dose was confirmed taken.
type ConfirmationMethod string

const (
	ConfirmationNone           ConfirmationMethod = "none"
	ConfirmationCallDisconnect ConfirmationMethod = "call_disconnect"
	ConfirmationKeypad         ConfirmationMethod = "keypad"
	ConfirmationManual         ConfirmationMethod = "manual"
)

// Valid reports whether the method is one of the accepted confirmation channels.
func (c ConfirmationMethod) Valid() bool {
	switch c {
	case ConfirmationCallDisconnect, ConfirmationKeypad, ConfirmationManual:
		return true
	}
	return false
}

// ReminderLog tracks one dose of one medication through the escalation
// ladder: voice call, then SMS, then caregiver alert. The *_Sent flags record
// the gateway outcome of each attempt; the timestamps record that the attempt
// was made at all, and drive the grace-period sweeps.
type ReminderLog struct {
	ID                 int64              `json:"id" db:"id"`
	MedicationID       int64              `json:"medication_id" db:"medication_id"`
	ElderID            int64              `json:"elder_id" db:"elder_id"`
	ScheduledTime      time.Time          `json:"scheduled_time" db:"scheduled_time"`
	Status             ReminderStatus     `json:"status" db:"status"`
	VoiceCallSent      bool               `json:"voice_call_sent" db:"voice_call_sent"`
	VoiceCallTime      *time.Time         `json:"voice_call_time,omitempty" db:"voice_call_time"`
	SMSSent            bool               `json:"sms_sent" db:"sms_sent"`
	SMSTime            *time.Time         `json:"sms_time,omitempty" db:"sms_time"`
	ConfirmationMethod ConfirmationMethod `json:"confirmation_method" db:"confirmation_method"`
	ConfirmationTime   *time.Time         `json:"confirmation_time,omitempty" db:"confirmation_time"`
	CaregiverAlertSent bool               `json:"caregiver_alert_sent" db:"caregiver_alert_sent"`
	CaregiverAlertTime *time.Time         `json:"caregiver_alert_time,omitempty" db:"caregiver_alert_time"`
	Notes              string             `json:"notes,omitempty" db:"notes"`
	CreatedAt          time.Time          `json:"created_at" db:"created_at"`
}

// Confirmed reports whether the dose has been confirmed through any channel.
func (r *ReminderLog) Confirmed() bool {
	return r.ConfirmationMethod != ConfirmationNone && r.ConfirmationMethod != ""
}

// AdherenceStats summarizes reminder outcomes over a reporting window.
type AdherenceStats struct {
	Total         int `json:"total"`
	Taken         int `json:"taken"`
	Missed        int `json:"missed"`
	Pending       int `json:"pending"`
	AdherenceRate int `json:"adherence_rate"`
}
