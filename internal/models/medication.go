package models

import (
	"fmt"
	"regexp"
	"time"
)

var timeOfDayRe = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

// Medication represents a prescribed medication schedule for one elder.
// Times holds wall-clock "HH:MM" entries interpreted in server-local time.
type Medication struct {
	ID           int64      `json:"id" db:"id"`
	ElderID      int64      `json:"elder_id" db:"elder_id"`
	Name         string     `json:"name" db:"name"`
	Dosage       string     `json:"dosage" db:"dosage"`
	Times        []string   `json:"times" db:"times"`
	StartDate    time.Time  `json:"start_date" db:"start_date"`
	EndDate      *time.Time `json:"end_date,omitempty" db:"end_date"`
	Instructions string     `json:"instructions,omitempty" db:"instructions"`
	Active       bool       `json:"active" db:"active"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// Validate checks the schedule invariants: at least one time while active,
// HH:MM format, and no duplicate entries.
func (m *Medication) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("medication name is required")
	}
	if m.Dosage == "" {
		return fmt.Errorf("dosage is required")
	}
	if m.Active && len(m.Times) == 0 {
		return fmt.Errorf("an active medication requires at least one scheduled time")
	}
	seen := make(map[string]bool, len(m.Times))
	for _, t := range m.Times {
		if !timeOfDayRe.MatchString(t) {
			return fmt.Errorf("time %q must be in HH:MM format", t)
		}
		if seen[t] {
			return fmt.Errorf("duplicate scheduled time %q", t)
		}
		seen[t] = true
	}
	return nil
}

// IsDueAt reports whether any scheduled time matches the given instant,
// compared at minute granularity.
func (m *Medication) IsDueAt(now time.Time) bool {
	current := now.Format("15:04")
	for _, t := range m.Times {
		if normalizeTimeOfDay(t) == current {
			return true
		}
	}
	return false
}

// normalizeTimeOfDay pads single-digit hours so "8:00" matches "08:00".
func normalizeTimeOfDay(t string) string {
	if len(t) == 4 {
		return "0" + t
	}
	return t
}
