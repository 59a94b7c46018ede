package models

import "time"

// Language is the elder's preferred language for voice and SMS reminders.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageHindi   Language = "hi"
	LanguageMarathi Language = "mr"
)

// Valid reports whether the language is one of the supported values.
func (l Language) Valid() bool {
	switch l {
	case LanguageEnglish, LanguageHindi, LanguageMarathi:
		return true
	}
	return false
}

// Elder represents a patient receiving medication reminders. Every elder
// belongs to exactly one caregiver.
type Elder struct {
	ID                int64     `json:"id" db:"id"`
	Name              string    `json:"name" db:"name"`
	PhoneNumber       string    `json:"phone_number" db:"phone_number"`
	PreferredLanguage Language  `json:"preferred_language" db:"preferred_language"`
	CaregiverID       int64     `json:"caregiver_id" db:"caregiver_id"`
	Age               *int      `json:"age,omitempty" db:"age"`
	Address           string    `json:"address,omitempty" db:"address"`
	EmergencyContact  string    `json:"emergency_contact,omitempty" db:"emergency_contact"`
	CreatedAt         time.Time `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" db:"updated_at"`
}
