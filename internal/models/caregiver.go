package models

import "time"

// Caregiver represents the person responsible for one or more elders and the
// final recipient of missed-medication alerts.
type Caregiver struct {
	ID             int64     `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Email          string    `json:"email" db:"email"`
	PhoneNumber    string    `json:"phone_number" db:"phone_number"`
	TelegramChatID *int64    `json:"telegram_chat_id,omitempty" db:"telegram_chat_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}
