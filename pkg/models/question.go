// Package models defines the immutable value records passed between pipeline
// stages. Each stage constructs its own output entity; nothing here is
// mutated after creation.
package models

import (
	"time"

	"github.com/google/uuid"
)

// UserQuestion is the raw natural-language question at pipeline entry.
// Text is language-agnostic and may mix languages (e.g. Indonesian + English).
type UserQuestion struct {
	ID         uuid.UUID
	Text       string
	ReceivedAt time.Time
}

// NewUserQuestion assigns a request ID and timestamps the question.
func NewUserQuestion(text string) UserQuestion {
	return UserQuestion{
		ID:         uuid.New(),
		Text:       text,
		ReceivedAt: time.Now(),
	}
}
