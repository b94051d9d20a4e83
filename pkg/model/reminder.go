package model

import (
	"time"

	"github.com/google/uuid"
)

type ReminderID string

// NewReminderID generates a new unique ReminderID
func NewReminderID() ReminderID {
	return ReminderID(uuid.New().String())
}

// Reminder is a scheduled reminder stored on the patient document,
// optionally linked to the conversation message that triggered it.
type Reminder struct {
	ID          ReminderID `firestore:"id" json:"id"`
	Title       string     `firestore:"title" json:"title"`
	Description string     `firestore:"description" json:"description"`
	Timestamp   time.Time  `firestore:"timestamp" json:"timestamp"`
	IsCompleted bool       `firestore:"isCompleted" json:"isCompleted"`
	MessageID   MessageID  `firestore:"messageId,omitempty" json:"messageId,omitempty"`
	ImageURL    string     `firestore:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	CreatedAt   time.Time  `firestore:"createdAt" json:"createdAt"`
}
