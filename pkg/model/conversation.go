package model

import (
	"time"

	"github.com/google/uuid"
)

type MessageID string

// NewMessageID generates a new unique MessageID
func NewMessageID() MessageID {
	return MessageID(uuid.New().String())
}

type Sender string

const (
	SenderPatient   Sender = "patient"
	SenderAssistant Sender = "ai"
)

// Entities holds named entities extracted from a patient message,
// grouped by kind.
type Entities struct {
	People        []string `firestore:"people" json:"people"`
	Locations     []string `firestore:"locations" json:"locations"`
	Organizations []string `firestore:"organizations" json:"organizations"`
	Other         []string `firestore:"other" json:"other"`
}

// Message is one turn in a patient's conversation log. Messages are
// append-only and created in pairs (patient message + assistant reply).
type Message struct {
	ID        MessageID `firestore:"id" json:"id"`
	Sender    Sender    `firestore:"sender" json:"sender"`
	Content   string    `firestore:"content" json:"content"`
	Timestamp time.Time `firestore:"timestamp" json:"timestamp"`
	Topics    []string  `firestore:"topics" json:"topics,omitempty"`

	// Sentiment fields are only set on patient messages.
	Sentiment      SentimentCategory `firestore:"sentiment,omitempty" json:"sentiment,omitempty"`
	SentimentScore float64           `firestore:"sentimentScore,omitempty" json:"sentimentScore,omitempty"`
	Entities       *Entities         `firestore:"entities,omitempty" json:"entities,omitempty"`
}
