package model

import "strings"

type PatientID string

// PersonalInfo holds profile fields used to personalize companion prompts.
type PersonalInfo struct {
	Hometown   string   `firestore:"hometown" json:"hometown"`
	Occupation string   `firestore:"occupation" json:"occupation"`
	Hobbies    []string `firestore:"hobbies" json:"hobbies"`
}

// Patient is a user document in the "users" collection.
type Patient struct {
	ID           PatientID    `firestore:"-" json:"id"`
	DisplayName  string       `firestore:"displayName" json:"displayName"`
	PersonalInfo PersonalInfo `firestore:"personalInfo" json:"personalInfo"`

	// MemoryScore is the rolling average of the most recent completed
	// quiz scores, updated best-effort on quiz completion.
	MemoryScore int `firestore:"memoryScore" json:"memoryScore"`

	Reminders []*Reminder `firestore:"reminders" json:"reminders,omitempty"`
}

// FirstName returns the first token of the display name.
func (p *Patient) FirstName() string {
	fields := strings.Fields(p.DisplayName)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
