package reminder

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/memento-care/memento/pkg/model"
	"github.com/memento-care/memento/pkg/repository"
)

// UseCase manages reminders stored on the patient document. All writes
// go through the transactional patient update, so concurrent reminder
// changes cannot clobber each other.
type UseCase struct {
	repo repository.Repository
}

// New creates a reminder UseCase
func New(repo repository.Repository) *UseCase {
	return &UseCase{repo: repo}
}

// CreateInput describes a new reminder.
type CreateInput struct {
	Title       string
	Description string
	Timestamp   time.Time
	MessageID   model.MessageID
	ImageURL    string
}

// Create appends a reminder to the patient's reminder list.
func (u *UseCase) Create(ctx context.Context, patientID model.PatientID, input CreateInput) (*model.Reminder, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, goerr.Wrap(model.ErrInvalidInput, "reminder title is empty")
	}
	if input.Timestamp.IsZero() {
		return nil, goerr.Wrap(model.ErrInvalidInput, "reminder timestamp is required")
	}

	reminder := &model.Reminder{
		ID:          model.NewReminderID(),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Timestamp:   input.Timestamp,
		MessageID:   input.MessageID,
		ImageURL:    input.ImageURL,
		CreatedAt:   time.Now(),
	}

	if _, err := u.repo.UpdatePatient(ctx, patientID, func(p *model.Patient) error {
		p.Reminders = append(p.Reminders, reminder)
		return nil
	}); err != nil {
		return nil, err
	}

	return reminder, nil
}

// List returns the patient's reminders ordered by due time. Completed
// reminders are excluded unless includeCompleted is set.
func (u *UseCase) List(ctx context.Context, patientID model.PatientID, includeCompleted bool) ([]*model.Reminder, error) {
	patient, err := u.repo.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	reminders := make([]*model.Reminder, 0, len(patient.Reminders))
	for _, r := range patient.Reminders {
		if !includeCompleted && r.IsCompleted {
			continue
		}
		reminders = append(reminders, r)
	}

	sort.SliceStable(reminders, func(i, j int) bool {
		return reminders[i].Timestamp.Before(reminders[j].Timestamp)
	})

	return reminders, nil
}

// Complete marks a reminder as done. Completing an already completed
// reminder is a no-op.
func (u *UseCase) Complete(ctx context.Context, patientID model.PatientID, reminderID model.ReminderID) (*model.Reminder, error) {
	var completed *model.Reminder

	if _, err := u.repo.UpdatePatient(ctx, patientID, func(p *model.Patient) error {
		for _, r := range p.Reminders {
			if r.ID == reminderID {
				r.IsCompleted = true
				completed = r
				return nil
			}
		}
		return goerr.Wrap(model.ErrNotFound, "reminder not found",
			goerr.V("patient_id", patientID), goerr.V("reminder_id", reminderID))
	}); err != nil {
		return nil, err
	}

	return completed, nil
}
