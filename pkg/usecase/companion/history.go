package companion

import (
	"context"
	"time"

	"github.com/memento-care/memento/pkg/model"
	"github.com/memento-care/memento/pkg/repository"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// History returns the patient's conversation messages, newest first.
// A zero before means no upper bound.
func (u *UseCase) History(ctx context.Context, patientID model.PatientID, limit int, before time.Time) ([]*model.Message, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	messages, err := u.repo.ListMessages(ctx, patientID, repository.ListMessagesInput{
		Limit:  limit,
		Before: before,
	})
	if err != nil {
		return nil, err
	}

	return messages, nil
}
