package quiz

import (
	"context"

	"github.com/memento-care/memento/pkg/model"
)

// GetSession retrieves one quiz session with its questions and recorded
// answers.
func (u *UseCase) GetSession(ctx context.Context, id model.QuizID) (*model.QuizSession, error) {
	return u.repo.GetQuizSession(ctx, id)
}
