package quiz

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/memento-care/memento/pkg/model"
	"github.com/memento-care/memento/pkg/utils/logging"
)

// AnswerInput identifies one answer submission.
type AnswerInput struct {
	QuizID         model.QuizID
	QuestionID     model.QuestionID
	SelectedOption string
}

// AnswerResult is the graded outcome of one submission.
type AnswerResult struct {
	IsCorrect            bool   `json:"isCorrect"`
	CorrectOption        string `json:"correctOption"`
	Explanation          string `json:"explanation,omitempty"`
	AllQuestionsAnswered bool   `json:"allQuestionsAnswered"`
	Score                int    `json:"score"`
}

// RecordAnswer grades one answer inside a transaction, so a question can
// be answered at most once even under concurrent submissions. Answering
// the last open question completes the session and updates the
// patient's rolling memory score best-effort.
func (u *UseCase) RecordAnswer(ctx context.Context, input AnswerInput) (*AnswerResult, error) {
	selected := strings.ToUpper(strings.TrimSpace(input.SelectedOption))
	if !model.ValidOption(selected) {
		return nil, goerr.Wrap(model.ErrInvalidInput, "selected option must be A-D",
			goerr.V("selected", input.SelectedOption))
	}

	session, err := u.repo.UpdateQuizSession(ctx, input.QuizID, func(s *model.QuizSession) error {
		question := s.Question(input.QuestionID)
		if question == nil {
			return goerr.Wrap(model.ErrNotFound, "question not found in quiz",
				goerr.V("quiz_id", input.QuizID), goerr.V("question_id", input.QuestionID))
		}
		if s.Answered(input.QuestionID) {
			return goerr.Wrap(model.ErrDuplicateAnswer, "question already answered",
				goerr.V("question_id", input.QuestionID))
		}

		s.Answers = append(s.Answers, &model.QuizAnswer{
			QuestionID:     input.QuestionID,
			SelectedOption: selected,
			CorrectOption:  question.CorrectAnswer,
			IsCorrect:      question.CorrectAnswer != "" && selected == question.CorrectAnswer,
			Timestamp:      time.Now(),
		})

		if s.AllAnswered() {
			now := time.Now()
			s.Status = model.QuizStatusCompleted
			s.CompletedAt = &now
			s.Score = s.FinalScore()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if session.Status == model.QuizStatusCompleted {
		u.updateMemoryScore(ctx, session.PatientID)
	}

	var answer *model.QuizAnswer
	for _, a := range session.Answers {
		if a.QuestionID == input.QuestionID {
			answer = a
			break
		}
	}
	question := session.Question(input.QuestionID)

	return &AnswerResult{
		IsCorrect:            answer.IsCorrect,
		CorrectOption:        answer.CorrectOption,
		Explanation:          question.Explanation,
		AllQuestionsAnswered: session.AllAnswered(),
		Score:                session.Score,
	}, nil
}

// updateMemoryScore writes the average of the most recent completed
// session scores to the patient profile. Failures are logged, never
// surfaced; the quiz result stands regardless.
func (u *UseCase) updateMemoryScore(ctx context.Context, patientID model.PatientID) {
	logger := logging.From(ctx)

	sessions, err := u.repo.ListCompletedQuizSessions(ctx, patientID, rollingScoreWindow, false)
	if err != nil {
		logger.Warn("failed to list completed quiz sessions", "error", err, "patient_id", patientID)
		return
	}
	if len(sessions) == 0 {
		return
	}

	var sum int
	for _, s := range sessions {
		sum += s.Score
	}
	score := int(math.Round(float64(sum) / float64(len(sessions))))

	if _, err := u.repo.UpdatePatient(ctx, patientID, func(p *model.Patient) error {
		p.MemoryScore = score
		return nil
	}); err != nil {
		logger.Warn("failed to update patient memory score", "error", err, "patient_id", patientID)
	}
}
