package quiz

import (
	"context"
	"time"

	"github.com/memento-care/memento/pkg/model"
)

const (
	defaultHistoryLimit = 10
	maxHistoryLimit     = 50
	scoreTrendWindow    = 10
)

// HistoryEntry is a condensed view of one quiz session.
type HistoryEntry struct {
	QuizID        model.QuizID     `json:"quiz_id"`
	QuizType      model.QuizType   `json:"quiz_type"`
	CreatedAt     time.Time        `json:"createdAt"`
	Status        model.QuizStatus `json:"status"`
	QuestionCount int              `json:"questionCount"`
	CorrectCount  int              `json:"correctCount"`
	Score         int              `json:"score"`
}

// History summarizes a patient's quiz activity.
type History struct {
	Sessions          []HistoryEntry `json:"sessions"`
	TotalSessions     int64          `json:"totalSessions"`
	CompletedSessions int64          `json:"completedSessions"`

	// ScoreTrend holds recent completed scores, oldest first.
	ScoreTrend []int `json:"scoreTrend"`
}

// PatientHistory returns the patient's recent sessions, aggregate counts
// and a score trend over the most recent completed sessions.
func (u *UseCase) PatientHistory(ctx context.Context, patientID model.PatientID, limit int) (*History, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	sessions, err := u.repo.ListQuizSessions(ctx, patientID, limit)
	if err != nil {
		return nil, err
	}

	total, err := u.repo.CountQuizSessions(ctx, patientID, false)
	if err != nil {
		return nil, err
	}
	completed, err := u.repo.CountQuizSessions(ctx, patientID, true)
	if err != nil {
		return nil, err
	}

	recent, err := u.repo.ListCompletedQuizSessions(ctx, patientID, scoreTrendWindow, false)
	if err != nil {
		return nil, err
	}

	history := &History{
		Sessions:          make([]HistoryEntry, 0, len(sessions)),
		TotalSessions:     total,
		CompletedSessions: completed,
		ScoreTrend:        make([]int, 0, len(recent)),
	}

	for _, s := range sessions {
		history.Sessions = append(history.Sessions, HistoryEntry{
			QuizID:        s.ID,
			QuizType:      s.QuizType,
			CreatedAt:     s.CreatedAt,
			Status:        s.Status,
			QuestionCount: len(s.Questions),
			CorrectCount:  s.CorrectCount(),
			Score:         s.Score,
		})
	}

	// recent is newest first; the trend reads left to right in time.
	for i := len(recent) - 1; i >= 0; i-- {
		history.ScoreTrend = append(history.ScoreTrend, recent[i].Score)
	}

	return history, nil
}
