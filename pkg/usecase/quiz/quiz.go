package quiz

import (
	"github.com/memento-care/memento/pkg/adapter"
	"github.com/memento-care/memento/pkg/repository"
)

// Question count bounds for one quiz.
const (
	MinQuestionCount = 1
	MaxQuestionCount = 10
)

// Seed limits for personalized quiz generation.
const (
	maxMemorySeeds       = 10
	conversationWindow   = 30 // days
	maxConversationReads = 50
	maxConversationSeeds = 20
)

// rollingScoreWindow is how many recent completed sessions feed the
// patient's memory score.
const rollingScoreWindow = 5

// UseCase generates quizzes and grades answers.
type UseCase struct {
	repo   repository.Repository
	gemini adapter.Gemini
}

// New creates a quiz UseCase
func New(repo repository.Repository, gemini adapter.Gemini) *UseCase {
	return &UseCase{
		repo:   repo,
		gemini: gemini,
	}
}
