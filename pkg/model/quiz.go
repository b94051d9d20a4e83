package model

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

type QuizID string

// NewQuizID generates a new unique QuizID
func NewQuizID() QuizID {
	return QuizID(uuid.New().String())
}

type QuestionID string

// NewQuestionID generates a new unique QuestionID
func NewQuestionID() QuestionID {
	return QuestionID(uuid.New().String())
}

type QuizType string

const (
	QuizTypeMemory       QuizType = "memory"
	QuizTypeConversation QuizType = "conversation"
	QuizTypeMixed        QuizType = "mixed"
	QuizTypeGeneral      QuizType = "general"
)

// Validate checks if the quiz type is valid
func (t QuizType) Validate() error {
	switch t {
	case QuizTypeMemory, QuizTypeConversation, QuizTypeMixed, QuizTypeGeneral:
		return nil
	default:
		return goerr.Wrap(ErrInvalidInput, "invalid quiz type", goerr.V("type", t))
	}
}

type QuizStatus string

const (
	QuizStatusActive    QuizStatus = "active"
	QuizStatusCompleted QuizStatus = "completed"
)

// ValidOption reports whether s is one of the four option letters.
func ValidOption(s string) bool {
	switch s {
	case "A", "B", "C", "D":
		return true
	default:
		return false
	}
}

// QuizOption is one labeled choice of a question. ID is the option
// letter (A-D).
type QuizOption struct {
	ID   string `firestore:"id" json:"id"`
	Text string `firestore:"text" json:"text"`
}

// QuizQuestion is a parsed multiple-choice question. CorrectAnswer may be
// empty when the model output lacked a CORRECT line; such a question can
// never be answered correctly and is retained as-is.
type QuizQuestion struct {
	ID            QuestionID   `firestore:"id" json:"id"`
	Text          string       `firestore:"text" json:"text"`
	Options       []QuizOption `firestore:"options" json:"options"`
	CorrectAnswer string       `firestore:"correctAnswer" json:"correctAnswer,omitempty"`
	Explanation   string       `firestore:"explanation" json:"explanation,omitempty"`
	Category      string       `firestore:"category" json:"category,omitempty"`
}

// QuizAnswer records one graded answer. At most one answer may exist per
// question.
type QuizAnswer struct {
	QuestionID     QuestionID `firestore:"questionId" json:"questionId"`
	SelectedOption string     `firestore:"selectedOption" json:"selectedOption"`
	CorrectOption  string     `firestore:"correctOption" json:"correctOption"`
	IsCorrect      bool       `firestore:"isCorrect" json:"isCorrect"`
	Timestamp      time.Time  `firestore:"timestamp" json:"timestamp"`
}

// QuizSession is one generated quiz instance. Status transitions
// active -> completed exactly once, when the last question is answered.
type QuizSession struct {
	ID          QuizID          `firestore:"id" json:"id"`
	PatientID   PatientID       `firestore:"patientId" json:"patientId"`
	PatientName string          `firestore:"patientName" json:"patientName,omitempty"`
	QuizType    QuizType        `firestore:"quizType" json:"quizType"`
	CreatedAt   time.Time       `firestore:"createdAt" json:"createdAt"`
	Status      QuizStatus      `firestore:"status" json:"status"`
	Questions   []*QuizQuestion `firestore:"questions" json:"questions"`
	Answers     []*QuizAnswer   `firestore:"answers" json:"answers"`
	CompletedAt *time.Time      `firestore:"completedAt,omitempty" json:"completedAt,omitempty"`
	Score       int             `firestore:"score" json:"score"`
}

// Question returns the question with the given ID, or nil.
func (s *QuizSession) Question(id QuestionID) *QuizQuestion {
	for _, q := range s.Questions {
		if q.ID == id {
			return q
		}
	}
	return nil
}

// Answered reports whether the question already has a recorded answer.
func (s *QuizSession) Answered(id QuestionID) bool {
	for _, a := range s.Answers {
		if a.QuestionID == id {
			return true
		}
	}
	return false
}

// AllAnswered reports whether every question has an answer.
func (s *QuizSession) AllAnswered() bool {
	return len(s.Answers) == len(s.Questions)
}

// CorrectCount returns the number of correct answers recorded so far.
func (s *QuizSession) CorrectCount() int {
	var n int
	for _, a := range s.Answers {
		if a.IsCorrect {
			n++
		}
	}
	return n
}

// FinalScore computes the completion score: round(100 * correct / total).
func (s *QuizSession) FinalScore() int {
	if len(s.Questions) == 0 {
		return 0
	}
	return int(math.Round(100 * float64(s.CorrectCount()) / float64(len(s.Questions))))
}
