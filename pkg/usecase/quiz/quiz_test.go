package quiz_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/memento-care/memento/pkg/model"
	"github.com/memento-care/memento/pkg/repository"
	"github.com/memento-care/memento/pkg/usecase/quiz"
	"google.golang.org/genai"
)

type mockGemini struct {
	generateFunc  func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	embeddingFunc func(ctx context.Context, text string) ([]float32, error)
}

func (m *mockGemini) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if m.generateFunc != nil {
		return m.generateFunc(ctx, contents, config)
	}
	return nil, errors.New("not implemented")
}

func (m *mockGemini) Embedding(ctx context.Context, text string) ([]float32, error) {
	if m.embeddingFunc != nil {
		return m.embeddingFunc(ctx, text)
	}
	return nil, errors.New("not implemented")
}

func quizText(n int) string {
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&sb, "Q%d: Question number %d?\n", i, i)
		sb.WriteString("A. First\nB. Second\nC. Third\nD. Fourth\n")
		sb.WriteString("CORRECT: A\n")
		fmt.Fprintf(&sb, "EXPLANATION: Explanation %d.\n", i)
		sb.WriteString("CATEGORY: general\n\n")
	}
	return sb.String()
}

func genaiReply(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func seedPatient(repo *repository.Memory) model.PatientID {
	id := model.PatientID("patient-1")
	repo.PutPatient(&model.Patient{ID: id, DisplayName: "Margaret Olsen"})
	return id
}

func TestGenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("general quiz round trip", func(t *testing.T) {
		repo := repository.NewMemory()
		patientID := seedPatient(repo)
		gemini := &mockGemini{generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return genaiReply(quizText(3)), nil
		}}
		uc := quiz.New(repo, gemini)

		result, err := uc.Generate(ctx, quiz.GenerateInput{
			PatientID:     patientID,
			QuizType:      model.QuizTypeGeneral,
			QuestionCount: 3,
		})
		gt.NoError(t, err)
		gt.Equal(t, result.QuizType, model.QuizTypeGeneral)
		gt.Equal(t, result.QuestionCount, 3)
		gt.A(t, result.Questions).Length(3)

		session, err := uc.GetSession(ctx, result.QuizID)
		gt.NoError(t, err)
		gt.Equal(t, session.Status, model.QuizStatusActive)
		gt.Equal(t, session.PatientID, patientID)
		gt.Equal(t, session.PatientName, "Margaret Olsen")
		gt.A(t, session.Answers).Length(0)
	})

	t.Run("memory quiz seeds prompt with chunk summaries", func(t *testing.T) {
		repo := repository.NewMemory()
		patientID := seedPatient(repo)
		gt.NoError(t, repo.PutChunk(ctx, patientID, &model.MemoryChunk{
			ID:        model.NewChunkID(),
			Summary:   "Margaret taught third grade for thirty years",
			Timestamp: time.Now(),
			Metadata:  model.ChunkMetadata{Type: model.MemoryTypeBiography},
		}))

		var prompt string
		gemini := &mockGemini{generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			prompt = contents[0].Parts[0].Text
			return genaiReply(quizText(2)), nil
		}}
		uc := quiz.New(repo, gemini)

		_, err := uc.Generate(ctx, quiz.GenerateInput{
			PatientID:     patientID,
			QuizType:      model.QuizTypeMemory,
			QuestionCount: 2,
		})
		gt.NoError(t, err)
		gt.S(t, prompt).Contains("Margaret taught third grade for thirty years")
	})

	t.Run("conversation quiz seeds only patient lines", func(t *testing.T) {
		repo := repository.NewMemory()
		patientID := seedPatient(repo)
		now := time.Now()
		gt.NoError(t, repo.AppendMessages(ctx, patientID,
			&model.Message{ID: model.NewMessageID(), Sender: model.SenderPatient,
				Content: "I walked to the bakery today", Timestamp: now.Add(-time.Hour)},
			&model.Message{ID: model.NewMessageID(), Sender: model.SenderAssistant,
				Content: "That sounds wonderful", Timestamp: now.Add(-time.Hour + time.Millisecond)},
			&model.Message{ID: model.NewMessageID(), Sender: model.SenderPatient,
				Content: "An outdated walk", Timestamp: now.AddDate(0, 0, -45)},
		))

		var prompt string
		gemini := &mockGemini{generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			prompt = contents[0].Parts[0].Text
			return genaiReply(quizText(2)), nil
		}}
		uc := quiz.New(repo, gemini)

		_, err := uc.Generate(ctx, quiz.GenerateInput{
			PatientID:     patientID,
			QuizType:      model.QuizTypeConversation,
			QuestionCount: 2,
		})
		gt.NoError(t, err)
		gt.S(t, prompt).Contains("I walked to the bakery today")
		gt.False(t, strings.Contains(prompt, "That sounds wonderful"))
		gt.False(t, strings.Contains(prompt, "An outdated walk"))
	})

	t.Run("excess questions truncated to requested count", func(t *testing.T) {
		repo := repository.NewMemory()
		patientID := seedPatient(repo)
		gemini := &mockGemini{generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return genaiReply(quizText(7)), nil
		}}
		uc := quiz.New(repo, gemini)

		result, err := uc.Generate(ctx, quiz.GenerateInput{
			PatientID:     patientID,
			QuizType:      model.QuizTypeGeneral,
			QuestionCount: 4,
		})
		gt.NoError(t, err)
		gt.Equal(t, result.QuestionCount, 4)
	})

	t.Run("question count out of range", func(t *testing.T) {
		repo := repository.NewMemory()
		patientID := seedPatient(repo)
		uc := quiz.New(repo, &mockGemini{})

		for _, count := range []int{0, -1, 11} {
			_, err := uc.Generate(ctx, quiz.GenerateInput{
				PatientID:     patientID,
				QuizType:      model.QuizTypeGeneral,
				QuestionCount: count,
			})
			gt.Error(t, err)
			gt.True(t, errors.Is(err, model.ErrInvalidInput))
		}
	})

	t.Run("invalid quiz type", func(t *testing.T) {
		repo := repository.NewMemory()
		patientID := seedPatient(repo)
		uc := quiz.New(repo, &mockGemini{})

		_, err := uc.Generate(ctx, quiz.GenerateInput{
			PatientID:     patientID,
			QuizType:      "trivia",
			QuestionCount: 3,
		})
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrInvalidInput))
	})

	t.Run("unknown patient", func(t *testing.T) {
		repo := repository.NewMemory()
		uc := quiz.New(repo, &mockGemini{})

		_, err := uc.Generate(ctx, quiz.GenerateInput{
			PatientID:     "nobody",
			QuizType:      model.QuizTypeGeneral,
			QuestionCount: 3,
		})
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrNotFound))
	})

	t.Run("unparseable output is an error", func(t *testing.T) {
		repo := repository.NewMemory()
		patientID := seedPatient(repo)
		gemini := &mockGemini{generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return genaiReply("I cannot make a quiz right now."), nil
		}}
		uc := quiz.New(repo, gemini)

		_, err := uc.Generate(ctx, quiz.GenerateInput{
			PatientID:     patientID,
			QuizType:      model.QuizTypeGeneral,
			QuestionCount: 3,
		})
		gt.Error(t, err)
	})
}

func generateQuiz(t *testing.T, repo *repository.Memory, patientID model.PatientID, count int) *quiz.GenerateResult {
	t.Helper()
	gemini := &mockGemini{generateFunc: func(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return genaiReply(quizText(count)), nil
	}}
	uc := quiz.New(repo, gemini)
	result, err := uc.Generate(context.Background(), quiz.GenerateInput{
		PatientID:     patientID,
		QuizType:      model.QuizTypeGeneral,
		QuestionCount: count,
	})
	gt.NoError(t, err)
	return result
}

func TestRecordAnswer(t *testing.T) {
	ctx := context.Background()

	t.Run("grading and completion", func(t *testing.T) {
		repo := repository.NewMemory()
		patientID := seedPatient(repo)
		uc := quiz.New(repo, &mockGemini{})
		generated := generateQuiz(t, repo, patientID, 5)

		// Correct answer is A for every generated question; answer three
		// correctly and two wrong for a score of 60.
		for i, q := range generated.Questions {
			selected := "A"
			if i >= 3 {
				selected = "B"
			}
			result, err := uc.RecordAnswer(ctx, quiz.AnswerInput{
				QuizID:         generated.QuizID,
				QuestionID:     q.ID,
				SelectedOption: selected,
			})
			gt.NoError(t, err)
			gt.Equal(t, result.IsCorrect, i < 3)
			gt.Equal(t, result.CorrectOption, "A")
			gt.Equal(t, result.AllQuestionsAnswered, i == 4)
		}

		session, err := uc.GetSession(ctx, generated.QuizID)
		gt.NoError(t, err)
		gt.Equal(t, session.Status, model.QuizStatusCompleted)
		gt.V(t, session.CompletedAt).NotNil()
		gt.Equal(t, session.Score, 60)

		patient, err := repo.GetPatient(ctx, patientID)
		gt.NoError(t, err)
		gt.Equal(t, patient.MemoryScore, 60)
	})

	t.Run("duplicate answer rejected and state unchanged", func(t *testing.T) {
		repo := repository.NewMemory()
		patientID := seedPatient(repo)
		uc := quiz.New(repo, &mockGemini{})
		generated := generateQuiz(t, repo, patientID, 2)
		questionID := generated.Questions[0].ID

		first, err := uc.RecordAnswer(ctx, quiz.AnswerInput{
			QuizID: generated.QuizID, QuestionID: questionID, SelectedOption: "B",
		})
		gt.NoError(t, err)
		gt.False(t, first.IsCorrect)

		_, err = uc.RecordAnswer(ctx, quiz.AnswerInput{
			QuizID: generated.QuizID, QuestionID: questionID, SelectedOption: "A",
		})
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrDuplicateAnswer))

		session, err := uc.GetSession(ctx, generated.QuizID)
		gt.NoError(t, err)
		gt.A(t, session.Answers).Length(1)
		gt.Equal(t, session.Answers[0].SelectedOption, "B")
		gt.Equal(t, session.Status, model.QuizStatusActive)
	})

	t.Run("option letter normalized", func(t *testing.T) {
		repo := repository.NewMemory()
		patientID := seedPatient(repo)
		uc := quiz.New(repo, &mockGemini{})
		generated := generateQuiz(t, repo, patientID, 2)

		result, err := uc.RecordAnswer(ctx, quiz.AnswerInput{
			QuizID: generated.QuizID, QuestionID: generated.Questions[0].ID, SelectedOption: " a ",
		})
		gt.NoError(t, err)
		gt.True(t, result.IsCorrect)
	})

	t.Run("invalid option rejected", func(t *testing.T) {
		repo := repository.NewMemory()
		patientID := seedPatient(repo)
		uc := quiz.New(repo, &mockGemini{})
		generated := generateQuiz(t, repo, patientID, 2)

		_, err := uc.RecordAnswer(ctx, quiz.AnswerInput{
			QuizID: generated.QuizID, QuestionID: generated.Questions[0].ID, SelectedOption: "E",
		})
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrInvalidInput))
	})

	t.Run("unknown question", func(t *testing.T) {
		repo := repository.NewMemory()
		patientID := seedPatient(repo)
		uc := quiz.New(repo, &mockGemini{})
		generated := generateQuiz(t, repo, patientID, 2)

		_, err := uc.RecordAnswer(ctx, quiz.AnswerInput{
			QuizID: generated.QuizID, QuestionID: model.NewQuestionID(), SelectedOption: "A",
		})
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrNotFound))
	})

	t.Run("unknown quiz", func(t *testing.T) {
		repo := repository.NewMemory()
		seedPatient(repo)
		uc := quiz.New(repo, &mockGemini{})

		_, err := uc.RecordAnswer(ctx, quiz.AnswerInput{
			QuizID: model.NewQuizID(), QuestionID: model.NewQuestionID(), SelectedOption: "A",
		})
		gt.Error(t, err)
		gt.True(t, errors.Is(err, model.ErrNotFound))
	})

	t.Run("question without answer key is never correct", func(t *testing.T) {
		repo := repository.NewMemory()
		patientID := seedPatient(repo)
		session := &model.QuizSession{
			ID:        model.NewQuizID(),
			PatientID: patientID,
			QuizType:  model.QuizTypeGeneral,
			CreatedAt: time.Now(),
			Status:    model.QuizStatusActive,
			Questions: []*model.QuizQuestion{{
				ID:      model.NewQuestionID(),
				Text:    "A question the model forgot to key?",
				Options: []model.QuizOption{{ID: "A", Text: "Yes"}, {ID: "B", Text: "No"}},
			}},
			Answers: []*model.QuizAnswer{},
		}
		gt.NoError(t, repo.PutQuizSession(ctx, session))
		uc := quiz.New(repo, &mockGemini{})

		result, err := uc.RecordAnswer(ctx, quiz.AnswerInput{
			QuizID: session.ID, QuestionID: session.Questions[0].ID, SelectedOption: "A",
		})
		gt.NoError(t, err)
		gt.False(t, result.IsCorrect)
		gt.Equal(t, result.CorrectOption, "")
		gt.True(t, result.AllQuestionsAnswered)
		gt.Equal(t, result.Score, 0)
	})
}

func TestPatientHistory(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemory()
	patientID := seedPatient(repo)
	uc := quiz.New(repo, &mockGemini{})

	now := time.Now()
	scores := []int{40, 60, 80}
	for i, score := range scores {
		completedAt := now.Add(time.Duration(i) * time.Hour)
		gt.NoError(t, repo.PutQuizSession(ctx, &model.QuizSession{
			ID:          model.NewQuizID(),
			PatientID:   patientID,
			QuizType:    model.QuizTypeGeneral,
			CreatedAt:   completedAt.Add(-time.Minute),
			Status:      model.QuizStatusCompleted,
			CompletedAt: &completedAt,
			Score:       score,
		}))
	}
	gt.NoError(t, repo.PutQuizSession(ctx, &model.QuizSession{
		ID:        model.NewQuizID(),
		PatientID: patientID,
		QuizType:  model.QuizTypeMemory,
		CreatedAt: now.Add(4 * time.Hour),
		Status:    model.QuizStatusActive,
	}))

	history, err := uc.PatientHistory(ctx, patientID, 2)
	gt.NoError(t, err)
	gt.A(t, history.Sessions).Length(2)
	gt.Equal(t, history.Sessions[0].QuizType, model.QuizTypeMemory)
	gt.Equal(t, history.TotalSessions, int64(4))
	gt.Equal(t, history.CompletedSessions, int64(3))
	gt.Equal(t, history.ScoreTrend, []int{40, 60, 80})
}
