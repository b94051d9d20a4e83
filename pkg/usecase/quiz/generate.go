package quiz

import (
	"bytes"
	"context"
	_ "embed"
	"math/rand"
	"strings"
	"text/template"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/memento-care/memento/pkg/adapter"
	"github.com/memento-care/memento/pkg/model"
	"github.com/memento-care/memento/pkg/repository"
	"google.golang.org/genai"
)

//go:embed prompt/quiz.md
var quizPromptRaw string

var quizPromptTmpl = template.Must(template.New("quiz").Parse(quizPromptRaw))

// GenerateInput describes one quiz generation request.
type GenerateInput struct {
	PatientID     model.PatientID
	QuizType      model.QuizType
	QuestionCount int
}

// GenerateResult is the response payload of a generated quiz.
type GenerateResult struct {
	QuizID        model.QuizID          `json:"quiz_id"`
	QuizType      model.QuizType        `json:"quiz_type"`
	QuestionCount int                   `json:"question_count"`
	Questions     []*model.QuizQuestion `json:"questions"`
}

// Generate builds a personalized quiz: collect seed material according
// to the quiz type, generate question text, parse it and persist an
// active session. At least one parseable question is required.
func (u *UseCase) Generate(ctx context.Context, input GenerateInput) (*GenerateResult, error) {
	if err := input.QuizType.Validate(); err != nil {
		return nil, err
	}
	if input.QuestionCount < MinQuestionCount || input.QuestionCount > MaxQuestionCount {
		return nil, goerr.Wrap(model.ErrInvalidInput, "question count out of range",
			goerr.V("count", input.QuestionCount))
	}

	patient, err := u.repo.GetPatient(ctx, input.PatientID)
	if err != nil {
		return nil, err
	}

	var memoryFacts, conversationLines []string
	if input.QuizType == model.QuizTypeMemory || input.QuizType == model.QuizTypeMixed {
		if memoryFacts, err = u.memorySeeds(ctx, input.PatientID); err != nil {
			return nil, err
		}
	}
	if input.QuizType == model.QuizTypeConversation || input.QuizType == model.QuizTypeMixed {
		if conversationLines, err = u.conversationSeeds(ctx, input.PatientID); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := quizPromptTmpl.Execute(&buf, map[string]any{
		"PatientName":       patient.FirstName(),
		"QuestionCount":     input.QuestionCount,
		"MemoryFacts":       memoryFacts,
		"ConversationLines": conversationLines,
		"GeneralOnly":       input.QuizType == model.QuizTypeGeneral,
	}); err != nil {
		return nil, goerr.Wrap(err, "failed to execute quiz prompt template")
	}

	resp, err := u.gemini.GenerateContent(ctx, []*genai.Content{
		genai.NewContentFromText(buf.String(), genai.RoleUser),
	}, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate quiz questions", goerr.V("patient_id", input.PatientID))
	}

	questions := ParseQuestions(adapter.ResponseText(resp))
	if len(questions) == 0 {
		return nil, goerr.New("no quiz questions could be parsed", goerr.V("patient_id", input.PatientID))
	}
	if len(questions) > input.QuestionCount {
		questions = questions[:input.QuestionCount]
	}

	session := &model.QuizSession{
		ID:          model.NewQuizID(),
		PatientID:   input.PatientID,
		PatientName: patient.DisplayName,
		QuizType:    input.QuizType,
		CreatedAt:   time.Now(),
		Status:      model.QuizStatusActive,
		Questions:   questions,
		Answers:     []*model.QuizAnswer{},
	}
	if err := u.repo.PutQuizSession(ctx, session); err != nil {
		return nil, goerr.Wrap(err, "failed to save quiz session", goerr.V("quiz_id", session.ID))
	}

	return &GenerateResult{
		QuizID:        session.ID,
		QuizType:      session.QuizType,
		QuestionCount: len(session.Questions),
		Questions:     session.Questions,
	}, nil
}

// memorySeeds picks up to maxMemorySeeds random chunk summaries.
func (u *UseCase) memorySeeds(ctx context.Context, patientID model.PatientID) ([]string, error) {
	chunks, err := u.repo.ListChunks(ctx, patientID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list memory chunks", goerr.V("patient_id", patientID))
	}

	rand.Shuffle(len(chunks), func(i, j int) {
		chunks[i], chunks[j] = chunks[j], chunks[i]
	})
	if len(chunks) > maxMemorySeeds {
		chunks = chunks[:maxMemorySeeds]
	}

	facts := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		facts = append(facts, chunk.Summary)
	}
	return facts, nil
}

// conversationSeeds returns the patient's own lines from the recent
// conversation window, most recent first.
func (u *UseCase) conversationSeeds(ctx context.Context, patientID model.PatientID) ([]string, error) {
	messages, err := u.repo.ListMessages(ctx, patientID, repository.ListMessagesInput{
		Limit: maxConversationReads,
		Since: time.Now().AddDate(0, 0, -conversationWindow),
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list messages", goerr.V("patient_id", patientID))
	}

	var lines []string
	for _, msg := range messages {
		if msg.Sender != model.SenderPatient {
			continue
		}
		if content := strings.TrimSpace(msg.Content); content != "" {
			lines = append(lines, content)
		}
		if len(lines) == maxConversationSeeds {
			break
		}
	}
	return lines, nil
}
