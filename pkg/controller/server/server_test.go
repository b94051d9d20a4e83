package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/memento-care/memento/pkg/controller/server"
	"github.com/memento-care/memento/pkg/model"
	"github.com/memento-care/memento/pkg/usecase/companion"
	"github.com/memento-care/memento/pkg/usecase/quiz"
	"github.com/memento-care/memento/pkg/usecase/reminder"
)

type mockCompanion struct {
	processTextFunc  func(ctx context.Context, patientID model.PatientID, text string) (*companion.ChatResult, error)
	processAudioFunc func(ctx context.Context, patientID model.PatientID, audio []byte) (*companion.ChatResult, error)
	historyFunc      func(ctx context.Context, patientID model.PatientID, limit int, before time.Time) ([]*model.Message, error)
	insightsFunc     func(ctx context.Context, patientID model.PatientID, period string) (*companion.Insights, error)
}

func (m *mockCompanion) ProcessTextMessage(ctx context.Context, patientID model.PatientID, text string) (*companion.ChatResult, error) {
	return m.processTextFunc(ctx, patientID, text)
}

func (m *mockCompanion) ProcessAudioMessage(ctx context.Context, patientID model.PatientID, audio []byte) (*companion.ChatResult, error) {
	return m.processAudioFunc(ctx, patientID, audio)
}

func (m *mockCompanion) History(ctx context.Context, patientID model.PatientID, limit int, before time.Time) ([]*model.Message, error) {
	return m.historyFunc(ctx, patientID, limit, before)
}

func (m *mockCompanion) ConversationInsights(ctx context.Context, patientID model.PatientID, period string) (*companion.Insights, error) {
	return m.insightsFunc(ctx, patientID, period)
}

type mockQuiz struct {
	generateFunc func(ctx context.Context, input quiz.GenerateInput) (*quiz.GenerateResult, error)
	answerFunc   func(ctx context.Context, input quiz.AnswerInput) (*quiz.AnswerResult, error)
	sessionFunc  func(ctx context.Context, id model.QuizID) (*model.QuizSession, error)
	historyFunc  func(ctx context.Context, patientID model.PatientID, limit int) (*quiz.History, error)
}

func (m *mockQuiz) Generate(ctx context.Context, input quiz.GenerateInput) (*quiz.GenerateResult, error) {
	return m.generateFunc(ctx, input)
}

func (m *mockQuiz) RecordAnswer(ctx context.Context, input quiz.AnswerInput) (*quiz.AnswerResult, error) {
	return m.answerFunc(ctx, input)
}

func (m *mockQuiz) GetSession(ctx context.Context, id model.QuizID) (*model.QuizSession, error) {
	return m.sessionFunc(ctx, id)
}

func (m *mockQuiz) PatientHistory(ctx context.Context, patientID model.PatientID, limit int) (*quiz.History, error) {
	return m.historyFunc(ctx, patientID, limit)
}

type mockReminder struct {
	createFunc   func(ctx context.Context, patientID model.PatientID, input reminder.CreateInput) (*model.Reminder, error)
	listFunc     func(ctx context.Context, patientID model.PatientID, includeCompleted bool) ([]*model.Reminder, error)
	completeFunc func(ctx context.Context, patientID model.PatientID, reminderID model.ReminderID) (*model.Reminder, error)
}

func (m *mockReminder) Create(ctx context.Context, patientID model.PatientID, input reminder.CreateInput) (*model.Reminder, error) {
	return m.createFunc(ctx, patientID, input)
}

func (m *mockReminder) List(ctx context.Context, patientID model.PatientID, includeCompleted bool) ([]*model.Reminder, error) {
	return m.listFunc(ctx, patientID, includeCompleted)
}

func (m *mockReminder) Complete(ctx context.Context, patientID model.PatientID, reminderID model.ReminderID) (*model.Reminder, error) {
	return m.completeFunc(ctx, patientID, reminderID)
}

func newHandler(c *mockCompanion, q *mockQuiz, rm *mockReminder) http.Handler {
	if c == nil {
		c = &mockCompanion{}
	}
	if q == nil {
		q = &mockQuiz{}
	}
	if rm == nil {
		rm = &mockReminder{}
	}
	return server.New(c, q, rm).Handler()
}

func postJSON(t *testing.T, handler http.Handler, path string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	handler := newHandler(nil, nil, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	gt.Equal(t, rec.Code, http.StatusOK)
	gt.S(t, rec.Body.String()).Contains("healthy")
}

func TestPostMessage(t *testing.T) {
	t.Run("returns chat result", func(t *testing.T) {
		c := &mockCompanion{processTextFunc: func(ctx context.Context, patientID model.PatientID, text string) (*companion.ChatResult, error) {
			gt.Equal(t, patientID, "patient-1")
			gt.Equal(t, text, "hello")
			return &companion.ChatResult{
				Response:      "Hi there!",
				AudioResponse: []byte("mp3"),
				MessageIDs:    companion.MessageIDs{UserMessageID: "u1", AIMessageID: "a1"},
			}, nil
		}}
		rec := postJSON(t, newHandler(c, nil, nil), "/routes/companion/message",
			`{"patient_id": "patient-1", "message": "hello"}`)

		gt.Equal(t, rec.Code, http.StatusOK)

		var body map[string]any
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		gt.Equal(t, body["response"], "Hi there!")
		ids := body["messageIds"].(map[string]any)
		gt.Equal(t, ids["userMessageId"], "u1")
		gt.Equal(t, ids["aiMessageId"], "a1")
	})

	t.Run("missing patient_id", func(t *testing.T) {
		rec := postJSON(t, newHandler(nil, nil, nil), "/routes/companion/message",
			`{"message": "hello"}`)
		gt.Equal(t, rec.Code, http.StatusBadRequest)
	})

	t.Run("malformed body", func(t *testing.T) {
		rec := postJSON(t, newHandler(nil, nil, nil), "/routes/companion/message", `{`)
		gt.Equal(t, rec.Code, http.StatusBadRequest)
	})

	t.Run("unknown patient maps to 404", func(t *testing.T) {
		c := &mockCompanion{processTextFunc: func(ctx context.Context, patientID model.PatientID, text string) (*companion.ChatResult, error) {
			return nil, goerr.Wrap(model.ErrNotFound, "patient not found")
		}}
		rec := postJSON(t, newHandler(c, nil, nil), "/routes/companion/message",
			`{"patient_id": "nobody", "message": "hello"}`)
		gt.Equal(t, rec.Code, http.StatusNotFound)
	})

	t.Run("internal error hides detail", func(t *testing.T) {
		c := &mockCompanion{processTextFunc: func(ctx context.Context, patientID model.PatientID, text string) (*companion.ChatResult, error) {
			return nil, errors.New("firestore credentials are broken")
		}}
		rec := postJSON(t, newHandler(c, nil, nil), "/routes/companion/message",
			`{"patient_id": "patient-1", "message": "hello"}`)
		gt.Equal(t, rec.Code, http.StatusInternalServerError)
		gt.S(t, rec.Body.String()).Contains("internal server error")
		gt.False(t, strings.Contains(rec.Body.String(), "credentials"))
	})
}

func TestPostAudioMessage(t *testing.T) {
	newRequest := func(t *testing.T, patientID string, audio []byte) *http.Request {
		t.Helper()
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		if patientID != "" {
			gt.NoError(t, mw.WriteField("patient_id", patientID))
		}
		if audio != nil {
			fw, err := mw.CreateFormFile("audio", "message.webm")
			gt.NoError(t, err)
			_, err = fw.Write(audio)
			gt.NoError(t, err)
		}
		gt.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/routes/companion/audio-message", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return req
	}

	t.Run("transcript included in response", func(t *testing.T) {
		c := &mockCompanion{processAudioFunc: func(ctx context.Context, patientID model.PatientID, audio []byte) (*companion.ChatResult, error) {
			gt.Equal(t, string(audio), "opus-bytes")
			return &companion.ChatResult{Response: "Good morning!", Transcript: "good morning"}, nil
		}}
		rec := httptest.NewRecorder()
		newHandler(c, nil, nil).ServeHTTP(rec, newRequest(t, "patient-1", []byte("opus-bytes")))

		gt.Equal(t, rec.Code, http.StatusOK)
		var body map[string]any
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		gt.Equal(t, body["message"], "good morning")
	})

	t.Run("missing audio file", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newHandler(nil, nil, nil).ServeHTTP(rec, newRequest(t, "patient-1", nil))
		gt.Equal(t, rec.Code, http.StatusBadRequest)
	})

	t.Run("unintelligible audio maps to 400", func(t *testing.T) {
		c := &mockCompanion{processAudioFunc: func(ctx context.Context, patientID model.PatientID, audio []byte) (*companion.ChatResult, error) {
			return nil, goerr.Wrap(model.ErrTranscriptionFailed, "empty transcript")
		}}
		rec := httptest.NewRecorder()
		newHandler(c, nil, nil).ServeHTTP(rec, newRequest(t, "patient-1", []byte("noise")))
		gt.Equal(t, rec.Code, http.StatusBadRequest)
	})
}

func TestGetHistory(t *testing.T) {
	t.Run("limit and before forwarded", func(t *testing.T) {
		before := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		c := &mockCompanion{historyFunc: func(ctx context.Context, patientID model.PatientID, limit int, b time.Time) ([]*model.Message, error) {
			gt.Equal(t, patientID, "patient-1")
			gt.Equal(t, limit, 10)
			gt.True(t, b.Equal(before))
			return []*model.Message{{ID: "m1", Sender: model.SenderPatient, Content: "hi"}}, nil
		}}
		req := httptest.NewRequest(http.MethodGet,
			"/routes/companion/history/patient-1?limit=10&before=2025-06-01T12:00:00Z", nil)
		rec := httptest.NewRecorder()
		newHandler(c, nil, nil).ServeHTTP(rec, req)

		gt.Equal(t, rec.Code, http.StatusOK)
		var body map[string]any
		gt.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		gt.Equal(t, body["count"], 1.0)
	})

	t.Run("bad before value", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet,
			"/routes/companion/history/patient-1?before=yesterday", nil)
		rec := httptest.NewRecorder()
		newHandler(nil, nil, nil).ServeHTTP(rec, req)
		gt.Equal(t, rec.Code, http.StatusBadRequest)
	})
}

func TestGetInsights(t *testing.T) {
	c := &mockCompanion{insightsFunc: func(ctx context.Context, patientID model.PatientID, period string) (*companion.Insights, error) {
		gt.Equal(t, period, "week")
		return &companion.Insights{Period: period, TotalMessages: 3}, nil
	}}
	req := httptest.NewRequest(http.MethodGet, "/routes/companion/insights/patient-1", nil)
	rec := httptest.NewRecorder()
	newHandler(c, nil, nil).ServeHTTP(rec, req)

	gt.Equal(t, rec.Code, http.StatusOK)
	gt.S(t, rec.Body.String()).Contains(`"totalMessages":3`)
}

func TestQuizRoutes(t *testing.T) {
	t.Run("generate defaults question count", func(t *testing.T) {
		q := &mockQuiz{generateFunc: func(ctx context.Context, input quiz.GenerateInput) (*quiz.GenerateResult, error) {
			gt.Equal(t, input.QuestionCount, 5)
			gt.Equal(t, input.QuizType, model.QuizTypeMemory)
			return &quiz.GenerateResult{QuizID: "quiz-1", QuizType: input.QuizType, QuestionCount: 5}, nil
		}}
		rec := postJSON(t, newHandler(nil, q, nil), "/routes/quizzes/generate",
			`{"patient_id": "patient-1", "quiz_type": "memory"}`)

		gt.Equal(t, rec.Code, http.StatusOK)
		gt.S(t, rec.Body.String()).Contains(`"quiz_id":"quiz-1"`)
	})

	t.Run("duplicate answer maps to 400", func(t *testing.T) {
		q := &mockQuiz{answerFunc: func(ctx context.Context, input quiz.AnswerInput) (*quiz.AnswerResult, error) {
			return nil, goerr.Wrap(model.ErrDuplicateAnswer, "question already answered")
		}}
		rec := postJSON(t, newHandler(nil, q, nil), "/routes/quizzes/answer",
			`{"quiz_id": "quiz-1", "question_id": "q1", "selected_option": "A"}`)
		gt.Equal(t, rec.Code, http.StatusBadRequest)
	})

	t.Run("answer requires identifiers", func(t *testing.T) {
		rec := postJSON(t, newHandler(nil, nil, nil), "/routes/quizzes/answer",
			`{"selected_option": "A"}`)
		gt.Equal(t, rec.Code, http.StatusBadRequest)
	})

	t.Run("get session by ID", func(t *testing.T) {
		q := &mockQuiz{sessionFunc: func(ctx context.Context, id model.QuizID) (*model.QuizSession, error) {
			gt.Equal(t, id, "quiz-1")
			return &model.QuizSession{ID: id, Status: model.QuizStatusActive}, nil
		}}
		req := httptest.NewRequest(http.MethodGet, "/routes/quizzes/quiz-1", nil)
		rec := httptest.NewRecorder()
		newHandler(nil, q, nil).ServeHTTP(rec, req)

		gt.Equal(t, rec.Code, http.StatusOK)
		gt.S(t, rec.Body.String()).Contains(`"status":"active"`)
	})

	t.Run("history requires patient_id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/routes/quizzes/history", nil)
		rec := httptest.NewRecorder()
		newHandler(nil, nil, nil).ServeHTTP(rec, req)
		gt.Equal(t, rec.Code, http.StatusBadRequest)
	})

	t.Run("history returns summary", func(t *testing.T) {
		q := &mockQuiz{historyFunc: func(ctx context.Context, patientID model.PatientID, limit int) (*quiz.History, error) {
			gt.Equal(t, patientID, "patient-1")
			return &quiz.History{TotalSessions: 4, CompletedSessions: 3, ScoreTrend: []int{40, 60, 80}}, nil
		}}
		req := httptest.NewRequest(http.MethodGet, "/routes/quizzes/history?patient_id=patient-1", nil)
		rec := httptest.NewRecorder()
		newHandler(nil, q, nil).ServeHTTP(rec, req)

		gt.Equal(t, rec.Code, http.StatusOK)
		gt.S(t, rec.Body.String()).Contains(`"scoreTrend":[40,60,80]`)
	})
}

func TestReminderRoutes(t *testing.T) {
	t.Run("create returns 201", func(t *testing.T) {
		rm := &mockReminder{createFunc: func(ctx context.Context, patientID model.PatientID, input reminder.CreateInput) (*model.Reminder, error) {
			gt.Equal(t, patientID, "patient-1")
			gt.Equal(t, input.Title, "Take medication")
			return &model.Reminder{ID: "rem-1", Title: input.Title, Timestamp: input.Timestamp}, nil
		}}
		rec := postJSON(t, newHandler(nil, nil, rm), "/routes/companion/reminders",
			`{"patient_id": "patient-1", "title": "Take medication", "timestamp": "2026-09-02T08:00:00Z"}`)

		gt.Equal(t, rec.Code, http.StatusCreated)
		gt.S(t, rec.Body.String()).Contains(`"id":"rem-1"`)
	})

	t.Run("list reminders", func(t *testing.T) {
		rm := &mockReminder{listFunc: func(ctx context.Context, patientID model.PatientID, includeCompleted bool) ([]*model.Reminder, error) {
			gt.True(t, includeCompleted)
			return []*model.Reminder{{ID: "rem-1"}}, nil
		}}
		req := httptest.NewRequest(http.MethodGet,
			"/routes/companion/reminders/patient-1?include_completed=true", nil)
		rec := httptest.NewRecorder()
		newHandler(nil, nil, rm).ServeHTTP(rec, req)

		gt.Equal(t, rec.Code, http.StatusOK)
		gt.S(t, rec.Body.String()).Contains(`"count":1`)
	})

	t.Run("complete unknown reminder maps to 404", func(t *testing.T) {
		rm := &mockReminder{completeFunc: func(ctx context.Context, patientID model.PatientID, reminderID model.ReminderID) (*model.Reminder, error) {
			return nil, goerr.Wrap(model.ErrNotFound, "reminder not found")
		}}
		rec := postJSON(t, newHandler(nil, nil, rm), "/routes/companion/reminders/rem-404/complete",
			`{"patient_id": "patient-1"}`)
		gt.Equal(t, rec.Code, http.StatusNotFound)
	})
}
