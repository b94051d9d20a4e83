package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/memento-care/memento/pkg/model"
	"github.com/memento-care/memento/pkg/usecase/companion"
	"github.com/memento-care/memento/pkg/usecase/quiz"
	"github.com/memento-care/memento/pkg/usecase/reminder"
	"github.com/memento-care/memento/pkg/utils/logging"
)

// CompanionUseCase is the companion surface the HTTP layer needs.
type CompanionUseCase interface {
	ProcessTextMessage(ctx context.Context, patientID model.PatientID, text string) (*companion.ChatResult, error)
	ProcessAudioMessage(ctx context.Context, patientID model.PatientID, audio []byte) (*companion.ChatResult, error)
	History(ctx context.Context, patientID model.PatientID, limit int, before time.Time) ([]*model.Message, error)
	ConversationInsights(ctx context.Context, patientID model.PatientID, period string) (*companion.Insights, error)
}

// QuizUseCase is the quiz surface the HTTP layer needs.
type QuizUseCase interface {
	Generate(ctx context.Context, input quiz.GenerateInput) (*quiz.GenerateResult, error)
	RecordAnswer(ctx context.Context, input quiz.AnswerInput) (*quiz.AnswerResult, error)
	GetSession(ctx context.Context, id model.QuizID) (*model.QuizSession, error)
	PatientHistory(ctx context.Context, patientID model.PatientID, limit int) (*quiz.History, error)
}

// ReminderUseCase is the reminder surface the HTTP layer needs.
type ReminderUseCase interface {
	Create(ctx context.Context, patientID model.PatientID, input reminder.CreateInput) (*model.Reminder, error)
	List(ctx context.Context, patientID model.PatientID, includeCompleted bool) ([]*model.Reminder, error)
	Complete(ctx context.Context, patientID model.PatientID, reminderID model.ReminderID) (*model.Reminder, error)
}

// Server routes the REST API onto the use cases.
type Server struct {
	companion CompanionUseCase
	quiz      QuizUseCase
	reminder  ReminderUseCase

	allowedOrigins []string
}

// Option is a functional option for Server
type Option func(*Server)

// WithAllowedOrigins overrides the CORS origin allowlist
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.allowedOrigins = origins
	}
}

// New creates an HTTP server facade over the use cases
func New(companionUC CompanionUseCase, quizUC QuizUseCase, reminderUC ReminderUseCase, opts ...Option) *Server {
	s := &Server{
		companion:      companionUC,
		quiz:           quizUC,
		reminder:       reminderUC,
		allowedOrigins: []string{"*"},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Handler builds the route tree with middleware applied.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/health", s.healthCheck)

	router.Route("/routes/companion", func(r chi.Router) {
		r.Post("/message", s.postMessage)
		r.Post("/audio-message", s.postAudioMessage)
		r.Get("/history/{patientID}", s.getHistory)
		r.Get("/insights/{patientID}", s.getInsights)
		r.Post("/reminders", s.postReminder)
		r.Get("/reminders/{patientID}", s.getReminders)
		r.Post("/reminders/{reminderID}/complete", s.postReminderComplete)
	})

	router.Route("/routes/quizzes", func(r chi.Router) {
		r.Post("/generate", s.postQuizGenerate)
		r.Post("/answer", s.postQuizAnswer)
		r.Get("/history", s.getQuizHistory)
		r.Get("/{quizID}", s.getQuiz)
	})

	return router
}

func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// requestLogger logs one line per request with status and duration.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		logging.From(r.Context()).Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
	})
}
