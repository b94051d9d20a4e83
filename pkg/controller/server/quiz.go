package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/memento-care/memento/pkg/model"
	"github.com/memento-care/memento/pkg/usecase/quiz"
)

const defaultQuestionCount = 5

type quizGenerateRequest struct {
	PatientID     model.PatientID `json:"patient_id"`
	QuizType      model.QuizType  `json:"quiz_type"`
	QuestionCount int             `json:"question_count"`
}

func (s *Server) postQuizGenerate(w http.ResponseWriter, r *http.Request) {
	var req quizGenerateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.PatientID == "" {
		respondError(w, r, goerr.Wrap(model.ErrInvalidInput, "patient_id is required"))
		return
	}
	if req.QuestionCount == 0 {
		req.QuestionCount = defaultQuestionCount
	}

	result, err := s.quiz.Generate(r.Context(), quiz.GenerateInput{
		PatientID:     req.PatientID,
		QuizType:      req.QuizType,
		QuestionCount: req.QuestionCount,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type quizAnswerRequest struct {
	QuizID         model.QuizID     `json:"quiz_id"`
	QuestionID     model.QuestionID `json:"question_id"`
	SelectedOption string           `json:"selected_option"`
}

func (s *Server) postQuizAnswer(w http.ResponseWriter, r *http.Request) {
	var req quizAnswerRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.QuizID == "" || req.QuestionID == "" {
		respondError(w, r, goerr.Wrap(model.ErrInvalidInput, "quiz_id and question_id are required"))
		return
	}

	result, err := s.quiz.RecordAnswer(r.Context(), quiz.AnswerInput{
		QuizID:         req.QuizID,
		QuestionID:     req.QuestionID,
		SelectedOption: req.SelectedOption,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) getQuiz(w http.ResponseWriter, r *http.Request) {
	quizID := model.QuizID(chi.URLParam(r, "quizID"))

	session, err := s.quiz.GetSession(r.Context(), quizID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

func (s *Server) getQuizHistory(w http.ResponseWriter, r *http.Request) {
	patientID := model.PatientID(r.URL.Query().Get("patient_id"))
	if patientID == "" {
		respondError(w, r, goerr.Wrap(model.ErrInvalidInput, "patient_id is required"))
		return
	}

	var limit int
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, r, goerr.Wrap(model.ErrInvalidInput, "limit must be an integer"))
			return
		}
		limit = n
	}

	history, err := s.quiz.PatientHistory(r.Context(), patientID, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}
