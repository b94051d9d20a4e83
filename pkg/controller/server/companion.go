package server

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/memento-care/memento/pkg/model"
	"github.com/memento-care/memento/pkg/usecase/reminder"
)

// maxAudioUploadSize bounds voice message uploads (10 MiB).
const maxAudioUploadSize = 10 << 20

type messageRequest struct {
	PatientID model.PatientID `json:"patient_id"`
	Message   string          `json:"message"`
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.PatientID == "" {
		respondError(w, r, goerr.Wrap(model.ErrInvalidInput, "patient_id is required"))
		return
	}

	result, err := s.companion.ProcessTextMessage(r.Context(), req.PatientID, req.Message)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) postAudioMessage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxAudioUploadSize); err != nil {
		respondError(w, r, goerr.Wrap(model.ErrInvalidInput, "malformed multipart form"))
		return
	}

	patientID := model.PatientID(r.FormValue("patient_id"))
	if patientID == "" {
		respondError(w, r, goerr.Wrap(model.ErrInvalidInput, "patient_id is required"))
		return
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		respondError(w, r, goerr.Wrap(model.ErrInvalidInput, "audio file is required"))
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxAudioUploadSize))
	if err != nil {
		respondError(w, r, goerr.Wrap(err, "failed to read audio upload"))
		return
	}

	result, err := s.companion.ProcessAudioMessage(r.Context(), patientID, audio)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	patientID := model.PatientID(chi.URLParam(r, "patientID"))

	var limit int
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, r, goerr.Wrap(model.ErrInvalidInput, "limit must be an integer"))
			return
		}
		limit = n
	}

	var before time.Time
	if v := r.URL.Query().Get("before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, r, goerr.Wrap(model.ErrInvalidInput, "before must be RFC3339"))
			return
		}
		before = t
	}

	messages, err := s.companion.History(r.Context(), patientID, limit, before)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"messages": messages,
		"count":    len(messages),
	})
}

func (s *Server) getInsights(w http.ResponseWriter, r *http.Request) {
	patientID := model.PatientID(chi.URLParam(r, "patientID"))

	period := r.URL.Query().Get("period")
	if period == "" {
		period = "week"
	}

	insights, err := s.companion.ConversationInsights(r.Context(), patientID, period)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, insights)
}

type reminderRequest struct {
	PatientID   model.PatientID `json:"patient_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Timestamp   time.Time       `json:"timestamp"`
	MessageID   model.MessageID `json:"message_id,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
}

func (s *Server) postReminder(w http.ResponseWriter, r *http.Request) {
	var req reminderRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.PatientID == "" {
		respondError(w, r, goerr.Wrap(model.ErrInvalidInput, "patient_id is required"))
		return
	}

	created, err := s.reminder.Create(r.Context(), req.PatientID, reminder.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Timestamp:   req.Timestamp,
		MessageID:   req.MessageID,
		ImageURL:    req.ImageURL,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) getReminders(w http.ResponseWriter, r *http.Request) {
	patientID := model.PatientID(chi.URLParam(r, "patientID"))
	includeCompleted := r.URL.Query().Get("include_completed") == "true"

	reminders, err := s.reminder.List(r.Context(), patientID, includeCompleted)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"reminders": reminders,
		"count":     len(reminders),
	})
}

type reminderCompleteRequest struct {
	PatientID model.PatientID `json:"patient_id"`
}

func (s *Server) postReminderComplete(w http.ResponseWriter, r *http.Request) {
	reminderID := model.ReminderID(chi.URLParam(r, "reminderID"))

	var req reminderCompleteRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	if req.PatientID == "" {
		respondError(w, r, goerr.Wrap(model.ErrInvalidInput, "patient_id is required"))
		return
	}

	completed, err := s.reminder.Complete(r.Context(), req.PatientID, reminderID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, completed)
}
