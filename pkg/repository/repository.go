package repository

import (
	"context"
	"time"

	"github.com/memento-care/memento/pkg/model"
)

// ListMessagesInput narrows a conversation log read. Zero values mean
// no constraint.
type ListMessagesInput struct {
	Limit  int
	Before time.Time
	Since  time.Time
}

// Repository defines the interface for Memento data persistence.
// All mutable state is partitioned by patient or session ID.
type Repository interface {
	// GetPatient retrieves a patient profile by ID
	GetPatient(ctx context.Context, id model.PatientID) (*model.Patient, error)

	// UpdatePatient applies update to the patient document inside a
	// transaction. Returning an error from update aborts the write.
	UpdatePatient(ctx context.Context, id model.PatientID, update func(*model.Patient) error) (*model.Patient, error)

	// PutChunk appends a memory chunk to the patient's chunk collection
	PutChunk(ctx context.Context, patientID model.PatientID, chunk *model.MemoryChunk) error

	// ListChunks retrieves all memory chunks of a patient
	ListChunks(ctx context.Context, patientID model.PatientID) ([]*model.MemoryChunk, error)

	// SearchSimilarChunks performs native vector search over the
	// patient's chunks, most similar first
	SearchSimilarChunks(ctx context.Context, patientID model.PatientID, vector []float32, limit int) ([]*model.ScoredChunk, error)

	// ProbeVectorSearch reports whether native vector search is usable.
	// Called once at startup to select the retrieval strategy.
	ProbeVectorSearch(ctx context.Context) bool

	// AppendMessages appends messages to the patient's conversation log
	// as one atomic write
	AppendMessages(ctx context.Context, patientID model.PatientID, messages ...*model.Message) error

	// ListMessages retrieves conversation messages, newest first
	ListMessages(ctx context.Context, patientID model.PatientID, input ListMessagesInput) ([]*model.Message, error)

	// PutQuizSession saves a new quiz session
	PutQuizSession(ctx context.Context, session *model.QuizSession) error

	// GetQuizSession retrieves a quiz session by ID
	GetQuizSession(ctx context.Context, id model.QuizID) (*model.QuizSession, error)

	// UpdateQuizSession applies update to the session document inside a
	// transaction, so concurrent answer submissions cannot both succeed.
	// Returning an error from update aborts the write.
	UpdateQuizSession(ctx context.Context, id model.QuizID, update func(*model.QuizSession) error) (*model.QuizSession, error)

	// ListQuizSessions retrieves a patient's quiz sessions, newest first
	ListQuizSessions(ctx context.Context, patientID model.PatientID, limit int) ([]*model.QuizSession, error)

	// ListCompletedQuizSessions retrieves completed sessions ordered by
	// completion time
	ListCompletedQuizSessions(ctx context.Context, patientID model.PatientID, limit int, oldestFirst bool) ([]*model.QuizSession, error)

	// CountQuizSessions counts a patient's quiz sessions
	CountQuizSessions(ctx context.Context, patientID model.PatientID, completedOnly bool) (int64, error)
}
