package repository

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"sync"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/memento-care/memento/pkg/model"
)

// Memory implements Repository in process memory. It exists for unit
// tests of the engines; it mirrors the transactional semantics of the
// Firestore implementation with a coarse lock.
type Memory struct {
	mu sync.Mutex

	patients map[model.PatientID]*model.Patient
	chunks   map[model.PatientID][]*model.MemoryChunk
	messages map[model.PatientID][]*model.Message
	quizzes  map[model.QuizID]*model.QuizSession

	vectorSearch bool
}

type MemoryOption func(*Memory)

// WithVectorSearch makes the in-memory store report native vector
// search capability.
func WithVectorSearch() MemoryOption {
	return func(m *Memory) {
		m.vectorSearch = true
	}
}

// NewMemory creates an empty in-memory repository
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		patients: make(map[model.PatientID]*model.Patient),
		chunks:   make(map[model.PatientID][]*model.MemoryChunk),
		messages: make(map[model.PatientID][]*model.Message),
		quizzes:  make(map[model.QuizID]*model.QuizSession),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// PutPatient seeds a patient profile (test setup helper)
func (m *Memory) PutPatient(patient *model.Patient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.patients[patient.ID] = clone(patient)
}

func (m *Memory) GetPatient(_ context.Context, id model.PatientID) (*model.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	patient, ok := m.patients[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "patient not found", goerr.V("patient_id", id))
	}
	return clone(patient), nil
}

func (m *Memory) UpdatePatient(_ context.Context, id model.PatientID, update func(*model.Patient) error) (*model.Patient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	patient, ok := m.patients[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "patient not found", goerr.V("patient_id", id))
	}

	updated := clone(patient)
	if err := update(updated); err != nil {
		return nil, err
	}

	m.patients[id] = updated
	return clone(updated), nil
}

func (m *Memory) PutChunk(_ context.Context, patientID model.PatientID, chunk *model.MemoryChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.chunks[patientID] = append(m.chunks[patientID], cloneChunk(chunk))
	return nil
}

func (m *Memory) ListChunks(_ context.Context, patientID model.PatientID) ([]*model.MemoryChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	chunks := make([]*model.MemoryChunk, 0, len(m.chunks[patientID]))
	for _, chunk := range m.chunks[patientID] {
		chunks = append(chunks, cloneChunk(chunk))
	}
	return chunks, nil
}

func (m *Memory) SearchSimilarChunks(_ context.Context, patientID model.PatientID, vector []float32, limit int) ([]*model.ScoredChunk, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.vectorSearch {
		return nil, goerr.New("vector search is not supported")
	}

	var results []*model.ScoredChunk
	for _, chunk := range m.chunks[patientID] {
		if len(chunk.Vector) != len(vector) {
			continue
		}
		results = append(results, &model.ScoredChunk{
			Chunk:      cloneChunk(chunk),
			Similarity: cosine(chunk.Vector, vector),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > limit {
		results = results[:limit]
	}

	return results, nil
}

func (m *Memory) ProbeVectorSearch(context.Context) bool {
	return m.vectorSearch
}

func (m *Memory) AppendMessages(_ context.Context, patientID model.PatientID, messages ...*model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, msg := range messages {
		m.messages[patientID] = append(m.messages[patientID], clone(msg))
	}
	return nil
}

func (m *Memory) ListMessages(_ context.Context, patientID model.PatientID, input ListMessagesInput) ([]*model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var messages []*model.Message
	for _, msg := range m.messages[patientID] {
		if !input.Since.IsZero() && msg.Timestamp.Before(input.Since) {
			continue
		}
		if !input.Before.IsZero() && !msg.Timestamp.Before(input.Before) {
			continue
		}
		messages = append(messages, clone(msg))
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.After(messages[j].Timestamp)
	})
	if input.Limit > 0 && len(messages) > input.Limit {
		messages = messages[:input.Limit]
	}

	return messages, nil
}

func (m *Memory) PutQuizSession(_ context.Context, session *model.QuizSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.quizzes[session.ID] = clone(session)
	return nil
}

func (m *Memory) GetQuizSession(_ context.Context, id model.QuizID) (*model.QuizSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.quizzes[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "quiz session not found", goerr.V("quiz_id", id))
	}
	return clone(session), nil
}

func (m *Memory) UpdateQuizSession(_ context.Context, id model.QuizID, update func(*model.QuizSession) error) (*model.QuizSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.quizzes[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrNotFound, "quiz session not found", goerr.V("quiz_id", id))
	}

	updated := clone(session)
	if err := update(updated); err != nil {
		return nil, err
	}

	m.quizzes[id] = updated
	return clone(updated), nil
}

func (m *Memory) ListQuizSessions(_ context.Context, patientID model.PatientID, limit int) ([]*model.QuizSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sessions []*model.QuizSession
	for _, session := range m.quizzes {
		if session.PatientID == patientID {
			sessions = append(sessions, clone(session))
		}
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].CreatedAt.After(sessions[j].CreatedAt)
	})
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}

	return sessions, nil
}

func (m *Memory) ListCompletedQuizSessions(_ context.Context, patientID model.PatientID, limit int, oldestFirst bool) ([]*model.QuizSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sessions []*model.QuizSession
	for _, session := range m.quizzes {
		if session.PatientID == patientID && session.Status == model.QuizStatusCompleted {
			sessions = append(sessions, clone(session))
		}
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		ti, tj := sessions[i].CompletedAt, sessions[j].CompletedAt
		if ti == nil || tj == nil {
			return tj == nil
		}
		if oldestFirst {
			return ti.Before(*tj)
		}
		return ti.After(*tj)
	})
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}

	return sessions, nil
}

func (m *Memory) CountQuizSessions(_ context.Context, patientID model.PatientID, completedOnly bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var count int64
	for _, session := range m.quizzes {
		if session.PatientID != patientID {
			continue
		}
		if completedOnly && session.Status != model.QuizStatusCompleted {
			continue
		}
		count++
	}
	return count, nil
}

func cosine(a []float32, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// cloneChunk deep-copies a chunk including its vector, which is
// excluded from JSON.
func cloneChunk(c *model.MemoryChunk) *model.MemoryChunk {
	out := clone(c)
	out.Vector = append(firestore.Vector32(nil), c.Vector...)
	return out
}

// clone deep-copies a stored value so callers never alias the map state.
func clone[T any](v *T) *T {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		panic(err)
	}
	return out
}
