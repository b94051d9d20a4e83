package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"github.com/m-mizutani/goerr/v2"
	"github.com/memento-care/memento/pkg/model"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	collectionPatients = "users"
	collectionVectors  = "patientMemoryVectors"
	collectionChunks   = "chunks"
	collectionConvos   = "conversations"
	collectionMessages = "messages"
	collectionQuizzes  = "gameSessions"

	vectorField        = "vector"
	distanceField      = "distance"
	maxCollectionReads = 1000
)

// Firestore implements Repository using Cloud Firestore
type Firestore struct {
	client *firestore.Client
}

// New creates a new Firestore repository
func New(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID), goerr.V("database", databaseID))
	}

	return &Firestore{client: client}, nil
}

// Close releases the underlying client
func (f *Firestore) Close() error {
	return f.client.Close()
}

func (f *Firestore) patientRef(id model.PatientID) *firestore.DocumentRef {
	return f.client.Collection(collectionPatients).Doc(string(id))
}

func (f *Firestore) chunksRef(id model.PatientID) *firestore.CollectionRef {
	return f.client.Collection(collectionVectors).Doc(string(id)).Collection(collectionChunks)
}

func (f *Firestore) messagesRef(id model.PatientID) *firestore.CollectionRef {
	return f.client.Collection(collectionConvos).Doc(string(id)).Collection(collectionMessages)
}

func (f *Firestore) GetPatient(ctx context.Context, id model.PatientID) (*model.Patient, error) {
	doc, err := f.patientRef(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrNotFound, "patient not found", goerr.V("patient_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get patient", goerr.V("patient_id", id))
	}

	var patient model.Patient
	if err := doc.DataTo(&patient); err != nil {
		return nil, goerr.Wrap(err, "failed to decode patient", goerr.V("patient_id", id))
	}
	patient.ID = id

	return &patient, nil
}

func (f *Firestore) UpdatePatient(ctx context.Context, id model.PatientID, update func(*model.Patient) error) (*model.Patient, error) {
	ref := f.patientRef(id)
	var updated *model.Patient

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(model.ErrNotFound, "patient not found", goerr.V("patient_id", id))
			}
			return goerr.Wrap(err, "failed to get patient")
		}

		var patient model.Patient
		if err := doc.DataTo(&patient); err != nil {
			return goerr.Wrap(err, "failed to decode patient")
		}
		patient.ID = id

		if err := update(&patient); err != nil {
			return err
		}

		updated = &patient
		return tx.Set(ref, &patient)
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (f *Firestore) PutChunk(ctx context.Context, patientID model.PatientID, chunk *model.MemoryChunk) error {
	if _, err := f.chunksRef(patientID).Doc(string(chunk.ID)).Set(ctx, chunk); err != nil {
		return goerr.Wrap(err, "failed to put chunk",
			goerr.V("patient_id", patientID), goerr.V("chunk_id", chunk.ID))
	}
	return nil
}

func (f *Firestore) ListChunks(ctx context.Context, patientID model.PatientID) ([]*model.MemoryChunk, error) {
	iter := f.chunksRef(patientID).Limit(maxCollectionReads).Documents(ctx)
	defer iter.Stop()

	var chunks []*model.MemoryChunk
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate chunks", goerr.V("patient_id", patientID))
		}

		var chunk model.MemoryChunk
		if err := doc.DataTo(&chunk); err != nil {
			return nil, goerr.Wrap(err, "failed to decode chunk", goerr.V("doc_id", doc.Ref.ID))
		}
		chunks = append(chunks, &chunk)
	}

	return chunks, nil
}

func (f *Firestore) SearchSimilarChunks(ctx context.Context, patientID model.PatientID, vector []float32, limit int) ([]*model.ScoredChunk, error) {
	vq := f.chunksRef(patientID).FindNearest(
		vectorField,
		firestore.Vector32(vector),
		limit,
		firestore.DistanceMeasureCosine,
		&firestore.FindNearestOptions{DistanceResultField: distanceField},
	)

	iter := vq.Documents(ctx)
	defer iter.Stop()

	var results []*model.ScoredChunk
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to run vector search", goerr.V("patient_id", patientID))
		}

		var chunk model.MemoryChunk
		if err := doc.DataTo(&chunk); err != nil {
			return nil, goerr.Wrap(err, "failed to decode chunk", goerr.V("doc_id", doc.Ref.ID))
		}

		// Cosine similarity is derived from the cosine distance that
		// Firestore writes into the result document.
		similarity := 0.0
		if dist, ok := doc.Data()[distanceField].(float64); ok {
			similarity = 1.0 - dist
		}

		results = append(results, &model.ScoredChunk{Chunk: &chunk, Similarity: similarity})
	}

	return results, nil
}

func (f *Firestore) ProbeVectorSearch(ctx context.Context) bool {
	// A FindNearest over an empty probe collection succeeds iff the
	// deployed Firestore database supports vector queries.
	probe := f.client.Collection(collectionVectors).Doc("_probe").Collection(collectionChunks)
	vq := probe.FindNearest(vectorField, firestore.Vector32{0}, 1, firestore.DistanceMeasureCosine, nil)

	_, err := vq.Documents(ctx).GetAll()
	return err == nil
}

func (f *Firestore) AppendMessages(ctx context.Context, patientID model.PatientID, messages ...*model.Message) error {
	if len(messages) == 0 {
		return nil
	}

	ref := f.messagesRef(patientID)
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, msg := range messages {
			if err := tx.Set(ref.Doc(string(msg.ID)), msg); err != nil {
				return goerr.Wrap(err, "failed to set message", goerr.V("message_id", msg.ID))
			}
		}
		return nil
	})
	if err != nil {
		return goerr.Wrap(err, "failed to append messages", goerr.V("patient_id", patientID))
	}

	return nil
}

func (f *Firestore) ListMessages(ctx context.Context, patientID model.PatientID, input ListMessagesInput) ([]*model.Message, error) {
	q := f.messagesRef(patientID).OrderBy("timestamp", firestore.Desc)
	if !input.Since.IsZero() {
		q = q.Where("timestamp", ">=", input.Since)
	}
	if !input.Before.IsZero() {
		q = q.Where("timestamp", "<", input.Before)
	}
	if input.Limit > 0 {
		q = q.Limit(input.Limit)
	} else {
		q = q.Limit(maxCollectionReads)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var messages []*model.Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate messages", goerr.V("patient_id", patientID))
		}

		var msg model.Message
		if err := doc.DataTo(&msg); err != nil {
			return nil, goerr.Wrap(err, "failed to decode message", goerr.V("doc_id", doc.Ref.ID))
		}
		messages = append(messages, &msg)
	}

	return messages, nil
}

func (f *Firestore) PutQuizSession(ctx context.Context, session *model.QuizSession) error {
	ref := f.client.Collection(collectionQuizzes).Doc(string(session.ID))
	if _, err := ref.Set(ctx, session); err != nil {
		return goerr.Wrap(err, "failed to put quiz session", goerr.V("quiz_id", session.ID))
	}
	return nil
}

func (f *Firestore) GetQuizSession(ctx context.Context, id model.QuizID) (*model.QuizSession, error) {
	doc, err := f.client.Collection(collectionQuizzes).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrNotFound, "quiz session not found", goerr.V("quiz_id", id))
		}
		return nil, goerr.Wrap(err, "failed to get quiz session", goerr.V("quiz_id", id))
	}

	var session model.QuizSession
	if err := doc.DataTo(&session); err != nil {
		return nil, goerr.Wrap(err, "failed to decode quiz session", goerr.V("quiz_id", id))
	}

	return &session, nil
}

func (f *Firestore) UpdateQuizSession(ctx context.Context, id model.QuizID, update func(*model.QuizSession) error) (*model.QuizSession, error) {
	ref := f.client.Collection(collectionQuizzes).Doc(string(id))
	var updated *model.QuizSession

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(model.ErrNotFound, "quiz session not found", goerr.V("quiz_id", id))
			}
			return goerr.Wrap(err, "failed to get quiz session")
		}

		var session model.QuizSession
		if err := doc.DataTo(&session); err != nil {
			return goerr.Wrap(err, "failed to decode quiz session")
		}

		if err := update(&session); err != nil {
			return err
		}

		updated = &session
		return tx.Set(ref, &session)
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (f *Firestore) ListQuizSessions(ctx context.Context, patientID model.PatientID, limit int) ([]*model.QuizSession, error) {
	q := f.client.Collection(collectionQuizzes).
		Where("patientId", "==", string(patientID)).
		OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	return f.collectSessions(ctx, q)
}

func (f *Firestore) ListCompletedQuizSessions(ctx context.Context, patientID model.PatientID, limit int, oldestFirst bool) ([]*model.QuizSession, error) {
	dir := firestore.Desc
	if oldestFirst {
		dir = firestore.Asc
	}

	q := f.client.Collection(collectionQuizzes).
		Where("patientId", "==", string(patientID)).
		Where("status", "==", string(model.QuizStatusCompleted)).
		OrderBy("completedAt", dir)
	if limit > 0 {
		q = q.Limit(limit)
	}

	return f.collectSessions(ctx, q)
}

func (f *Firestore) collectSessions(ctx context.Context, q firestore.Query) ([]*model.QuizSession, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	var sessions []*model.QuizSession
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate quiz sessions")
		}

		var session model.QuizSession
		if err := doc.DataTo(&session); err != nil {
			return nil, goerr.Wrap(err, "failed to decode quiz session", goerr.V("doc_id", doc.Ref.ID))
		}
		sessions = append(sessions, &session)
	}

	return sessions, nil
}

func (f *Firestore) CountQuizSessions(ctx context.Context, patientID model.PatientID, completedOnly bool) (int64, error) {
	q := f.client.Collection(collectionQuizzes).
		Where("patientId", "==", string(patientID))
	if completedOnly {
		q = q.Where("status", "==", string(model.QuizStatusCompleted))
	}

	result, err := q.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to count quiz sessions", goerr.V("patient_id", patientID))
	}

	value, ok := result["all"]
	if !ok {
		return 0, goerr.New("count aggregation missing from result")
	}

	count, ok := value.(*firestorepb.Value)
	if !ok {
		return 0, goerr.New("unexpected count aggregation type")
	}

	return count.GetIntegerValue(), nil
}
