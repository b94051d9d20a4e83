package memory

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/memento-care/memento/pkg/model"
	"github.com/memento-care/memento/pkg/utils/logging"
)

// AddChunk stores a new memory chunk for the patient. A vector whose
// dimension does not match the configured embedding dimension is logged
// but does not block ingestion; the fallback search path re-embeds such
// chunks at query time.
func (u *UseCase) AddChunk(ctx context.Context, patientID model.PatientID, chunk *model.MemoryChunk) error {
	if chunk.Summary == "" {
		return goerr.Wrap(model.ErrInvalidInput, "chunk summary is empty")
	}
	if err := chunk.Metadata.Type.Validate(); err != nil {
		return err
	}

	if chunk.ID == "" {
		chunk.ID = model.NewChunkID()
	}
	if chunk.Timestamp.IsZero() {
		chunk.Timestamp = time.Now()
	}
	chunk.Normalize()

	if len(chunk.Vector) == 0 {
		vector, err := u.gemini.Embedding(ctx, chunk.Summary)
		if err != nil {
			return goerr.Wrap(err, "failed to embed chunk summary", goerr.V("chunk_id", chunk.ID))
		}
		chunk.Vector = vector
	}

	if len(chunk.Vector) != u.dimension {
		logging.From(ctx).Warn("chunk vector dimension does not match configured dimension",
			"chunk_id", chunk.ID,
			"chunk_dim", len(chunk.Vector),
			"configured_dim", u.dimension)
	}

	if err := u.repo.PutChunk(ctx, patientID, chunk); err != nil {
		return goerr.Wrap(err, "failed to store chunk", goerr.V("patient_id", patientID))
	}

	return nil
}
