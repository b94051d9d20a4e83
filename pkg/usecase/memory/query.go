package memory

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/memento-care/memento/pkg/model"
)

// QueryTopK embeds queryText and returns the patient's k most relevant
// memory chunks, most similar first. An empty chunk collection yields an
// empty result, not an error.
func (u *UseCase) QueryTopK(ctx context.Context, patientID model.PatientID, queryText string, k int) ([]*model.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	vector, err := u.gemini.Embedding(ctx, queryText)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query", goerr.V("patient_id", patientID))
	}

	results, err := u.searcher.Search(ctx, patientID, vector, k)
	if err != nil {
		return nil, err
	}

	return results, nil
}
