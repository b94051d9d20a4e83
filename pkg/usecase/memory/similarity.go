package memory

import (
	"context"
	"math"
	"sort"

	"github.com/m-mizutani/goerr/v2"
	"github.com/memento-care/memento/pkg/adapter"
	"github.com/memento-care/memento/pkg/model"
	"github.com/memento-care/memento/pkg/repository"
	"github.com/memento-care/memento/pkg/utils/logging"
)

// searcher is one retrieval strategy: given a query vector, return the
// top-K chunks by cosine similarity, descending. Both strategies must
// produce the same result semantics.
type searcher interface {
	Search(ctx context.Context, patientID model.PatientID, vector []float32, k int) ([]*model.ScoredChunk, error)
}

// nativeSearcher delegates to the store's nearest-neighbor index.
type nativeSearcher struct {
	repo repository.Repository
}

func (s *nativeSearcher) Search(ctx context.Context, patientID model.PatientID, vector []float32, k int) ([]*model.ScoredChunk, error) {
	results, err := s.repo.SearchSimilarChunks(ctx, patientID, vector, k)
	if err != nil {
		return nil, goerr.Wrap(err, "native vector search failed", goerr.V("patient_id", patientID))
	}
	return results, nil
}

// fallbackSearcher computes cosine similarity over every stored chunk.
// Chunks without a vector are skipped; chunks with a mismatched
// dimension are re-embedded from their summary before being given up on.
type fallbackSearcher struct {
	repo   repository.Repository
	gemini adapter.Gemini
}

func (s *fallbackSearcher) Search(ctx context.Context, patientID model.PatientID, vector []float32, k int) ([]*model.ScoredChunk, error) {
	chunks, err := s.repo.ListChunks(ctx, patientID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to list chunks", goerr.V("patient_id", patientID))
	}

	logger := logging.From(ctx)

	var scored []*model.ScoredChunk
	for _, chunk := range chunks {
		if len(chunk.Vector) == 0 {
			continue
		}

		candidate := []float32(chunk.Vector)
		if len(candidate) != len(vector) {
			logger.Warn("chunk vector dimension mismatch, re-embedding",
				"chunk_id", chunk.ID,
				"chunk_dim", len(candidate),
				"query_dim", len(vector))

			if chunk.Summary == "" {
				continue
			}
			reembedded, err := s.gemini.Embedding(ctx, chunk.Summary)
			if err != nil || len(reembedded) != len(vector) {
				logger.Warn("failed to re-embed chunk, excluding", "chunk_id", chunk.ID)
				continue
			}
			candidate = reembedded
		}

		scored = append(scored, &model.ScoredChunk{
			Chunk:      chunk,
			Similarity: CosineSimilarity(candidate, vector),
		})
	}

	// Stable sort keeps the original iteration order for equal scores,
	// so a fixed candidate set always yields the same result order.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Similarity > scored[j].Similarity
	})
	if len(scored) > k {
		scored = scored[:k]
	}

	return scored, nil
}

// CosineSimilarity returns the normalized dot product of two vectors in
// [-1, 1]. A zero-norm vector yields 0 rather than dividing by zero.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
