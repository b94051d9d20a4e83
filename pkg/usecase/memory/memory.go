package memory

import (
	"context"

	"github.com/memento-care/memento/pkg/adapter"
	"github.com/memento-care/memento/pkg/repository"
	"github.com/memento-care/memento/pkg/utils/logging"
)

// UseCase provides memory chunk storage and similarity retrieval
type UseCase struct {
	repo      repository.Repository
	gemini    adapter.Gemini
	searcher  searcher
	dimension int
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithDimension sets the expected embedding dimension
func WithDimension(dim int) Option {
	return func(uc *UseCase) {
		uc.dimension = dim
	}
}

// New creates a memory UseCase. The retrieval strategy is chosen once
// here by probing the repository for native vector search, not per call.
func New(ctx context.Context, repo repository.Repository, gemini adapter.Gemini, opts ...Option) *UseCase {
	uc := &UseCase{
		repo:      repo,
		gemini:    gemini,
		dimension: 768,
	}

	for _, opt := range opts {
		opt(uc)
	}

	if repo.ProbeVectorSearch(ctx) {
		uc.searcher = &nativeSearcher{repo: repo}
		logging.From(ctx).Info("memory retrieval using native vector search")
	} else {
		uc.searcher = &fallbackSearcher{repo: repo, gemini: gemini}
		logging.From(ctx).Warn("native vector search unavailable, using manual similarity fallback")
	}

	return uc
}

// Dimension returns the configured embedding dimension.
func (u *UseCase) Dimension() int {
	return u.dimension
}
