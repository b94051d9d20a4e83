package companion

import (
	"github.com/memento-care/memento/pkg/adapter"
	"github.com/memento-care/memento/pkg/repository"
	"github.com/memento-care/memento/pkg/usecase/memory"
)

const defaultRetrieveLimit = 5

// UseCase drives the companion chat: retrieval-augmented replies,
// voice input/output and conversation persistence.
type UseCase struct {
	repo     repository.Repository
	gemini   adapter.Gemini
	speech   adapter.SpeechToText
	tts      adapter.TextToSpeech
	analyzer adapter.SentimentAnalyzer
	memory   *memory.UseCase

	// storage is optional; when set, synthesized replies are archived.
	storage adapter.Storage

	retrieveLimit int
}

// Option is a functional option for UseCase
type Option func(*UseCase)

// WithStorage enables best-effort archiving of synthesized audio
func WithStorage(storage adapter.Storage) Option {
	return func(uc *UseCase) {
		uc.storage = storage
	}
}

// WithRetrieveLimit sets how many memory chunks a reply retrieves
func WithRetrieveLimit(limit int) Option {
	return func(uc *UseCase) {
		uc.retrieveLimit = limit
	}
}

// New creates a companion UseCase
func New(repo repository.Repository, gemini adapter.Gemini, speech adapter.SpeechToText, tts adapter.TextToSpeech, analyzer adapter.SentimentAnalyzer, mem *memory.UseCase, opts ...Option) *UseCase {
	uc := &UseCase{
		repo:          repo,
		gemini:        gemini,
		speech:        speech,
		tts:           tts,
		analyzer:      analyzer,
		memory:        mem,
		retrieveLimit: defaultRetrieveLimit,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}
