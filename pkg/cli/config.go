package cli

import (
	"context"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/memento-care/memento/pkg/adapter"
	"github.com/memento-care/memento/pkg/repository"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// config holds configuration values
type config struct {
	// Repository
	project  string
	database string

	// Adapters
	geminiProject      string
	geminiLocation     string
	embeddingDimension int64
	speechLanguage     string
	bucket             string

	// Voice tuning file (YAML, optional)
	voiceConfigPath string

	logLevel string
}

// globalFlags returns common flags used across commands with destination config
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("MEMENTO_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
	}
}

// aiFlags returns flags for the AI collaborator configuration
func aiFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini (defaults to --project)",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.IntFlag{
			Name:        "embedding-dimension",
			Usage:       "Output dimension of embedding vectors",
			Value:       768,
			Sources:     cli.EnvVars("MEMENTO_EMBEDDING_DIMENSION"),
			Destination: &cfg.embeddingDimension,
		},
		&cli.StringFlag{
			Name:        "speech-language",
			Usage:       "Language code for speech recognition",
			Value:       "en-US",
			Sources:     cli.EnvVars("MEMENTO_SPEECH_LANGUAGE"),
			Destination: &cfg.speechLanguage,
		},
		&cli.StringFlag{
			Name:        "voice-config",
			Usage:       "Path to YAML file tuning the synthesized voice",
			Sources:     cli.EnvVars("MEMENTO_VOICE_CONFIG"),
			Destination: &cfg.voiceConfigPath,
		},
		&cli.StringFlag{
			Name:        "bucket",
			Usage:       "Cloud Storage bucket for audio archives (empty disables archiving)",
			Sources:     cli.EnvVars("MEMENTO_AUDIO_BUCKET"),
			Destination: &cfg.bucket,
		},
	}
}

// newRepository creates a new repository instance
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, error) {
	if cfg.project == "" {
		return nil, goerr.New("project is required")
	}
	if cfg.database == "" {
		return nil, goerr.New("database is required")
	}

	repo, err := repository.New(ctx, cfg.project, cfg.database)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create repository")
	}
	return repo, nil
}

// newGemini creates a new Gemini adapter instance
func (cfg *config) newGemini(ctx context.Context) (adapter.Gemini, error) {
	project := cfg.geminiProject
	if project == "" {
		project = cfg.project
	}
	if project == "" {
		return nil, goerr.New("gemini-project or project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.New("gemini-location is required")
	}

	return adapter.NewGemini(ctx, project, cfg.geminiLocation,
		adapter.WithEmbeddingDimension(int(cfg.embeddingDimension)))
}

// newSpeechToText creates a speech recognition adapter
func (cfg *config) newSpeechToText(ctx context.Context) (adapter.SpeechToText, error) {
	return adapter.NewSpeechToText(ctx, cfg.speechLanguage)
}

// newTextToSpeech creates a voice synthesis adapter, applying the voice
// tuning file when one is configured
func (cfg *config) newTextToSpeech(ctx context.Context) (adapter.TextToSpeech, error) {
	voice := adapter.DefaultVoiceConfig()

	if cfg.voiceConfigPath != "" {
		data, err := os.ReadFile(cfg.voiceConfigPath)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read voice config", goerr.V("path", cfg.voiceConfigPath))
		}
		if err := yaml.Unmarshal(data, &voice); err != nil {
			return nil, goerr.Wrap(err, "failed to parse voice config", goerr.V("path", cfg.voiceConfigPath))
		}
	}

	return adapter.NewTextToSpeech(ctx, voice)
}

// newSentimentAnalyzer creates a sentiment analysis adapter
func (cfg *config) newSentimentAnalyzer(ctx context.Context) (adapter.SentimentAnalyzer, error) {
	return adapter.NewSentimentAnalyzer(ctx)
}

// newStorage creates an audio archive storage adapter; a nil result
// with nil error means archiving is disabled
func (cfg *config) newStorage(ctx context.Context) (adapter.Storage, error) {
	if cfg.bucket == "" {
		return nil, nil
	}
	return adapter.NewStorage(ctx, cfg.bucket)
}
