package adapter

import (
	"context"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/m-mizutani/goerr/v2"
)

// SpeechToText transcribes patient audio. An empty transcript is not an
// error; callers decide how to handle unintelligible audio.
type SpeechToText interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

type speechClient struct {
	client       *speech.Client
	languageCode string
}

// NewSpeechToText creates a Cloud Speech-to-Text backed transcriber.
func NewSpeechToText(ctx context.Context, languageCode string) (SpeechToText, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create speech client")
	}

	if languageCode == "" {
		languageCode = "en-US"
	}

	return &speechClient{
		client:       client,
		languageCode: languageCode,
	}, nil
}

func (s *speechClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	resp, err := s.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			// Encoding left unspecified so container formats with
			// headers (WAV, FLAC) are detected automatically.
			LanguageCode:               s.languageCode,
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to recognize audio")
	}

	var sb strings.Builder
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(result.Alternatives[0].Transcript)
	}

	return strings.TrimSpace(sb.String()), nil
}
