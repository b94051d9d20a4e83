package adapter

import (
	"context"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/m-mizutani/goerr/v2"
)

// TextToSpeech synthesizes companion replies as MP3 audio.
type TextToSpeech interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// VoiceConfig tunes the synthesized voice. The defaults speak slightly
// slower than normal for cognitive accessibility.
type VoiceConfig struct {
	LanguageCode string  `yaml:"language_code"`
	VoiceName    string  `yaml:"voice_name"`
	SpeakingRate float64 `yaml:"speaking_rate"`
	Pitch        float64 `yaml:"pitch"`
	VolumeGainDb float64 `yaml:"volume_gain_db"`
}

// DefaultVoiceConfig returns the companion's standard voice.
func DefaultVoiceConfig() VoiceConfig {
	return VoiceConfig{
		LanguageCode: "en-US",
		VoiceName:    "en-US-Neural2-C",
		SpeakingRate: 0.9,
		Pitch:        0.0,
		VolumeGainDb: 1.0,
	}
}

type ttsClient struct {
	client *texttospeech.Client
	voice  VoiceConfig
}

// NewTextToSpeech creates a Cloud Text-to-Speech backed synthesizer.
func NewTextToSpeech(ctx context.Context, voice VoiceConfig) (TextToSpeech, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create text-to-speech client")
	}

	if voice.LanguageCode == "" {
		voice = DefaultVoiceConfig()
	}

	return &ttsClient{
		client: client,
		voice:  voice,
	}, nil
}

func (t *ttsClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	resp, err := t.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: t.voice.LanguageCode,
			Name:         t.voice.VoiceName,
			SsmlGender:   texttospeechpb.SsmlVoiceGender_FEMALE,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
			SpeakingRate:  t.voice.SpeakingRate,
			Pitch:         t.voice.Pitch,
			VolumeGainDb:  t.voice.VolumeGainDb,
		},
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to synthesize speech")
	}

	return resp.AudioContent, nil
}
