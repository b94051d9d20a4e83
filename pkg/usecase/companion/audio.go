package companion

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/memento-care/memento/pkg/model"
)

// ProcessAudioMessage transcribes a voice message and runs the regular
// text exchange on the transcript. An unintelligible recording fails
// before anything is generated or persisted.
func (u *UseCase) ProcessAudioMessage(ctx context.Context, patientID model.PatientID, audio []byte) (*ChatResult, error) {
	if len(audio) == 0 {
		return nil, goerr.Wrap(model.ErrInvalidInput, "audio data is empty")
	}

	transcript, err := u.speech.Transcribe(ctx, audio)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to transcribe audio", goerr.V("patient_id", patientID))
	}
	if transcript == "" {
		return nil, goerr.Wrap(model.ErrTranscriptionFailed, "empty transcript", goerr.V("patient_id", patientID))
	}

	result, err := u.ProcessTextMessage(ctx, patientID, transcript)
	if err != nil {
		return nil, err
	}
	result.Transcript = transcript

	return result, nil
}
