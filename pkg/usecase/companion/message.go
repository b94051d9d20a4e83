package companion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/memento-care/memento/pkg/adapter"
	"github.com/memento-care/memento/pkg/model"
	"github.com/memento-care/memento/pkg/utils/logging"
	"google.golang.org/genai"
)

// RetrievedMemory is one memory chunk surfaced for a reply.
type RetrievedMemory struct {
	Summary    string  `json:"summary"`
	Similarity float64 `json:"similarity"`
}

// MessageIDs identifies the persisted message pair of one exchange.
type MessageIDs struct {
	UserMessageID model.MessageID `json:"userMessageId"`
	AIMessageID   model.MessageID `json:"aiMessageId"`
}

// ChatResult is the outcome of one companion exchange. AudioResponse is
// MP3 data and serializes as base64.
type ChatResult struct {
	Response      string            `json:"response"`
	AudioResponse []byte            `json:"audioResponse,omitempty"`
	MessageIDs    MessageIDs        `json:"messageIds"`
	Sentiment     *model.Sentiment  `json:"sentiment,omitempty"`
	Memories      []RetrievedMemory `json:"memories"`

	// Transcript is only set for audio messages.
	Transcript string `json:"message,omitempty"`

	// Persisted reports whether the message pair reached the
	// conversation log. The reply is still returned when it did not.
	Persisted bool `json:"-"`
}

// ProcessTextMessage runs one companion exchange: analyze the message,
// retrieve relevant memories, generate a reply, synthesize audio and
// append the message pair to the conversation log. Any collaborator
// failure fails the exchange; only persistence is best-effort, so a
// generated reply is never discarded once it exists.
func (u *UseCase) ProcessTextMessage(ctx context.Context, patientID model.PatientID, text string) (*ChatResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, goerr.Wrap(model.ErrInvalidInput, "message is empty")
	}

	logger := logging.From(ctx)

	patient, err := u.repo.GetPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}

	sentiment, err := u.analyzer.Analyze(ctx, text)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to analyze sentiment", goerr.V("patient_id", patientID))
	}

	memories, err := u.memory.QueryTopK(ctx, patientID, text, u.retrieveLimit)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to retrieve memories", goerr.V("patient_id", patientID))
	}

	prompt, err := buildPrompt(patient, memories, text)
	if err != nil {
		return nil, err
	}

	resp, err := u.gemini.GenerateContent(ctx, []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}, nil)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate companion reply", goerr.V("patient_id", patientID))
	}

	reply := strings.TrimSpace(adapter.ResponseText(resp))
	if reply == "" {
		return nil, goerr.New("companion reply is empty", goerr.V("patient_id", patientID))
	}

	result := &ChatResult{
		Response:  reply,
		Sentiment: sentiment,
		Memories:  make([]RetrievedMemory, 0, len(memories)),
	}
	for _, m := range memories {
		result.Memories = append(result.Memories, RetrievedMemory{
			Summary:    m.Chunk.Summary,
			Similarity: m.Similarity,
		})
	}

	audio, err := u.tts.Synthesize(ctx, reply)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to synthesize reply audio", goerr.V("patient_id", patientID))
	}
	result.AudioResponse = audio

	now := time.Now()
	userMsg := &model.Message{
		ID:        model.NewMessageID(),
		Sender:    model.SenderPatient,
		Content:   text,
		Timestamp: now,
	}
	if sentiment != nil {
		userMsg.Sentiment = sentiment.Category
		userMsg.SentimentScore = sentiment.Score
		userMsg.Entities = &sentiment.Entities
		userMsg.Topics = sentiment.Entities.Other
	}
	aiMsg := &model.Message{
		ID:        model.NewMessageID(),
		Sender:    model.SenderAssistant,
		Content:   reply,
		Timestamp: now.Add(time.Millisecond),
	}
	result.MessageIDs = MessageIDs{
		UserMessageID: userMsg.ID,
		AIMessageID:   aiMsg.ID,
	}

	u.archiveAudio(ctx, patientID, aiMsg.ID, result.AudioResponse)

	if err := u.repo.AppendMessages(ctx, patientID, userMsg, aiMsg); err != nil {
		logger.Warn("failed to persist conversation messages",
			"error", err, "patient_id", patientID, "user_message_id", userMsg.ID)
	} else {
		result.Persisted = true
	}

	return result, nil
}

// archiveAudio writes the synthesized reply to storage. Failures are
// logged and never affect the exchange.
func (u *UseCase) archiveAudio(ctx context.Context, patientID model.PatientID, messageID model.MessageID, audio []byte) {
	if u.storage == nil || len(audio) == 0 {
		return
	}

	key := fmt.Sprintf("audio/%s/%s.mp3", patientID, messageID)
	w, err := u.storage.Put(ctx, key)
	if err != nil {
		logging.From(ctx).Warn("failed to open audio archive writer", "error", err, "key", key)
		return
	}
	if _, err := w.Write(audio); err != nil {
		logging.From(ctx).Warn("failed to archive audio", "error", err, "key", key)
		_ = w.Close()
		return
	}
	if err := w.Close(); err != nil {
		logging.From(ctx).Warn("failed to close audio archive writer", "error", err, "key", key)
	}
}
