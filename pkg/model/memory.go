package model

import (
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
)

type ChunkID string

// NewChunkID generates a new unique ChunkID
func NewChunkID() ChunkID {
	return ChunkID(uuid.New().String())
}

type MemoryType string

const (
	MemoryTypeConversation MemoryType = "conversation"
	MemoryTypePhoto        MemoryType = "photo"
	MemoryTypeDiary        MemoryType = "diary"
	MemoryTypeMedical      MemoryType = "medical"
	MemoryTypeBiography    MemoryType = "biography"
	MemoryTypeMilestone    MemoryType = "milestone"
)

// Validate checks if the memory type is valid
func (t MemoryType) Validate() error {
	switch t {
	case MemoryTypeConversation, MemoryTypePhoto, MemoryTypeDiary,
		MemoryTypeMedical, MemoryTypeBiography, MemoryTypeMilestone:
		return nil
	default:
		return goerr.Wrap(ErrInvalidInput, "invalid memory type", goerr.V("type", t))
	}
}

// Size caps for chunk metadata fields.
const (
	maxChunkKeywords = 10
	maxChunkPeople   = 5
	maxChunkPlaces   = 3
	maxChunkTopics   = 5
)

// ChunkMetadata describes the people, places and topics a chunk mentions.
type ChunkMetadata struct {
	People []string   `firestore:"people" json:"people"`
	Places []string   `firestore:"places" json:"places"`
	Topics []string   `firestore:"topics" json:"topics"`
	Type   MemoryType `firestore:"type" json:"type"`
}

// MemoryChunk is one retrievable unit of a patient's personal context.
// Chunks are immutable once created; there is no update path.
type MemoryChunk struct {
	ID       ChunkID `firestore:"id" json:"id"`
	Summary  string  `firestore:"summary" json:"summary"`
	SourceID string  `firestore:"sourceId" json:"sourceId,omitempty"`

	// Vector must match the embedding provider's output dimension.
	// Chunks with a stale dimension are re-embedded or excluded at
	// query time, never compared directly.
	Vector firestore.Vector32 `firestore:"vector" json:"-"`

	Keywords  []string      `firestore:"keywords" json:"keywords,omitempty"`
	Timestamp time.Time     `firestore:"timestamp" json:"timestamp"`
	Metadata  ChunkMetadata `firestore:"metadata" json:"metadata"`
}

// Normalize truncates metadata fields to their size caps.
func (c *MemoryChunk) Normalize() {
	c.Keywords = capStrings(c.Keywords, maxChunkKeywords)
	c.Metadata.People = capStrings(c.Metadata.People, maxChunkPeople)
	c.Metadata.Places = capStrings(c.Metadata.Places, maxChunkPlaces)
	c.Metadata.Topics = capStrings(c.Metadata.Topics, maxChunkTopics)
}

func capStrings(s []string, max int) []string {
	if len(s) > max {
		return s[:max]
	}
	return s
}

// ScoredChunk is a retrieval result: a chunk with its cosine similarity
// to the query, in [-1, 1].
type ScoredChunk struct {
	Chunk      *MemoryChunk `json:"chunk"`
	Similarity float64      `json:"similarity"`
}
