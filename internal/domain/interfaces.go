package domain

import (
	"context"
	"time"
)

// Chunk is one subtitle segment of a course video together with its embedding.
// Index is the row position in the chunk store and acts as the chunk identity.
type Chunk struct {
	Index     int
	Title     string
	Number    int
	Start     float64
	End       float64
	Text      string
	Embedding []float64
}

// ScoredChunk represents a matching chunk with its cosine similarity.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// Query is a single question submitted by the user.
type Query struct {
	Text        string
	SubmittedAt time.Time
}

// TurnStatus is the position of a turn in the answer pipeline.
type TurnStatus int

const (
	TurnIdle TurnStatus = iota
	TurnSubmitted
	TurnEmbedding
	TurnRetrieving
	TurnGenerating
	TurnCompleted
	TurnFailed
)

func (s TurnStatus) String() string {
	switch s {
	case TurnIdle:
		return "idle"
	case TurnSubmitted:
		return "submitted"
	case TurnEmbedding:
		return "embedding"
	case TurnRetrieving:
		return "retrieving"
	case TurnGenerating:
		return "generating"
	case TurnCompleted:
		return "completed"
	case TurnFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether no further transitions happen from s.
func (s TurnStatus) Terminal() bool { return s == TurnCompleted || s == TurnFailed }

// Turn is one question/answer cycle.
type Turn struct {
	ID        string
	Query     Query
	Retrieval []ScoredChunk
	Prompt    string
	Answer    string
	Err       error
	Status    TurnStatus
}

// Sender identifies who authored a transcript message.
type Sender int

const (
	SenderUser Sender = iota
	SenderAssistant
	SenderSystem
)

func (s Sender) String() string {
	switch s {
	case SenderUser:
		return "User"
	case SenderAssistant:
		return "Assistant"
	case SenderSystem:
		return "System"
	}
	return "Unknown"
}

// Message is a transcript entry. The transcript lives in memory only.
type Message struct {
	Sender Sender
	Text   string
	At     time.Time
}

// Severity classifies status line updates.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityBusy
	SeveritySuccess
	SeverityWarning
	SeverityError
)

// Embedder converts texts into embedding vectors, one per input, in order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// Generator produces an answer for a fully-formed prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Speaker reads an answer aloud. Speak reports whether the request was accepted.
type Speaker interface {
	Speak(text string) bool
}

// Listener captures one spoken utterance and returns its transcription.
type Listener interface {
	Capture(ctx context.Context) (string, error)
}
