// Package types defines the shared types used across all Sonant packages.
//
// These types form the lingua franca between the audio source, the
// transcription providers, the responder, and the session coordinator. They are
// intentionally minimal — each package defines its own domain types, but
// cross-cutting data structures live here to avoid circular imports.
package types

import "time"

// AudioFrame represents a single frame of audio data flowing through the
// pipeline. Frames are the atomic unit of audio transport — captured from the
// microphone, buffered by the wake-word pre-roll, and fed to the transcriber.
// A frame is produced once, consumed by its destination stage, and never
// mutated.
type AudioFrame struct {
	// PCM audio data, 16-bit signed little-endian.
	Data []byte

	// SampleRate in Hz (e.g., 16000 for STT-optimised capture).
	SampleRate int

	// Channels: 1 for mono (the STT path), 2 for stereo devices.
	Channels int

	// Timestamp marks when this frame was captured, relative to stream start.
	Timestamp time.Duration
}

// Transcript represents a speech-to-text result from an STT provider.
// Both partial (interim) and final transcripts use this type. Only finals
// drive session state transitions.
type Transcript struct {
	// Text is the transcribed speech content.
	Text string

	// IsFinal indicates whether this is a final (authoritative) or partial
	// (interim) transcript.
	IsFinal bool

	// Confidence is the overall confidence score (0.0–1.0). May be zero if the
	// provider does not report confidence.
	Confidence float64

	// Words contains per-word detail when available (Deepgram). May be nil for
	// providers that don't support word-level output.
	Words []WordDetail

	// Timestamp marks when the utterance started, relative to session start.
	Timestamp time.Duration

	// Duration is the length of the utterance.
	Duration time.Duration
}

// WordDetail holds per-word metadata from STT providers that support it.
type WordDetail struct {
	Word       string
	Start      time.Duration
	End        time.Duration
	Confidence float64
}

// Message represents a single turn in an LLM conversation history.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// Conversation roles used throughout the responder and LLM providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// KnowledgeEntry is a read-only piece of reference text injected into the
// language-model prompt to ground its responses. Entries are fetched fresh
// from the knowledge store on every command so the assistant always reflects
// the latest knowledge.
type KnowledgeEntry struct {
	// ID is the store-assigned unique identifier.
	ID string

	// Title is a short human-readable heading for the entry.
	Title string

	// Content is the reference text itself.
	Content string

	// Category is a coarse topic label (e.g., "household", "schedule").
	Category string

	// Priority orders entries in the prompt; higher values come first.
	Priority int

	// Active indicates whether the entry should be served to the responder.
	Active bool

	// UpdatedAt is when the entry was last modified. Used as a recency
	// tie-breaker when priorities are equal.
	UpdatedAt time.Time
}
