// Package tts defines the Provider interface for Text-to-Speech backends.
//
// A TTS provider wraps a speech synthesis engine (e.g., the macOS `say`
// command, espeak-ng, or a remote synthesis API) and presents a uniform
// speak-aloud interface. Playback is fire-and-forget from the caller's point of
// view: Speak blocks until playback finishes or ctx is cancelled, and callers
// that do not want to wait run it in a goroutine.
//
// Implementations must be safe for concurrent use, but are not required to mix
// overlapping utterances: an implementation that plays at most one utterance at
// a time rejects concurrent calls with ErrBusy. Callers should treat ErrBusy as
// a dropped utterance, not a failure.
package tts

import (
	"context"
	"errors"
)

// ErrBusy is returned by Speak when an utterance is already playing and the
// implementation does not queue. The new text is discarded.
var ErrBusy = errors.New("tts: utterance already in progress")

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Speak synthesises text and plays it to the default audio output. It
	// blocks until playback completes, ctx is cancelled, or the engine fails.
	//
	// Implementations that admit at most one utterance at a time return ErrBusy
	// when called while another Speak is in flight; the text is dropped, never
	// queued.
	Speak(ctx context.Context, text string) error
}
