// Package audio defines the Source interface for microphone capture backends.
//
// A Source wraps a platform capture device and emits a continuous stream of
// PCM [types.AudioFrame] values until stopped or until the device errors.
// Device errors are terminal: the frame channel is closed and Err reports the
// cause. There is no implicit retry — a failed capture device stays failed
// until process restart.
package audio

import (
	"context"

	"github.com/sonant-dev/sonant/pkg/types"
)

// Format describes the PCM format a Source captures in. All values are
// configuration-level constants for the lifetime of the stream, not per-frame
// metadata.
type Format struct {
	// SampleRate is the capture rate in Hz. Default: 16000.
	SampleRate int

	// Channels is the channel count. Default: 1 (mono).
	Channels int

	// BitDepth is the bits per sample. Only 16 is supported by the bundled
	// sources.
	BitDepth int
}

// Source is the abstraction over any audio capture backend.
//
// A Source is single-use: Start may be called at most once. Stop may be called
// from any goroutine and is safe to call more than once.
type Source interface {
	// Start opens the capture device and returns a channel of audio frames.
	// The channel is closed when Stop is called, when ctx is cancelled, or when
	// the device errors. Returns an error if the device cannot be opened
	// (unavailable, permission denied, unsupported format).
	Start(ctx context.Context) (<-chan types.AudioFrame, error)

	// Stop terminates capture and releases the device. After Stop returns the
	// frame channel will be closed. Calling Stop more than once is safe.
	Stop() error

	// Err returns the terminal error that closed the frame channel, or nil if
	// the stream ended by Stop or context cancellation. Call after the frame
	// channel is closed.
	Err() error
}
