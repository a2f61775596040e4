// Package mock provides a test double for the audio.Source interface.
//
// Use Source in unit tests to feed scripted audio frames without a live
// capture device.
//
// Example:
//
//	src := &mock.Source{Frames: []types.AudioFrame{{Data: pcm}}}
//	ch, _ := src.Start(ctx)
package mock

import (
	"context"
	"sync"

	"github.com/sonant-dev/sonant/pkg/audio"
	"github.com/sonant-dev/sonant/pkg/types"
)

// Compile-time assertion that Source satisfies audio.Source.
var _ audio.Source = (*Source)(nil)

// Source is a mock implementation of audio.Source. Zero value is usable:
// Start returns an open channel that emits Frames then stays open until Stop.
type Source struct {
	mu sync.Mutex

	// Frames is the scripted sequence emitted after Start.
	Frames []types.AudioFrame

	// StartErr, if non-nil, is returned from Start instead of a channel.
	StartErr error

	// TerminalErr is returned by Err after the channel closes. Use it to
	// simulate a device failure.
	TerminalErr error

	// CloseAfterFrames closes the frame channel once all Frames have been
	// sent, simulating a device that stops producing. When false the channel
	// stays open until Stop.
	CloseAfterFrames bool

	// StartCalls counts invocations of Start.
	StartCalls int

	// StopCalls counts invocations of Stop.
	StopCalls int

	stopCh  chan struct{}
	started bool
}

// Start records the call and begins emitting the scripted frames.
func (s *Source) Start(ctx context.Context) (<-chan types.AudioFrame, error) {
	s.mu.Lock()
	s.StartCalls++
	if s.StartErr != nil {
		err := s.StartErr
		s.mu.Unlock()
		return nil, err
	}
	s.stopCh = make(chan struct{})
	s.started = true
	frames := make([]types.AudioFrame, len(s.Frames))
	copy(frames, s.Frames)
	closeAfter := s.CloseAfterFrames
	stop := s.stopCh
	s.mu.Unlock()

	ch := make(chan types.AudioFrame, len(frames))
	go func() {
		defer close(ch)
		for _, f := range frames {
			select {
			case ch <- f:
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
		if closeAfter {
			return
		}
		select {
		case <-ctx.Done():
		case <-stop:
		}
	}()
	return ch, nil
}

// Stop records the call and closes the frame channel.
func (s *Source) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.StopCalls++
	if s.started {
		select {
		case <-s.stopCh:
		default:
			close(s.stopCh)
		}
	}
	return nil
}

// Err returns TerminalErr.
func (s *Source) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.TerminalErr
}
