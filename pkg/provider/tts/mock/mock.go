// Package mock provides a test double for the tts.Provider interface.
//
// Use Speaker to record spoken texts and to simulate slow playback or a busy
// engine without touching the audio device.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/sonant-dev/sonant/pkg/provider/tts"
)

// Speaker is a mock implementation of tts.Provider.
type Speaker struct {
	mu sync.Mutex

	// SpeakErr, if non-nil, is returned from every Speak call.
	SpeakErr error

	// PlaybackDuration simulates how long each utterance takes to play. While
	// an utterance is "playing", further Speak calls return tts.ErrBusy.
	PlaybackDuration time.Duration

	// Spoken records every text successfully accepted by Speak, in order.
	Spoken []string

	// DroppedCount counts Speak calls rejected with tts.ErrBusy.
	DroppedCount int

	busy bool
}

// Speak records text and simulates playback for PlaybackDuration.
func (s *Speaker) Speak(ctx context.Context, text string) error {
	s.mu.Lock()
	if s.SpeakErr != nil {
		err := s.SpeakErr
		s.mu.Unlock()
		return err
	}
	if s.busy {
		s.DroppedCount++
		s.mu.Unlock()
		return tts.ErrBusy
	}
	s.busy = true
	s.Spoken = append(s.Spoken, text)
	d := s.PlaybackDuration
	s.mu.Unlock()

	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			s.mu.Lock()
			s.busy = false
			s.mu.Unlock()
			return ctx.Err()
		}
	}

	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
	return nil
}

// SpokenTexts returns a copy of the recorded utterances.
func (s *Speaker) SpokenTexts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.Spoken))
	copy(out, s.Spoken)
	return out
}

// Dropped returns the number of utterances rejected with tts.ErrBusy.
func (s *Speaker) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.DroppedCount
}

var _ tts.Provider = (*Speaker)(nil)
