// Package portaudio provides an [audio.Source] backed by the PortAudio
// library via github.com/gordonklaus/portaudio. It opens the default capture
// device and emits fixed-size PCM frames.
//
// PortAudio global state is initialised once per process on the first Start
// and released on the last Stop, guarded by a package-level reference count.
package portaudio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"

	"github.com/sonant-dev/sonant/pkg/audio"
	"github.com/sonant-dev/sonant/pkg/types"
)

// Compile-time assertion that Source satisfies audio.Source.
var _ audio.Source = (*Source)(nil)

const (
	defaultSampleRate = 16000
	defaultChannels   = 1

	// frameDurationMs is the duration of each emitted frame. 20 ms matches
	// the granularity most STT providers and VAD models expect.
	frameDurationMs = 20
)

// initMu guards the process-wide PortAudio init/terminate reference count.
var (
	initMu   sync.Mutex
	initRefs int
)

func acquirePortAudio() error {
	initMu.Lock()
	defer initMu.Unlock()
	if initRefs == 0 {
		if err := portaudio.Initialize(); err != nil {
			return err
		}
	}
	initRefs++
	return nil
}

func releasePortAudio() {
	initMu.Lock()
	defer initMu.Unlock()
	initRefs--
	if initRefs == 0 {
		_ = portaudio.Terminate()
	}
}

// Option is a functional option for configuring a Source.
type Option func(*Source)

// WithFormat overrides the default 16 kHz mono 16-bit capture format.
// BitDepth must be 16; other depths return an error from Start.
func WithFormat(f audio.Format) Option {
	return func(s *Source) { s.format = f }
}

// Source captures audio from the default input device. It implements
// [audio.Source].
type Source struct {
	format audio.Format

	mu      sync.Mutex
	started bool
	stopped bool
	stop    chan struct{}
	done    chan struct{}

	errMu sync.Mutex
	err   error
}

// New creates a Source with the default format (16 kHz, mono, 16-bit).
func New(opts ...Option) *Source {
	s := &Source{
		format: audio.Format{
			SampleRate: defaultSampleRate,
			Channels:   defaultChannels,
			BitDepth:   16,
		},
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start opens the default capture device and begins emitting frames.
func (s *Source) Start(ctx context.Context) (<-chan types.AudioFrame, error) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil, errors.New("portaudio: source already started")
	}
	s.started = true
	s.mu.Unlock()

	if s.format.BitDepth != 16 {
		return nil, fmt.Errorf("portaudio: unsupported bit depth %d (only 16 is supported)", s.format.BitDepth)
	}
	if s.format.SampleRate <= 0 {
		s.format.SampleRate = defaultSampleRate
	}
	if s.format.Channels <= 0 {
		s.format.Channels = defaultChannels
	}

	if err := acquirePortAudio(); err != nil {
		return nil, fmt.Errorf("portaudio: initialise: %w", err)
	}

	samplesPerFrame := s.format.SampleRate * frameDurationMs / 1000
	buf := make([]int16, samplesPerFrame*s.format.Channels)

	stream, err := portaudio.OpenDefaultStream(
		s.format.Channels, 0,
		float64(s.format.SampleRate),
		samplesPerFrame,
		buf,
	)
	if err != nil {
		releasePortAudio()
		return nil, fmt.Errorf("portaudio: open default stream: %w", err)
	}

	if err := stream.Start(); err != nil {
		_ = stream.Close()
		releasePortAudio()
		return nil, fmt.Errorf("portaudio: start stream: %w", err)
	}

	frames := make(chan types.AudioFrame, 64)

	go s.captureLoop(ctx, stream, buf, frames)

	return frames, nil
}

// captureLoop reads from the device until stopped, cancelled, or errored.
func (s *Source) captureLoop(ctx context.Context, stream *portaudio.Stream, buf []int16, frames chan<- types.AudioFrame) {
	defer close(s.done)
	defer close(frames)
	defer releasePortAudio()
	defer stream.Close()
	defer stream.Stop()

	start := time.Now()
	frameDur := time.Duration(frameDurationMs) * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		default:
		}

		if err := stream.Read(); err != nil {
			// Device errors are terminal; surface once via Err.
			s.setErr(fmt.Errorf("portaudio: read: %w", err))
			return
		}

		data := make([]byte, len(buf)*2)
		for i, sample := range buf {
			binary.LittleEndian.PutUint16(data[i*2:], uint16(sample))
		}

		frame := types.AudioFrame{
			Data:       data,
			SampleRate: s.format.SampleRate,
			Channels:   s.format.Channels,
			Timestamp:  time.Since(start).Truncate(frameDur),
		}

		select {
		case frames <- frame:
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		}
	}
}

// Stop terminates capture. Safe to call more than once and before Start.
func (s *Source) Stop() error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	started := s.started
	s.mu.Unlock()

	close(s.stop)
	if started {
		<-s.done
	}
	return nil
}

// Err returns the terminal device error, if any.
func (s *Source) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *Source) setErr(err error) {
	s.errMu.Lock()
	s.err = err
	s.errMu.Unlock()
}
