package wake

import (
	"sync"
	"time"

	"github.com/sonant-dev/sonant/pkg/types"
)

// PreRoll bounds retention of recently captured audio: it keeps roughly the
// last `window` of frames and evicts everything older, so the capture path
// never accumulates audio without bound. Drain empties it, typically when the
// wake phrase fires and the buffered lead-in is no longer needed.
//
// Frame timestamps are stream-relative durations, matching
// [types.AudioFrame.Timestamp].
//
// Safe for concurrent use.
type PreRoll struct {
	mu     sync.Mutex
	frames []types.AudioFrame
	window time.Duration
}

// NewPreRoll returns a PreRoll retaining approximately window of audio.
// A non-positive window defaults to 2 seconds.
func NewPreRoll(window time.Duration) *PreRoll {
	if window <= 0 {
		window = 2 * time.Second
	}
	return &PreRoll{window: window}
}

// Push appends frame and evicts frames older than the retention window,
// measured against the newest frame's timestamp.
func (p *PreRoll) Push(frame types.AudioFrame) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frames = append(p.frames, frame)

	cutoff := frame.Timestamp - p.window
	start := 0
	for start < len(p.frames) && p.frames[start].Timestamp < cutoff {
		start++
	}
	if start > 0 {
		p.frames = append(p.frames[:0], p.frames[start:]...)
	}
}

// Drain returns the buffered frames in arrival order and empties the buffer.
func (p *PreRoll) Drain() []types.AudioFrame {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := p.frames
	p.frames = nil
	return out
}

// Len returns the number of buffered frames.
func (p *PreRoll) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}
