package wake

import (
	"testing"
	"time"

	"github.com/sonant-dev/sonant/pkg/types"
)

func frameAt(ts time.Duration, marker byte) types.AudioFrame {
	return types.AudioFrame{
		Data:       []byte{marker},
		SampleRate: 16000,
		Channels:   1,
		Timestamp:  ts,
	}
}

func TestPreRollEvictsOldFrames(t *testing.T) {
	t.Parallel()

	p := NewPreRoll(2 * time.Second)

	// Frames spaced 1s apart; with a 2s window only the last three survive
	// (the newest frame plus anything within 2s of it).
	for i := 0; i < 5; i++ {
		p.Push(frameAt(time.Duration(i)*time.Second, byte(i)))
	}

	frames := p.Drain()
	if len(frames) != 3 {
		t.Fatalf("Drain() returned %d frames, want 3", len(frames))
	}
	for i, f := range frames {
		want := byte(i + 2)
		if f.Data[0] != want {
			t.Errorf("frame %d marker = %d, want %d", i, f.Data[0], want)
		}
	}
}

func TestPreRollDrainEmpties(t *testing.T) {
	t.Parallel()

	p := NewPreRoll(time.Second)
	p.Push(frameAt(0, 1))

	if got := p.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1", got)
	}
	if frames := p.Drain(); len(frames) != 1 {
		t.Fatalf("Drain() returned %d frames, want 1", len(frames))
	}
	if got := p.Len(); got != 0 {
		t.Errorf("Len() after Drain = %d, want 0", got)
	}
	if frames := p.Drain(); frames != nil {
		t.Errorf("second Drain() = %v, want nil", frames)
	}
}

func TestPreRollDefaultWindow(t *testing.T) {
	t.Parallel()

	p := NewPreRoll(0)
	p.Push(frameAt(0, 0))
	p.Push(frameAt(3*time.Second, 1))

	// With the 2s default the first frame falls outside the window.
	frames := p.Drain()
	if len(frames) != 1 || frames[0].Data[0] != 1 {
		t.Errorf("Drain() = %v, want only the newest frame", frames)
	}
}
