// Package system provides a TTS provider backed by a system speech command.
//
// On macOS it shells out to `say`; elsewhere it defaults to `espeak-ng`. The
// command is overridable, so any CLI synthesiser that accepts the text as its
// final argument can be used.
//
// The provider plays at most one utterance at a time. A Speak call that arrives
// while another is playing returns tts.ErrBusy and the text is dropped.
package system

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sync/atomic"

	"github.com/sonant-dev/sonant/pkg/provider/tts"
)

// Provider implements tts.Provider using an external speech command.
type Provider struct {
	command string
	args    []string
	voice   string

	speaking atomic.Bool
}

// Option is a functional option for Provider.
type Option func(*Provider)

// WithCommand overrides the speech command and its leading arguments. The text
// to speak is appended as the final argument.
func WithCommand(name string, args ...string) Option {
	return func(p *Provider) {
		p.command = name
		p.args = args
	}
}

// WithVoice selects a voice by name. Mapped to `-v` for both `say` and
// `espeak-ng`; ignored when WithCommand supplies explicit arguments.
func WithVoice(voice string) Option {
	return func(p *Provider) {
		p.voice = voice
	}
}

// New constructs a system TTS Provider. Returns an error if the speech command
// cannot be found on PATH.
func New(opts ...Option) (*Provider, error) {
	p := &Provider{}
	for _, o := range opts {
		o(p)
	}

	if p.command == "" {
		if runtime.GOOS == "darwin" {
			p.command = "say"
		} else {
			p.command = "espeak-ng"
		}
		if p.voice != "" {
			p.args = []string{"-v", p.voice}
		}
	}

	if _, err := exec.LookPath(p.command); err != nil {
		return nil, fmt.Errorf("system tts: command %q not found: %w", p.command, err)
	}
	return p, nil
}

// Speak implements tts.Provider. It runs the speech command synchronously and
// returns tts.ErrBusy if another utterance is still playing.
func (p *Provider) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	if !p.speaking.CompareAndSwap(false, true) {
		return tts.ErrBusy
	}
	defer p.speaking.Store(false)

	args := append(append([]string(nil), p.args...), text)
	cmd := exec.CommandContext(ctx, p.command, args...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("system tts: %s: %w", p.command, err)
	}
	return nil
}

// Speaking reports whether an utterance is currently playing.
func (p *Provider) Speaking() bool {
	return p.speaking.Load()
}

var _ tts.Provider = (*Provider)(nil)
