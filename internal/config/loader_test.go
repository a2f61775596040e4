package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/sonant-dev/sonant/internal/config"
)

const validYAML = `
server:
  log_level: info
  metrics_addr: ":9090"
wake:
  phrase: "hey sonant"
audio:
  sample_rate: 16000
  channels: 1
providers:
  stt:
    name: whisper
    model: /models/ggml-base.en.bin
  llm:
    name: openai
    model: gpt-4o-mini
    api_key: sk-test
  tts:
    name: system
session:
  awake_timeout: 10s
  grace_delay: 2s
responder:
  max_history: 10
  temperature: 0.7
knowledge:
  postgres_dsn: "postgres://localhost/sonant"
  fetch_limit: 20
`

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()
	cfg, err := config.LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Wake.Phrase != "hey sonant" {
		t.Errorf("wake.phrase = %q", cfg.Wake.Phrase)
	}
	if cfg.Session.AwakeTimeout != 10*time.Second {
		t.Errorf("session.awake_timeout = %v, want 10s", cfg.Session.AwakeTimeout)
	}
	if cfg.Session.GraceDelay != 2*time.Second {
		t.Errorf("session.grace_delay = %v, want 2s", cfg.Session.GraceDelay)
	}
	if cfg.Providers.STT.Model != "/models/ggml-base.en.bin" {
		t.Errorf("providers.stt.model = %q", cfg.Providers.STT.Model)
	}
}

func TestLoadFromReader_UnknownFieldRejected(t *testing.T) {
	t.Parallel()
	yaml := `
wake:
  phrase: "hey sonant"
nonsense_field: true
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate_WakePhraseRequired(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  llm:
    name: openai
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for missing wake phrase, got nil")
	}
	if !strings.Contains(err.Error(), "wake.phrase") {
		t.Errorf("error should mention wake.phrase, got: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
wake:
  phrase: "hey sonant"
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_TemperatureRange(t *testing.T) {
	t.Parallel()
	yaml := `
wake:
  phrase: "hey sonant"
responder:
  temperature: 3.5
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for out-of-range temperature, got nil")
	}
	if !strings.Contains(err.Error(), "temperature") {
		t.Errorf("error should mention temperature, got: %v", err)
	}
}

func TestValidate_NegativeTimeouts(t *testing.T) {
	t.Parallel()
	yaml := `
wake:
  phrase: "hey sonant"
session:
  awake_timeout: -5s
  grace_delay: -1s
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for negative timeouts, got nil")
	}
	if !strings.Contains(err.Error(), "awake_timeout") {
		t.Errorf("error should mention awake_timeout, got: %v", err)
	}
	if !strings.Contains(err.Error(), "grace_delay") {
		t.Errorf("error should mention grace_delay, got: %v", err)
	}
}

func TestValidate_PhoneticThresholdRange(t *testing.T) {
	t.Parallel()
	yaml := `
wake:
  phrase: "hey sonant"
  phonetic: true
  phonetic_threshold: 1.5
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for out-of-range phonetic threshold, got nil")
	}
}

func TestValidate_ChannelsRange(t *testing.T) {
	t.Parallel()
	yaml := `
wake:
  phrase: "hey sonant"
audio:
  channels: 7
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for out-of-range channels, got nil")
	}
}
