package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"stt": {"whisper", "deepgram"},
	"llm": {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile", "openai-direct"},
	"tts": {"system"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Wake
	if cfg.Wake.Phrase == "" {
		errs = append(errs, fmt.Errorf("wake.phrase is required"))
	}
	if t := cfg.Wake.PhoneticThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("wake.phonetic_threshold %.2f is out of range [0, 1]", t))
	}

	// Audio
	if cfg.Audio.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must not be negative"))
	}
	if cfg.Audio.Channels < 0 || cfg.Audio.Channels > 2 {
		errs = append(errs, fmt.Errorf("audio.channels %d is out of range [0, 2]", cfg.Audio.Channels))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)

	// Provider availability warnings
	if cfg.Providers.STT.Name == "" {
		slog.Warn("no STT provider configured; the assistant cannot hear commands")
	}
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no LLM provider configured; the assistant cannot generate replies")
	}

	// Session
	if cfg.Session.AwakeTimeout < 0 {
		errs = append(errs, fmt.Errorf("session.awake_timeout must not be negative"))
	}
	if cfg.Session.GraceDelay < 0 {
		errs = append(errs, fmt.Errorf("session.grace_delay must not be negative"))
	}
	if cfg.Session.MinCommandLength < 0 {
		errs = append(errs, fmt.Errorf("session.min_command_length must not be negative"))
	}

	// Responder
	if t := cfg.Responder.Temperature; t < 0 || t > 2 {
		errs = append(errs, fmt.Errorf("responder.temperature %.2f is out of range [0, 2]", t))
	}
	if cfg.Responder.MaxHistory < 0 {
		errs = append(errs, fmt.Errorf("responder.max_history must not be negative"))
	}
	if cfg.Responder.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("responder.request_timeout must not be negative"))
	}

	// Knowledge availability
	if cfg.Knowledge.PostgresDSN == "" {
		slog.Warn("knowledge.postgres_dsn is empty; replies will not be grounded in local knowledge")
	}
	if cfg.Knowledge.FetchLimit < 0 {
		errs = append(errs, fmt.Errorf("knowledge.fetch_limit must not be negative"))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
