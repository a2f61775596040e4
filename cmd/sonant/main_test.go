package main

import (
	"errors"
	"testing"

	"github.com/sonant-dev/sonant/internal/config"
	"github.com/sonant-dev/sonant/pkg/provider/llm"
	llmmock "github.com/sonant-dev/sonant/pkg/provider/llm/mock"
	"github.com/sonant-dev/sonant/pkg/provider/stt"
	sttmock "github.com/sonant-dev/sonant/pkg/provider/stt/mock"
	"github.com/sonant-dev/sonant/pkg/provider/tts"
	ttsmock "github.com/sonant-dev/sonant/pkg/provider/tts/mock"
)

func registryWithWorkingLLM(t *testing.T) *config.Registry {
	t.Helper()
	reg := config.NewRegistry()
	reg.RegisterLLM("openai", func(config.ProviderEntry) (llm.Provider, error) {
		return &llmmock.Provider{}, nil
	})
	return reg
}

func TestBuildProvidersDegradesOnSTTFailure(t *testing.T) {
	t.Parallel()

	reg := registryWithWorkingLLM(t)
	reg.RegisterSTT("whisper", func(config.ProviderEntry) (stt.Provider, error) {
		return nil, errors.New("model file missing")
	})

	cfg := &config.Config{}
	cfg.Providers.LLM.Name = "openai"
	cfg.Providers.STT.Name = "whisper"

	ps, err := buildProviders(cfg, reg)
	if err != nil {
		t.Fatalf("buildProviders: %v", err)
	}
	if ps.STT != nil {
		t.Error("stt provider set despite factory failure")
	}
	if ps.Audio != nil {
		t.Error("audio source opened with transcription unavailable")
	}
	if ps.LLM == nil {
		t.Error("llm provider missing")
	}
}

func TestBuildProvidersDegradesOnTTSFailure(t *testing.T) {
	t.Parallel()

	reg := registryWithWorkingLLM(t)
	reg.RegisterTTS("system", func(config.ProviderEntry) (tts.Provider, error) {
		return nil, errors.New("no speech binary on PATH")
	})

	cfg := &config.Config{}
	cfg.Providers.LLM.Name = "openai"
	cfg.Providers.TTS.Name = "system"

	ps, err := buildProviders(cfg, reg)
	if err != nil {
		t.Fatalf("buildProviders: %v", err)
	}
	if ps.TTS != nil {
		t.Error("tts provider set despite factory failure")
	}
}

func TestBuildProvidersLLMFailureIsFatal(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	reg.RegisterLLM("openai", func(config.ProviderEntry) (llm.Provider, error) {
		return nil, errors.New("invalid api key")
	})

	cfg := &config.Config{}
	cfg.Providers.LLM.Name = "openai"

	if _, err := buildProviders(cfg, reg); err == nil {
		t.Fatal("buildProviders succeeded with a failing llm factory")
	}
}

func TestBuildProvidersOpensAudioWithSTT(t *testing.T) {
	t.Parallel()

	reg := registryWithWorkingLLM(t)
	reg.RegisterSTT("whisper", func(config.ProviderEntry) (stt.Provider, error) {
		return &sttmock.Provider{}, nil
	})
	reg.RegisterTTS("system", func(config.ProviderEntry) (tts.Provider, error) {
		return &ttsmock.Speaker{}, nil
	})

	cfg := &config.Config{}
	cfg.Providers.LLM.Name = "openai"
	cfg.Providers.STT.Name = "whisper"
	cfg.Providers.TTS.Name = "system"
	cfg.Audio.SampleRate = 16000
	cfg.Audio.Channels = 1

	ps, err := buildProviders(cfg, reg)
	if err != nil {
		t.Fatalf("buildProviders: %v", err)
	}
	if ps.STT == nil || ps.TTS == nil || ps.LLM == nil {
		t.Error("expected all providers to be built")
	}
	if ps.Audio == nil {
		t.Error("audio source not created alongside stt")
	}
}
