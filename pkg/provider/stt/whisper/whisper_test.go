package whisper

import (
	"encoding/binary"
	"math"
	"testing"
)

func TestNew_EmptyPath_ReturnsError(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty model path")
	}
}

func TestNew_InvalidPath_ReturnsError(t *testing.T) {
	if _, err := New("/nonexistent/model.bin"); err == nil {
		t.Fatal("expected error for invalid model path")
	}
}

func TestPcmToFloat32_FullScale(t *testing.T) {
	tests := []struct {
		name  string
		value int16
		want  float32
	}{
		{"max positive", 32767, 32767.0 / 32768.0},
		{"max negative", -32768, -1.0},
		{"zero", 0, 0.0},
		{"mid positive", 16384, 16384.0 / 32768.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pcm := make([]byte, 2)
			binary.LittleEndian.PutUint16(pcm, uint16(tt.value))
			out := pcmToFloat32(pcm)
			if math.Abs(float64(out[0]-tt.want)) > 1e-6 {
				t.Errorf("pcmToFloat32(%d) = %f; want %f", tt.value, out[0], tt.want)
			}
		})
	}
}

func TestPcmToFloat32_OddByteCount(t *testing.T) {
	// 3 bytes → only 1 complete sample (trailing byte ignored)
	pcm := []byte{0x00, 0x40, 0xFF}
	out := pcmToFloat32(pcm)
	if len(out) != 1 {
		t.Fatalf("expected 1 sample from 3-byte input, got %d", len(out))
	}
}

func TestPcmToFloat32Mono_Stereo(t *testing.T) {
	// Two stereo frames: (1000, 3000) and (-2000, -4000).
	// Expected mono: average of each pair.
	values := []int16{1000, 3000, -2000, -4000}
	pcm := make([]byte, len(values)*2)
	for i, v := range values {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(v))
	}
	mono := pcmToFloat32Mono(pcm, 2)
	if len(mono) != 2 {
		t.Fatalf("expected 2 mono samples, got %d", len(mono))
	}
	want0 := (float32(1000) + float32(3000)) / 2 / 32768.0
	want1 := (float32(-2000) + float32(-4000)) / 2 / 32768.0
	if math.Abs(float64(mono[0]-want0)) > 1e-6 {
		t.Errorf("mono[0] = %f; want %f", mono[0], want0)
	}
	if math.Abs(float64(mono[1]-want1)) > 1e-6 {
		t.Errorf("mono[1] = %f; want %f", mono[1], want1)
	}
}

func TestComputeRMS_Silence(t *testing.T) {
	pcm := make([]byte, 640) // all zero samples
	if rms := computeRMS(pcm); rms != 0 {
		t.Errorf("RMS of silence = %f; want 0", rms)
	}
}

func TestComputeRMS_ConstantAmplitude(t *testing.T) {
	// All samples at 1000 → RMS exactly 1000.
	pcm := make([]byte, 320)
	for i := 0; i < len(pcm); i += 2 {
		binary.LittleEndian.PutUint16(pcm[i:], uint16(int16(1000)))
	}
	rms := computeRMS(pcm)
	if math.Abs(rms-1000) > 0.01 {
		t.Errorf("RMS = %f; want 1000", rms)
	}
}

func TestComputeRMS_Empty(t *testing.T) {
	if rms := computeRMS(nil); rms != 0 {
		t.Errorf("RMS of empty buffer = %f; want 0", rms)
	}
}

func TestChunkDurationMs(t *testing.T) {
	tests := []struct {
		name       string
		bytes      int
		sampleRate int
		channels   int
		want       int
	}{
		{"20ms mono 16k", 640, 16000, 1, 20},
		{"one second mono 16k", 32000, 16000, 1, 1000},
		{"20ms stereo 16k", 1280, 16000, 2, 20},
		{"zero sample rate", 640, 0, 1, 0},
		{"zero channels", 640, 16000, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := chunkDurationMs(make([]byte, tt.bytes), tt.sampleRate, tt.channels)
			if got != tt.want {
				t.Errorf("chunkDurationMs = %d; want %d", got, tt.want)
			}
		})
	}
}
