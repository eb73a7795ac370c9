// Package voice carries realtime spoken conversations between a browser and the Gemini Live API.
package voice

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

const (
	InputSampleRate  = 16000
	OutputSampleRate = 24000
	InputMIME        = "audio/pcm;rate=16000"
)

var ErrOddPCM = errors.New("pcm16 payload has an odd number of bytes")

// EncodePCM16 converts samples in [-1, 1] to little-endian signed 16-bit PCM.
func EncodePCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := math.Round(float64(s) * 32768)
		if v > math.MaxInt16 {
			v = math.MaxInt16
		}
		if v < math.MinInt16 {
			v = math.MinInt16
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}
	return out
}

func DecodePCM16(data []byte) ([]float32, error) {
	if len(data)%2 != 0 {
		return nil, ErrOddPCM
	}
	out := make([]float32, len(data)/2)
	for i := range out {
		out[i] = float32(int16(binary.LittleEndian.Uint16(data[i*2:]))) / 32768
	}
	return out, nil
}

// Resample converts between rates by linear interpolation, in either direction.
func Resample(samples []float32, from, to int) []float32 {
	if to <= 0 || from <= 0 || to == from || len(samples) == 0 {
		return samples
	}
	ratio := float64(from) / float64(to)
	n := int(float64(len(samples)) / ratio)
	out := make([]float32, n)
	last := len(samples) - 1
	for i := 0; i < n; i++ {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx > last {
			idx = last
		}
		next := idx + 1
		if next > last {
			next = last
		}
		frac := float32(pos - float64(idx))
		out[i] = samples[idx]*(1-frac) + samples[next]*frac
	}
	return out
}

// ResamplePCM16 converts a PCM16 payload recorded at rate to the 16 kHz input rate. A zero
// rate means the payload is already at 16 kHz.
func ResamplePCM16(data []byte, rate int) ([]byte, error) {
	if rate < 0 {
		return nil, fmt.Errorf("invalid sample rate %d", rate)
	}
	if rate == 0 || rate == InputSampleRate {
		if len(data)%2 != 0 {
			return nil, ErrOddPCM
		}
		return data, nil
	}
	samples, err := DecodePCM16(data)
	if err != nil {
		return nil, err
	}
	return EncodePCM16(Resample(samples, rate, InputSampleRate)), nil
}

func EncodeFrame(pcm []byte) string {
	return base64.StdEncoding.EncodeToString(pcm)
}

func DecodeFrame(data string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 audio frame: %w", err)
	}
	return b, nil
}

// PCMDuration is the playback length of a mono PCM16 payload.
func PCMDuration(byteLen, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	samples := byteLen / 2
	return time.Duration(samples) * time.Second / time.Duration(rate)
}

// RateFromMIME reads the rate parameter of a descriptor like "audio/pcm;rate=24000".
func RateFromMIME(mime string, fallback int) int {
	for _, p := range strings.Split(mime, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(p), "=")
		if !ok || strings.TrimSpace(k) != "rate" {
			continue
		}
		if r, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && r > 0 {
			return r
		}
	}
	return fallback
}
