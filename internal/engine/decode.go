//go:build whispercpp

package engine

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
)

const whisperSampleRate = 16000

// loadSamples produces mono 16 kHz float32 samples for whisper.cpp. WAV files
// are decoded directly; anything else (ogg voice notes, mp3, m4a) goes
// through ffmpeg first.
func loadSamples(ctx context.Context, path string) ([]float32, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		samples, err := decodeWav(path)
		if err == nil {
			return samples, nil
		}
		// fall through to ffmpeg for wav files with unsupported encodings
	}
	return convertAndDecode(ctx, path)
}

func decodeWav(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("whisper: open audio: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("whisper: decode wav: %w", err)
	}
	if buf == nil || buf.Format == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("whisper: empty wav %s", path)
	}
	if buf.Format.SampleRate != whisperSampleRate || buf.Format.NumChannels != 1 {
		return nil, fmt.Errorf("whisper: wav is %d Hz/%d ch, need %d Hz mono",
			buf.Format.SampleRate, buf.Format.NumChannels, whisperSampleRate)
	}

	scale := float32(int(1) << (dec.BitDepth - 1))
	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float32(v) / scale
	}
	return samples, nil
}

func convertAndDecode(ctx context.Context, path string) ([]float32, error) {
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("whisper: ffmpeg not found for %s: %w", filepath.Ext(path), err)
	}

	tmp, err := os.CreateTemp("", "talkscribe-*.wav")
	if err != nil {
		return nil, fmt.Errorf("whisper: create temp wav: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(ctx, ffmpeg,
		"-hide_banner", "-loglevel", "error",
		"-i", path,
		"-ar", fmt.Sprint(whisperSampleRate),
		"-ac", "1",
		"-c:a", "pcm_s16le",
		"-y", tmpPath,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("whisper: ffmpeg convert: %w: %s", err, strings.TrimSpace(string(out)))
	}

	return decodeWav(tmpPath)
}
