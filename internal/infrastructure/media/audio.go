package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"NewsCast/internal/domain"
	"NewsCast/internal/ports"
)

// AudioRenderer voices roundup dialogue turn by turn and caches the joined mp3 on disk.
type AudioRenderer struct {
	tts     ports.SpeechSynthesizer
	dir     string
	voiceA  string
	voiceB  string
	enabled bool
}

var _ ports.AudioRenderer = (*AudioRenderer)(nil)

// NewAudioRenderer stores rendered episodes under mediaDir/roundups.
func NewAudioRenderer(tts ports.SpeechSynthesizer, mediaDir, voiceA, voiceB string, enabled bool) *AudioRenderer {
	return &AudioRenderer{
		tts:     tts,
		dir:     filepath.Join(mediaDir, "roundups"),
		voiceA:  voiceA,
		voiceB:  voiceB,
		enabled: enabled,
	}
}

// Path returns the cache location for postID.
func (r *AudioRenderer) Path(postID string) string {
	return filepath.Join(r.dir, postID+".mp3")
}

// Render returns the cached mp3 for postID, synthesizing it when absent.
func (r *AudioRenderer) Render(ctx context.Context, postID string, dialogue domain.Dialogue) (string, error) {
	path := r.Path(postID)
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		return path, nil
	}
	if !r.enabled || r.tts == nil {
		return "", fmt.Errorf("speech synthesis disabled: %w", domain.ErrMisconfigured)
	}

	voiceA := firstNonEmpty(dialogue.VoiceA, r.voiceA)
	voiceB := firstNonEmpty(dialogue.VoiceB, r.voiceB)

	var audio bytes.Buffer
	for i, turn := range dialogue.Dialogue {
		text := strings.TrimSpace(turn.Text)
		if text == "" {
			continue
		}
		chunk, err := r.tts.Synthesize(ctx, voiceFor(turn.Speaker, i, voiceA, voiceB), text)
		if err != nil {
			return "", fmt.Errorf("synthesize turn %d of %s: %w", i, postID, err)
		}
		audio.Write(chunk)
	}
	if audio.Len() == 0 {
		return "", fmt.Errorf("roundup %s has no spoken turns: %w", postID, domain.ErrEmptyResponse)
	}

	if err := writeFileAtomic(path, audio.Bytes()); err != nil {
		return "", err
	}
	return path, nil
}

// voiceFor maps host_b to the second voice; unlabelled turns alternate.
func voiceFor(speaker string, index int, voiceA, voiceB string) string {
	switch strings.ToLower(strings.TrimSpace(speaker)) {
	case "host_a", "a":
		return voiceA
	case "host_b", "b":
		return voiceB
	case "":
		if index%2 == 1 {
			return voiceB
		}
	}
	return voiceA
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create media dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
