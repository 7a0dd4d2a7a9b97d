package speech

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/suPer8Hu/ai-assistant/internal/ai"
	"github.com/suPer8Hu/ai-assistant/internal/logger"
)

const defaultAudioExt = ".wav"

type TranscriberConfig struct {
	APIKey  string
	BaseURL string
	// Directory for staged audio; empty means os.TempDir.
	TempDir string
	Guard   *ai.Guard
}

// Transcriber turns audio into text with OpenAI Whisper.
type Transcriber struct {
	client  *openai.Client
	tempDir string
	guard   *ai.Guard
	log     *logger.Logger
}

func NewTranscriber(cfg TranscriberConfig, log *logger.Logger) *Transcriber {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimRight(base, "/")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Transcriber{
		client:  openai.NewClientWithConfig(clientCfg),
		tempDir: cfg.TempDir,
		guard:   cfg.Guard,
		log:     log.With("service", "Transcriber"),
	}
}

// Transcribe stages audio in a temporary file named after filename's
// extension and sends it to Whisper. The staged file is removed on every path.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	path, err := t.stage(audio, filename)
	if err != nil {
		return "", &TranscriptionError{Err: err}
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			t.log.Warn("failed to remove staged audio", "path", path, "error", err)
		}
	}()

	var resp openai.AudioResponse
	err = t.guard.Do(ctx, func(ctx context.Context) error {
		var err error
		resp, err = t.client.CreateTranscription(ctx, openai.AudioRequest{
			Model:    openai.Whisper1,
			FilePath: path,
			Format:   openai.AudioResponseFormatText,
		})
		return err
	})
	if err != nil {
		return "", &TranscriptionError{Err: err}
	}
	return strings.TrimSpace(resp.Text), nil
}

func (t *Transcriber) stage(audio []byte, filename string) (string, error) {
	f, err := os.CreateTemp(t.tempDir, "transcribe-*"+audioExt(filename))
	if err != nil {
		return "", err
	}
	path := f.Name()
	if _, err := f.Write(audio); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

// audioExt returns the suffix after the last dot of filename, dot included,
// or ".wav" when there is none.
func audioExt(filename string) string {
	base := filepath.Base(strings.TrimSpace(filename))
	if i := strings.LastIndex(base, "."); i >= 0 && i < len(base)-1 {
		return base[i:]
	}
	return defaultAudioExt
}
