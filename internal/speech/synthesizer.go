package speech

import (
	"context"
	"errors"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"

	"github.com/suPer8Hu/ai-assistant/internal/ai"
	"github.com/suPer8Hu/ai-assistant/internal/logger"
)

// TTSClient is the subset of the Google Text-to-Speech client in use.
type TTSClient interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
	Close() error
}

// Synthesizer renders text as MP3 audio with a neutral voice.
type Synthesizer struct {
	client TTSClient
	guard  *ai.Guard
	log    *logger.Logger
}

func NewSynthesizer(client TTSClient, guard *ai.Guard, log *logger.Logger) *Synthesizer {
	if log == nil {
		log = logger.Nop()
	}
	return &Synthesizer{client: client, guard: guard, log: log.With("service", "Synthesizer")}
}

// NewGoogleSynthesizer dials Google Cloud TTS. credentials may be a file path
// or inline JSON; empty means application default credentials.
func NewGoogleSynthesizer(ctx context.Context, credentials string, guard *ai.Guard, log *logger.Logger) (*Synthesizer, error) {
	client, err := texttospeech.NewClient(ctx, clientOptions(credentials)...)
	if err != nil {
		return nil, err
	}
	return NewSynthesizer(client, guard, log), nil
}

func clientOptions(credentials string) []option.ClientOption {
	creds := strings.TrimSpace(credentials)
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

func (s *Synthesizer) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if s == nil || s.client == nil {
		return nil, &SynthesisError{Err: errors.New("text-to-speech client is not configured")}
	}

	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: LocaleFor(language),
			SsmlGender:   texttospeechpb.SsmlVoiceGender_NEUTRAL,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	}

	var audio []byte
	err := s.guard.Do(ctx, func(ctx context.Context) error {
		resp, err := s.client.SynthesizeSpeech(ctx, req)
		if err != nil {
			return err
		}
		audio = resp.GetAudioContent()
		return nil
	})
	if err != nil {
		return nil, &SynthesisError{Err: err}
	}
	return audio, nil
}

func (s *Synthesizer) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}
