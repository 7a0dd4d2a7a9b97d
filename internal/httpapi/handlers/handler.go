package handlers

import (
	"context"
	"io"

	"github.com/suPer8Hu/ai-assistant/internal/chat"
	"github.com/suPer8Hu/ai-assistant/internal/logger"
	"github.com/suPer8Hu/ai-assistant/internal/upload"
)

type ChatService interface {
	Chat(ctx context.Context, in chat.ChatInput) (*chat.ChatResult, error)
	History(ctx context.Context, sessionID string) ([]chat.ChatLog, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

// CSVInspector parses an uploaded table.
type CSVInspector func(r io.Reader) (*upload.Preview, error)

type Handler struct {
	ChatSvc     ChatService
	Transcriber Transcriber
	Synthesizer Synthesizer
	InspectCSV  CSVInspector
	Log         *logger.Logger
}

type Deps struct {
	ChatSvc     ChatService
	Transcriber Transcriber
	Synthesizer Synthesizer
	InspectCSV  CSVInspector
	Log         *logger.Logger
}

func NewHandler(d Deps) *Handler {
	if d.InspectCSV == nil {
		d.InspectCSV = upload.Inspect
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	return &Handler{
		ChatSvc:     d.ChatSvc,
		Transcriber: d.Transcriber,
		Synthesizer: d.Synthesizer,
		InspectCSV:  d.InspectCSV,
		Log:         d.Log.With("component", "http"),
	}
}
