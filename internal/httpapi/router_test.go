package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/suPer8Hu/ai-assistant/internal/ai"
	"github.com/suPer8Hu/ai-assistant/internal/chat"
	"github.com/suPer8Hu/ai-assistant/internal/db"
	"github.com/suPer8Hu/ai-assistant/internal/httpapi/handlers"
	"github.com/suPer8Hu/ai-assistant/internal/speech"
	"github.com/suPer8Hu/ai-assistant/internal/upload"
)

type stubProvider struct {
	reply string
	err   error
	calls int
}

func (p *stubProvider) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	_ = ctx
	_ = messages
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.reply, nil
}

type fakeTranscriber struct {
	text     string
	err      error
	calls    int
	filename string
	audio    []byte
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	_ = ctx
	f.calls++
	f.filename = filename
	f.audio = audio
	return f.text, f.err
}

type fakeSynthesizer struct {
	audio    []byte
	err      error
	language string
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	_ = ctx
	_ = text
	f.language = language
	return f.audio, f.err
}

type testEnv struct {
	router   *gin.Engine
	db       *gorm.DB
	repo     *chat.Repo
	provider *stubProvider
	stt      *fakeTranscriber
	tts      *fakeSynthesizer
	inspects int
}

type envConfig struct {
	seedAssistant bool
	unmasked      bool
	providerErr   error
}

func newTestEnv(t *testing.T, seedAssistant bool) *testEnv {
	t.Helper()
	return newTestEnvWith(t, envConfig{seedAssistant: seedAssistant})
}

func newTestEnvWith(t *testing.T, cfg envConfig) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := db.Connect(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()), nil)
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.Migrate(gdb))

	env := &testEnv{
		db:       gdb,
		repo:     chat.NewRepo(gdb),
		provider: &stubProvider{reply: "hi there", err: cfg.providerErr},
		stt:      &fakeTranscriber{text: "hello world"},
		tts:      &fakeSynthesizer{audio: []byte("ID3fake")},
	}
	if cfg.seedAssistant {
		_, err := env.repo.EnsureAssistant(context.Background(), chat.DefaultAssistant(1))
		require.NoError(t, err)
	}

	reg := ai.NewRegistry()
	reg.Register("openai", func(ctx context.Context, model string) (ai.Provider, error) {
		return env.provider, nil
	})
	svc := chat.NewService(env.repo, reg, nil, chat.ServiceConfig{
		SelectAssistant:    chat.FixedAssistant(1),
		MaskProviderErrors: !cfg.unmasked,
	})

	h := handlers.NewHandler(handlers.Deps{
		ChatSvc:     svc,
		Transcriber: env.stt,
		Synthesizer: env.tts,
		InspectCSV: func(r io.Reader) (*upload.Preview, error) {
			env.inspects++
			return upload.Inspect(r)
		},
	})
	env.router = NewRouter(h, RouterConfig{CORSAllowOrigins: []string{"http://localhost:3000"}}, nil)
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, path, filename, contentType string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestChat_ReturnsReplyAndHistory(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(jsonRequest(t, http.MethodPost, "/api/chat", map[string]any{
		"message":    "Hello",
		"session_id": "s-1",
		"input_type": "voice",
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "hi there", body["response"])
	assert.Equal(t, "s-1", body["session_id"])
	assert.Equal(t, float64(1), body["assistant_id"])

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/history/s-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var hist struct {
		SessionID string `json:"session_id"`
		Messages  []struct {
			Speaker   string `json:"speaker"`
			Message   string `json:"message"`
			InputType string `json:"input_type"`
			CreatedAt string `json:"created_at"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	assert.Equal(t, "s-1", hist.SessionID)
	require.Len(t, hist.Messages, 2)
	assert.Equal(t, "user", hist.Messages[0].Speaker)
	assert.Equal(t, "voice", hist.Messages[0].InputType)
	assert.Equal(t, "assistant", hist.Messages[1].Speaker)
	assert.Equal(t, "hi there", hist.Messages[1].Message)
	assert.NotEmpty(t, hist.Messages[0].CreatedAt)
}

func TestChat_AssistantMissingIs404(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(jsonRequest(t, http.MethodPost, "/api/chat", map[string]any{"message": "Hello"}))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Assistant not found", decode(t, rec)["detail"])
	assert.Zero(t, env.provider.calls)
}

func TestChat_EmptyMessageAccepted(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(jsonRequest(t, http.MethodPost, "/api/chat", map[string]any{"message": ""}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "hi there", decode(t, rec)["response"])
	assert.Equal(t, 1, env.provider.calls)
}

func TestChat_UnmaskedProviderFailureIs502(t *testing.T) {
	env := newTestEnvWith(t, envConfig{
		seedAssistant: true,
		unmasked:      true,
		providerErr:   errors.New("upstream overloaded"),
	})

	rec := env.do(jsonRequest(t, http.MethodPost, "/api/chat", map[string]any{"message": "Hello", "session_id": "s-502"}))
	require.Equal(t, http.StatusBadGateway, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(50201), body["code"])
	assert.Contains(t, body["detail"], "upstream overloaded")

	logs, err := env.repo.ListLogsBySession(context.Background(), "s-502")
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestChat_PersistenceFailureRollsBack(t *testing.T) {
	env := newTestEnv(t, true)
	err := env.db.Callback().Create().Before("gorm:create").Register("test:fail_assistant_log", func(tx *gorm.DB) {
		if l, ok := tx.Statement.Dest.(*chat.ChatLog); ok && l.Speaker == chat.SpeakerAssistant {
			_ = tx.AddError(errors.New("disk full"))
		}
	})
	require.NoError(t, err)

	rec := env.do(jsonRequest(t, http.MethodPost, "/api/chat", map[string]any{"message": "Hello", "session_id": "s-500"}))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(50001), body["code"])
	assert.NotContains(t, body["detail"], "disk full")
	assert.Equal(t, 1, env.provider.calls)

	logs, err := env.repo.ListLogsBySession(context.Background(), "s-500")
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestChat_InvalidInput(t *testing.T) {
	env := newTestEnv(t, true)

	cases := []map[string]any{
		{},
		{"message": "hi", "input_type": "video"},
	}
	for _, body := range cases {
		rec := env.do(jsonRequest(t, http.MethodPost, "/api/chat", body))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %v", body)
	}
	assert.Zero(t, env.provider.calls)
}

func TestHistory_UnknownSessionIsEmpty(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/history/none", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "none", body["session_id"])
	assert.Empty(t, body["messages"])
}

func TestTranscribe(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(multipartRequest(t, "/api/speech/transcribe", "clip.webm", "audio/webm", []byte("RIFF")))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "hello world", body["text"])
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "clip.webm", env.stt.filename)
	assert.Equal(t, []byte("RIFF"), env.stt.audio)
}

func TestTranscribe_RejectsUnsupportedType(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(multipartRequest(t, "/api/speech/transcribe", "clip.ogg", "audio/ogg", []byte("OggS")))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode(t, rec)["detail"], "Unsupported audio format")
	assert.Zero(t, env.stt.calls)
}

func TestTranscribe_ProviderFailure(t *testing.T) {
	env := newTestEnv(t, true)
	env.stt.err = &speech.TranscriptionError{Err: errors.New("quota exceeded")}

	rec := env.do(multipartRequest(t, "/api/speech/transcribe", "clip.wav", "audio/wav", []byte("RIFF")))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	detail, _ := decode(t, rec)["detail"].(string)
	assert.Contains(t, detail, "Transcription failed")
	assert.Contains(t, detail, "quota exceeded")
}

func TestSynthesize(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(jsonRequest(t, http.MethodPost, "/api/speech/synthesize", map[string]any{"text": "hello"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=speech.mp3", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, []byte("ID3fake"), rec.Body.Bytes())
	assert.Equal(t, "en", env.tts.language)
}

func TestSynthesize_Failure(t *testing.T) {
	env := newTestEnv(t, true)
	env.tts.err = &speech.SynthesisError{Err: errors.New("bad credentials")}

	rec := env.do(jsonRequest(t, http.MethodPost, "/api/speech/synthesize", map[string]any{"text": "hola", "language": "es"}))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	detail, _ := decode(t, rec)["detail"].(string)
	assert.Contains(t, detail, "Speech synthesis failed")
	assert.Contains(t, detail, "bad credentials")
	assert.Equal(t, "es", env.tts.language)
}

func TestUpload_RejectsNonCSVWithoutParsing(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(multipartRequest(t, "/api/upload", "data.txt", "text/plain", []byte("a,b\n1,2\n")))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Only CSV files are allowed", decode(t, rec)["detail"])
	assert.Zero(t, env.inspects)
}

func TestUpload_CSV(t *testing.T) {
	env := newTestEnv(t, true)

	csv := "city,pop\nOslo,700\nBergen,290\nTromso,77\n"
	rec := env.do(multipartRequest(t, "/api/upload", "data.csv", "text/csv", []byte(csv)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Successfully uploaded and parsed data.csv", body["message"])
	assert.Equal(t, float64(3), body["rows_count"])

	preview, ok := body["data_preview"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, []any{"city", "pop"}, preview["columns"])
	assert.Equal(t, map[string]any{"city": "object", "pop": "int64"}, preview["dtypes"])
	assert.Len(t, preview["sample_rows"], 3)
	stats, ok := preview["summary_stats"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, stats, "pop")
	assert.Equal(t, 1, env.inspects)
}

func TestUpload_EmptyAndMalformed(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(multipartRequest(t, "/api/upload", "empty.csv", "text/csv", []byte("a,b\n")))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "CSV file is empty", decode(t, rec)["detail"])

	rec = env.do(multipartRequest(t, "/api/upload", "bad.csv", "text/csv", []byte("a,b\n1,2,3\n")))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	detail, _ := decode(t, rec)["detail"].(string)
	assert.Contains(t, detail, "Error parsing CSV")
}

func TestStaticRoutes(t *testing.T) {
	env := newTestEnv(t, true)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"status": "healthy", "message": "AI Assistant API is running"}, decode(t, rec))

	rec = env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to AI Assistant API", decode(t, rec)["message"])

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/upload/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/chat", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
