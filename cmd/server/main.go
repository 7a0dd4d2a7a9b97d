package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/ai-assistant/internal/ai"
	"github.com/suPer8Hu/ai-assistant/internal/chat"
	"github.com/suPer8Hu/ai-assistant/internal/config"
	"github.com/suPer8Hu/ai-assistant/internal/db"
	"github.com/suPer8Hu/ai-assistant/internal/httpapi"
	"github.com/suPer8Hu/ai-assistant/internal/httpapi/handlers"
	"github.com/suPer8Hu/ai-assistant/internal/logger"
	"github.com/suPer8Hu/ai-assistant/internal/observability"
	"github.com/suPer8Hu/ai-assistant/internal/speech"
	"github.com/suPer8Hu/ai-assistant/internal/upload"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := observability.InitTracing(ctx, log, observability.TracingConfig{
		Enabled:     cfg.OtelEnabled,
		ServiceName: cfg.OtelServiceName,
		Endpoint:    cfg.OtelEndpoint,
	})

	// Database
	gdb, err := db.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("database connect failed", "error", err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal("database migration failed", "error", err)
	}
	repo := chat.NewRepo(gdb)
	created, err := repo.EnsureAssistant(ctx, chat.DefaultAssistant(cfg.DefaultAssistantID))
	if err != nil {
		// chat answers 404 until the row exists
		log.Warn("failed to seed default assistant", "error", err)
	} else if created {
		log.Info("seeded default assistant", "assistant_id", cfg.DefaultAssistantID)
	}

	// Providers (route by assistant.Provider + assistant.Model)
	guard := ai.NewGuard(cfg.ProviderMaxConcurrency, cfg.ProviderTimeout)
	reg := ai.NewRegistry().WithGuard(guard)
	reg.Register("openai", ai.OpenAIFactory(ai.OpenAIConfig{
		BaseURL:     cfg.OpenAIBaseURL,
		APIKey:      cfg.OpenAIAPIKey,
		MaxTokens:   cfg.ChatMaxTokens,
		Temperature: cfg.ChatTemperature,
	}))
	if strings.TrimSpace(cfg.OpenRouterAPIKey) != "" {
		// OpenAI-compatible endpoint
		reg.Register("openrouter", ai.OpenAIFactory(ai.OpenAIConfig{
			BaseURL:     cfg.OpenRouterBaseURL,
			APIKey:      cfg.OpenRouterAPIKey,
			MaxTokens:   cfg.ChatMaxTokens,
			Temperature: cfg.ChatTemperature,
		}))
	}

	chatSvc := chat.NewService(repo, reg, log, chat.ServiceConfig{
		ContextWindowSize:  cfg.ChatContextWindowSize,
		SelectAssistant:    chat.FixedAssistant(cfg.DefaultAssistantID),
		MaskProviderErrors: cfg.MaskProviderErrors,
	})

	transcriber := speech.NewTranscriber(speech.TranscriberConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Guard:   guard,
	}, log)

	synthesizer, err := speech.NewGoogleSynthesizer(ctx, cfg.GoogleCredentials, guard, log)
	if err != nil {
		// synthesize requests fail with 500 until credentials are fixed
		log.Warn("text-to-speech client init failed", "error", err)
	} else {
		defer synthesizer.Close()
	}

	h := handlers.NewHandler(handlers.Deps{
		ChatSvc:     chatSvc,
		Transcriber: transcriber,
		Synthesizer: synthesizer,
		InspectCSV:  upload.Inspect,
		Log:         log,
	})

	if !strings.EqualFold(cfg.LogMode, "development") {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httpapi.NewRouter(h, httpapi.RouterConfig{
		CORSAllowOrigins: cfg.CORSAllowOrigins,
		Tracing:          cfg.OtelEnabled,
		ServiceName:      cfg.OtelServiceName,
	}, log)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("server shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown failed", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("tracing shutdown failed", "error", err)
	}
	if sqlDB, err := gdb.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
