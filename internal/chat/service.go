package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/suPer8Hu/ai-assistant/internal/ai"
	"github.com/suPer8Hu/ai-assistant/internal/logger"
	"gorm.io/gorm"
)

const (
	defaultContextWindowSize = 10
	maxContextWindowSize     = 100

	apologyPrefix = "Sorry, I encountered an error: "
)

// AssistantSelector picks the assistant that answers a chat request.
type AssistantSelector func(ctx context.Context, in ChatInput) uint64

// FixedAssistant always answers with the assistant id.
func FixedAssistant(id uint64) AssistantSelector {
	return func(context.Context, ChatInput) uint64 { return id }
}

type ServiceConfig struct {
	// Number of prior log rows sent to the provider. Defaults to 10.
	ContextWindowSize int
	// Defaults to FixedAssistant(1).
	SelectAssistant AssistantSelector
	// When set, a failed provider call is answered with an apology that is
	// stored and returned like a normal reply.
	MaskProviderErrors bool
}

type Service struct {
	repo               *Repo
	registry           *ai.Registry
	log                *logger.Logger
	contextWindowSize  int
	selectAssistant    AssistantSelector
	maskProviderErrors bool
}

func NewService(repo *Repo, registry *ai.Registry, log *logger.Logger, cfg ServiceConfig) *Service {
	if cfg.ContextWindowSize <= 0 || cfg.ContextWindowSize > maxContextWindowSize {
		cfg.ContextWindowSize = defaultContextWindowSize
	}
	if cfg.SelectAssistant == nil {
		cfg.SelectAssistant = FixedAssistant(1)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:               repo,
		registry:           registry,
		log:                log.With("service", "ChatService"),
		contextWindowSize:  cfg.ContextWindowSize,
		selectAssistant:    cfg.SelectAssistant,
		maskProviderErrors: cfg.MaskProviderErrors,
	}
}

type ChatInput struct {
	Message   string
	SessionID string
	UserID    *string
	InputType InputType
}

type ChatResult struct {
	Response    string
	SessionID   string
	AssistantID uint64
}

// Chat runs one turn: the user row, the provider call and the assistant row
// commit together or not at all.
func (s *Service) Chat(ctx context.Context, in ChatInput) (*ChatResult, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		sessionID = NewSessionID()
	}
	inputType := in.InputType
	if inputType == "" {
		inputType = InputText
	}

	assistant, err := s.repo.GetAssistant(ctx, s.selectAssistant(ctx, in))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssistantNotFound
		}
		return nil, err
	}

	provider, err := s.registry.Get(ctx, assistant.Provider, assistant.Model)
	if err != nil {
		return nil, err
	}

	var reply string
	err = s.repo.Transaction(ctx, func(tx *Repo) error {
		// prior turns only; the current message is appended by BuildPrompt
		recentDesc, err := tx.ListRecentLogsDesc(ctx, sessionID, s.contextWindowSize)
		if err != nil {
			return err
		}

		userLog := &ChatLog{
			SessionID:   sessionID,
			UserID:      in.UserID,
			Speaker:     SpeakerUser,
			AssistantID: &assistant.ID,
			InputType:   inputType,
			Message:     in.Message,
		}
		if err := tx.InsertLog(ctx, userLog); err != nil {
			return err
		}

		messages := BuildPrompt(NoFileContext, chronological(recentDesc), in.Message)
		reply, err = s.complete(ctx, provider, messages)
		if err != nil {
			return err
		}

		return tx.InsertLog(ctx, &ChatLog{
			SessionID:   sessionID,
			UserID:      in.UserID,
			Speaker:     SpeakerAssistant,
			AssistantID: &assistant.ID,
			InputType:   InputText,
			Message:     reply,
		})
	})
	if err != nil {
		return nil, err
	}

	return &ChatResult{
		Response:    reply,
		SessionID:   sessionID,
		AssistantID: assistant.ID,
	}, nil
}

func (s *Service) complete(ctx context.Context, provider ai.Provider, messages []ai.Message) (string, error) {
	reply, err := provider.Chat(ctx, messages)
	if err == nil {
		return reply, nil
	}
	s.log.Warn("chat provider call failed", "error", err, "masked", s.maskProviderErrors)
	if s.maskProviderErrors {
		return apologyPrefix + err.Error(), nil
	}
	return "", fmt.Errorf("%w: %w", ErrProviderFailed, err)
}

// History returns the whole transcript of a session, oldest first.
func (s *Service) History(ctx context.Context, sessionID string) ([]ChatLog, error) {
	return s.repo.ListLogsBySession(ctx, sessionID)
}
