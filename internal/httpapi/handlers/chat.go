package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/ai-assistant/internal/chat"
	"github.com/suPer8Hu/ai-assistant/internal/common"
)

type chatReq struct {
	// Pointer so that an empty message is accepted but a missing one is not.
	Message   *string `json:"message" binding:"required"`
	SessionID string  `json:"session_id"`
	UserID    *string `json:"user_id"`
	InputType string  `json:"input_type" binding:"omitempty,oneof=text voice file"`
}

type chatResp struct {
	Response    string `json:"response"`
	SessionID   string `json:"session_id"`
	AssistantID uint64 `json:"assistant_id"`
}

func (h *Handler) Chat(c *gin.Context) {
	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 40001, "invalid request: "+err.Error())
		return
	}

	res, err := h.ChatSvc.Chat(c.Request.Context(), chat.ChatInput{
		Message:   *req.Message,
		SessionID: req.SessionID,
		UserID:    req.UserID,
		InputType: chat.InputType(req.InputType),
	})
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrAssistantNotFound):
			common.Fail(c, http.StatusNotFound, 40401, "Assistant not found")
		case errors.Is(err, chat.ErrProviderFailed):
			h.Log.Warn("chat provider failed", "error", err)
			common.Fail(c, http.StatusBadGateway, 50201, err.Error())
		default:
			h.Log.Error("chat failed", "error", err)
			common.Fail(c, http.StatusInternalServerError, 50001, "failed to process chat message")
		}
		return
	}

	c.JSON(http.StatusOK, chatResp{
		Response:    res.Response,
		SessionID:   res.SessionID,
		AssistantID: res.AssistantID,
	})
}

type historyMessage struct {
	Speaker   chat.Speaker   `json:"speaker"`
	Message   string         `json:"message"`
	InputType chat.InputType `json:"input_type"`
	CreatedAt string         `json:"created_at"`
}

func (h *Handler) History(c *gin.Context) {
	sessionID := c.Param("session_id")

	logs, err := h.ChatSvc.History(c.Request.Context(), sessionID)
	if err != nil {
		h.Log.Error("load history failed", "session_id", sessionID, "error", err)
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to load history")
		return
	}

	msgs := make([]historyMessage, 0, len(logs))
	for _, l := range logs {
		msgs = append(msgs, historyMessage{
			Speaker:   l.Speaker,
			Message:   l.Message,
			InputType: l.InputType,
			CreatedAt: l.CreatedAt.Format(time.RFC3339Nano),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": sessionID,
		"messages":   msgs,
	})
}
