package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/ai-assistant/internal/common"
)

var allowedAudioTypes = []string{"audio/wav", "audio/mp3", "audio/mpeg", "audio/webm"}

func isAllowedAudioType(ct string) bool {
	for _, t := range allowedAudioTypes {
		if ct == t {
			return true
		}
	}
	return false
}

func (h *Handler) Transcribe(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 40002, "missing audio file")
		return
	}
	if !isAllowedAudioType(fh.Header.Get("Content-Type")) {
		common.Fail(c, http.StatusBadRequest, 40003,
			"Unsupported audio format. Allowed: "+strings.Join(allowedAudioTypes, ", "))
		return
	}

	f, err := fh.Open()
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50003, "Transcription failed: "+err.Error())
		return
	}
	defer f.Close()
	audio, err := io.ReadAll(f)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50003, "Transcription failed: "+err.Error())
		return
	}

	text, err := h.Transcriber.Transcribe(c.Request.Context(), audio, fh.Filename)
	if err != nil {
		h.Log.Warn("transcription failed", "filename", fh.Filename, "error", err)
		common.Fail(c, http.StatusInternalServerError, 50003, "Transcription failed: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"text":    text,
		"success": true,
	})
}

type synthesizeReq struct {
	Text     string `json:"text" binding:"required"`
	Language string `json:"language"`
}

func (h *Handler) Synthesize(c *gin.Context) {
	var req synthesizeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 40001, "invalid request: "+err.Error())
		return
	}
	if req.Language == "" {
		req.Language = "en"
	}

	audio, err := h.Synthesizer.Synthesize(c.Request.Context(), req.Text, req.Language)
	if err != nil {
		h.Log.Warn("speech synthesis failed", "language", req.Language, "error", err)
		common.Fail(c, http.StatusInternalServerError, 50004, "Speech synthesis failed: "+err.Error())
		return
	}

	c.Header("Content-Disposition", "attachment; filename=speech.mp3")
	c.Data(http.StatusOK, "audio/mpeg", audio)
}
