package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/ai-assistant/internal/common"
	"github.com/suPer8Hu/ai-assistant/internal/upload"
)

func (h *Handler) Upload(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 40002, "missing file")
		return
	}
	if !upload.IsCSVFilename(fh.Filename) {
		common.Fail(c, http.StatusBadRequest, 40004, "Only CSV files are allowed")
		return
	}

	f, err := fh.Open()
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50005, "Internal server error: "+err.Error())
		return
	}
	defer f.Close()

	preview, err := h.InspectCSV(f)
	if err != nil {
		var pe *upload.ParseError
		switch {
		case errors.Is(err, upload.ErrEmpty):
			common.Fail(c, http.StatusBadRequest, 40005, "CSV file is empty")
		case errors.As(err, &pe):
			common.Fail(c, http.StatusBadRequest, 40006, "Error parsing CSV: "+pe.Error())
		default:
			h.Log.Error("csv inspection failed", "filename", fh.Filename, "error", err)
			common.Fail(c, http.StatusInternalServerError, 50005, "Internal server error: "+err.Error())
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Successfully uploaded and parsed " + fh.Filename,
		"data_preview": preview,
		"rows_count":   preview.RowCount,
	})
}

// UploadStatus is a placeholder; uploads are not tracked.
func (h *Handler) UploadStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Upload status tracking is not available"})
}
