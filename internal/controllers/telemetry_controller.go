package controllers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/flightchat/backend/internal/chat"
	"github.com/flightchat/backend/internal/logger"
	"github.com/flightchat/backend/internal/models"

	"github.com/gin-gonic/gin"
)

type TelemetryController struct {
	service *chat.Service
}

func NewTelemetryController(service *chat.Service) *TelemetryController {
	return &TelemetryController{service: service}
}

// UploadFlightLog ingests a binary flight log from a multipart upload.
func (tc *TelemetryController) UploadFlightLog(c *gin.Context) {
	file, err := c.FormFile("logfile")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	ext := filepath.Ext(file.Filename)
	if ext != ".bin" && ext != ".tlog" && ext != ".log" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only BIN, TLOG, and LOG files are supported"})
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}
	defer src.Close()

	raw, err := io.ReadAll(src)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read upload"})
		return
	}

	flightLog, err := tc.service.Ingest(raw, file.Filename)
	if err != nil {
		if models.IsParseError(err) {
			logger.WithError(err, "telemetry_controller").Warn("Rejected undecodable flight log upload")
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store flight log"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"fileId":        flightLog.ID,
		"filename":      flightLog.Filename,
		"totalMessages": flightLog.MessageCount(),
		"timeRange":     flightLog.TimeRange,
	})
}

// GetSummary returns the telemetry and anomaly summaries for a stored log.
func (tc *TelemetryController) GetSummary(c *gin.Context) {
	fileID := c.Param("id")

	summary, anomaly, err := tc.service.GetTelemetrySummary(fileID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Flight log not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to summarize flight log"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"telemetrySummary": summary,
		"anomalySummary":   anomaly,
	})
}

// DeleteFlightLog evicts a stored log and its cached analysis.
func (tc *TelemetryController) DeleteFlightLog(c *gin.Context) {
	fileID := c.Param("id")

	if err := tc.service.DeleteFlightLog(fileID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Flight log not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete flight log"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": fileID})
}
