package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sieadev/watchdog/internal/report/domain"
	"go.uber.org/zap"
)

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")
	v1.POST("/reports", s.submitReport)
	v1.GET("/reports/:id", s.getReport)
	v1.GET("/subjects/:id/reports", s.getHistory)
}

type submitReportRequest struct {
	SubjectID   string `json:"subject_id" binding:"required"`
	ReporterID  string `json:"reporter_id" binding:"required"`
	Category    string `json:"category" binding:"required"`
	Description string `json:"description"`
}

type submitReportResponse struct {
	Outcome  domain.Outcome `json:"outcome"`
	ReportID *int64         `json:"report_id,omitempty"`
}

func (s *Server) submitReport(c *gin.Context) {
	var req submitReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	category, err := domain.ParseCategory(req.Category)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":      "unknown_category",
			"categories": domain.Categories(),
		})
		return
	}

	result, err := s.reportSvc.Submit(c.Request.Context(), domain.SubmitRequest{
		SubjectID:   req.SubjectID,
		ReporterID:  req.ReporterID,
		Category:    category,
		Description: req.Description,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidSubject),
			errors.Is(err, domain.ErrInvalidReporter),
			errors.Is(err, domain.ErrUnknownCategory):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			_ = c.Error(err)
			c.JSON(http.StatusServiceUnavailable, submitReportResponse{
				Outcome: domain.OutcomeStorageError,
			})
		}
		return
	}

	resp := submitReportResponse{Outcome: result.Outcome}
	if result.Outcome == domain.OutcomeSubmitted {
		resp.ReportID = &result.ReportID
	}
	c.JSON(http.StatusOK, resp)
}

type historyResponse struct {
	SubjectID string         `json:"subject_id"`
	Total     int            `json:"total"`
	Counts    map[string]int `json:"counts"`
	Severity  string         `json:"severity"`
}

// Severity bands mirror the reference bot's presentation: never reported,
// previously reported, and ten or more reports.
const (
	severityNone            = "none"
	severityReported        = "reported"
	severityHeavilyReported = "heavily_reported"
)

func (s *Server) getHistory(c *gin.Context) {
	agg, err := s.reportSvc.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSubject) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage_unavailable"})
		return
	}

	counts := make(map[string]int, len(agg.ByCategory))
	for category, n := range agg.ByCategory {
		counts[string(category)] = n
	}

	severity := severityNone
	switch {
	case agg.Total >= 10:
		severity = severityHeavilyReported
	case agg.Total > 0:
		severity = severityReported
	}

	c.JSON(http.StatusOK, historyResponse{
		SubjectID: agg.SubjectID,
		Total:     agg.Total,
		Counts:    counts,
		Severity:  severity,
	})
}

type reportResponse struct {
	ID          int64     `json:"id"`
	SubjectID   string    `json:"subject_id"`
	ReporterID  string    `json:"reporter_id"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (s *Server) getReport(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_report_id"})
		return
	}

	report, err := s.reportSvc.Lookup(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		_ = c.Error(err)
		s.log.Error("report lookup failed", zap.Int64("report_id", id), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage_unavailable"})
		return
	}

	c.JSON(http.StatusOK, reportResponse{
		ID:          report.ID,
		SubjectID:   report.SubjectID,
		ReporterID:  report.ReporterID,
		Category:    string(report.Category),
		Description: report.Description,
		CreatedAt:   report.CreatedAt,
	})
}
