package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/SAP-F-2025/survey-match-service/internal/services"
	"github.com/SAP-F-2025/survey-match-service/internal/utils"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type ScoreHandler struct {
	BaseHandler
	scoringService      services.ScoringService
	importExportService services.ImportExportService
}

func NewScoreHandler(
	scoringService services.ScoringService,
	importExportService services.ImportExportService,
	logger utils.Logger,
) *ScoreHandler {
	return &ScoreHandler{
		BaseHandler:         NewBaseHandler(logger),
		scoringService:      scoringService,
		importExportService: importExportService,
	}
}

// ScoreAnswer recomputes and returns the score of one stored answer
// @Summary Score answer
// @Tags scoring
// @Produce json
// @Param id path int true "Answer ID"
// @Success 200 {object} services.AnswerScore
// @Failure 404 {object} ErrorResponse
// @Router /answers/{id}/score [get]
func (h *ScoreHandler) ScoreAnswer(c *gin.Context) {
	answerID := h.parseIDParam(c, "id")
	if answerID == 0 {
		return
	}

	score, err := h.scoringService.ScoreAnswer(c.Request.Context(), answerID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, score)
}

// ScoreSession scores every match-following answer of a session
// @Summary Score session
// @Tags scoring
// @Produce json
// @Param token path string true "Session access token"
// @Success 200 {object} services.SessionScore
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{token}/score [post]
func (h *ScoreHandler) ScoreSession(c *gin.Context) {
	token := ParseStringIDParam(c, "token")
	if token == "" {
		return
	}

	h.LogRequest(c, "Scoring session")

	score, err := h.scoringService.ScoreSession(c.Request.Context(), token)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogInfo(c, "Session scored",
		"session_id", score.SessionID,
		"total_score", score.TotalScore,
		"max_score", score.MaxScore)
	c.JSON(http.StatusOK, score)
}

// ExportSurveyScores streams an xlsx sheet with one row per session
// @Summary Export survey scores
// @Tags scoring
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param token path string true "Survey token"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Router /surveys/{token}/scores.xlsx [get]
func (h *ScoreHandler) ExportSurveyScores(c *gin.Context) {
	surveyToken := ParseStringIDParam(c, "token")
	if surveyToken == "" {
		return
	}

	h.LogRequest(c, "Exporting survey scores", "survey_token", surveyToken)

	data, err := h.importExportService.ExportSurveyScores(c.Request.Context(), surveyToken)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("survey-scores-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}
