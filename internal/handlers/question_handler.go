package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/survey-match-service/internal/services"
	"github.com/SAP-F-2025/survey-match-service/internal/utils"
	"github.com/gin-gonic/gin"
)

const maxImportFileSize = 10 << 20

type QuestionHandler struct {
	BaseHandler
	questionService     services.QuestionService
	importExportService services.ImportExportService
}

func NewQuestionHandler(
	questionService services.QuestionService,
	importExportService services.ImportExportService,
	logger utils.Logger,
) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler:         NewBaseHandler(logger),
		questionService:     questionService,
		importExportService: importExportService,
	}
}

// CreateQuestion creates a match-following question in a survey
// @Summary Create match-following question
// @Tags questions
// @Accept json
// @Produce json
// @Param token path string true "Survey token"
// @Param question body services.CreateQuestionRequest true "Question data"
// @Success 201 {object} SuccessResponse{data=models.Question}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /surveys/{token}/questions [post]
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	surveyToken := ParseStringIDParam(c, "token")
	if surveyToken == "" {
		return
	}

	h.LogRequest(c, "Creating match-following question", "survey_token", surveyToken)

	var req services.CreateQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	question, err := h.questionService.CreateMatchQuestion(c.Request.Context(), surveyToken, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusCreated, "Question created successfully", question,
		"question_id", question.ID)
}

// GetAnswerKey returns the ordered pairs of a question
// @Summary Get answer key
// @Tags questions
// @Produce json
// @Param id path int true "Question ID"
// @Success 200 {object} models.AnswerKey
// @Failure 404 {object} ErrorResponse
// @Router /questions/{id}/answer-key [get]
func (h *QuestionHandler) GetAnswerKey(c *gin.Context) {
	questionID := h.parseIDParam(c, "id")
	if questionID == 0 {
		return
	}

	key, err := h.questionService.GetAnswerKey(c.Request.Context(), questionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, key)
}

// ReplacePairs swaps the whole answer key of a question
// @Summary Replace answer key pairs
// @Tags questions
// @Accept json
// @Produce json
// @Param id path int true "Question ID"
// @Param pairs body services.ReplacePairsRequest true "New pairs"
// @Success 200 {object} models.AnswerKey
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /questions/{id}/pairs [put]
func (h *QuestionHandler) ReplacePairs(c *gin.Context) {
	questionID := h.parseIDParam(c, "id")
	if questionID == 0 {
		return
	}

	h.LogRequest(c, "Replacing answer key", "question_id", questionID)

	var req services.ReplacePairsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	key, err := h.questionService.ReplacePairs(c.Request.Context(), questionID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogInfo(c, "Answer key replaced", "question_id", questionID, "pairs", len(key.Pairs))
	c.JSON(http.StatusOK, key)
}

// ImportPairs replaces the answer key from an uploaded xlsx sheet
// @Summary Import answer key from Excel
// @Tags questions
// @Accept multipart/form-data
// @Produce json
// @Param id path int true "Question ID"
// @Param file formData file true "xlsx file with left/right/score columns"
// @Success 200 {object} services.ImportResult
// @Failure 400 {object} ErrorResponse
// @Router /questions/{id}/pairs/import [post]
func (h *QuestionHandler) ImportPairs(c *gin.Context) {
	questionID := h.parseIDParam(c, "id")
	if questionID == 0 {
		return
	}

	h.LogRequest(c, "Importing answer key", "question_id", questionID)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "File is required",
			Details: err.Error(),
		})
		return
	}
	if fileHeader.Size > maxImportFileSize {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "File too large",
			Details: "maximum size is 10MB",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to open uploaded file", err)
		return
	}
	defer file.Close()

	result, err := h.importExportService.ImportPairsFromExcel(c.Request.Context(), questionID, file)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	status := http.StatusOK
	if result.ErrorCount > 0 {
		status = http.StatusUnprocessableEntity
	}
	h.LogInfo(c, "Answer key import finished",
		"question_id", questionID,
		"imported_pairs", result.ImportedPairs,
		"error_count", result.ErrorCount)
	c.JSON(status, result)
}

// GetQuestionStats reports submission and scoring counts for a question
// @Summary Question answer statistics
// @Tags questions
// @Produce json
// @Param id path int true "Question ID"
// @Success 200 {object} repositories.QuestionAnswerStats
// @Router /questions/{id}/stats [get]
func (h *QuestionHandler) GetQuestionStats(c *gin.Context) {
	questionID := h.parseIDParam(c, "id")
	if questionID == 0 {
		return
	}

	stats, err := h.questionService.GetQuestionStats(c.Request.Context(), questionID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
