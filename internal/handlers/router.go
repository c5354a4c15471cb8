package handlers

import (
	"net/http"
	"time"

	"github.com/SAP-F-2025/survey-match-service/internal/services"
	"github.com/SAP-F-2025/survey-match-service/internal/utils"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	submissionHandler *SubmissionHandler
	questionHandler   *QuestionHandler
	scoreHandler      *ScoreHandler

	adminMiddleware gin.HandlerFunc
	logger          utils.Logger
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	tokenParser TokenParser,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		submissionHandler: NewSubmissionHandler(serviceManager.Submission(), logger),
		questionHandler:   NewQuestionHandler(serviceManager.Question(), serviceManager.ImportExport(), logger),
		scoreHandler:      NewScoreHandler(serviceManager.Scoring(), serviceManager.ImportExport(), logger),
		adminMiddleware:   AdminMiddleware(tokenParser, logger),
		logger:            logger,
	}
}

// CORSMiddleware lets the survey front-end post answers cross-origin and read
// the echoed session token.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", AnswerTokenHeader, utils.RequestIDHeader},
		ExposeHeaders:    []string{AnswerTokenHeader, utils.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}

	if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = allowedOrigins
	}
	return cors.New(cfg)
}

// SetupMiddleware installs the ambient middleware chain on the engine
func (hm *HandlerManager) SetupMiddleware(router *gin.Engine, allowedOrigins []string) {
	router.Use(
		utils.RecoveryMiddleware(hm.logger),
		utils.ContextLogger(hm.logger),
		utils.LoggerMiddleware(hm.logger),
		CORSMiddleware(allowedOrigins),
	)
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "survey-match-service",
		})
	})

	// Public submission endpoint used by the survey front-end
	router.POST("/survey/submit/:survey_token/:question_id", hm.submissionHandler.Submit)

	v1 := router.Group("/api/v1")
	{
		// Answer key reads are public, the front-end renders from them
		v1.GET("/questions/:id/answer-key", hm.questionHandler.GetAnswerKey)

		// Scoring read path
		v1.GET("/answers/:id/score", hm.scoreHandler.ScoreAnswer)
		v1.POST("/sessions/:token/score", hm.scoreHandler.ScoreSession)

		admin := v1.Group("", hm.adminMiddleware)
		{
			admin.POST("/surveys/:token/questions", hm.questionHandler.CreateQuestion)
			admin.GET("/surveys/:token/scores.xlsx", hm.scoreHandler.ExportSurveyScores)

			admin.PUT("/questions/:id/pairs", hm.questionHandler.ReplacePairs)
			admin.POST("/questions/:id/pairs/import", hm.questionHandler.ImportPairs)
			admin.GET("/questions/:id/stats", hm.questionHandler.GetQuestionStats)
		}
	}
}
