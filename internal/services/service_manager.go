package services

import (
	"log/slog"

	"github.com/SAP-F-2025/survey-match-service/internal/events"
	"github.com/SAP-F-2025/survey-match-service/internal/repositories"
	"github.com/SAP-F-2025/survey-match-service/internal/validator"
)

// ServiceManager exposes the services the HTTP layer depends on
type ServiceManager interface {
	Submission() SubmissionService
	Scoring() ScoringService
	Question() QuestionService
	ImportExport() ImportExportService
}

type serviceManager struct {
	submission   SubmissionService
	scoring      ScoringService
	question     QuestionService
	importExport ImportExportService
}

func NewServiceManager(repo repositories.Repository, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) ServiceManager {
	scoring := NewScoringService(repo, publisher, logger)
	question := NewQuestionService(repo, logger, validator)

	return &serviceManager{
		submission:   NewSubmissionService(repo, scoring, publisher, logger),
		scoring:      scoring,
		question:     question,
		importExport: NewImportExportService(repo, question, logger, validator),
	}
}

func (m *serviceManager) Submission() SubmissionService     { return m.submission }
func (m *serviceManager) Scoring() ScoringService           { return m.scoring }
func (m *serviceManager) Question() QuestionService         { return m.question }
func (m *serviceManager) ImportExport() ImportExportService { return m.importExport }
