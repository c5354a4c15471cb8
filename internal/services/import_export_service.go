package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/survey-match-service/internal/models"
	"github.com/SAP-F-2025/survey-match-service/internal/repositories"
	"github.com/SAP-F-2025/survey-match-service/internal/validator"
	"github.com/xuri/excelize/v2"
)

const maxExportSessions = 10000

type importExportService struct {
	repo      repositories.Repository
	questions QuestionService
	engine    ScoringEngine
	logger    *slog.Logger
	validator *validator.Validator
}

func NewImportExportService(repo repositories.Repository, questions QuestionService, logger *slog.Logger, validator *validator.Validator) ImportExportService {
	if logger == nil {
		logger = slog.Default()
	}
	return &importExportService{
		repo:      repo,
		questions: questions,
		engine:    NewScoringEngine(),
		logger:    logger,
		validator: validator,
	}
}

// ===== IMPORT OPERATIONS =====

// ImportPairsFromExcel replaces the answer key of a question with the rows of
// the first sheet. Expected headers: left, right and optionally score, sequence.
func (s *importExportService) ImportPairsFromExcel(ctx context.Context, questionID uint, reader io.Reader) (*ImportResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, NewValidationError("file", "is not a readable Excel file", nil)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, NewValidationError("file", "Excel file has no sheets", nil)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}
	if len(rows) < 2 {
		return nil, NewValidationError("file", "Excel must have header row and at least one data row", len(rows))
	}

	headerMap := make(map[string]int)
	for i, header := range rows[0] {
		headerMap[strings.ToLower(strings.TrimSpace(header))] = i
	}
	leftCol, hasLeft := findColumn(headerMap, "left", "left_option")
	rightCol, hasRight := findColumn(headerMap, "right", "right_option")
	if !hasLeft || !hasRight {
		return nil, NewValidationError("file", "header must name left and right columns", rows[0])
	}
	scoreCol, hasScore := findColumn(headerMap, "score", "points")
	sequenceCol, hasSequence := findColumn(headerMap, "sequence", "order")

	result := &ImportResult{
		QuestionID: questionID,
		TotalRows:  len(rows) - 1,
		Errors:     []ImportRowError{},
	}

	var pairs []PairRequest
	for i, row := range rows[1:] {
		rowNum := i + 2
		if isBlankRow(row) {
			result.TotalRows--
			continue
		}

		pair := PairRequest{
			LeftOption:  strings.TrimSpace(cellAt(row, leftCol)),
			RightOption: strings.TrimSpace(cellAt(row, rightCol)),
		}
		rowErrors := 0
		if pair.LeftOption == "" {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Field: "left", Message: "is required"})
			rowErrors++
		}
		if pair.RightOption == "" {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Field: "right", Message: "is required"})
			rowErrors++
		}
		if hasScore {
			if raw := strings.TrimSpace(cellAt(row, scoreCol)); raw != "" {
				score, err := strconv.ParseFloat(raw, 64)
				if err != nil || score < 0 {
					result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Field: "score", Message: "must be a non-negative number"})
					rowErrors++
				} else {
					pair.Score = &score
				}
			}
		}
		if hasSequence {
			if raw := strings.TrimSpace(cellAt(row, sequenceCol)); raw != "" {
				sequence, err := strconv.Atoi(raw)
				if err != nil {
					result.Errors = append(result.Errors, ImportRowError{Row: rowNum, Field: "sequence", Message: "must be an integer"})
					rowErrors++
				} else {
					pair.Sequence = &sequence
				}
			}
		}

		if rowErrors > 0 {
			result.ErrorCount++
			continue
		}
		pairs = append(pairs, pair)
	}

	if result.ErrorCount == 0 && len(pairs) == 0 {
		return nil, NewBusinessRuleError("import_requires_pairs",
			"sheet holds no pairs, an answer key needs at least one",
			map[string]interface{}{"question_id": questionID, "total_rows": result.TotalRows})
	}

	// A partially valid sheet never replaces a working key
	if result.ErrorCount > 0 {
		s.logger.Warn("Answer key import rejected",
			"question_id", questionID,
			"total_rows", result.TotalRows,
			"error_count", result.ErrorCount)
		return result, nil
	}

	if _, err := s.questions.ReplacePairs(ctx, questionID, &ReplacePairsRequest{Pairs: pairs}); err != nil {
		return nil, err
	}
	result.ImportedPairs = len(pairs)

	s.logger.Info("Answer key import completed",
		"question_id", questionID,
		"total_rows", result.TotalRows,
		"imported_pairs", result.ImportedPairs)

	return result, nil
}

// ===== EXPORT OPERATIONS =====

// ExportSurveyScores renders one row per session with the current score of
// every match-following question of the survey.
func (s *importExportService) ExportSurveyScores(ctx context.Context, surveyToken string) ([]byte, error) {
	survey, err := s.repo.Survey().GetByToken(ctx, nil, surveyToken)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrSurveyNotFound
		}
		return nil, err
	}

	questions, err := s.repo.Question().GetMatchQuestions(ctx, nil, survey.ID)
	if err != nil {
		return nil, err
	}
	keys := make(map[uint]*models.AnswerKey, len(questions))
	for _, q := range questions {
		key, err := s.repo.Question().GetAnswerKey(ctx, nil, q.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load answer key of question %d: %w", q.ID, err)
		}
		keys[q.ID] = key
	}

	sessions, _, err := s.repo.Session().ListBySurvey(ctx, nil, survey.ID, repositories.SessionFilters{
		Limit:     maxExportSessions,
		SortOrder: "asc",
	})
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()
	sheetName := "Scores"

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Excel sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to remove default sheet: %w", err)
	}

	// Write headers
	headers := []interface{}{"Session Token", "State", "Started At"}
	for _, q := range questions {
		headers = append(headers, q.Title)
	}
	headers = append(headers, "Total", "Max Score")
	if err := writeRow(f, sheetName, 1, headers); err != nil {
		return nil, err
	}

	var maxScore float64
	for _, q := range questions {
		maxScore += keys[q.ID].MaxScore()
	}

	for rowIndex, session := range sessions {
		answers, err := s.repo.Answer().ListBySession(ctx, nil, session.ID)
		if err != nil {
			return nil, err
		}
		byQuestion := make(map[uint]*models.Answer, len(answers))
		for _, a := range answers {
			byQuestion[a.QuestionID] = a
		}

		row := []interface{}{
			session.AccessToken,
			string(session.State),
			session.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		var total float64
		for _, q := range questions {
			answer, ok := byQuestion[q.ID]
			if !ok {
				row = append(row, "")
				continue
			}
			score := s.engine.Score(q.ID, keys[q.ID].Pairs, answer.Pairings())
			total += score
			row = append(row, score)
		}
		row = append(row, total, maxScore)

		if err := writeRow(f, sheetName, rowIndex+2, row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}

	s.logger.Info("Survey scores exported", "survey_id", survey.ID, "sessions", len(sessions), "questions", len(questions))
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, rowNum int, values []interface{}) error {
	for col, value := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
		if err != nil {
			return fmt.Errorf("failed to address cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("failed to write cell %s: %w", cell, err)
		}
	}
	return nil
}

func findColumn(headerMap map[string]int, names ...string) (int, bool) {
	for _, name := range names {
		if idx, ok := headerMap[name]; ok {
			return idx, true
		}
	}
	return 0, false
}

func cellAt(row []string, col int) string {
	if col < len(row) {
		return row[col]
	}
	return ""
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
