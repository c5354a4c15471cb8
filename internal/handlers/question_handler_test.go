package handlers

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SAP-F-2025/survey-match-service/internal/models"
	"github.com/SAP-F-2025/survey-match-service/internal/repositories"
	"github.com/SAP-F-2025/survey-match-service/internal/services"
	"github.com/SAP-F-2025/survey-match-service/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestQuestionHandler_CreateWithDefaults(t *testing.T) {
	s := newTestServer(t, nil)
	survey := testutil.SeedSurvey(t, s.db, "authoring")

	w := s.doJSON(http.MethodPost, "/api/v1/surveys/authoring/questions", map[string]interface{}{
		"title": "Match the words",
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[struct {
		Data models.Question `json:"data"`
	}](t, w)
	assert.Equal(t, survey.ID, resp.Data.SurveyID)
	assert.Equal(t, models.QuestionTypeMatchFollowing, resp.Data.QuestionType)
	require.Len(t, resp.Data.Pairs, 3)
	assert.Equal(t, "Apple", resp.Data.Pairs[0].LeftOption)
	assert.False(t, resp.Data.ShuffleLeftOptions)
	assert.True(t, resp.Data.ShuffleRightOptions)
}

func TestQuestionHandler_CreateErrors(t *testing.T) {
	s := newTestServer(t, nil)
	testutil.SeedSurvey(t, s.db, "authoring")

	w := s.doJSON(http.MethodPost, "/api/v1/surveys/unknown/questions", map[string]interface{}{"title": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.doJSON(http.MethodPost, "/api/v1/surveys/authoring/questions", map[string]interface{}{"title": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.doJSON(http.MethodPost, "/api/v1/surveys/authoring/questions", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.doJSON(http.MethodPost, "/api/v1/surveys/authoring/questions", map[string]interface{}{
		"title": "Bad pairs",
		"pairs": []map[string]interface{}{{"left_option": " ", "right_option": "x"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "Validation failed", resp.Message)
}

func TestQuestionHandler_AnswerKey(t *testing.T) {
	s := newTestServer(t, nil)
	survey := testutil.SeedSurvey(t, s.db, "key")
	question := testutil.SeedMatchQuestion(t, s.db, survey.ID, "Match")
	other := testutil.SeedQuestion(t, s.db, survey.ID, models.QuestionTypeTextBox)

	w := s.doJSON(http.MethodGet, fmt.Sprintf("/api/v1/questions/%d/answer-key", question.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	key := decode[models.AnswerKey](t, w)
	require.Len(t, key.Pairs, 3)
	assert.Equal(t, question.Pairs[0].ID, key.Pairs[0].ID)
	assert.True(t, key.ShuffleRightOptions)

	w = s.doJSON(http.MethodGet, "/api/v1/questions/9999/answer-key", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.doJSON(http.MethodGet, fmt.Sprintf("/api/v1/questions/%d/answer-key", other.ID), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.doJSON(http.MethodGet, "/api/v1/questions/abc/answer-key", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuestionHandler_ReplacePairs(t *testing.T) {
	s := newTestServer(t, nil)
	survey := testutil.SeedSurvey(t, s.db, "replace")
	question := testutil.SeedMatchQuestion(t, s.db, survey.ID, "Match")

	w := s.doJSON(http.MethodPut, fmt.Sprintf("/api/v1/questions/%d/pairs", question.ID), map[string]interface{}{
		"shuffle_left_options": true,
		"pairs": []map[string]interface{}{
			{"left_option": "Sun", "right_option": "Star", "score": 2.5},
		},
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	key := decode[models.AnswerKey](t, w)
	require.Len(t, key.Pairs, 1)
	assert.Equal(t, "Sun", key.Pairs[0].LeftOption)
	assert.InDelta(t, 2.5, key.Pairs[0].Score, 1e-9)
	assert.True(t, key.ShuffleLeftOptions)

	w = s.doJSON(http.MethodPut, fmt.Sprintf("/api/v1/questions/%d/pairs", question.ID), map[string]interface{}{
		"pairs": []map[string]interface{}{},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func multipartWorkbook(t *testing.T, rows [][]interface{}) (*bytes.Buffer, string) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", cell, value))
		}
	}
	workbook, err := f.WriteToBuffer()
	require.NoError(t, err)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "pairs.xlsx")
	require.NoError(t, err)
	_, err = part.Write(workbook.Bytes())
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestQuestionHandler_ImportPairs(t *testing.T) {
	s := newTestServer(t, nil)
	survey := testutil.SeedSurvey(t, s.db, "import")
	question := testutil.SeedMatchQuestion(t, s.db, survey.ID, "Match")
	path := fmt.Sprintf("/api/v1/questions/%d/pairs/import", question.ID)

	body, contentType := multipartWorkbook(t, [][]interface{}{
		{"left_option", "right_option", "points"},
		{"Red", "Color", 1},
		{"Blue", "Color", 3},
	})
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	w := s.do(req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[services.ImportResult](t, w)
	assert.Equal(t, 2, result.ImportedPairs)

	body, contentType = multipartWorkbook(t, [][]interface{}{
		{"left", "right"},
		{"", "Orphan"},
	})
	req = httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	w = s.do(req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	result = decode[services.ImportResult](t, w)
	assert.Equal(t, 1, result.ErrorCount)

	body, contentType = multipartWorkbook(t, [][]interface{}{
		{"left", "right"},
		{" ", " "},
	})
	req = httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	w = s.do(req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	errResp := decode[ErrorResponse](t, w)
	details, ok := errResp.Details.(map[string]interface{})
	require.True(t, ok, w.Body.String())
	assert.Equal(t, "import_requires_pairs", details["rule"])

	req = httptest.NewRequest(http.MethodPost, path, nil)
	w = s.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQuestionHandler_Stats(t *testing.T) {
	s := newTestServer(t, nil)
	survey := testutil.SeedSurvey(t, s.db, "stats")
	question := testutil.SeedMatchQuestion(t, s.db, survey.ID, "Match")

	w := s.doJSON(http.MethodPost, submitPath("stats", question.ID), pairingList(question.Pairs...))
	require.Equal(t, http.StatusOK, w.Code)

	w = s.doJSON(http.MethodGet, fmt.Sprintf("/api/v1/questions/%d/stats", question.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[repositories.QuestionAnswerStats](t, w)
	assert.EqualValues(t, 1, stats.TotalAnswers)
}
