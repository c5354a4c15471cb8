package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/survey-match-service/internal/models"
	"github.com/SAP-F-2025/survey-match-service/internal/services"
	"github.com/SAP-F-2025/survey-match-service/internal/utils"
	"github.com/gin-gonic/gin"
)

const (
	// AnswerTokenHeader carries the session credential in both directions
	AnswerTokenHeader = "X-Answer-Token"

	questionFieldPrefix = "question_"
	maxSubmissionBody   = 1 << 20
)

type SubmissionHandler struct {
	BaseHandler
	submissionService services.SubmissionService
}

func NewSubmissionHandler(submissionService services.SubmissionService, logger utils.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		BaseHandler:       NewBaseHandler(logger),
		submissionService: submissionService,
	}
}

// submitEnvelope accepts both the JSON-RPC shape {"params": {...}} and the bare
// object carrying value_match_following at the top level.
type submitEnvelope struct {
	Params *submitParams `json:"params"`
	submitParams
}

type submitParams struct {
	ValueMatchFollowing json.RawMessage `json:"value_match_following"`
	AnswerToken         string          `json:"answer_token"`
}

// Submit stores the pairings drawn for one (or, with legacy form fields,
// several) match-following questions.
// @Summary Submit match-following answer
// @Tags submissions
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param survey_token path string true "Survey token"
// @Param question_id path string true "Question id or answer token"
// @Success 200 {array} services.SubmissionResult
// @Router /survey/submit/{survey_token}/{question_id} [post]
func (h *SubmissionHandler) Submit(c *gin.Context) {
	surveyToken := strings.TrimSpace(c.Param("survey_token"))
	questionID := strings.TrimSpace(c.Param("question_id"))

	h.LogRequest(c, "Submitting match-following answer",
		"survey_token", surveyToken,
		"question_id", questionID)

	var outcome *services.SubmissionOutcome
	if isFormRequest(c) {
		outcome = h.submitForm(c, surveyToken, questionID)
	} else {
		outcome = h.submitJSON(c, surveyToken, questionID)
	}

	if outcome == nil {
		outcome = &services.SubmissionOutcome{}
	}
	if outcome.Results == nil {
		outcome.Results = []services.SubmissionResult{}
	}
	if outcome.SessionToken != "" {
		c.Header(AnswerTokenHeader, outcome.SessionToken)
	}

	h.LogInfo(c, "Submission handled",
		"survey_token", surveyToken,
		"question_id", questionID,
		"results", len(outcome.Results))

	c.JSON(http.StatusOK, outcome.Results)
}

func (h *SubmissionHandler) submitJSON(c *gin.Context, surveyToken, questionID string) *services.SubmissionOutcome {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSubmissionBody))
	if err != nil {
		h.LogWarn(c, "Failed to read submission body", "error", err)
		body = nil
	}

	payload, bodyCredential := decodeSubmissionBody(body)

	credential := answerCredential(c)
	if credential == "" {
		credential = bodyCredential
	}

	return h.submissionService.Submit(c.Request.Context(), &services.SubmitRequest{
		SurveyToken: surveyToken,
		QuestionID:  questionID,
		Credential:  credential,
		Payload:     payload,
	})
}

func (h *SubmissionHandler) submitForm(c *gin.Context, surveyToken, questionID string) *services.SubmissionOutcome {
	credential := answerCredential(c)

	if answers := questionFields(c); len(answers) > 0 {
		return h.submissionService.SubmitBatch(c.Request.Context(), &services.BatchSubmitRequest{
			SurveyToken: surveyToken,
			Credential:  credential,
			Answers:     answers,
		})
	}

	payload := models.EmptyPayload()
	if value, ok := c.GetPostForm("value_match_following"); ok {
		payload = models.RawPayload(value)
	}

	return h.submissionService.Submit(c.Request.Context(), &services.SubmitRequest{
		SurveyToken: surveyToken,
		QuestionID:  questionID,
		Credential:  credential,
		Payload:     payload,
	})
}

// decodeSubmissionBody classifies a JSON body. Undecodable bodies yield an
// empty payload rather than an error.
func decodeSubmissionBody(body []byte) (models.Payload, string) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return models.EmptyPayload(), ""
	}

	if body[0] != '{' {
		return models.PayloadFromJSON(body), ""
	}

	var envelope submitEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return models.EmptyPayload(), ""
	}

	if envelope.Params != nil {
		return models.PayloadFromJSON(envelope.Params.ValueMatchFollowing), strings.TrimSpace(envelope.Params.AnswerToken)
	}
	return models.PayloadFromJSON(envelope.ValueMatchFollowing), strings.TrimSpace(envelope.AnswerToken)
}

// questionFields collects legacy question_<id> form fields in ascending id
// order. Empty values are skipped. Each field only answers the question its id
// names.
func questionFields(c *gin.Context) []services.QuestionPayload {
	if err := c.Request.ParseMultipartForm(maxSubmissionBody); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return nil
	}

	type field struct {
		id    uint64
		value string
	}
	var fields []field
	for key, values := range c.Request.PostForm {
		if !strings.HasPrefix(key, questionFieldPrefix) || len(values) == 0 {
			continue
		}
		id, err := strconv.ParseUint(strings.TrimPrefix(key, questionFieldPrefix), 10, 32)
		if err != nil || id == 0 {
			continue
		}
		value := values[len(values)-1]
		if strings.TrimSpace(value) == "" {
			continue
		}
		fields = append(fields, field{id: id, value: value})
	}

	sort.Slice(fields, func(i, j int) bool { return fields[i].id < fields[j].id })

	answers := make([]services.QuestionPayload, 0, len(fields))
	for _, f := range fields {
		answers = append(answers, services.QuestionPayload{
			QuestionID: strconv.FormatUint(f.id, 10),
			Payload:    models.RawPayload(f.value),
			Strict:     true,
		})
	}
	return answers
}
