package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ParseStringIDParam writes a 400 and returns "" when the path parameter is blank
func ParseStringIDParam(c *gin.Context, param string) string {
	idStr := strings.TrimSpace(c.Param(param))
	if idStr == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "ID cannot be empty",
		})
		return ""
	}
	return idStr
}

// answerCredential returns the session credential a client presented, in order
// of precedence: header, query string, form field.
func answerCredential(c *gin.Context) string {
	if token := strings.TrimSpace(c.GetHeader(AnswerTokenHeader)); token != "" {
		return token
	}
	if token := strings.TrimSpace(c.Query("answer_token")); token != "" {
		return token
	}
	return strings.TrimSpace(c.PostForm("answer_token"))
}

func isFormRequest(c *gin.Context) bool {
	switch c.ContentType() {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return true
	default:
		return false
	}
}
