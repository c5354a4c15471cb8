package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/SAP-F-2025/survey-match-service/internal/events"
	"github.com/SAP-F-2025/survey-match-service/internal/models"
	"github.com/SAP-F-2025/survey-match-service/internal/repositories"
	"github.com/SAP-F-2025/survey-match-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/survey-match-service/internal/services"
	"github.com/SAP-F-2025/survey-match-service/internal/testutil"
	"github.com/SAP-F-2025/survey-match-service/internal/utils"
	"github.com/SAP-F-2025/survey-match-service/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testServer struct {
	db     *gorm.DB
	repo   repositories.Repository
	router *gin.Engine
}

func newTestServer(t *testing.T, parser TokenParser) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.NewSQLiteDB(t)
	repo := postgres.NewRepository(db, nil)
	slogger := slog.New(slog.DiscardHandler)
	serviceManager := services.NewServiceManager(repo, events.NewMockEventPublisher(slogger), slogger, validator.New())

	logger := utils.NewSlogLogger(slogger)
	hm := NewHandlerManager(serviceManager, parser, logger)

	router := gin.New()
	hm.SetupMiddleware(router, []string{"*"})
	hm.SetupRoutes(router)

	return &testServer{db: db, repo: repo, router: router}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) doJSON(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewBuffer(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func pairingList(pairs ...models.MatchPair) string {
	out := "["
	for i, p := range pairs {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf(`{"pair_id":"%d","matched":true}`, p.ID)
	}
	return out + "]"
}
