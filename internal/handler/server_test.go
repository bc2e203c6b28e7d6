package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/motoquiz-backend/internal/config"
	"github.com/stemsi/motoquiz-backend/internal/handler"
	"github.com/stemsi/motoquiz-backend/internal/model"
	"github.com/stemsi/motoquiz-backend/internal/response"
	"github.com/stemsi/motoquiz-backend/internal/router"
	"github.com/stemsi/motoquiz-backend/internal/service"
	"github.com/stemsi/motoquiz-backend/internal/validator"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

type envelope struct {
	Data  json.RawMessage     `json:"data"`
	Error *response.ErrorBody `json:"error"`
}

type testServer struct {
	router      *gin.Engine
	cfg         *config.Config
	auth        *service.AuthService
	users       *memUsers
	questions   *memQuestions
	results     *memResults
	answers     *memAnswers
	suggestions *memSuggestions
	exams       *service.ExamSessionService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zerolog.Nop()
	cfg := &config.Config{
		GinMode:          gin.TestMode,
		JWTSecret:        "handler-test-secret",
		JWTExpiry:        time.Hour,
		BcryptCost:       bcrypt.MinCost,
		UploadDir:        t.TempDir(),
		MaxUploadBytes:   64 << 10,
		QuestionCacheTTL: time.Minute,
	}

	s := &testServer{
		cfg:       cfg,
		users:     &memUsers{},
		questions: &memQuestions{},
		results:   &memResults{},
		answers:   &memAnswers{},
	}
	s.suggestions = &memSuggestions{questions: s.questions}

	s.auth = service.NewAuthService(cfg, s.users, &memSessions{jtis: map[int]string{}}, log)
	questionService := service.NewQuestionService(s.questions, nil, cfg, log)
	practiceService := service.NewPracticeService(questionService)
	resultService := service.NewResultService(s.results, s.answers)
	suggestionService := service.NewSuggestionService(s.suggestions, questionService, log)
	mediaService := service.NewMediaService(cfg, log)
	s.exams = service.NewExamSessionService(questionService, s.results, nil, log)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.exams.Shutdown(ctx)
	})

	handlers := &router.Handlers{
		Auth:       handler.NewAuthHandler(s.auth),
		Question:   handler.NewQuestionHandler(questionService, practiceService),
		Practice:   handler.NewPracticeHandler(practiceService),
		Exam:       handler.NewExamHandler(s.exams),
		Result:     handler.NewResultHandler(resultService),
		Suggestion: handler.NewSuggestionHandler(suggestionService),
		Media:      handler.NewMediaHandler(mediaService, cfg.MaxUploadBytes),
		WS:         handler.NewWSHandler(s.exams, log, nil),
		System:     handler.NewSystemHandler(pingFunc(func(context.Context) error { return nil }), nil, s.exams, log),
	}
	s.router = router.SetupRouter(s.auth, handlers, cfg, nil, log)
	return s
}

// login creates an account with role and returns its bearer token.
func (s *testServer) login(t *testing.T, username string, role model.Role) (string, *model.User) {
	t.Helper()
	u := &model.User{Username: username, Name: "Tester", Role: role}
	require.NoError(t, s.users.Create(context.Background(), u))
	token, err := s.auth.GenerateToken(context.Background(), u)
	require.NoError(t, err)
	return token, u
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return s.serve(t, req)
}

func (s *testServer) serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

func decode(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, dst))
}

func errCode(env envelope) response.ErrCode {
	if env.Error == nil {
		return ""
	}
	return env.Error.Code
}

func intPtr(v int) *int { return &v }
