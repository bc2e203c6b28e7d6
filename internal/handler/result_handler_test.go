package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/motoquiz-backend/internal/model"
	"github.com/stemsi/motoquiz-backend/internal/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedResult(userID, score int, passed bool, date time.Time) model.ExamResult {
	return model.ExamResult{
		ID:             uuid.New(),
		AttemptID:      uuid.New(),
		UserID:         userID,
		Score:          score,
		TotalQuestions: 25,
		Percentage:     score * 4,
		Passed:         passed,
		Date:           date,
	}
}

func TestListResults_NewestFirstWithSummary(t *testing.T) {
	s := newTestServer(t)
	token, user := s.login(t, "learner", model.RoleUser)

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	s.results.results = []model.ExamResult{
		storedResult(user.ID, 20, false, base),
		storedResult(user.ID, 24, true, base.Add(time.Hour)),
		storedResult(user.ID+1, 25, true, base.Add(2*time.Hour)),
	}

	w, env := s.do(t, http.MethodGet, "/api/v1/exam/results", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var history model.ExamHistory
	decode(t, env, &history)
	require.Len(t, history.Results, 2)
	assert.Equal(t, 24, history.Results[0].Score)
	assert.Equal(t, 20, history.Results[1].Score)
	assert.Equal(t, 2, history.TotalAttempts)
	assert.Equal(t, 1, history.PassedCount)
	assert.Equal(t, 22.0, history.AverageScore)
	assert.Equal(t, 88.0, history.AveragePercentage)
}

func TestListResults_Empty(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.login(t, "learner", model.RoleUser)

	w, env := s.do(t, http.MethodGet, "/api/v1/exam/results", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"results":[]`)
}

func TestGetResult_OwnerOrAdminOnly(t *testing.T) {
	s := newTestServer(t)
	owner, user := s.login(t, "learner", model.RoleUser)
	stranger, _ := s.login(t, "stranger", model.RoleUser)
	admin, _ := s.login(t, "admin", model.RoleAdmin)

	r := storedResult(user.ID, 23, true, time.Now())
	s.results.results = []model.ExamResult{r}
	path := "/api/v1/exam/results/" + r.ID.String()

	w, env := s.do(t, http.MethodGet, path, owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Result model.ExamResult `json:"result"`
	}
	decode(t, env, &got)
	assert.Equal(t, r.ID, got.Result.ID)

	w, env = s.do(t, http.MethodGet, path, stranger, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, response.ErrNotFound, errCode(env))

	w, _ = s.do(t, http.MethodGet, path, admin, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/exam/results/xyz", owner, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, response.ErrInvalidID, errCode(env))
}

func TestListAttemptAnswers(t *testing.T) {
	s := newTestServer(t)
	admin, _ := s.login(t, "admin", model.RoleAdmin)
	attemptID := uuid.New()
	s.answers.answers = []model.AttemptAnswer{
		{AttemptID: attemptID, UserID: 3, QuestionIndex: 0, QuestionID: uuid.New(), OptionID: 2},
		{AttemptID: uuid.New(), UserID: 4, QuestionIndex: 0, QuestionID: uuid.New(), OptionID: 1},
	}

	w, env := s.do(t, http.MethodGet, "/api/v1/admin/attempts/"+attemptID.String()+"/answers", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Answers []model.AttemptAnswer `json:"answers"`
	}
	decode(t, env, &body)
	require.Len(t, body.Answers, 1)
	assert.Equal(t, 2, body.Answers[0].OptionID)
}
