package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stemsi/motoquiz-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSuggestionFixture() (*SuggestionService, *fakeQuestionStore) {
	questions := &fakeQuestionStore{}
	store := &fakeSuggestionStore{questions: questions}
	qsvc := NewQuestionService(questions, nil, testConfig(), testLog)
	return NewSuggestionService(store, qsvc, testLog), questions
}

func TestSuggestionCreate_Validates(t *testing.T) {
	svc, _ := newSuggestionFixture()

	_, err := svc.Create(context.Background(), 1, questionRequest(7))
	assert.ErrorIs(t, err, model.ErrInvalidQuestion)

	sg, err := svc.Create(context.Background(), 1, questionRequest(1))
	require.NoError(t, err)
	assert.Equal(t, model.SuggestionPending, sg.Status)
	assert.Equal(t, 1, sg.UserID)
}

func TestSuggestionApprove_AddsToBank(t *testing.T) {
	svc, questions := newSuggestionFixture()
	ctx := context.Background()

	sg, err := svc.Create(ctx, 1, questionRequest(1))
	require.NoError(t, err)

	approved, q, err := svc.Approve(ctx, sg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SuggestionApproved, approved.Status)
	require.NotNil(t, approved.QuestionID)
	assert.Equal(t, q.ID, *approved.QuestionID)
	assert.Equal(t, 1, q.CorrectAnswer)
	assert.Len(t, questions.questions, 1)

	_, _, err = svc.Approve(ctx, sg.ID)
	assert.ErrorIs(t, err, ErrSuggestionReviewed)
	_, err = svc.Reject(ctx, sg.ID)
	assert.ErrorIs(t, err, ErrSuggestionReviewed)
}

func TestSuggestionReject(t *testing.T) {
	svc, questions := newSuggestionFixture()
	ctx := context.Background()

	sg, err := svc.Create(ctx, 2, questionRequest(0))
	require.NoError(t, err)

	rejected, err := svc.Reject(ctx, sg.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SuggestionRejected, rejected.Status)
	assert.Empty(t, questions.questions)

	_, err = svc.Reject(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrSuggestionNotFound)
}

func TestSuggestionLists(t *testing.T) {
	svc, _ := newSuggestionFixture()
	ctx := context.Background()

	a, err := svc.Create(ctx, 1, questionRequest(0))
	require.NoError(t, err)
	_, err = svc.Create(ctx, 2, questionRequest(1))
	require.NoError(t, err)
	_, err = svc.Reject(ctx, a.ID)
	require.NoError(t, err)

	mine, err := svc.ListMine(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	pending := model.SuggestionPending
	list, err := svc.List(ctx, &pending)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].UserID)

	all, err := svc.List(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	empty, err := svc.ListMine(ctx, 42)
	require.NoError(t, err)
	assert.NotNil(t, empty)
}
