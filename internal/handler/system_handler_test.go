package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/motoquiz-backend/internal/database"
	"github.com/stemsi/motoquiz-backend/internal/handler"
	"github.com/stemsi/motoquiz-backend/internal/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth_ReportsUnavailableStores(t *testing.T) {
	s := newTestServer(t)

	// No Redis client is configured in the test server.
	w, env := s.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, response.ErrServiceUnavailable, errCode(env))

	var st database.Status
	decode(t, env, &st)
	assert.Equal(t, database.Status{Postgres: "up", Redis: "down"}, st)
}

type fixedCount int

func (f fixedCount) ActiveCount() int { return int(f) }

func TestHealth_DatabaseDown(t *testing.T) {
	h := handler.NewSystemHandler(pingFunc(func(context.Context) error {
		return context.DeadlineExceeded
	}), nil, fixedCount(2), zerolog.Nop())

	s := newTestServer(t)
	s.router.GET("/health/db", h.Health)

	w, env := s.do(t, http.MethodGet, "/health/db", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var st database.Status
	decode(t, env, &st)
	assert.Equal(t, "down", st.Postgres)
}
