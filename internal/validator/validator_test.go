package validator

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/motoquiz-backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bindBody(t *testing.T, body string, dst interface{}) map[string]string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	Setup()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return Bind(c, dst)
}

func TestValidUsername(t *testing.T) {
	cases := map[string]bool{
		"rider":      true,
		"john.doe_1": true,
		"abc":        false,
		"has space":  false,
		"dash-name":  false,
		"":           false,
	}
	for in, want := range cases {
		assert.Equal(t, want, ValidUsername(in), in)
	}
}

func TestBind_RegisterRequest(t *testing.T) {
	var req model.RegisterRequest
	fields := bindBody(t, `{"name":"Ann","username":"ann_rides","password":"secret1"}`, &req)
	require.Nil(t, fields)
	assert.Equal(t, "ann_rides", req.Username)
}

func TestBind_TranslatesFieldErrors(t *testing.T) {
	var req model.RegisterRequest
	fields := bindBody(t, `{"name":"A","username":"a b","password":"123"}`, &req)
	require.NotNil(t, fields)
	assert.Contains(t, fields, "name")
	assert.Contains(t, fields, "password")
	assert.Contains(t, fields["username"], "at least 4 characters")
}

func TestBind_MalformedJSON(t *testing.T) {
	var req model.LoginRequest
	fields := bindBody(t, `{"username":`, &req)
	require.NotNil(t, fields)
	assert.Contains(t, fields, "detail")
}
