package validator

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "greenhouse-assistant/backend/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStrongPassword(t *testing.T) {
	assert.True(t, StrongPassword("Secret123"))
	assert.False(t, StrongPassword("Sec1"))
	assert.False(t, StrongPassword("secret123"))
	assert.False(t, StrongPassword("SecretWord"))
}

func TestStrongPasswordBinding(t *testing.T) {
	gin.SetMode(gin.TestMode)
	require.NoError(t, RegisterBindings())

	type body struct {
		Password string `json:"password" binding:"required,strongpassword"`
	}
	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		var b body
		if err := c.ShouldBindJSON(&b); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	for payload, want := range map[string]int{
		`{"password":"Secret123"}`: http.StatusOK,
		`{"password":"weak"}`:      http.StatusBadRequest,
	} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload)))
		assert.Equal(t, want, rec.Code, payload)
	}
}

const schema = `openapi: 3.0.3
info:
  title: test
  version: "1"
servers:
  - url: /api/v1
paths:
  /chats:
    post:
      requestBody:
        required: true
        content:
          application/json:
            schema:
              type: object
              required: [name]
              properties:
                name:
                  type: string
                  minLength: 1
      responses:
        "201":
          description: created
`

func TestOpenAPIMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	path := filepath.Join(t.TempDir(), "openapi.yaml")
	require.NoError(t, os.WriteFile(path, []byte(schema), 0o600))

	v, err := NewOpenAPIValidator(path)
	require.NoError(t, err)

	r := gin.New()
	r.Use(apperrors.ErrorHandler(), v.Middleware())
	r.POST("/api/v1/chats", func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.GET("/api/v1/other", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(method, target, body string) int {
		req := httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusCreated, send(http.MethodPost, "/api/v1/chats", `{"name":"Tomato bed"}`))
	assert.Equal(t, http.StatusBadRequest, send(http.MethodPost, "/api/v1/chats", `{}`))
	assert.Equal(t, http.StatusOK, send(http.MethodGet, "/api/v1/other", ""))
	require.NoError(t, v.ReloadSchema())
}
