package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pizza-api/auth"
	"pizza-api/metrics"
	"pizza-api/service"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAuthenticator struct {
	tokens map[string]auth.Identity
	err    error
}

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (auth.Identity, error) {
	if s.err != nil {
		return auth.Identity{}, s.err
	}
	id, ok := s.tokens[token]
	if !ok {
		return auth.Identity{}, service.Unauthenticated(auth.ErrInvalidToken)
	}
	return id, nil
}

func serve(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"":             "",
		"Bearer abc":   "abc",
		"Bearer  abc ": "abc",
		"Basic abc":    "",
		"bearer abc":   "",
		"Bearerabc":    "",
	}
	for header, want := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			c.Request.Header.Set("Authorization", header)
		}
		assert.Equal(t, want, BearerToken(c), header)
	}
}

func identityRouter(a Authenticator, optional bool) *gin.Engine {
	r := gin.New()
	mw := AuthRequired(a)
	if optional {
		mw = OptionalAuth(a)
	}
	r.GET("/", mw, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetIdentity(c).UserID})
	})
	return r
}

func TestAuthRequired(t *testing.T) {
	a := stubAuthenticator{tokens: map[string]auth.Identity{"good": {UserID: 7}}}
	r := identityRouter(a, false)

	w := serve(r, http.MethodGet, "/", "good")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":7}`, w.Body.String())

	for _, token := range []string{"", "bad"} {
		w := serve(r, http.MethodGet, "/", token)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"message":"unauthorized"}`, w.Body.String())
	}
}

func TestOptionalAuth(t *testing.T) {
	a := stubAuthenticator{tokens: map[string]auth.Identity{"good": {UserID: 7}}}
	r := identityRouter(a, true)

	assert.JSONEq(t, `{"id":7}`, serve(r, http.MethodGet, "/", "good").Body.String())
	assert.JSONEq(t, `{"id":0}`, serve(r, http.MethodGet, "/", "").Body.String())
	assert.JSONEq(t, `{"id":0}`, serve(r, http.MethodGet, "/", "bad").Body.String())

	broken := identityRouter(stubAuthenticator{err: service.StorageError(errors.New("redis down"))}, true)
	w := serve(broken, http.MethodGet, "/", "good")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"message":"internal server error"}`, w.Body.String())
}

func TestAbortWithError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		body   string
	}{
		{service.Forbidden("unable to create a franchise"), http.StatusForbidden, `{"message":"unable to create a franchise"}`},
		{service.UnknownUser(nil), http.StatusNotFound, `{"message":"unknown user"}`},
		{service.ValidationError("bad"), http.StatusBadRequest, `{"message":"bad"}`},
		{service.StorageError(errors.New("disk full")), http.StatusInternalServerError, `{"message":"internal server error"}`},
		{errors.New("plain"), http.StatusInternalServerError, `{"message":"internal server error"}`},
	}
	for _, tt := range tests {
		r := gin.New()
		r.GET("/", func(c *gin.Context) { AbortWithError(c, tt.err) })
		w := serve(r, http.MethodGet, "/", "")
		assert.Equal(t, tt.status, w.Code)
		assert.JSONEq(t, tt.body, w.Body.String())
	}
}

func TestRequestTracker(t *testing.T) {
	reg := metrics.NewRegistry()
	r := gin.New()
	r.Use(RequestTracker(reg))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(r, http.MethodGet, "/", "")
	serve(r, http.MethodGet, "/", "")
	serve(r, http.MethodPost, "/", "")

	assert.Equal(t, int64(2), reg.Value(metrics.RequestsGet))
	assert.Equal(t, int64(1), reg.Value(metrics.RequestsPost))
	assert.Equal(t, int64(3), reg.Value(metrics.RequestsTotal))
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(log.New(io.Discard)))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(r, http.MethodGet, "/", "")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get("X-Request-ID"))
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.GET("/", RateLimit(2, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })

	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/", "").Code)
	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/", "").Code)
	w := serve(r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"message":"too many requests"}`, w.Body.String())

	open := gin.New()
	open.GET("/", RateLimit(0, time.Minute), func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, serve(open, http.MethodGet, "/", "").Code)
	}
}
