package logger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInit(t *testing.T) {
	originalLog := log
	defer func() { log = originalLog }()

	t.Run("Production", func(t *testing.T) {
		Init("production")
		assert.NotNil(t, log)
	})

	t.Run("Development", func(t *testing.T) {
		Init("development")
		assert.NotNil(t, log)
	})
}

func TestL(t *testing.T) {
	originalLog := log
	defer func() { log = originalLog }()

	// Force nil to test lazy initialization
	log = nil
	os.Setenv("APP_ENV", "test")

	l := L()
	assert.NotNil(t, l)
	assert.NotNil(t, log)
}

func TestRequestIDContext(t *testing.T) {
	ctx := context.Background()
	reqID := "req-abc-123"

	t.Run("RoundTrip", func(t *testing.T) {
		ctxWithID := WithRequestID(ctx, reqID)
		assert.Equal(t, reqID, RequestIDFrom(ctxWithID))
	})

	t.Run("Missing", func(t *testing.T) {
		assert.Equal(t, "", RequestIDFrom(ctx))
	})
}

func TestFromCtx(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	obsLogger := zap.New(core)

	originalLog := log
	log = obsLogger
	defer func() { log = originalLog }()

	t.Run("WithRequestID", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "req-1")

		FromCtx(ctx).Info("with id")

		logs := observed.TakeAll()
		assert.Len(t, logs, 1)
		assert.Equal(t, "req-1", logs[0].ContextMap()["request_id"])
	})

	t.Run("WithoutRequestID", func(t *testing.T) {
		FromCtx(context.Background()).Info("without id")

		logs := observed.TakeAll()
		assert.Len(t, logs, 1)
		_, ok := logs[0].ContextMap()["request_id"]
		assert.False(t, ok)
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, RequestIDFrom(r.Context()))
	})

	handler := RequestIDMiddleware(nextHandler)

	t.Run("GeneratesIDWhenMissing", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/orders", nil)
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("PreservesExistingID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/orders", nil)
		req.Header.Set("X-Request-ID", "given-id")
		w := httptest.NewRecorder()

		handler.ServeHTTP(w, req)

		assert.Equal(t, "given-id", w.Header().Get("X-Request-ID"))
	})
}

func TestLoggingMiddleware(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	obsLogger := zap.New(core)

	originalLog := log
	log = obsLogger
	defer func() { log = originalLog }()

	nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	handler := LoggingMiddleware(nextHandler)
	req := httptest.NewRequest("GET", "/orders", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	logs := observed.TakeAll()
	assert.Len(t, logs, 1)
	assert.Equal(t, "incoming request", logs[0].Message)
	assert.Equal(t, "/orders", logs[0].ContextMap()["path"])
	assert.Equal(t, int64(http.StatusTeapot), logs[0].ContextMap()["status"])
}
