package response_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshelf/internal/response"
)

type body struct {
	Errors []struct {
		Message    string         `json:"message"`
		Extensions map[string]any `json:"extensions"`
	} `json:"errors"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) body {
	var b body
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &b))
	require.Len(t, b.Errors, 1)
	return b
}

func TestInternal(t *testing.T) {
	cause := errors.New("connection reset by peer")

	t.Run("masked", func(t *testing.T) {
		e := (&response.Responder{}).Internal(context.Background(), cause)

		assert.Contains(t, e.Message, "Unknown error occurred while processing your request. Error ID: ")
		assert.Contains(t, e.Message, e.Extra["errId"])
		assert.Equal(t, response.CodeInternal, e.Extensions()["code"])
		assert.ErrorIs(t, e, cause)
	})

	t.Run("debug mode", func(t *testing.T) {
		e := (&response.Responder{DebugMode: true}).Internal(context.Background(), cause)
		assert.Equal(t, "Connection reset by peer", e.Message)
	})
}

func TestRespondAndLogCustom(t *testing.T) {
	rr := &response.Responder{}

	t.Run("client error is shown", func(t *testing.T) {
		w := httptest.NewRecorder()
		rr.RespondAndLogCustom(w, context.Background(), &response.Error{
			Message: "Invalid token",
			Code:    response.CodeUnauthenticated,
		}, slog.LevelInfo, http.StatusUnauthorized)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

		b := decode(t, w)
		assert.Equal(t, "Invalid token", b.Errors[0].Message)
		assert.Equal(t, response.CodeUnauthenticated, b.Errors[0].Extensions["code"])
	})

	t.Run("plain error below 500 is a bad request", func(t *testing.T) {
		w := httptest.NewRecorder()
		rr.RespondAndLogCustom(w, context.Background(), errors.New("boom"), slog.LevelInfo, http.StatusBadRequest)

		b := decode(t, w)
		assert.Equal(t, response.CodeBadRequest, b.Errors[0].Extensions["code"])
		assert.NotContains(t, b.Errors[0].Message, "boom")
	})
}

func TestRespondAndLogError(t *testing.T) {
	w := httptest.NewRecorder()
	(&response.Responder{}).RespondAndLogError(w, context.Background(), errors.New("boom"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	b := decode(t, w)
	assert.Equal(t, response.CodeInternal, b.Errors[0].Extensions["code"])
	assert.NotEmpty(t, b.Errors[0].Extensions["errId"])
}
