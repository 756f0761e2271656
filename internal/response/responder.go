package response

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeBadUserInput    = "BAD_USER_INPUT"
	CodeBadRequest      = "BAD_REQUEST"
	CodeInternal        = "INTERNAL_SERVER_ERROR"
)

// Error is an error whose message is safe to show to clients. graphql-go copies Extensions
// into the "extensions" member of the GraphQL error.
type Error struct {
	Message string
	Code    string
	Extra   map[string]any
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Extensions() map[string]any {
	ext := make(map[string]any, len(e.Extra)+1)
	for k, v := range e.Extra {
		ext[k] = v
	}
	ext["code"] = e.Code
	return ext
}

type Responder struct {
	DebugMode bool
}

// Internal logs err with a fresh error id and returns an Error suitable for GraphQL responses.
// The original message is only exposed in DebugMode.
func (rr *Responder) Internal(ctx context.Context, err error) *Error {
	errId := uuid.NewString()
	log(ctx, slog.LevelError, err.Error(), slog.String("err_id", errId))
	return rr.internal(err, errId)
}

// RespondAndLogError will respond with generic error code (500) and log with slog.LevelError level
func (rr *Responder) RespondAndLogError(w http.ResponseWriter, ctx context.Context, err error) {
	errId := uuid.NewString()
	log(ctx, slog.LevelError, err.Error(), slog.String("err_id", errId))
	rr.renderError(w, ctx, http.StatusInternalServerError, rr.internal(err, errId))
}

// RespondAndLogCustom responds with status. Messages of *Error values are sent as is,
// other errors are masked unless DebugMode is on.
func (rr *Responder) RespondAndLogCustom(w http.ResponseWriter, ctx context.Context, err error, lvl slog.Level, status int) {
	errId := uuid.NewString()

	var e *Error
	isClientError := errors.As(err, &e)

	msg := err.Error()
	if isClientError && e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	log(ctx, lvl, msg, slog.String("err_id", errId))

	if !isClientError {
		e = rr.internal(err, errId)
		if status < http.StatusInternalServerError {
			e.Code = CodeBadRequest
		}
	}

	rr.renderError(w, ctx, status, e)
}

func (rr *Responder) SendJson(w http.ResponseWriter, ctx context.Context, data any) {
	bs, err := json.Marshal(data)
	if err != nil {
		rr.RespondAndLogError(w, ctx, err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_, _ = io.Copy(w, bytes.NewReader(bs))
}

func (rr *Responder) internal(err error, errId string) *Error {
	var message string
	if rr.DebugMode {
		msg := err.Error()
		r, s := utf8.DecodeRuneInString(msg)
		message = string(unicode.ToUpper(r)) + msg[s:]
	} else {
		message = "Unknown error occurred while processing your request. Error ID: " + errId
	}

	return &Error{
		Message: message,
		Code:    CodeInternal,
		Extra:   map[string]any{"errId": errId},
		Err:     err,
	}
}

// renderError writes a GraphQL-shaped body: {"errors": [{"message": ..., "extensions": ...}]}
func (rr *Responder) renderError(w http.ResponseWriter, ctx context.Context, status int, e *Error) {
	type gqlError struct {
		Message    string         `json:"message"`
		Extensions map[string]any `json:"extensions,omitempty"`
	}

	bs, err := json.Marshal(struct {
		Errors []gqlError `json:"errors"`
	}{
		Errors: []gqlError{{Message: e.Message, Extensions: e.Extensions()}},
	})
	if err == nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	} else {
		log(ctx, slog.LevelError, "cannot marshall error response body: "+err.Error())
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		bs = []byte("unknown error")
	}

	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = io.Copy(w, bytes.NewReader(bs))
}

// Needed because it skips one more frame item than the slog.Log
func log(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	l := slog.Default()

	if !l.Enabled(ctx, level) {
		return
	}

	var pc uintptr
	var pcs [1]uintptr
	// skip [runtime.Callers, this function, this function's caller]
	runtime.Callers(3, pcs[:])
	pc = pcs[0]

	r := slog.NewRecord(time.Now(), level, msg, pc)
	r.AddAttrs(attrs...)
	_ = l.Handler().Handle(ctx, r)
}
