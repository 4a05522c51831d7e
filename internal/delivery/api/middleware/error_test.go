package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	domainerrors "accounts/internal/domain/errors"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMiddleware_HandleHTTPError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantCode    string
		wantMessage string
		wantDetails any
		notInBody   string
	}{
		{
			name:        "wrapped app error",
			err:         errors.Wrap(domainerrors.ErrDuplicateEmail, "registration failed"),
			wantStatus:  http.StatusBadRequest,
			wantCode:    "DUPLICATE_EMAIL",
			wantMessage: "An account with this email already exists",
			notInBody:   "registration failed",
		},
		{
			name:        "validation details are exposed",
			err:         domainerrors.ErrValidationFailed.WithDetails("email is required"),
			wantStatus:  http.StatusBadRequest,
			wantCode:    "VALIDATION_FAILED",
			wantMessage: "Input validation failed",
			wantDetails: "email is required",
		},
		{
			name:        "not found",
			err:         errors.Wrap(domainerrors.ErrAccountNotFound, "get account failed"),
			wantStatus:  http.StatusNotFound,
			wantCode:    "ACCOUNT_NOT_FOUND",
			wantMessage: "Account not found",
		},
		{
			name:        "store failure hides the cause",
			err:         errors.WithStack(domainerrors.NewStoreError(errors.New("dial tcp 10.0.0.1:5432: refused"), "failed to list accounts")),
			wantStatus:  http.StatusServiceUnavailable,
			wantCode:    "STORE_UNAVAILABLE",
			wantMessage: "Service temporarily unavailable",
			notInBody:   "10.0.0.1",
		},
		{
			name:        "echo http error",
			err:         echo.NewHTTPError(http.StatusNotFound, "Not Found"),
			wantStatus:  http.StatusNotFound,
			wantCode:    "HTTP_ERROR",
			wantMessage: "Not Found",
		},
		{
			name:        "echo http error without string message",
			err:         &echo.HTTPError{Code: http.StatusMethodNotAllowed, Message: 42},
			wantStatus:  http.StatusMethodNotAllowed,
			wantCode:    "HTTP_ERROR",
			wantMessage: "Method Not Allowed",
		},
		{
			name:        "unknown error",
			err:         errors.New("secret internal detail"),
			wantStatus:  http.StatusInternalServerError,
			wantCode:    "INTERNAL_ERROR",
			wantMessage: "Internal server error, please try again later",
			notInBody:   "secret internal detail",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewErrorMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil)))

			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			m.HandleHTTPError(tt.err, c)

			assert.Equal(t, tt.wantStatus, rec.Code)
			errInfo := decodeError(t, rec.Body.Bytes())
			assert.Equal(t, tt.wantCode, errInfo.Code)
			assert.Equal(t, tt.wantMessage, errInfo.Message)
			assert.Equal(t, tt.wantDetails, errInfo.Details)
			if tt.notInBody != "" {
				assert.NotContains(t, rec.Body.String(), tt.notInBody)
			}
		})
	}
}

func TestErrorMiddleware_LogsServerErrors(t *testing.T) {
	var logs bytes.Buffer
	m := NewErrorMiddleware(slog.New(slog.NewJSONHandler(&logs, nil)))

	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/accounts", nil), httptest.NewRecorder())

	m.HandleHTTPError(domainerrors.NewStoreError(errors.New("connection reset"), "failed to list accounts"), c)

	assert.Contains(t, logs.String(), "STORE_UNAVAILABLE")
	assert.Contains(t, logs.String(), "connection reset")
}

func TestErrorMiddleware_CommittedResponse(t *testing.T) {
	m := NewErrorMiddleware(slog.New(slog.NewTextHandler(io.Discard, nil)))

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	_ = c.String(http.StatusOK, "done")

	m.HandleHTTPError(errors.New("late failure"), c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "done", rec.Body.String())
}
