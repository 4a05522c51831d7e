package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apimiddleware "accounts/internal/delivery/api/middleware"
	"accounts/internal/delivery/api/validator"
	deliverycontext "accounts/internal/delivery/context"
	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"
	mockUsecase "accounts/internal/mocks/usecase"
	"accounts/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details any    `json:"details"`
	} `json:"error"`
	Meta struct {
		RequestID string `json:"request_id"`
	} `json:"meta"`
}

type handlerFixtures struct {
	echo      *echo.Echo
	handler   *AccountHandler
	accountUC *mockUsecase.MockAccountUsecase
}

func createTestHandler(t *testing.T) handlerFixtures {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	accountUC := mockUsecase.NewMockAccountUsecase(t)

	e := echo.New()
	e.Validator = validator.New()
	e.HTTPErrorHandler = apimiddleware.NewErrorMiddleware(logger).HandleHTTPError

	return handlerFixtures{
		echo:      e,
		handler:   NewAccountHandler(AccountHandlerParams{AccountUC: accountUC, Logger: logger}),
		accountUC: accountUC,
	}
}

func (f handlerFixtures) serve(t *testing.T, method, target, body string, h echo.HandlerFunc, path string, mws ...echo.MiddlewareFunc) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	f.echo.Add(method, path, h, mws...)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()

	f.echo.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())

	return rec, env
}

func withAccount(id uuid.UUID) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			deliverycontext.SetAccountID(c, id)

			return next(c)
		}
	}
}

func TestHealthCheck(t *testing.T) {
	f := createTestHandler(t)

	rec, env := f.serve(t, http.MethodGet, "/health", "", HealthCheck, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))
	assert.NotEmpty(t, env.Meta.RequestID)
}

func TestAccountHandler_Register(t *testing.T) {
	f := createTestHandler(t)

	created := &entity.Account{
		ID:          uuid.New(),
		FirstName:   "Ada",
		Email:       "a@x.com",
		PhoneNumber: "555-0100",
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	f.accountUC.EXPECT().
		Register(mock.Anything, &usecase.RegisterInput{FirstName: "Ada", Email: "a@x.com", Password: "secret123", PhoneNumber: "555-0100"}).
		Return(&usecase.RegisterOutput{Account: created}, nil)

	body := `{"first_name":"Ada","email":"a@x.com","password":"secret123","phone_number":"555-0100"}`
	rec, env := f.serve(t, http.MethodPost, "/auth/register", body, f.handler.Register, "/auth/register")

	assert.Equal(t, http.StatusCreated, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, created.ID.String(), got["id"])
	assert.Equal(t, "a@x.com", got["email"])
	assert.NotContains(t, got, "password")
	assert.NotContains(t, got, "password_hash")
	assert.NotContains(t, rec.Body.String(), "secret123")
}

func TestAccountHandler_Register_ValidationFailure(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		detail string
	}{
		{name: "missing email", body: `{"password":"secret123"}`, detail: "email is required"},
		{name: "invalid email", body: `{"email":"nope","password":"secret123"}`, detail: "email must be a valid email address"},
		{name: "short password", body: `{"email":"a@x.com","password":"short"}`, detail: "password must be at least 8 characters"},
		{name: "multibyte password over 72 bytes", body: `{"email":"a@x.com","password":"` + strings.Repeat("密", 30) + `"}`, detail: "password must be at most 72 bytes"},
		{name: "password too long", body: `{"email":"a@x.com","password":"` + strings.Repeat("p", 73) + `"}`, detail: "password must be at most 72 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := createTestHandler(t)

			rec, env := f.serve(t, http.MethodPost, "/auth/register", tt.body, f.handler.Register, "/auth/register")

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
			assert.Contains(t, env.Error.Details, tt.detail)
			f.accountUC.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
		})
	}
}

func TestAccountHandler_Register_MalformedBody(t *testing.T) {
	f := createTestHandler(t)

	rec, env := f.serve(t, http.MethodPost, "/auth/register", `{"email":`, f.handler.Register, "/auth/register")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)
}

func TestAccountHandler_Register_DuplicateEmail(t *testing.T) {
	f := createTestHandler(t)

	f.accountUC.EXPECT().Register(mock.Anything, mock.Anything).
		Return(nil, errors.Wrap(domainerrors.ErrDuplicateEmail, "registration failed"))

	rec, env := f.serve(t, http.MethodPost, "/auth/register", `{"email":"a@x.com","password":"secret123"}`, f.handler.Register, "/auth/register")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "DUPLICATE_EMAIL", env.Error.Code)
}

func TestAccountHandler_Login(t *testing.T) {
	f := createTestHandler(t)

	f.accountUC.EXPECT().Login(mock.Anything, &usecase.LoginInput{Email: "a@x.com", Password: "secret123"}).
		Return(&usecase.LoginOutput{AccessToken: "signed.jwt.token", ExpiresIn: time.Hour}, nil)

	rec, env := f.serve(t, http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"secret123"}`, f.handler.Login, "/auth/login")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"token":"signed.jwt.token","expires_in":3600}`, string(env.Data))
}

func TestAccountHandler_Login_InvalidCredentials(t *testing.T) {
	f := createTestHandler(t)

	f.accountUC.EXPECT().Login(mock.Anything, mock.Anything).
		Return(nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed"))

	rec, env := f.serve(t, http.MethodPost, "/auth/login", `{"email":"a@x.com","password":"wrong-password"}`, f.handler.Login, "/auth/login")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)
	assert.Nil(t, env.Error.Details)
}

func TestAccountHandler_ListAccounts(t *testing.T) {
	f := createTestHandler(t)

	f.accountUC.EXPECT().ListAccounts(mock.Anything).Return([]*entity.Account{
		{ID: uuid.New(), Email: "a@x.com"},
		{ID: uuid.New(), Email: "b@x.com"},
	}, nil)

	rec, env := f.serve(t, http.MethodGet, "/accounts", "", f.handler.ListAccounts, "/accounts")

	assert.Equal(t, http.StatusOK, rec.Code)

	var items []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &items))
	require.Len(t, items, 2)
	for _, item := range items {
		assert.NotContains(t, item, "password")
		assert.NotContains(t, item, "password_hash")
	}
}

func TestAccountHandler_ListAccounts_Empty(t *testing.T) {
	f := createTestHandler(t)

	f.accountUC.EXPECT().ListAccounts(mock.Anything).Return([]*entity.Account{}, nil)

	rec, env := f.serve(t, http.MethodGet, "/accounts", "", f.handler.ListAccounts, "/accounts")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestAccountHandler_GetAccount(t *testing.T) {
	id := uuid.New()

	t.Run("found", func(t *testing.T) {
		f := createTestHandler(t)
		f.accountUC.EXPECT().GetAccount(mock.Anything, id).Return(&entity.Account{ID: id, Email: "a@x.com"}, nil)

		rec, env := f.serve(t, http.MethodGet, "/accounts/"+id.String(), "", f.handler.GetAccount, "/accounts/:id")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, string(env.Data), id.String())
	})

	t.Run("not found", func(t *testing.T) {
		f := createTestHandler(t)
		f.accountUC.EXPECT().GetAccount(mock.Anything, id).
			Return(nil, errors.Wrap(domainerrors.ErrAccountNotFound, "get account failed"))

		rec, env := f.serve(t, http.MethodGet, "/accounts/"+id.String(), "", f.handler.GetAccount, "/accounts/:id")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "ACCOUNT_NOT_FOUND", env.Error.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		f := createTestHandler(t)

		rec, env := f.serve(t, http.MethodGet, "/accounts/not-a-uuid", "", f.handler.GetAccount, "/accounts/:id")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "INVALID_ACCOUNT_ID", env.Error.Code)
	})
}

func TestAccountHandler_GetCurrentAccount(t *testing.T) {
	id := uuid.New()

	t.Run("authenticated", func(t *testing.T) {
		f := createTestHandler(t)
		f.accountUC.EXPECT().
			GetAccount(mock.Anything, id).
			Return(&entity.Account{ID: id, Email: "me@x.com"}, nil)

		rec, env := f.serve(t, http.MethodGet, "/accounts/me", "", f.handler.GetCurrentAccount, "/accounts/me", withAccount(id))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, string(env.Data), "me@x.com")
	})

	t.Run("missing account id", func(t *testing.T) {
		f := createTestHandler(t)

		rec, env := f.serve(t, http.MethodGet, "/accounts/me", "", f.handler.GetCurrentAccount, "/accounts/me")

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "NO_TOKEN", env.Error.Code)
	})
}
