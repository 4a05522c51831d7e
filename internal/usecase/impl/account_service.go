// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"sync"

	deliverycontext "accounts/internal/delivery/context"
	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/repository"
	"accounts/internal/domain/service"
	"accounts/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// Reasons recorded in logs for a rejected login. Callers only ever see ErrInvalidCredentials.
const (
	loginFailureUnknownEmail  = "unknown_email"
	loginFailureWrongPassword = "wrong_password"
)

// timingEqualizerPassword is hashed once and compared against on unknown-email logins,
// so both rejection paths pay for one bcrypt comparison.
const timingEqualizerPassword = "account-service-timing-equalizer"

// accountService implements the AccountUsecase interface.
type accountService struct {
	accountRepo  repository.AccountRepository
	hasher       service.PasswordHasher
	tokenService service.TokenService
	logger       *slog.Logger

	equalizerOnce sync.Once
	equalizerHash string
}

// AccountServiceParams holds dependencies for AccountService, injected by Fx.
type AccountServiceParams struct {
	fx.In

	AccountRepo  repository.AccountRepository
	Hasher       service.PasswordHasher
	TokenService service.TokenService
	Logger       *slog.Logger
}

// NewAccountService is the constructor for accountService. It receives all dependencies as interfaces.
func NewAccountService(params AccountServiceParams) usecase.AccountUsecase {
	return &accountService{
		accountRepo:  params.AccountRepo,
		hasher:       params.Hasher,
		tokenService: params.TokenService,
		logger:       params.Logger,
	}
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *accountService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Register creates a new account after checking the email is free.
// The lookup is only a fast path: the store's unique index decides races and
// reports them as ErrDuplicateEmail too.
func (srv *accountService) Register(ctx context.Context, input *usecase.RegisterInput) (*usecase.RegisterOutput, error) {
	email := entity.NormalizeEmail(input.Email)
	srv.log(ctx).Info("Starting registration", slog.String("email", email))

	_, err := srv.accountRepo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		srv.log(ctx).Warn("Registration rejected, email already registered", slog.String("email", email))

		return nil, errors.Wrap(domainerrors.ErrDuplicateEmail, "registration failed")
	case !errors.Is(err, repository.ErrAccountNotFound):
		return nil, errors.Wrap(err, "failed to check existing account")
	}

	hashedPassword, err := srv.hasher.Hash(input.Password)
	if err != nil {
		srv.log(ctx).Error("Failed to hash password during registration", slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrPasswordHashFailed, err.Error())
	}

	account := &entity.Account{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        email,
		PasswordHash: hashedPassword,
		PhoneNumber:  input.PhoneNumber,
	}

	if err := srv.accountRepo.Create(ctx, account); err != nil {
		if errors.Is(err, domainerrors.ErrDuplicateEmail) {
			srv.log(ctx).Warn("Registration lost a concurrent race for email", slog.String("email", email))
		}

		return nil, errors.Wrap(err, "failed to create account during registration")
	}

	srv.log(ctx).Debug("Registration completed", slog.Any("accountID", account.ID))

	return &usecase.RegisterOutput{Account: account.WithoutCredentials()}, nil
}

// Login verifies the credentials and issues an access token.
func (srv *accountService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.LoginOutput, error) {
	email := entity.NormalizeEmail(input.Email)
	srv.log(ctx).Debug("Starting login", slog.String("email", email))

	account, err := srv.accountRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			srv.hasher.Check(input.Password, srv.timingEqualizerHash(ctx))

			return nil, srv.rejectLogin(ctx, email, loginFailureUnknownEmail)
		}

		return nil, errors.Wrap(err, "failed to load account for login")
	}

	// bcrypt compare is the expensive step and runs outside any store call.
	if !srv.hasher.Check(input.Password, account.PasswordHash) {
		return nil, srv.rejectLogin(ctx, email, loginFailureWrongPassword)
	}

	accessToken, err := srv.tokenService.Issue(account.ID)
	if err != nil {
		srv.log(ctx).Error("Failed to issue token", slog.Any("accountID", account.ID), slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrTokenIssueFailed, err.Error())
	}

	srv.log(ctx).Debug("Login succeeded", slog.Any("accountID", account.ID))

	return &usecase.LoginOutput{
		AccessToken: accessToken,
		ExpiresIn:   srv.tokenService.TTL(),
	}, nil
}

// timingEqualizerHash returns a hash made with the configured hasher, computed on first use.
func (srv *accountService) timingEqualizerHash(ctx context.Context) string {
	srv.equalizerOnce.Do(func() {
		hash, err := srv.hasher.Hash(timingEqualizerPassword)
		if err != nil {
			srv.log(ctx).Error("Failed to prepare login timing hash", slog.Any("error", err))

			return
		}
		srv.equalizerHash = hash
	})

	return srv.equalizerHash
}

// rejectLogin logs the internal reason and returns the single error callers are allowed to see.
func (srv *accountService) rejectLogin(ctx context.Context, email, reason string) error {
	srv.log(ctx).Warn("Login failed", slog.String("email", email), slog.String("reason", reason))

	return errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
}

// ListAccounts returns every account with password hashes removed.
func (srv *accountService) ListAccounts(ctx context.Context) ([]*entity.Account, error) {
	accounts, err := srv.accountRepo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list accounts")
	}

	stripped := make([]*entity.Account, 0, len(accounts))
	for _, account := range accounts {
		stripped = append(stripped, account.WithoutCredentials())
	}

	return stripped, nil
}

// GetAccount returns a single account with its password hash removed.
func (srv *accountService) GetAccount(ctx context.Context, id uuid.UUID) (*entity.Account, error) {
	account, err := srv.accountRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return nil, errors.Wrap(domainerrors.ErrAccountNotFound, "get account failed")
		}

		return nil, errors.Wrap(err, "failed to find account")
	}

	return account.WithoutCredentials(), nil
}
