// Package services contains server-side business logic. This file implements
// UserService, which handles registration and login and mints JWTs for
// authenticated sessions.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mvasilyev/mediavault/internal/common"
	"github.com/mvasilyev/mediavault/internal/dbx"
	"github.com/mvasilyev/mediavault/internal/server/auth"
	"github.com/mvasilyev/mediavault/internal/server/models"
	"github.com/mvasilyev/mediavault/internal/server/repositories/repomanager"
)

// UserService provides authentication-related operations:
// - Register: create accounts and issue a first token
// - Login: verify credentials and mint tokens
type UserService struct {
	db     *sql.DB
	repos  repomanager.RepositoryManager
	hasher *auth.CredentialHasher
	tokens *auth.TokenService
}

// NewUserService constructs a UserService from its collaborators.
func NewUserService(db *sql.DB, repos repomanager.RepositoryManager, hasher *auth.CredentialHasher, tokens *auth.TokenService) *UserService {
	return &UserService{
		db:     db,
		repos:  repos,
		hasher: hasher,
		tokens: tokens,
	}
}

// Register creates a new account and returns a signed token plus the public
// account view. A taken email yields common.ErrEmailTaken and no second
// account row.
func (s *UserService) Register(ctx context.Context, username, email, password string) (string, *models.AccountView, error) {
	digest, err := s.hasher.Hash(password)
	if err != nil {
		return "", nil, fmt.Errorf("hashing password: %w", err)
	}

	account := &models.Account{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: digest,
	}

	var created *models.Account
	if err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Accounts(tx)

		if _, err := repo.GetByEmail(ctx, email); err == nil {
			return common.ErrEmailTaken
		} else if !errors.Is(err, common.ErrorNotFound) {
			return fmt.Errorf("checking email: %w", err)
		}

		// The unique constraint backstops the pre-check under concurrent
		// registration; the repository surfaces it as ErrEmailTaken.
		var createErr error
		created, createErr = repo.Create(ctx, account)
		if createErr != nil {
			if errors.Is(createErr, common.ErrEmailTaken) {
				return createErr
			}
			return fmt.Errorf("creating account: %w", createErr)
		}
		return nil
	}); err != nil {
		return "", nil, err
	}

	token, err := s.tokens.Issue(created.ID, created.Email, 0)
	if err != nil {
		return "", nil, common.ErrorInternal
	}

	return token, created.View(), nil
}

// Login verifies the credentials and, on success, returns a fresh token and
// the public account view. Unknown emails and wrong passwords are
// indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (string, *models.AccountView, error) {
	repo := s.repos.Accounts(s.db)

	account, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", nil, common.ErrorUnauthorized
		}
		return "", nil, common.ErrorInternal
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		return "", nil, common.ErrorUnauthorized
	}

	token, err := s.tokens.Issue(account.ID, account.Email, 0)
	if err != nil {
		return "", nil, common.ErrorInternal
	}

	return token, account.View(), nil
}

// GetAccount resolves an authenticated subject to its public account view.
// A subject whose account no longer exists is treated as unauthorized, not
// as a missing resource.
func (s *UserService) GetAccount(ctx context.Context, accountID string) (*models.AccountView, error) {
	repo := s.repos.Accounts(s.db)

	account, err := repo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	return account.View(), nil
}
