// Package services contains server-side business logic. SessionService
// drives the credential lifecycle: registration, login, refresh-token
// rotation, logout and access-token validation.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/logging"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/credentials"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
)

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) bool
}

type TokenIssuer interface {
	Now() time.Time
	IssueAccess(userID int64) (string, *models.AccessClaims, error)
	ParseAccess(raw string) (*models.AccessClaims, error)
	NewRefreshToken(userID int64) (*models.RefreshToken, error)
}

type RevocationList interface {
	Revoke(ctx context.Context, jti string, exp time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// SessionService holds no per-session state; everything lives in the
// credential store and the revocation list.
type SessionService struct {
	store    credentials.Store
	hasher   PasswordHasher
	issuer   TokenIssuer
	denylist RevocationList
	log      logging.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewSessionService(store credentials.Store, hasher PasswordHasher, issuer TokenIssuer, denylist RevocationList, log logging.Logger) *SessionService {
	return &SessionService{
		store:    store,
		hasher:   hasher,
		issuer:   issuer,
		denylist: denylist,
		log:      log.With("module", "session"),
	}
}

// Register creates a user. An email collision is reported before a
// username collision.
func (s *SessionService) Register(ctx context.Context, req RegisterRequest) (*models.UserPublicView, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	existing, err := s.store.FindUserByUsernameOrEmail(ctx, req.UserName, req.Email)
	switch {
	case err == nil:
		if existing.Email == req.Email {
			return nil, common.ErrDuplicateEmail
		}
		return nil, common.ErrDuplicateUsername
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	u, err := s.store.CreateUser(ctx, &models.User{UserName: req.UserName, Email: req.Email, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateEmail) || errors.Is(err, common.ErrDuplicateUsername) {
			return nil, err
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.log.Info(ctx, "user registered", "user_id", u.ID)
	return u.Public(), nil
}

// Login returns common.ErrInvalidCredentials both for an unknown email and
// for a wrong password.
func (s *SessionService) Login(ctx context.Context, req LoginRequest) (*models.TokenPair, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.FindUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// keep timing close to the wrong-password path
			s.hasher.Verify(s.dummy(), req.Password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if !s.hasher.Verify(user.PasswordHash, req.Password) {
		s.log.Warn(ctx, "login failed", "user_id", user.ID)
		return nil, common.ErrInvalidCredentials
	}

	access, _, err := s.issuer.IssueAccess(user.ID)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issuer.NewRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateRefreshToken(ctx, refresh); err != nil {
		return nil, fmt.Errorf("error saving refresh token: %w", err)
	}

	s.log.Info(ctx, "user logged in", "user_id", user.ID)
	return &models.TokenPair{AccessToken: access, RefreshToken: refresh.Value}, nil
}

// Refresh consumes value and returns a new pair for the same user. The
// lookup, expiry check, delete and successor insert happen atomically in
// the store, so a value can be redeemed at most once.
func (s *SessionService) Refresh(ctx context.Context, value string) (*models.TokenPair, error) {
	if err := Validate(RefreshRequest{RefreshToken: value}); err != nil {
		return nil, err
	}

	next, err := s.issuer.NewRefreshToken(0)
	if err != nil {
		return nil, err
	}

	consumed, err := s.store.RotateRefreshToken(ctx, value, s.issuer.Now(), next)
	if err != nil {
		return nil, err
	}

	access, _, err := s.issuer.IssueAccess(consumed.UserID)
	if err != nil {
		return nil, err
	}

	s.log.Debug(ctx, "refresh token rotated", "user_id", consumed.UserID)
	return &models.TokenPair{AccessToken: access, RefreshToken: next.Value}, nil
}

// Logout with all set deletes every refresh token of claims.Sub and leaves
// outstanding access tokens to expire. Otherwise it deletes value and
// denylists the presenting access token until its expiry.
func (s *SessionService) Logout(ctx context.Context, claims *models.AccessClaims, value string, all bool) error {
	if claims == nil {
		return common.ErrorUnauthorized
	}

	if all {
		n, err := s.store.DeleteUserRefreshTokens(ctx, claims.Sub)
		if err != nil {
			return fmt.Errorf("error deleting refresh tokens: %w", err)
		}
		s.log.Info(ctx, "logged out everywhere", "user_id", claims.Sub, "tokens", n)
		return nil
	}

	if err := Validate(RefreshRequest{RefreshToken: value}); err != nil {
		return err
	}
	if err := s.store.DeleteRefreshToken(ctx, claims.Sub, value); err != nil {
		return fmt.Errorf("error deleting refresh token: %w", err)
	}
	if err := s.denylist.Revoke(ctx, claims.JTI, claims.ExpiresAt); err != nil {
		return err
	}

	s.log.Info(ctx, "logged out", "user_id", claims.Sub)
	return nil
}

// ValidateToken verifies raw and checks the denylist.
func (s *SessionService) ValidateToken(ctx context.Context, raw string) (*models.AccessClaims, error) {
	claims, err := s.issuer.ParseAccess(raw)
	if err != nil {
		return nil, err
	}

	revoked, err := s.denylist.IsRevoked(ctx, claims.JTI)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, common.ErrTokenRevoked
	}
	return claims, nil
}

func (s *SessionService) Profile(ctx context.Context, userID int64) (*models.UserPublicView, error) {
	u, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.Public(), nil
}

func (s *SessionService) dummy() string {
	s.dummyOnce.Do(func() {
		plain, err := common.MakeRandHexString(16)
		if err != nil {
			return
		}
		if h, err := s.hasher.Hash(plain); err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}
