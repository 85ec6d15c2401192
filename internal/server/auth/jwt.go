package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const refreshTokenBytes = 64

// Issuer mints and verifies HS256 access tokens and generates opaque
// refresh tokens.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewIssuer(secret []byte, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{secret: secret, accessTTL: accessTTL, refreshTTL: refreshTTL, now: time.Now}
}

// WithClock returns a copy of the issuer that reads time from now.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	c := *i
	c.now = now
	return &c
}

func (i *Issuer) Now() time.Time {
	return i.now()
}

// IssueAccess signs {sub, iat, exp, jti} for userID.
func (i *Issuer) IssueAccess(userID int64) (string, *models.AccessClaims, error) {
	now := i.now()
	claims := &models.AccessClaims{
		Sub:       userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(i.accessTTL),
		JTI:       uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		ID:        claims.JTI,
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign access token: %w", err)
	}
	return signed, claims, nil
}

// ParseAccess verifies the signing method, signature and expiry of raw.
// An expired token yields common.ErrTokenExpired; every other failure is
// common.ErrTokenInvalid.
func (i *Issuer) ParseAccess(raw string) (*models.AccessClaims, error) {
	rc := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, rc, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrTokenInvalid
	}

	sub, err := strconv.ParseInt(rc.Subject, 10, 64)
	if err != nil || rc.ID == "" || rc.IssuedAt == nil {
		return nil, common.ErrTokenInvalid
	}

	return &models.AccessClaims{
		Sub:       sub,
		IssuedAt:  rc.IssuedAt.Time,
		ExpiresAt: rc.ExpiresAt.Time,
		JTI:       rc.ID,
	}, nil
}

// NewRefreshToken returns an unsaved refresh token for userID: 64 random
// bytes hex-encoded, valid for the configured refresh TTL.
func (i *Issuer) NewRefreshToken(userID int64) (*models.RefreshToken, error) {
	value, err := common.MakeRandHexString(refreshTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	return &models.RefreshToken{
		UserID:    userID,
		Value:     value,
		ExpiresAt: i.now().Add(i.refreshTTL),
	}, nil
}
