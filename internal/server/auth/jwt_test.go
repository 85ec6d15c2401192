package auth

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIssueAndParse_Success(t *testing.T) {
	t.Parallel()

	now := time.Now().Truncate(time.Second)
	iss := NewIssuer(testSecret, 15*time.Minute, 720*time.Hour).WithClock(fixedClock(now))

	tok, issued, err := iss.IssueAccess(42)
	if err != nil {
		t.Fatalf("IssueAccess error: %v", err)
	}

	claims, err := iss.ParseAccess(tok)
	if err != nil {
		t.Fatalf("ParseAccess error: %v", err)
	}
	if claims.Sub != 42 {
		t.Fatalf("sub mismatch: got %d want 42", claims.Sub)
	}
	if claims.JTI == "" || claims.JTI != issued.JTI {
		t.Fatalf("jti mismatch: got %q want %q", claims.JTI, issued.JTI)
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt); got != 15*time.Minute {
		t.Fatalf("exp - iat = %v, want 15m", got)
	}
}

func TestIssueAccess_UniqueJTI(t *testing.T) {
	t.Parallel()

	iss := NewIssuer(testSecret, time.Minute, time.Hour)
	_, a, err := iss.IssueAccess(1)
	if err != nil {
		t.Fatal(err)
	}
	_, b, err := iss.IssueAccess(1)
	if err != nil {
		t.Fatal(err)
	}
	if a.JTI == b.JTI {
		t.Fatalf("two tokens issued in the same second share jti %q", a.JTI)
	}
}

func TestParseAccess_Expired(t *testing.T) {
	t.Parallel()

	issuedAt := time.Now().Add(-time.Hour)
	tok, _, err := NewIssuer(testSecret, 15*time.Minute, time.Hour).WithClock(fixedClock(issuedAt)).IssueAccess(1)
	if err != nil {
		t.Fatalf("IssueAccess error: %v", err)
	}

	_, err = NewIssuer(testSecret, 15*time.Minute, time.Hour).ParseAccess(tok)
	if err != common.ErrTokenExpired {
		t.Fatalf("expected common.ErrTokenExpired, got %v", err)
	}
}

func TestParseAccess_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, _, err := NewIssuer(testSecret, time.Hour, time.Hour).IssueAccess(2)
	if err != nil {
		t.Fatalf("IssueAccess error: %v", err)
	}

	_, err = NewIssuer([]byte("another-secret-another-secret-xx"), time.Hour, time.Hour).ParseAccess(tok)
	if err != common.ErrTokenInvalid {
		t.Fatalf("expected common.ErrTokenInvalid, got %v", err)
	}
}

func TestParseAccess_Malformed(t *testing.T) {
	t.Parallel()

	_, err := NewIssuer(testSecret, time.Hour, time.Hour).ParseAccess("not.a.jwt")
	if err != common.ErrTokenInvalid {
		t.Fatalf("expected common.ErrTokenInvalid, got %v", err)
	}
}

func TestParseAccess_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   "1",
		ID:        "x",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString(testSecret)
	if err != nil {
		t.Fatal(err)
	}
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	iss := NewIssuer(testSecret, time.Hour, time.Hour)
	for name, tok := range map[string]string{"HS512": hs512, "none": none} {
		if _, err := iss.ParseAccess(tok); err != common.ErrTokenInvalid {
			t.Fatalf("%s: expected common.ErrTokenInvalid, got %v", name, err)
		}
	}
}

func TestNewRefreshToken(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	iss := NewIssuer(testSecret, time.Minute, 720*time.Hour).WithClock(fixedClock(now))

	rt, err := iss.NewRefreshToken(7)
	if err != nil {
		t.Fatalf("NewRefreshToken error: %v", err)
	}
	if len(rt.Value) != 128 {
		t.Fatalf("refresh token length = %d, want 128", len(rt.Value))
	}
	if _, err := hex.DecodeString(rt.Value); err != nil {
		t.Fatalf("refresh token is not hex: %v", err)
	}
	if rt.UserID != 7 || !rt.ExpiresAt.Equal(now.Add(30*24*time.Hour)) {
		t.Fatalf("unexpected token: %+v", rt)
	}
}
