package livekit

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/ThatGuyChandan/livekit-warm-transfer/internal/platform/errors"
)

func newTestIssuer(t *testing.T) *TokenIssuer {
	t.Helper()
	issuer, err := NewTokenIssuer(TokenConfig{
		APIKey:    "api-key",
		APISecret: "api-secret",
		TTL:       time.Hour,
		Now:       func() time.Time { return time.Unix(1700000000, 0) },
	})
	if err != nil {
		t.Fatalf("new token issuer: %v", err)
	}
	return issuer
}

func parseTestToken(t *testing.T, token string) accessClaims {
	t.Helper()
	var claims accessClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte("api-secret"), nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(func() time.Time { return time.Unix(1700000000, 0) }),
	)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if !parsed.Valid {
		t.Fatal("expected valid token")
	}
	return claims
}

func TestNewTokenIssuerRequiresCredentials(t *testing.T) {
	if _, err := NewTokenIssuer(TokenConfig{APISecret: "s"}); err == nil {
		t.Fatal("expected error for missing api key")
	}
	if _, err := NewTokenIssuer(TokenConfig{APIKey: "k"}); err == nil {
		t.Fatal("expected error for missing api secret")
	}
}

func TestIssueJoinToken(t *testing.T) {
	issuer := newTestIssuer(t)

	token, err := issuer.Issue("room-1", "caller1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims := parseTestToken(t, token)
	if claims.Issuer != "api-key" {
		t.Fatalf("iss = %q, want %q", claims.Issuer, "api-key")
	}
	if claims.Subject != "caller1" {
		t.Fatalf("sub = %q, want %q", claims.Subject, "caller1")
	}
	if claims.Name != "caller1" {
		t.Fatalf("name = %q, want %q", claims.Name, "caller1")
	}
	if claims.Video.Room != "room-1" {
		t.Fatalf("video.room = %q, want %q", claims.Video.Room, "room-1")
	}
	if !claims.Video.RoomJoin {
		t.Fatal("expected roomJoin grant")
	}
	if claims.Video.CanPublish == nil || !*claims.Video.CanPublish {
		t.Fatal("expected canPublish grant")
	}
	if claims.Video.CanSubscribe == nil || !*claims.Video.CanSubscribe {
		t.Fatal("expected canSubscribe grant")
	}
	if claims.Video.RoomCreate || claims.Video.RoomAdmin {
		t.Fatal("join token must not carry admin grants")
	}

	ttl := claims.ExpiresAt.Time.Sub(claims.NotBefore.Time)
	if ttl != time.Hour {
		t.Fatalf("token ttl = %v, want %v", ttl, time.Hour)
	}
}

func TestIssueRejectsEmptyInputs(t *testing.T) {
	issuer := newTestIssuer(t)

	if _, err := issuer.Issue("", "caller1"); !errors.Is(err, apperrors.New(apperrors.CodeInvalidArgument, "")) {
		t.Fatalf("expected invalid argument for empty room, got %v", err)
	}
	if _, err := issuer.Issue("room-1", "  "); !errors.Is(err, apperrors.New(apperrors.CodeInvalidArgument, "")) {
		t.Fatalf("expected invalid argument for empty identity, got %v", err)
	}
}

func TestIssueAdminToken(t *testing.T) {
	issuer := newTestIssuer(t)

	token, err := issuer.IssueAdmin("room-1")
	if err != nil {
		t.Fatalf("issue admin: %v", err)
	}

	claims := parseTestToken(t, token)
	if claims.Subject != "" {
		t.Fatalf("sub = %q, want empty", claims.Subject)
	}
	if !claims.Video.RoomCreate || !claims.Video.RoomAdmin {
		t.Fatal("expected roomCreate and roomAdmin grants")
	}
	if claims.Video.Room != "room-1" {
		t.Fatalf("video.room = %q, want %q", claims.Video.Room, "room-1")
	}
	if claims.Video.RoomJoin {
		t.Fatal("admin token must not carry a join grant")
	}
}

func TestIssueEmbedsFreshExpiry(t *testing.T) {
	current := time.Unix(1700000000, 0)
	issuer, err := NewTokenIssuer(TokenConfig{
		APIKey:    "api-key",
		APISecret: "api-secret",
		TTL:       time.Hour,
		Now:       func() time.Time { return current },
	})
	if err != nil {
		t.Fatalf("new token issuer: %v", err)
	}

	first, err := issuer.Issue("room-1", "caller1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	current = current.Add(time.Minute)
	second, err := issuer.Issue("room-1", "caller1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if first == second {
		t.Fatal("expected tokens issued at different times to differ")
	}
}
