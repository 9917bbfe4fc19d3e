package livekit

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/ThatGuyChandan/livekit-warm-transfer/internal/platform/errors"
)

// DefaultTokenTTL is the lifetime of issued access tokens when the
// configuration does not override it.
const DefaultTokenTTL = 6 * time.Hour

// videoGrant mirrors the LiveKit video grant claim. Room-scoped join grants
// and server API grants share the same claim shape.
type videoGrant struct {
	Room         string `json:"room,omitempty"`
	RoomJoin     bool   `json:"roomJoin,omitempty"`
	RoomCreate   bool   `json:"roomCreate,omitempty"`
	RoomAdmin    bool   `json:"roomAdmin,omitempty"`
	CanPublish   *bool  `json:"canPublish,omitempty"`
	CanSubscribe *bool  `json:"canSubscribe,omitempty"`
}

// accessClaims is the JWT claim set for LiveKit access tokens.
type accessClaims struct {
	jwt.RegisteredClaims
	Name  string     `json:"name,omitempty"`
	Video videoGrant `json:"video"`
}

// TokenConfig defines how access tokens are signed.
type TokenConfig struct {
	APIKey    string
	APISecret string
	TTL       time.Duration
	Now       func() time.Time
}

// TokenIssuer mints signed, time-scoped access tokens binding one identity
// to one room. Tokens are stateless; every call produces a fresh token with
// a new expiry.
type TokenIssuer struct {
	apiKey    string
	apiSecret string
	ttl       time.Duration
	now       func() time.Time
}

// NewTokenIssuer validates the signing configuration and returns an issuer.
func NewTokenIssuer(cfg TokenConfig) (*TokenIssuer, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	apiSecret := strings.TrimSpace(cfg.APISecret)
	if apiKey == "" {
		return nil, errors.New("livekit api key is required")
	}
	if apiSecret == "" {
		return nil, errors.New("livekit api secret is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &TokenIssuer{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		ttl:       ttl,
		now:       now,
	}, nil
}

// Issue mints a join token authorizing identity to join room with publish
// and subscribe capabilities.
func (i *TokenIssuer) Issue(room, identity string) (string, error) {
	room = strings.TrimSpace(room)
	identity = strings.TrimSpace(identity)
	if room == "" {
		return "", apperrors.New(apperrors.CodeInvalidArgument, "room is required")
	}
	if identity == "" {
		return "", apperrors.New(apperrors.CodeInvalidArgument, "identity is required")
	}

	canPublish := true
	canSubscribe := true
	return i.sign(identity, videoGrant{
		Room:         room,
		RoomJoin:     true,
		CanPublish:   &canPublish,
		CanSubscribe: &canSubscribe,
	})
}

// IssueAdmin mints a server API token scoped to room administration. When
// room is empty the token covers room creation only.
func (i *TokenIssuer) IssueAdmin(room string) (string, error) {
	return i.sign("", videoGrant{
		Room:       strings.TrimSpace(room),
		RoomCreate: true,
		RoomAdmin:  true,
	})
}

func (i *TokenIssuer) sign(identity string, grant videoGrant) (string, error) {
	issuedAt := i.now().UTC()
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.apiKey,
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(i.ttl)),
		},
		Video: grant,
	}
	if identity != "" {
		claims.Subject = identity
		claims.Name = identity
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.apiSecret))
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeGrantSigningFailed, fmt.Sprintf("sign access token for %q", identity), err)
	}
	return token, nil
}
