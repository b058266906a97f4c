package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/clipstream/backend/internal/models"
)

var (
	// ErrSessionNotFound indicates the presented refresh token does not match
	// any user's persisted token.
	ErrSessionNotFound = errors.New("session not found")
	// ErrRefreshTokenExpired indicates the refresh token has expired and
	// cannot be used.
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	// ErrInvalidAccessToken indicates the access token failed signature or
	// claim validation.
	ErrInvalidAccessToken = errors.New("invalid access token")
)

// Principal identifies the authenticated caller of a protected endpoint.
type Principal struct {
	UserID   string
	Username string
}

// RefreshStore persists the current refresh token hash on the user record so
// a presented token can be checked against it. Replacing the hash supersedes
// previously issued refresh tokens.
type RefreshStore interface {
	SaveRefreshToken(ctx context.Context, userID, tokenHash string, expiresAt time.Time) error
	FindByRefreshTokenHash(ctx context.Context, tokenHash string) (models.User, error)
	ClearRefreshToken(ctx context.Context, userID string) error
}

// Manager issues HS256-signed access tokens and opaque rotating refresh
// tokens backed by a persistent store.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	store      RefreshStore
	now        func() time.Time
}

// NewManager constructs a Manager signing access tokens with the provided
// secret and issuing refresh tokens with the provided TTLs.
func NewManager(secret string, accessTTL, refreshTTL time.Duration, store RefreshStore) *Manager {
	if store == nil {
		panic("auth: refresh store must not be nil")
	}
	if secret == "" {
		panic("auth: signing secret must not be empty")
	}
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		store:      store,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithNowFunc overrides the time source. Useful for tests.
func (m *Manager) WithNowFunc(now func() time.Time) *Manager {
	m.now = now
	return m
}

// Issue creates a new token pair for the user and persists the refresh token
// hash, superseding any previously issued refresh token.
func (m *Manager) Issue(ctx context.Context, user models.User) (models.SessionTokens, error) {
	if user.ID == "" {
		return models.SessionTokens{}, errors.New("user id must be provided")
	}

	now := m.now()
	accessExpires := now.Add(m.accessTTL)

	claims := jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"iat":      now.Unix(),
		"exp":      accessExpires.Unix(),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, err := NewOpaqueToken()
	if err != nil {
		return models.SessionTokens{}, err
	}
	refreshExpires := now.Add(m.refreshTTL)

	if err := m.store.SaveRefreshToken(ctx, user.ID, HashToken(refreshToken), refreshExpires); err != nil {
		return models.SessionTokens{}, err
	}

	return models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExpires,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExpires,
	}, nil
}

// Refresh exchanges a refresh token for a new token pair. A token that no
// longer matches the persisted hash (because a newer pair superseded it) is
// rejected, which prevents replay of rotated-out tokens.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	if refreshToken == "" {
		return models.SessionTokens{}, ErrSessionNotFound
	}

	user, err := m.store.FindByRefreshTokenHash(ctx, HashToken(refreshToken))
	if err != nil {
		return models.SessionTokens{}, err
	}

	if m.now().After(user.RefreshExpiresAt) {
		_ = m.store.ClearRefreshToken(ctx, user.ID)
		return models.SessionTokens{}, ErrRefreshTokenExpired
	}

	return m.Issue(ctx, user)
}

// Revoke clears the persisted refresh token for the user.
func (m *Manager) Revoke(ctx context.Context, userID string) {
	if userID == "" {
		return
	}
	_ = m.store.ClearRefreshToken(ctx, userID)
}

// Verify validates an access token's signature and expiry and returns the
// embedded principal.
func (m *Manager) Verify(accessToken string) (Principal, error) {
	token, err := jwt.Parse(accessToken, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return Principal{}, ErrInvalidAccessToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, ErrInvalidAccessToken
	}

	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Principal{}, ErrInvalidAccessToken
	}
	username, _ := claims["username"].(string)

	return Principal{UserID: sub, Username: username}, nil
}

// HashToken returns the hex-encoded SHA-256 digest of an opaque token. Only
// hashes are persisted so a leaked database row cannot be replayed.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// NewOpaqueToken returns a URL-safe random token suitable for refresh and
// password-reset flows.
func NewOpaqueToken() (string, error) {
	const size = 32
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
