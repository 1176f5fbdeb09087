package auth

import (
	"context"

	"videohub/internal/domain"
	"videohub/internal/pkg/jwt"
)

// UserStore is the part of the user directory the session lifecycle needs.
type UserStore interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// SessionStore holds the single current refresh token per user.
type SessionStore interface {
	SetRefreshToken(ctx context.Context, userID, token string) error
	ClearRefreshToken(ctx context.Context, userID string) error
	GetRefreshToken(ctx context.Context, userID string) (string, bool, error)
	CompareAndSwapRefreshToken(ctx context.Context, userID, expected, next string) (bool, error)
	ListStoredSessions(ctx context.Context) ([]domain.StoredSession, error)
}

type TokenIssuer interface {
	IssueAccessToken(id jwt.Identity) (string, error)
	IssueRefreshToken(userID string) (string, error)
	ParseAccessToken(raw string) (*jwt.AccessClaims, error)
	ParseRefreshToken(raw string) (*jwt.RefreshClaims, error)
}

// MediaUploader turns a staged local file into a durable URL.
type MediaUploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
	Discard(paths ...string)
}

// LoginLimiter throttles repeated failed logins per identifier. Limiter
// outages must not block logins, so none of the methods return errors.
type LoginLimiter interface {
	Blocked(ctx context.Context, key string) bool
	RecordFailure(ctx context.Context, key string)
	Reset(ctx context.Context, key string)
}

// EventRecorder counts session lifecycle outcomes.
type EventRecorder interface {
	AuthEvent(event, outcome string)
}
