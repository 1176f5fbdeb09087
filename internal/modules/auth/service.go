package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"videohub/internal/domain"
	"videohub/internal/media"
	"videohub/internal/pkg/apperr"
	"videohub/internal/pkg/jwt"
	"videohub/internal/pkg/password"
	"videohub/internal/pkg/validator"
)

// Service runs the session lifecycle: registration, login, refresh-token
// rotation, logout and password change.
type Service struct {
	users    UserStore
	sessions SessionStore
	tokens   TokenIssuer
	media    MediaUploader
	limiter  LoginLimiter
	log      *slog.Logger
	now      func() time.Time
}

func NewService(users UserStore, sessions SessionStore, tokens TokenIssuer, media MediaUploader, limiter LoginLimiter, log *slog.Logger) *Service {
	if limiter == nil {
		limiter = NoopLimiter{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		media:    media,
		limiter:  limiter,
		log:      log,
		now:      time.Now,
	}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.PublicUser, error) {
	// Upload removes what it consumes; this catches early exits.
	defer s.media.Discard(in.AvatarPath, in.CoverPath)

	in.FullName = strings.TrimSpace(in.FullName)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.FullName == "" || in.Username == "" || in.Email == "" || strings.TrimSpace(in.Password) == "" {
		return nil, apperr.Validation("All fields are required")
	}
	if err := checkLengths(in.Username, in.FullName, in.Email); err != nil {
		return nil, err
	}
	if !validator.Email(in.Email) {
		return nil, apperr.Validation("email must be a valid email address")
	}

	existing, err := s.users.FindByUsernameOrEmail(ctx, in.Username, in.Email)
	switch {
	case err == nil && existing != nil:
		return nil, apperr.Conflict("User with email or username already exists")
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, apperr.Internal("lookup existing user", err)
	}

	if in.AvatarPath == "" {
		return nil, apperr.Validation("Avatar file is required")
	}
	avatarURL, err := s.media.Upload(ctx, in.AvatarPath)
	if err != nil {
		return nil, uploadError("Avatar", err)
	}

	// A failed cover upload leaves the cover empty rather than failing signup.
	var coverURL string
	if in.CoverPath != "" {
		coverURL, err = s.media.Upload(ctx, in.CoverPath)
		if err != nil {
			s.log.WarnContext(ctx, "cover image upload failed", "username", in.Username, "error", err)
			coverURL = ""
		}
	}

	hash, err := password.Hash(in.Password)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return nil, apperr.Validation("password is too long")
		}
		return nil, apperr.Internal("hash password", err)
	}

	now := s.now().UTC()
	user := &domain.User{
		Username:      in.Username,
		Email:         in.Email,
		FullName:      in.FullName,
		PasswordHash:  hash,
		AvatarURL:     avatarURL,
		CoverImageURL: coverURL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, apperr.Conflict("User with email or username already exists")
		}
		return nil, apperr.Internal("create user", err)
	}

	created, err := s.users.GetByID(ctx, user.ID)
	if err != nil {
		return nil, apperr.Internal("Something went wrong while registering the user", err)
	}
	pub := created.Public()
	return &pub, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" && req.Email == "" {
		return nil, apperr.Validation("username or email is required")
	}
	if req.Password == "" {
		return nil, apperr.Validation("password is required")
	}

	key := limiterKey(req.Username, req.Email)
	if s.limiter.Blocked(ctx, key) {
		return nil, apperr.TooManyAttempts("Too many failed login attempts, try again later")
	}

	user, err := s.users.FindByUsernameOrEmail(ctx, req.Username, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.limiter.RecordFailure(ctx, key)
			return nil, apperr.NotFound("User does not exist")
		}
		return nil, apperr.Internal("lookup user", err)
	}

	if !password.Verify(user.PasswordHash, req.Password) {
		s.limiter.RecordFailure(ctx, key)
		return nil, apperr.InvalidCredentials("Invalid user credentials")
	}
	s.limiter.Reset(ctx, key)

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}
	if err := s.sessions.SetRefreshToken(ctx, user.ID, pair.RefreshToken); err != nil {
		return nil, apperr.Internal("Something went wrong while generating tokens", err)
	}

	return &LoginResult{User: user.Public(), TokenPair: *pair}, nil
}

// Logout revokes the stored refresh token. Access tokens already issued stay
// valid until they expire.
func (s *Service) Logout(ctx context.Context, userID string) error {
	if err := s.sessions.ClearRefreshToken(ctx, userID); err != nil {
		return apperr.Internal("clear refresh token", err)
	}
	return nil
}

// Refresh exchanges the current refresh token for a new pair. The presented
// token must equal the stored one; the stored value is replaced only if it
// has not changed since it was read, so concurrent refreshes with the same
// token cannot both succeed.
func (s *Service) Refresh(ctx context.Context, raw string) (*TokenPair, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, apperr.Unauthenticated("Unauthorized request")
	}

	claims, err := s.tokens.ParseRefreshToken(raw)
	if err != nil {
		return nil, tokenError(err, "Refresh token is expired or used", "Invalid refresh token")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperr.InvalidToken("Invalid refresh token")
		}
		return nil, apperr.Internal("load user", err)
	}

	stored, ok, err := s.sessions.GetRefreshToken(ctx, user.ID)
	if err != nil {
		return nil, apperr.Internal("load refresh token", err)
	}
	if !ok || subtle.ConstantTimeCompare([]byte(stored), []byte(raw)) != 1 {
		return nil, apperr.TokenExpired("Refresh token is expired or used")
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}
	swapped, err := s.sessions.CompareAndSwapRefreshToken(ctx, user.ID, raw, pair.RefreshToken)
	if err != nil {
		return nil, apperr.Internal("Something went wrong while generating tokens", err)
	}
	if !swapped {
		return nil, apperr.TokenExpired("Refresh token is expired or used")
	}
	return pair, nil
}

// ChangePassword replaces the password hash. Existing sessions are kept.
func (s *Service) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" || strings.TrimSpace(newPassword) == "" {
		return apperr.Validation("oldPassword and newPassword are required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return apperr.NotFound("User does not exist")
		}
		return apperr.Internal("load user", err)
	}
	if !password.Verify(user.PasswordHash, oldPassword) {
		return apperr.InvalidCredentials("Invalid old password")
	}

	hash, err := password.Hash(newPassword)
	if err != nil {
		if errors.Is(err, password.ErrTooLong) {
			return apperr.Validation("password is too long")
		}
		return apperr.Internal("hash password", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return apperr.Internal("update password", err)
	}
	return nil
}

func (s *Service) CurrentUser(ctx context.Context, userID string) (*domain.PublicUser, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperr.NotFound("User does not exist")
		}
		return nil, apperr.Internal("load user", err)
	}
	pub := user.Public()
	return &pub, nil
}

// Authenticate verifies an access token and resolves the account it names.
// It is read-only and never consults the stored refresh token.
func (s *Service) Authenticate(ctx context.Context, raw string) (*domain.PublicUser, error) {
	if raw == "" {
		return nil, apperr.Unauthenticated("Unauthorized request")
	}
	claims, err := s.tokens.ParseAccessToken(raw)
	if err != nil {
		return nil, tokenError(err, "Access token expired", "Invalid access token")
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperr.InvalidToken("Invalid access token")
		}
		return nil, apperr.Internal("load user", err)
	}
	pub := user.Public()
	return &pub, nil
}

// SweepExpiredSessions clears stored refresh tokens that no longer verify.
// A token rotated while the sweep runs is left alone.
func (s *Service) SweepExpiredSessions(ctx context.Context) (int, error) {
	sessions, err := s.sessions.ListStoredSessions(ctx)
	if err != nil {
		return 0, err
	}

	cleared := 0
	for _, sess := range sessions {
		if err := ctx.Err(); err != nil {
			return cleared, err
		}
		_, err := s.tokens.ParseRefreshToken(sess.Token)
		if err == nil {
			continue
		}
		if errors.Is(err, jwt.ErrSigning) {
			return cleared, err
		}
		swapped, err := s.sessions.CompareAndSwapRefreshToken(ctx, sess.UserID, sess.Token, "")
		if err != nil {
			return cleared, err
		}
		if swapped {
			cleared++
		}
	}
	return cleared, nil
}

func (s *Service) issuePair(user *domain.User) (*TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(jwt.Identity{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
		FullName: user.FullName,
	})
	if err != nil {
		return nil, apperr.Internal("Something went wrong while generating tokens", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, apperr.Internal("Something went wrong while generating tokens", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func tokenError(err error, expiredMsg, invalidMsg string) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperr.TokenExpired(expiredMsg)
	case errors.Is(err, jwt.ErrSigning):
		return apperr.Internal("token verification is not configured", err)
	default:
		return apperr.InvalidToken(invalidMsg)
	}
}

func uploadError(field string, err error) error {
	if media.IsRejected(err) {
		return apperr.Wrap(apperr.ErrValidation, field+" file is invalid: "+err.Error(), err)
	}
	return apperr.Upload(field+" file upload failed", err)
}

func checkLengths(username, fullName, email string) error {
	switch {
	case utf8.RuneCountInString(username) > domain.MaxUsernameLength:
		return apperr.Validation(fmt.Sprintf("username must be at most %d characters", domain.MaxUsernameLength))
	case utf8.RuneCountInString(fullName) > domain.MaxTextLength:
		return apperr.Validation(fmt.Sprintf("fullname must be at most %d characters", domain.MaxTextLength))
	case utf8.RuneCountInString(email) > domain.MaxTextLength:
		return apperr.Validation(fmt.Sprintf("email must be at most %d characters", domain.MaxTextLength))
	}
	return nil
}

func limiterKey(username, email string) string {
	if username != "" {
		return "u:" + strings.ToLower(username)
	}
	return "e:" + strings.ToLower(email)
}
