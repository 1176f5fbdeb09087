package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"videohub/internal/domain"
	"videohub/internal/media"
	"videohub/internal/pkg/apperr"
	"videohub/internal/pkg/jwt"
	"videohub/internal/pkg/password"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	users    *mockUsers
	sessions *mockSessions
	media    *mockMedia
	limiter  *countingLimiter
	issuer   *jwt.Issuer
	now      time.Time
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:    &mockUsers{},
		sessions: &mockSessions{},
		media:    &mockMedia{},
		limiter:  newCountingLimiter(3),
		now:      time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	f.issuer = jwt.NewIssuer(jwt.Options{
		AccessSecret:  "access-secret",
		AccessTTL:     time.Hour,
		RefreshSecret: "refresh-secret",
		RefreshTTL:    24 * time.Hour,
		Now:           func() time.Time { return f.now },
	})
	f.svc = NewService(f.users, f.sessions, f.issuer, f.media, f.limiter, slog.New(slog.NewTextHandler(io.Discard, nil)))
	f.svc.now = func() time.Time { return f.now }
	t.Cleanup(func() {
		f.users.AssertExpectations(t)
		f.sessions.AssertExpectations(t)
		f.media.AssertExpectations(t)
	})
	return f
}

var ctx = context.Background()

func storedUser(t *testing.T, plain string) *domain.User {
	t.Helper()
	hash, err := password.Hash(plain)
	require.NoError(t, err)
	return &domain.User{
		ID:           "user-1",
		Username:     "ann",
		Email:        "ann@example.com",
		FullName:     "Ann Lee",
		PasswordHash: hash,
		AvatarURL:    "/static/uploads/a.png",
	}
}

func validRegister() RegisterInput {
	return RegisterInput{
		FullName:   " Ann Lee ",
		Username:   "Ann",
		Email:      "ann@example.com",
		Password:   "s3cret!",
		AvatarPath: "/tmp/avatar.png",
		CoverPath:  "/tmp/cover.png",
	}
}

// ---------- Register ----------

func TestRegister_Success_CoverFailureStoresEmptyURL(t *testing.T) {
	f := newFixture(t)
	in := validRegister()

	var created *domain.User
	f.users.On("FindByUsernameOrEmail", mock.Anything, "Ann", "ann@example.com").Return(nil, domain.ErrNotFound)
	f.media.On("Upload", mock.Anything, in.AvatarPath).Return("/static/uploads/avatar.png", nil)
	f.media.On("Upload", mock.Anything, in.CoverPath).Return("", errors.New("bucket down"))
	f.users.On("Create", mock.Anything, mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) {
			created = args.Get(1).(*domain.User)
			created.ID = "new-id"
		}).Return(nil)
	f.users.On("GetByID", mock.Anything, "new-id").Return(&domain.User{
		ID: "new-id", Username: "ann", Email: "ann@example.com", FullName: "Ann Lee", AvatarURL: "/static/uploads/avatar.png",
	}, nil)
	f.media.On("Discard", []string{in.AvatarPath, in.CoverPath}).Return()

	user, err := f.svc.Register(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "new-id", user.ID)
	assert.Equal(t, "/static/uploads/avatar.png", user.Avatar)
	assert.Empty(t, user.CoverImage)

	require.NotNil(t, created)
	assert.Equal(t, "Ann Lee", created.FullName)
	assert.Empty(t, created.CoverImageURL)
	assert.NotEqual(t, in.Password, created.PasswordHash, "plaintext must never be stored")
	assert.True(t, password.Verify(created.PasswordHash, in.Password))
	assert.Nil(t, created.RefreshToken)
}

func TestRegister_MissingFields(t *testing.T) {
	for _, mutate := range []func(*RegisterInput){
		func(in *RegisterInput) { in.FullName = "   " },
		func(in *RegisterInput) { in.Username = "" },
		func(in *RegisterInput) { in.Email = "" },
		func(in *RegisterInput) { in.Password = " " },
	} {
		f := newFixture(t)
		in := validRegister()
		mutate(&in)
		f.media.On("Discard", []string{in.AvatarPath, in.CoverPath}).Return()

		_, err := f.svc.Register(ctx, in)
		assert.ErrorIs(t, err, apperr.ErrValidation)
	}
}

func TestRegister_FieldTooLong(t *testing.T) {
	for _, mutate := range []func(*RegisterInput){
		func(in *RegisterInput) { in.Username = strings.Repeat("a", 65) },
		func(in *RegisterInput) { in.FullName = strings.Repeat("a", 256) },
	} {
		f := newFixture(t)
		in := validRegister()
		mutate(&in)
		f.media.On("Discard", []string{in.AvatarPath, in.CoverPath}).Return()

		_, err := f.svc.Register(ctx, in)
		assert.ErrorIs(t, err, apperr.ErrValidation)
		f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	}
}

func TestRegister_InvalidEmail(t *testing.T) {
	f := newFixture(t)
	in := validRegister()
	in.Email = "not-an-email"
	f.media.On("Discard", []string{in.AvatarPath, in.CoverPath}).Return()

	_, err := f.svc.Register(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRegister_Conflict(t *testing.T) {
	f := newFixture(t)
	in := validRegister()
	f.users.On("FindByUsernameOrEmail", mock.Anything, "Ann", "ann@example.com").Return(&domain.User{ID: "other"}, nil)
	f.media.On("Discard", []string{in.AvatarPath, in.CoverPath}).Return()

	_, err := f.svc.Register(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	f.media.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestRegister_AvatarRequired(t *testing.T) {
	f := newFixture(t)
	in := validRegister()
	in.AvatarPath = ""
	f.users.On("FindByUsernameOrEmail", mock.Anything, "Ann", "ann@example.com").Return(nil, domain.ErrNotFound)
	f.media.On("Discard", []string{"", in.CoverPath}).Return()

	_, err := f.svc.Register(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRegister_AvatarUploadFailures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind error
	}{
		{"store failure", errors.New("disk full"), apperr.ErrUpload},
		{"rejected file", media.ErrInvalidMimeType, apperr.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			in := validRegister()
			f.users.On("FindByUsernameOrEmail", mock.Anything, "Ann", "ann@example.com").Return(nil, domain.ErrNotFound)
			f.media.On("Upload", mock.Anything, in.AvatarPath).Return("", tt.err)
			f.media.On("Discard", []string{in.AvatarPath, in.CoverPath}).Return()

			_, err := f.svc.Register(ctx, in)
			assert.ErrorIs(t, err, tt.kind)
			f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestRegister_DuplicateOnCreate(t *testing.T) {
	f := newFixture(t)
	in := validRegister()
	in.CoverPath = ""
	f.users.On("FindByUsernameOrEmail", mock.Anything, "Ann", "ann@example.com").Return(nil, domain.ErrNotFound)
	f.media.On("Upload", mock.Anything, in.AvatarPath).Return("/a.png", nil)
	f.users.On("Create", mock.Anything, mock.Anything).Return(domain.ErrDuplicate)
	f.media.On("Discard", []string{in.AvatarPath, ""}).Return()

	_, err := f.svc.Register(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestRegister_RefetchFailureIsInternal(t *testing.T) {
	f := newFixture(t)
	in := validRegister()
	in.CoverPath = ""
	f.users.On("FindByUsernameOrEmail", mock.Anything, "Ann", "ann@example.com").Return(nil, domain.ErrNotFound)
	f.media.On("Upload", mock.Anything, in.AvatarPath).Return("/a.png", nil)
	f.users.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.User).ID = "new-id"
	}).Return(nil)
	f.users.On("GetByID", mock.Anything, "new-id").Return(nil, errors.New("connection reset"))
	f.media.On("Discard", []string{in.AvatarPath, ""}).Return()

	_, err := f.svc.Register(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrInternal)
}

// ---------- Login ----------

func TestLogin_Success(t *testing.T) {
	f := newFixture(t)
	u := storedUser(t, "correct-password")

	var persisted string
	f.users.On("FindByUsernameOrEmail", mock.Anything, "ann", "").Return(u, nil)
	f.sessions.On("SetRefreshToken", mock.Anything, "user-1", mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { persisted = args.String(2) }).Return(nil)

	res, err := f.svc.Login(ctx, LoginRequest{Username: "ann", Password: "correct-password"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", res.User.ID)
	assert.Equal(t, persisted, res.RefreshToken, "returned refresh token must be the persisted one")

	access, err := f.issuer.ParseAccessToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", access.UserID)
	assert.Equal(t, "ann@example.com", access.Email)
	assert.Equal(t, "Ann Lee", access.FullName)

	refresh, err := f.issuer.ParseRefreshToken(res.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", refresh.UserID)
	assert.Equal(t, 1, f.limiter.resets)
}

func TestLogin_Failures(t *testing.T) {
	t.Run("missing identifier", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Login(ctx, LoginRequest{Password: "x"})
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("unknown account", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("FindByUsernameOrEmail", mock.Anything, "", "ghost@example.com").Return(nil, domain.ErrNotFound)
		_, err := f.svc.Login(ctx, LoginRequest{Email: "ghost@example.com", Password: "x"})
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("wrong password", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("FindByUsernameOrEmail", mock.Anything, "ann", "").Return(storedUser(t, "correct-password"), nil)
		_, err := f.svc.Login(ctx, LoginRequest{Username: "ann", Password: "wrong"})
		assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
		assert.Equal(t, 1, f.limiter.failures["u:ann"])
		f.sessions.AssertNotCalled(t, "SetRefreshToken", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("persist failure", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("FindByUsernameOrEmail", mock.Anything, "ann", "").Return(storedUser(t, "pw"), nil)
		f.sessions.On("SetRefreshToken", mock.Anything, "user-1", mock.Anything).Return(errors.New("db down"))
		_, err := f.svc.Login(ctx, LoginRequest{Username: "ann", Password: "pw"})
		assert.ErrorIs(t, err, apperr.ErrInternal)
	})
}

func TestLogin_ThrottledAfterRepeatedFailures(t *testing.T) {
	f := newFixture(t)
	f.users.On("FindByUsernameOrEmail", mock.Anything, "ann", "").Return(storedUser(t, "correct-password"), nil).Times(3)

	for i := 0; i < 3; i++ {
		_, err := f.svc.Login(ctx, LoginRequest{Username: "ann", Password: "wrong"})
		require.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	}

	_, err := f.svc.Login(ctx, LoginRequest{Username: "ANN", Password: "correct-password"})
	assert.ErrorIs(t, err, apperr.ErrTooManyAttempts)
}

// ---------- Refresh ----------

func TestRefresh_RotatesToken(t *testing.T) {
	f := newFixture(t)
	u := storedUser(t, "pw")
	current, err := f.issuer.IssueRefreshToken(u.ID)
	require.NoError(t, err)

	var next string
	f.users.On("GetByID", mock.Anything, "user-1").Return(u, nil)
	f.sessions.On("GetRefreshToken", mock.Anything, "user-1").Return(current, true, nil)
	f.sessions.On("CompareAndSwapRefreshToken", mock.Anything, "user-1", current, mock.AnythingOfType("string")).
		Run(func(args mock.Arguments) { next = args.String(3) }).Return(true, nil)

	pair, err := f.svc.Refresh(ctx, current)
	require.NoError(t, err)
	assert.NotEqual(t, current, pair.RefreshToken, "rotation must change the token")
	assert.Equal(t, next, pair.RefreshToken)
	_, err = f.issuer.ParseAccessToken(pair.AccessToken)
	assert.NoError(t, err)
}

func TestRefresh_Rejections(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Refresh(ctx, "  ")
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	})

	t.Run("garbage", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Refresh(ctx, "not.a.jwt")
		assert.ErrorIs(t, err, apperr.ErrInvalidToken)
	})

	t.Run("access token presented", func(t *testing.T) {
		f := newFixture(t)
		access, err := f.issuer.IssueAccessToken(jwt.Identity{UserID: "user-1"})
		require.NoError(t, err)
		_, err = f.svc.Refresh(ctx, access)
		assert.ErrorIs(t, err, apperr.ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		f := newFixture(t)
		old, err := f.issuer.IssueRefreshToken("user-1")
		require.NoError(t, err)
		f.now = f.now.Add(25 * time.Hour)
		_, err = f.svc.Refresh(ctx, old)
		assert.ErrorIs(t, err, apperr.ErrTokenExpired)
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newFixture(t)
		tok, err := f.issuer.IssueRefreshToken("ghost")
		require.NoError(t, err)
		f.users.On("GetByID", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)
		_, err = f.svc.Refresh(ctx, tok)
		assert.ErrorIs(t, err, apperr.ErrInvalidToken)
	})

	t.Run("superseded", func(t *testing.T) {
		f := newFixture(t)
		old, err := f.issuer.IssueRefreshToken("user-1")
		require.NoError(t, err)
		newer, err := f.issuer.IssueRefreshToken("user-1")
		require.NoError(t, err)
		f.users.On("GetByID", mock.Anything, "user-1").Return(storedUser(t, "pw"), nil)
		f.sessions.On("GetRefreshToken", mock.Anything, "user-1").Return(newer, true, nil)
		_, err = f.svc.Refresh(ctx, old)
		assert.ErrorIs(t, err, apperr.ErrTokenExpired)
	})

	t.Run("after logout", func(t *testing.T) {
		f := newFixture(t)
		tok, err := f.issuer.IssueRefreshToken("user-1")
		require.NoError(t, err)
		f.users.On("GetByID", mock.Anything, "user-1").Return(storedUser(t, "pw"), nil)
		f.sessions.On("GetRefreshToken", mock.Anything, "user-1").Return("", false, nil)
		_, err = f.svc.Refresh(ctx, tok)
		assert.ErrorIs(t, err, apperr.ErrTokenExpired)
	})

	t.Run("lost race", func(t *testing.T) {
		f := newFixture(t)
		tok, err := f.issuer.IssueRefreshToken("user-1")
		require.NoError(t, err)
		f.users.On("GetByID", mock.Anything, "user-1").Return(storedUser(t, "pw"), nil)
		f.sessions.On("GetRefreshToken", mock.Anything, "user-1").Return(tok, true, nil)
		f.sessions.On("CompareAndSwapRefreshToken", mock.Anything, "user-1", tok, mock.Anything).Return(false, nil)
		_, err = f.svc.Refresh(ctx, tok)
		assert.ErrorIs(t, err, apperr.ErrTokenExpired)
	})
}

// ---------- Logout / ChangePassword / CurrentUser ----------

func TestLogout(t *testing.T) {
	f := newFixture(t)
	f.sessions.On("ClearRefreshToken", mock.Anything, "user-1").Return(nil).Twice()

	require.NoError(t, f.svc.Logout(ctx, "user-1"))
	require.NoError(t, f.svc.Logout(ctx, "user-1"))
}

func TestChangePassword(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("GetByID", mock.Anything, "user-1").Return(storedUser(t, "old-pw"), nil)
		f.users.On("UpdatePassword", mock.Anything, "user-1", mock.MatchedBy(func(hash string) bool {
			return hash != "new-pw" && password.Verify(hash, "new-pw")
		})).Return(nil)

		require.NoError(t, f.svc.ChangePassword(ctx, "user-1", "old-pw", "new-pw"))
		f.sessions.AssertNotCalled(t, "ClearRefreshToken", mock.Anything, mock.Anything)
	})

	t.Run("wrong old password", func(t *testing.T) {
		f := newFixture(t)
		f.users.On("GetByID", mock.Anything, "user-1").Return(storedUser(t, "old-pw"), nil)
		err := f.svc.ChangePassword(ctx, "user-1", "guess", "new-pw")
		assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	})

	t.Run("missing fields", func(t *testing.T) {
		f := newFixture(t)
		err := f.svc.ChangePassword(ctx, "user-1", "", "new-pw")
		assert.ErrorIs(t, err, apperr.ErrValidation)
	})

	t.Run("blank new password", func(t *testing.T) {
		f := newFixture(t)
		err := f.svc.ChangePassword(ctx, "user-1", "old-pw", "   ")
		assert.ErrorIs(t, err, apperr.ErrValidation)
		f.users.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestCurrentUser(t *testing.T) {
	f := newFixture(t)
	f.users.On("GetByID", mock.Anything, "user-1").Return(storedUser(t, "pw"), nil)
	f.users.On("GetByID", mock.Anything, "gone").Return(nil, domain.ErrNotFound)

	user, err := f.svc.CurrentUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "ann", user.Username)

	_, err = f.svc.CurrentUser(ctx, "gone")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// ---------- Authenticate ----------

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	u := storedUser(t, "pw")
	access, err := f.issuer.IssueAccessToken(jwt.Identity{UserID: u.ID, Email: u.Email, Username: u.Username})
	require.NoError(t, err)
	ghost, err := f.issuer.IssueAccessToken(jwt.Identity{UserID: "ghost"})
	require.NoError(t, err)
	refresh, err := f.issuer.IssueRefreshToken(u.ID)
	require.NoError(t, err)

	f.users.On("GetByID", mock.Anything, "user-1").Return(u, nil).Once()
	f.users.On("GetByID", mock.Anything, "ghost").Return(nil, domain.ErrNotFound).Once()

	got, err := f.svc.Authenticate(ctx, access)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.ID)

	_, err = f.svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)

	_, err = f.svc.Authenticate(ctx, ghost)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken)

	_, err = f.svc.Authenticate(ctx, refresh)
	assert.ErrorIs(t, err, apperr.ErrInvalidToken, "refresh tokens are not access tokens")

	f.now = f.now.Add(2 * time.Hour)
	_, err = f.svc.Authenticate(ctx, access)
	assert.ErrorIs(t, err, apperr.ErrTokenExpired)
}

// ---------- Sweep ----------

func TestSweepExpiredSessions(t *testing.T) {
	f := newFixture(t)
	live, err := f.issuer.IssueRefreshToken("live")
	require.NoError(t, err)

	f.now = f.now.Add(-48 * time.Hour)
	expired, err := f.issuer.IssueRefreshToken("stale")
	require.NoError(t, err)
	rotated, err := f.issuer.IssueRefreshToken("rotated")
	require.NoError(t, err)
	f.now = f.now.Add(48 * time.Hour)

	f.sessions.On("ListStoredSessions", mock.Anything).Return([]domain.StoredSession{
		{UserID: "live", Token: live},
		{UserID: "stale", Token: expired},
		{UserID: "rotated", Token: rotated},
		{UserID: "junk", Token: "garbage"},
	}, nil)
	f.sessions.On("CompareAndSwapRefreshToken", mock.Anything, "stale", expired, "").Return(true, nil)
	f.sessions.On("CompareAndSwapRefreshToken", mock.Anything, "rotated", rotated, "").Return(false, nil)
	f.sessions.On("CompareAndSwapRefreshToken", mock.Anything, "junk", "garbage", "").Return(true, nil)

	cleared, err := f.svc.SweepExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, cleared)
}

func identityOf(u *domain.User) jwt.Identity {
	return jwt.Identity{UserID: u.ID, Email: u.Email, Username: u.Username, FullName: u.FullName}
}
