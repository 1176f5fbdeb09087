package auth

import (
	"context"
	"sync"

	"videohub/internal/domain"

	"github.com/stretchr/testify/mock"
)

type mockUsers struct {
	mock.Mock
}

func (m *mockUsers) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *mockUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUsers) FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	args := m.Called(ctx, username, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUsers) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	args := m.Called(ctx, userID, passwordHash)
	return args.Error(0)
}

type mockSessions struct {
	mock.Mock
}

func (m *mockSessions) SetRefreshToken(ctx context.Context, userID, token string) error {
	args := m.Called(ctx, userID, token)
	return args.Error(0)
}

func (m *mockSessions) ClearRefreshToken(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockSessions) GetRefreshToken(ctx context.Context, userID string) (string, bool, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockSessions) CompareAndSwapRefreshToken(ctx context.Context, userID, expected, next string) (bool, error) {
	args := m.Called(ctx, userID, expected, next)
	return args.Bool(0), args.Error(1)
}

func (m *mockSessions) ListStoredSessions(ctx context.Context) ([]domain.StoredSession, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StoredSession), args.Error(1)
}

type mockMedia struct {
	mock.Mock
}

func (m *mockMedia) Upload(ctx context.Context, localPath string) (string, error) {
	args := m.Called(ctx, localPath)
	return args.String(0), args.Error(1)
}

func (m *mockMedia) Discard(paths ...string) {
	m.Called(paths)
}

// countingLimiter blocks once failures reach max.
type countingLimiter struct {
	mu       sync.Mutex
	max      int
	failures map[string]int
	resets   int
}

func newCountingLimiter(max int) *countingLimiter {
	return &countingLimiter{max: max, failures: map[string]int{}}
}

func (l *countingLimiter) Blocked(_ context.Context, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failures[key] >= l.max
}

func (l *countingLimiter) RecordFailure(_ context.Context, key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[key]++
}

func (l *countingLimiter) Reset(_ context.Context, key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, key)
	l.resets++
}

type recordedEvent struct {
	event, outcome string
}

type eventLog struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (e *eventLog) AuthEvent(event, outcome string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, recordedEvent{event, outcome})
}
