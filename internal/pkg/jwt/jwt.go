package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrSigning      = errors.New("token signing is not configured")
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// Identity is the user data bound into an access token.
type Identity struct {
	UserID   string
	Email    string
	Username string
	FullName string
}

type AccessClaims struct {
	UserID   string `json:"_id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"fullname"`
	jwtlib.RegisteredClaims
}

// RefreshClaims deliberately carries nothing but the user id.
type RefreshClaims struct {
	UserID string `json:"_id"`
	jwtlib.RegisteredClaims
}

type Options struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Issuer signs and verifies access and refresh tokens with independent
// secrets and lifetimes.
type Issuer struct {
	accessSecret  []byte
	accessTTL     time.Duration
	refreshSecret []byte
	refreshTTL    time.Duration
	now           func() time.Time
}

func NewIssuer(opts Options) *Issuer {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Issuer{
		accessSecret:  []byte(opts.AccessSecret),
		accessTTL:     opts.AccessTTL,
		refreshSecret: []byte(opts.RefreshSecret),
		refreshTTL:    opts.RefreshTTL,
		now:           now,
	}
}

func (s *Issuer) IssueAccessToken(id Identity) (string, error) {
	claims := AccessClaims{
		UserID:           id.UserID,
		Email:            id.Email,
		Username:         id.Username,
		FullName:         id.FullName,
		RegisteredClaims: s.registered(s.accessTTL),
	}
	return sign(claims, s.accessSecret)
}

func (s *Issuer) IssueRefreshToken(userID string) (string, error) {
	claims := RefreshClaims{
		UserID:           userID,
		RegisteredClaims: s.registered(s.refreshTTL),
	}
	return sign(claims, s.refreshSecret)
}

func (s *Issuer) ParseAccessToken(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := s.parse(raw, claims, s.accessSecret); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

func (s *Issuer) ParseRefreshToken(raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := s.parse(raw, claims, s.refreshSecret); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// The jti keeps two tokens minted within the same second distinct.
func (s *Issuer) registered(ttl time.Duration) jwtlib.RegisteredClaims {
	now := s.now()
	return jwtlib.RegisteredClaims{
		ID:        uuid.NewString(),
		IssuedAt:  jwtlib.NewNumericDate(now),
		ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
	}
}

func (s *Issuer) parse(raw string, claims jwtlib.Claims, secret []byte) error {
	if len(secret) == 0 {
		return ErrSigning
	}
	parser := jwtlib.NewParser(
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(s.now),
	)
	token, err := parser.ParseWithClaims(raw, claims, func(*jwtlib.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}
	if !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}

func sign(claims jwtlib.Claims, secret []byte) (string, error) {
	if len(secret) == 0 {
		return "", ErrSigning
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", errors.Join(ErrSigning, err)
	}
	return signed, nil
}
