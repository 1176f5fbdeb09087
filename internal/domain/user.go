package domain

import "time"

// Column limits of the users table, in characters.
const (
	MaxUsernameLength = 64
	MaxTextLength     = 255
)

// User is an account in the user directory. PasswordHash and RefreshToken
// never leave the service; use Public for anything sent to a client.
type User struct {
	ID            string
	Username      string
	Email         string
	FullName      string
	PasswordHash  string `json:"-"`
	AvatarURL     string
	CoverImageURL string
	RefreshToken  *string `json:"-"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PublicUser is the sanitized user record.
type PublicUser struct {
	ID         string    `json:"_id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullname"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

func (u *User) Public() PublicUser {
	return PublicUser{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FullName:   u.FullName,
		Avatar:     u.AvatarURL,
		CoverImage: u.CoverImageURL,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// StoredSession is a user's current refresh token as held by the directory.
type StoredSession struct {
	UserID string
	Token  string
}
