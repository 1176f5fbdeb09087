package auth

import "videohub/internal/domain"

// RegisterInput carries the registration form. AvatarPath and CoverPath point
// at files already staged on local disk.
type RegisterInput struct {
	FullName   string
	Username   string
	Email      string
	Password   string
	AvatarPath string
	CoverPath  string
}

type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type LoginResult struct {
	User domain.PublicUser `json:"user"`
	TokenPair
}
