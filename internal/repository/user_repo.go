package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"videohub/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

type userModel struct {
	ID            string    `gorm:"column:id;primaryKey"`
	Username      string    `gorm:"column:username"`
	Email         string    `gorm:"column:email"`
	FullName      string    `gorm:"column:fullname"`
	PasswordHash  string    `gorm:"column:password_hash"`
	AvatarURL     string    `gorm:"column:avatar_url"`
	CoverImageURL string    `gorm:"column:cover_image_url"`
	RefreshToken  *string   `gorm:"column:refresh_token"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

func toDomainUser(m userModel) *domain.User {
	return &domain.User{
		ID:            m.ID,
		Username:      m.Username,
		Email:         m.Email,
		FullName:      m.FullName,
		PasswordHash:  m.PasswordHash,
		AvatarURL:     m.AvatarURL,
		CoverImageURL: m.CoverImageURL,
		RefreshToken:  m.RefreshToken,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toUserModel(u *domain.User) userModel {
	return userModel{
		ID:            u.ID,
		Username:      normalize(u.Username),
		Email:         normalize(u.Email),
		FullName:      strings.TrimSpace(u.FullName),
		PasswordHash:  u.PasswordHash,
		AvatarURL:     u.AvatarURL,
		CoverImageURL: u.CoverImageURL,
		RefreshToken:  u.RefreshToken,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	m := toUserModel(u)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isDuplicate(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	*u = *toDomainUser(m)
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var m userModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return toDomainUser(m), nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var m userModel
	if err := r.db.WithContext(ctx).Where("username = ?", normalize(username)).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return toDomainUser(m), nil
}

// FindByUsernameOrEmail returns the first account matching either value.
// Empty values never match.
func (r *UserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	username, email = normalize(username), normalize(email)
	if username == "" && email == "" {
		return nil, domain.ErrNotFound
	}

	q := r.db.WithContext(ctx).Model(&userModel{})
	switch {
	case username != "" && email != "":
		q = q.Where("username = ? OR email = ?", username, email)
	case username != "":
		q = q.Where("username = ?", username)
	default:
		q = q.Where("email = ?", email)
	}

	var m userModel
	if err := q.Order("created_at ASC").First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return toDomainUser(m), nil
}

func (r *UserRepository) EmailTakenByOther(ctx context.Context, email, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&userModel{}).
		Where("email = ? AND id <> ?", normalize(email), userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return count > 0, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return r.updateColumns(ctx, userID, map[string]any{"password_hash": passwordHash})
}

func (r *UserRepository) UpdateAccount(ctx context.Context, userID, fullName, email string) error {
	err := r.updateColumns(ctx, userID, map[string]any{
		"fullname": strings.TrimSpace(fullName),
		"email":    normalize(email),
	})
	if err != nil && isDuplicate(err) {
		return domain.ErrDuplicate
	}
	return err
}

func (r *UserRepository) UpdateAvatar(ctx context.Context, userID, url string) error {
	return r.updateColumns(ctx, userID, map[string]any{"avatar_url": url})
}

func (r *UserRepository) UpdateCover(ctx context.Context, userID, url string) error {
	return r.updateColumns(ctx, userID, map[string]any{"cover_image_url": url})
}

func (r *UserRepository) updateColumns(ctx context.Context, userID string, columns map[string]any) error {
	tx := r.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", userID).Updates(columns)
	if tx.Error != nil {
		return fmt.Errorf("update user: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrNotFound
	}
	return err
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
