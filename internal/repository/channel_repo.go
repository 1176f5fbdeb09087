package repository

import (
	"context"
	"fmt"
	"time"

	"videohub/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChannelRepository serves the read models behind channel profiles and watch
// history.
type ChannelRepository struct {
	db *gorm.DB
}

func NewChannelRepository(db *gorm.DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

type videoModel struct {
	ID              string    `gorm:"column:id;primaryKey"`
	OwnerID         string    `gorm:"column:owner_id"`
	Title           string    `gorm:"column:title"`
	Description     string    `gorm:"column:description"`
	ThumbnailURL    string    `gorm:"column:thumbnail_url"`
	VideoURL        string    `gorm:"column:video_url"`
	DurationSeconds int       `gorm:"column:duration_seconds"`
	Views           int64     `gorm:"column:views"`
	IsPublished     bool      `gorm:"column:is_published"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

func (videoModel) TableName() string { return "videos" }

type subscriptionModel struct {
	ID           string    `gorm:"column:id;primaryKey"`
	SubscriberID string    `gorm:"column:subscriber_id"`
	ChannelID    string    `gorm:"column:channel_id"`
	CreatedAt    time.Time `gorm:"column:created_at"`
}

func (subscriptionModel) TableName() string { return "subscriptions" }

type watchEntryModel struct {
	UserID    string    `gorm:"column:user_id;primaryKey"`
	VideoID   string    `gorm:"column:video_id;primaryKey"`
	WatchedAt time.Time `gorm:"column:watched_at"`
}

func (watchEntryModel) TableName() string { return "watch_history" }

func (r *ChannelRepository) CreateVideo(ctx context.Context, v *domain.Video) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	m := videoModel{
		ID:              v.ID,
		OwnerID:         v.OwnerID,
		Title:           v.Title,
		Description:     v.Description,
		ThumbnailURL:    v.ThumbnailURL,
		VideoURL:        v.VideoURL,
		DurationSeconds: v.DurationSeconds,
		Views:           v.Views,
		IsPublished:     v.IsPublished,
		CreatedAt:       v.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("create video: %w", err)
	}
	return nil
}

func (r *ChannelRepository) Subscribe(ctx context.Context, subscriberID, channelID string) error {
	m := subscriptionModel{
		ID:           uuid.NewString(),
		SubscriberID: subscriberID,
		ChannelID:    channelID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isDuplicate(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

// RecordWatch adds the video to the user's history or moves it to the top.
func (r *ChannelRepository) RecordWatch(ctx context.Context, userID, videoID string, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND video_id = ?", userID, videoID).Delete(&watchEntryModel{}).Error; err != nil {
			return fmt.Errorf("record watch: %w", err)
		}
		if err := tx.Create(&watchEntryModel{UserID: userID, VideoID: videoID, WatchedAt: at.UTC()}).Error; err != nil {
			return fmt.Errorf("record watch: %w", err)
		}
		return nil
	})
}

func (r *ChannelRepository) CountSubscribers(ctx context.Context, channelID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&subscriptionModel{}).Where("channel_id = ?", channelID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count subscribers: %w", err)
	}
	return n, nil
}

func (r *ChannelRepository) CountSubscriptions(ctx context.Context, subscriberID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&subscriptionModel{}).Where("subscriber_id = ?", subscriberID).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count subscriptions: %w", err)
	}
	return n, nil
}

func (r *ChannelRepository) IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&subscriptionModel{}).
		Where("subscriber_id = ? AND channel_id = ?", subscriberID, channelID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("check subscription: %w", err)
	}
	return n > 0, nil
}

type watchedRow struct {
	VideoID         string    `gorm:"column:video_id"`
	Title           string    `gorm:"column:title"`
	Description     string    `gorm:"column:description"`
	ThumbnailURL    string    `gorm:"column:thumbnail_url"`
	VideoURL        string    `gorm:"column:video_url"`
	DurationSeconds int       `gorm:"column:duration_seconds"`
	Views           int64     `gorm:"column:views"`
	WatchedAt       time.Time `gorm:"column:watched_at"`
	OwnerID         string    `gorm:"column:owner_id"`
	OwnerUsername   string    `gorm:"column:owner_username"`
	OwnerFullName   string    `gorm:"column:owner_fullname"`
	OwnerAvatar     string    `gorm:"column:owner_avatar"`
}

// WatchHistory lists watched videos, most recent first.
func (r *ChannelRepository) WatchHistory(ctx context.Context, userID string) ([]domain.WatchedVideo, error) {
	var rows []watchedRow
	err := r.db.WithContext(ctx).
		Table("watch_history AS wh").
		Select(`wh.video_id, wh.watched_at,
			v.title, v.description, v.thumbnail_url, v.video_url, v.duration_seconds, v.views,
			u.id AS owner_id, u.username AS owner_username, u.fullname AS owner_fullname, u.avatar_url AS owner_avatar`).
		Joins("JOIN videos AS v ON v.id = wh.video_id").
		Joins("JOIN users AS u ON u.id = v.owner_id").
		Where("wh.user_id = ?", userID).
		Order("wh.watched_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("watch history: %w", err)
	}

	out := make([]domain.WatchedVideo, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.WatchedVideo{
			ID:              row.VideoID,
			Title:           row.Title,
			Description:     row.Description,
			ThumbnailURL:    row.ThumbnailURL,
			VideoURL:        row.VideoURL,
			DurationSeconds: row.DurationSeconds,
			Views:           row.Views,
			WatchedAt:       row.WatchedAt,
			Owner: domain.VideoOwner{
				ID:       row.OwnerID,
				Username: row.OwnerUsername,
				FullName: row.OwnerFullName,
				Avatar:   row.OwnerAvatar,
			},
		})
	}
	return out, nil
}
