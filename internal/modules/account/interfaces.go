package account

import (
	"context"
	"mime/multipart"

	"videohub/internal/domain"
)

type UserStore interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	EmailTakenByOther(ctx context.Context, email, userID string) (bool, error)
	UpdateAccount(ctx context.Context, userID, fullName, email string) error
	UpdateAvatar(ctx context.Context, userID, url string) error
	UpdateCover(ctx context.Context, userID, url string) error
}

type ChannelStore interface {
	CountSubscribers(ctx context.Context, channelID string) (int64, error)
	CountSubscriptions(ctx context.Context, subscriberID string) (int64, error)
	IsSubscribed(ctx context.Context, subscriberID, channelID string) (bool, error)
	WatchHistory(ctx context.Context, userID string) ([]domain.WatchedVideo, error)
}

type MediaUploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
	Discard(paths ...string)
}

type FileStager interface {
	Stage(fh *multipart.FileHeader) (string, error)
	Discard(paths ...string)
}
