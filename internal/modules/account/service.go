package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"videohub/internal/domain"
	"videohub/internal/media"
	"videohub/internal/pkg/apperr"
	"videohub/internal/pkg/validator"
)

// Service covers the profile side of a user: account details, images, the
// public channel view and watch history.
type Service struct {
	users    UserStore
	channels ChannelStore
	media    MediaUploader
}

func NewService(users UserStore, channels ChannelStore, media MediaUploader) *Service {
	return &Service{users: users, channels: channels, media: media}
}

func (s *Service) UpdateAccount(ctx context.Context, userID, fullName, email string) (*domain.PublicUser, error) {
	fullName, email = strings.TrimSpace(fullName), strings.TrimSpace(email)
	if fullName == "" || email == "" {
		return nil, apperr.Validation("All fields are required")
	}
	if utf8.RuneCountInString(fullName) > domain.MaxTextLength || utf8.RuneCountInString(email) > domain.MaxTextLength {
		return nil, apperr.Validation(fmt.Sprintf("fullname and email must be at most %d characters", domain.MaxTextLength))
	}
	if !validator.Email(email) {
		return nil, apperr.Validation("email must be a valid email address")
	}

	taken, err := s.users.EmailTakenByOther(ctx, email, userID)
	if err != nil {
		return nil, apperr.Internal("check email", err)
	}
	if taken {
		return nil, apperr.Conflict("Email is already in use")
	}

	if err := s.users.UpdateAccount(ctx, userID, fullName, email); err != nil {
		return nil, storeError(err)
	}
	return s.load(ctx, userID)
}

func (s *Service) UpdateAvatar(ctx context.Context, userID, localPath string) (*domain.PublicUser, error) {
	return s.replaceImage(ctx, userID, localPath, "Avatar", s.users.UpdateAvatar)
}

func (s *Service) UpdateCover(ctx context.Context, userID, localPath string) (*domain.PublicUser, error) {
	return s.replaceImage(ctx, userID, localPath, "Cover image", s.users.UpdateCover)
}

func (s *Service) replaceImage(
	ctx context.Context,
	userID, localPath, label string,
	save func(ctx context.Context, userID, url string) error,
) (*domain.PublicUser, error) {
	defer s.media.Discard(localPath)

	if localPath == "" {
		return nil, apperr.Validation(label + " file is missing")
	}
	url, err := s.media.Upload(ctx, localPath)
	if err != nil {
		if media.IsRejected(err) {
			return nil, apperr.Wrap(apperr.ErrValidation, label+" file is invalid: "+err.Error(), err)
		}
		return nil, apperr.Upload("Error while uploading "+strings.ToLower(label), err)
	}
	if err := save(ctx, userID, url); err != nil {
		return nil, storeError(err)
	}
	return s.load(ctx, userID)
}

// ChannelProfile describes username's channel as seen by viewerID.
func (s *Service) ChannelProfile(ctx context.Context, viewerID, username string) (*domain.ChannelProfile, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apperr.Validation("username is missing")
	}

	channel, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperr.NotFound("channel does not exist")
		}
		return nil, apperr.Internal("load channel", err)
	}

	subscribers, err := s.channels.CountSubscribers(ctx, channel.ID)
	if err != nil {
		return nil, apperr.Internal("count subscribers", err)
	}
	subscribedTo, err := s.channels.CountSubscriptions(ctx, channel.ID)
	if err != nil {
		return nil, apperr.Internal("count subscriptions", err)
	}
	isSubscribed := false
	if viewerID != "" && viewerID != channel.ID {
		if isSubscribed, err = s.channels.IsSubscribed(ctx, viewerID, channel.ID); err != nil {
			return nil, apperr.Internal("check subscription", err)
		}
	}

	return &domain.ChannelProfile{
		ID:                        channel.ID,
		Username:                  channel.Username,
		FullName:                  channel.FullName,
		Email:                     channel.Email,
		Avatar:                    channel.AvatarURL,
		CoverImage:                channel.CoverImageURL,
		SubscribersCount:          subscribers,
		ChannelsSubscribedToCount: subscribedTo,
		IsSubscribed:              isSubscribed,
	}, nil
}

func (s *Service) WatchHistory(ctx context.Context, userID string) ([]domain.WatchedVideo, error) {
	history, err := s.channels.WatchHistory(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("load watch history", err)
	}
	return history, nil
}

func (s *Service) load(ctx context.Context, userID string) (*domain.PublicUser, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	pub := user.Public()
	return &pub, nil
}

func storeError(err error) error {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return apperr.NotFound("User does not exist")
	case errors.Is(err, domain.ErrDuplicate):
		return apperr.Conflict("Email is already in use")
	default:
		return apperr.Internal("update user", err)
	}
}
