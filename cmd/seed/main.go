// Command seed loads a small demo data set: one channel with videos and a
// viewer who subscribes to it and has some watch history.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"videohub/internal/config"
	"videohub/internal/database"
	"videohub/internal/domain"
	"videohub/internal/pkg/logging"
	"videohub/internal/pkg/password"
	"videohub/internal/repository"
)

const demoPassword = "password123"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(config.EnvDevelopment, os.Stderr).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Environment, os.Stdout)

	if err := seed(context.Background(), cfg); err != nil {
		log.Error("seed failed", "error", err)
		os.Exit(1)
	}
	log.Info("seed completed", "password", demoPassword)
}

func seed(ctx context.Context, cfg *config.Config) error {
	log := logging.New(cfg.Environment, os.Stdout)

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer database.Close(db)

	if err := database.Migrate(ctx, db); err != nil {
		return err
	}

	users := repository.NewUserRepository(db)
	channels := repository.NewChannelRepository(db)

	creator, err := ensureUser(ctx, users, "creator", "creator@videohub.local", "Demo Creator")
	if err != nil {
		return err
	}
	viewer, err := ensureUser(ctx, users, "viewer", "viewer@videohub.local", "Demo Viewer")
	if err != nil {
		return err
	}

	titles := []string{"Welcome to the channel", "Cooking with cast iron", "Weekend hike vlog"}
	now := time.Now().UTC()
	for i, title := range titles {
		v := &domain.Video{
			OwnerID:         creator.ID,
			Title:           title,
			Description:     fmt.Sprintf("Demo video %d", i+1),
			ThumbnailURL:    "https://placehold.co/640x360.png",
			VideoURL:        fmt.Sprintf("https://example.com/videos/demo-%d.mp4", i+1),
			DurationSeconds: 120 + 60*i,
			Views:           int64(100 * (i + 1)),
			IsPublished:     true,
		}
		if err := channels.CreateVideo(ctx, v); err != nil {
			return err
		}
		if err := channels.RecordWatch(ctx, viewer.ID, v.ID, now.Add(-time.Duration(len(titles)-i)*time.Hour)); err != nil {
			return err
		}
		log.Info("video created", "title", title, "id", v.ID)
	}

	if err := channels.Subscribe(ctx, viewer.ID, creator.ID); err != nil && !errors.Is(err, domain.ErrDuplicate) {
		return err
	}
	return nil
}

func ensureUser(ctx context.Context, users *repository.UserRepository, username, email, fullName string) (*domain.User, error) {
	existing, err := users.FindByUsernameOrEmail(ctx, username, email)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	hash, err := password.Hash(demoPassword)
	if err != nil {
		return nil, err
	}
	u := &domain.User{
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		AvatarURL:    "https://placehold.co/128x128.png",
	}
	if err := users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("create %s: %w", username, err)
	}
	return u, nil
}
