// Command auth_cleanup clears stored refresh tokens that are expired or no
// longer verify under the current secret.
package main

import (
	"context"
	"os"
	"time"

	"videohub/internal/config"
	"videohub/internal/database"
	"videohub/internal/modules/auth"
	"videohub/internal/pkg/jwt"
	"videohub/internal/pkg/logging"
	"videohub/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(config.EnvDevelopment, os.Stderr).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logging.New(cfg.Environment, os.Stdout)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.Error("db connect failed", "error", err)
		os.Exit(1)
	}
	defer database.Close(db)

	users := repository.NewUserRepository(db)
	issuer := jwt.NewIssuer(jwt.Options{
		AccessSecret:  cfg.AccessTokenSecret,
		AccessTTL:     cfg.AccessTokenExpiry,
		RefreshSecret: cfg.RefreshTokenSecret,
		RefreshTTL:    cfg.RefreshTokenExpiry,
	})
	svc := auth.NewService(users, users, issuer, nil, nil, log)

	cleared, err := svc.SweepExpiredSessions(ctx)
	if err != nil {
		log.Error("auth cleanup failed", "cleared", cleared, "error", err)
		os.Exit(1)
	}
	log.Info("auth cleanup completed", "cleared", cleared)
}
