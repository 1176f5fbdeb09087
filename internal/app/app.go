// Package app assembles the HTTP server from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"videohub/internal/config"
	"videohub/internal/media"
	"videohub/internal/metrics"
	"videohub/internal/middleware"
	"videohub/internal/modules/account"
	"videohub/internal/modules/auth"
	"videohub/internal/pkg/jwt"
	"videohub/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type App struct {
	Router  *gin.Engine
	Auth    *auth.Service
	Account *account.Service
	Metrics *metrics.Metrics

	closers []func() error
}

// New wires repositories, stores and services for cfg on top of db.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, log *slog.Logger) (*App, error) {
	a := &App{Metrics: metrics.New()}

	users := repository.NewUserRepository(db)
	channels := repository.NewChannelRepository(db)

	issuer := jwt.NewIssuer(jwt.Options{
		AccessSecret:  cfg.AccessTokenSecret,
		AccessTTL:     cfg.AccessTokenExpiry,
		RefreshSecret: cfg.RefreshTokenSecret,
		RefreshTTL:    cfg.RefreshTokenExpiry,
	})

	store, err := newStore(ctx, cfg.Media)
	if err != nil {
		return nil, err
	}
	uploader := media.NewUploader(store, cfg.Media.TempDir)

	var limiter auth.LoginLimiter = auth.NoopLimiter{}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn("redis unreachable, login throttling degraded", "addr", cfg.RedisAddr, "error", err)
		}
		a.closers = append(a.closers, client.Close)
		limiter = auth.NewRedisLimiter(client, cfg.LoginMaxAttempts, cfg.LoginWindow, log)
	}

	a.Auth = auth.NewService(users, users, issuer, uploader, limiter, log)
	a.Account = account.NewService(users, channels, uploader)

	authHandler := auth.NewHandler(a.Auth, uploader, auth.CookieConfig{
		Secure:        cfg.SecureCookies(),
		SameSite:      sameSite(cfg.CookieSameSite),
		Path:          cfg.CookiePath,
		AccessMaxAge:  cfg.AccessTokenExpiry,
		RefreshMaxAge: cfg.RefreshTokenExpiry,
	}, a.Metrics)
	accountHandler := account.NewHandler(a.Account, uploader)

	r := gin.New()
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Metrics(a.Metrics))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(a.Metrics.Handler()))
	if local, ok := store.(*media.LocalStore); ok && strings.HasPrefix(local.PublicBase(), "/") {
		r.Static(local.PublicBase(), local.Dir())
	}

	api := r.Group("/api/v1/users")
	authHandler.RegisterPublicRoutes(api)

	protected := api.Group("")
	protected.Use(middleware.JWTAuth(a.Auth))
	authHandler.RegisterProtectedRoutes(protected)
	accountHandler.RegisterProtectedRoutes(protected)

	a.Router = r
	return a, nil
}

// Close releases connections opened by New. The database belongs to the
// caller.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

func newStore(ctx context.Context, cfg config.MediaConfig) (media.Store, error) {
	switch cfg.Backend {
	case "s3":
		store, err := media.NewS3Store(ctx, media.S3Options{
			Bucket:     cfg.S3Bucket,
			Region:     cfg.S3Region,
			Endpoint:   cfg.S3Endpoint,
			AccessKey:  cfg.S3AccessKey,
			SecretKey:  cfg.S3SecretKey,
			PublicBase: cfg.PublicBase,
		})
		if err != nil {
			return nil, fmt.Errorf("media store: %w", err)
		}
		return store, nil
	default:
		return media.NewLocalStore(cfg.LocalDir, cfg.PublicBase), nil
	}
}

func sameSite(v string) http.SameSite {
	switch strings.ToLower(v) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
