package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/example/face-auth/internal/auth"
	"github.com/example/face-auth/internal/config"
	"github.com/example/face-auth/internal/face"
	"github.com/example/face-auth/internal/imagedecode"
	"github.com/example/face-auth/internal/repository"
	"github.com/example/face-auth/internal/similarity"
	"github.com/example/face-auth/internal/usecase"
)

// app holds the long-lived components shared by the commands. Everything is built
// once and injected.
type app struct {
	cfg    config.Config
	logger *zap.Logger

	db           *gorm.DB
	users        usecase.UserStore
	recorder     *usecase.AttemptRecorder
	issuer       *auth.Issuer
	enrollment   *usecase.EnrollmentService
	verification *usecase.VerificationService
	status       *usecase.StatusService

	closers []func()
}

func newApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (a *app, err error) {
	a = &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	vectorizer, err := buildVectorizer(cfg)
	if err != nil {
		return nil, err
	}
	decoder := &imagedecode.Decoder{MaxPixels: cfg.MaxImagePixels}
	pipeline := usecase.NewPipeline(decoder, vectorizer, cfg.Workers)

	initCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if a.db, err = initDatabase(initCtx, cfg, logger); err != nil {
		return nil, err
	}
	if sqlDB, err := a.db.DB(); err == nil {
		a.closers = append(a.closers, func() { _ = sqlDB.Close() })
	}
	if a.users, err = a.initUserStore(initCtx); err != nil {
		return nil, err
	}

	attempts := repository.NewAttemptRepository(a.db, logger)
	if err := attempts.AutoMigrate(initCtx); err != nil {
		return nil, fmt.Errorf("auto migrate attempts: %w", err)
	}

	var cache usecase.Cache
	if cfg.RedisAddr != "" {
		client, err := initRedis(initCtx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		cache = usecase.NewRedisCache(client)
	}
	a.recorder = usecase.NewAttemptRecorder(attempts, cache, logger)

	var tokens usecase.TokenIssuer
	if cfg.JWTSecret != "" {
		if a.issuer, err = auth.NewIssuer(cfg.JWTSecret, cfg.JWTAudience, cfg.TokenTTL); err != nil {
			return nil, err
		}
		tokens = a.issuer
	}

	policy := usecase.NewRolePolicy(cfg.AllowedRoles...)
	engine := similarity.NewEngine(cfg.MatchThreshold)
	a.enrollment = usecase.NewEnrollmentService(a.users, pipeline, policy, a.recorder, logger)
	a.verification = usecase.NewVerificationService(a.users, pipeline, engine, policy, a.recorder, tokens, logger)
	a.status = usecase.NewStatusService(a.users, logger)
	return a, nil
}

// Close releases connections in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) initUserStore(ctx context.Context) (usecase.UserStore, error) {
	if a.cfg.UserStore == "mongo" {
		client, err := repository.ConnectMongo(ctx, a.cfg.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Disconnect(context.Background()) })
		coll := client.Database(a.cfg.MongoDatabase).Collection(a.cfg.MongoCollection)
		return repository.NewMongoUserRepository(coll, a.logger), nil
	}

	users := repository.NewUserRepository(a.db, a.logger)
	if err := users.AutoMigrate(ctx); err != nil {
		return nil, fmt.Errorf("auto migrate users: %w", err)
	}
	return users, nil
}

// buildVectorizer constructs the configured detector and normalizer.
func buildVectorizer(cfg config.Config) (*face.Vectorizer, error) {
	locator, err := face.NewLocator(cfg.Detector, cfg.CascadePath, cfg.DetectorParams())
	if err != nil {
		return nil, fmt.Errorf("build %s detector: %w", cfg.Detector, err)
	}
	if contrast, ok := locator.(*face.ContrastLocator); ok {
		contrast.Threshold = cfg.ContrastThreshold
	}
	return face.NewVectorizer(locator, face.NewNormalizer(cfg.CanonicalWidth, cfg.CanonicalHeight)), nil
}

func initDatabase(ctx context.Context, cfg config.Config, zapLogger *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseDSN)
	case "sqlite":
		dsn := cfg.DatabaseDSN
		if dsn == "" {
			dsn = cfg.SQLiteFile
		}
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		zapLogger.Error("failed to connect to database", zap.Error(err), zap.String("driver", cfg.DatabaseDriver))
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("access db handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping: %w", err)
	}
	return db, nil
}

func initRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Join(fmt.Errorf("redis connection to %s failed", addr), err)
	}
	return client, nil
}
