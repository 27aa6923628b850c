package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"trip-integrity-service/internal/config"
)

const startupTimeout = 30 * time.Second

// New opens the pool, checks the server is reachable and applies the schema.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*gorm.DB, error) {
	log = log.With().Str("component", "gorm").Logger()
	gormLog := gormlogger.New(
		zerologWriter{logger: log},
		gormlogger.Config{
			SlowThreshold:             500 * time.Millisecond,
			Colorful:                  false,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      cfg.Environment == "production",
			LogLevel:                  gormLogLevel(cfg.Environment, cfg.LogLevel),
		},
	)

	database, err := gorm.Open(postgres.Open(cfg.DB.DSN), &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := configurePool(database, cfg.DB); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()
	if err := HealthCheck(ctx, database); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := runMigrations(ctx, database, log); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return database, nil
}

func configurePool(database *gorm.DB, cfg config.DBConfig) error {
	sqlDB, err := database.DB()
	if err != nil {
		return err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return nil
}

func HealthCheck(ctx context.Context, db *gorm.DB) error {
	return db.WithContext(ctx).Exec("SELECT 1").Error
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// gormLogLevel follows LOG_LEVEL when set, otherwise the environment.
func gormLogLevel(env, level string) gormlogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug":
		return gormlogger.Info
	case "info", "warn":
		return gormlogger.Warn
	case "error", "fatal", "panic":
		return gormlogger.Error
	case "disabled":
		return gormlogger.Silent
	}
	if env == "development" {
		return gormlogger.Info
	}
	return gormlogger.Warn
}

type zerologWriter struct {
	logger zerolog.Logger
}

// Printf receives gorm's preformatted lines; slow queries and errors carry a marker gorm adds.
func (w zerologWriter) Printf(msg string, args ...interface{}) {
	line := fmt.Sprintf(msg, args...)
	event := w.logger.Debug()
	switch {
	case strings.Contains(line, "SLOW SQL"):
		event = w.logger.Warn()
	case strings.Contains(line, "error"), strings.Contains(line, "Error"):
		event = w.logger.Error()
	}
	event.Msg(line)
}
