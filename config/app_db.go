package config

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/akeren/go-rest-starter/internal/log"
	"github.com/akeren/go-rest-starter/pkg/retry"
	"github.com/akeren/go-rest-starter/pkg/utils"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type DBConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	SSLMode         string // used when POSTGRES_SSLMODE is unset
}

func defaultDBConfig() *DBConfig {
	return &DBConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: time.Minute,
		SSLMode:         "require",
	}
}

// NewDatabase opens the postgres pool described by APP_DATABASE_URL, or by the POSTGRES_*
// variables when no URL is set, and pings it once.
func NewDatabase(logger *log.Logger, cfg *DBConfig) (*gorm.DB, error) {
	if cfg == nil {
		cfg = defaultDBConfig()
	}

	dsn, err := databaseDSN(logger, cfg)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		logger.Error("Database ping failed", "error", err)
		_ = sqlDB.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info("Database connection established successfully")
	return gdb, nil
}

// NewDatabaseWithRetry retries transient connection failures (refused, timeout, starting up)
// DB_CONNECT_ATTEMPTS times with exponential backoff. Configuration errors fail immediately.
func NewDatabaseWithRetry(ctx context.Context, logger *log.Logger, cfg *DBConfig) (*gorm.DB, error) {
	policy := retry.NewExponentialBackoff(&retry.Config{
		MaxAttempts: utils.GetEnvPositiveInt("DB_CONNECT_ATTEMPTS", 5),
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Multiplier:  2,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			logger.Warn("Database connection failed; retrying", "attempt", attempt, "delay", delay.String(), "error", err)
		},
	})

	var db *gorm.DB
	err := policy.Execute(ctx, func(context.Context) error {
		var openErr error
		db, openErr = NewDatabase(logger, cfg)
		return openErr
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

func databaseDSN(logger *log.Logger, cfg *DBConfig) (string, error) {
	if url := sanitizeEnv(utils.GetEnvTrimmed("APP_DATABASE_URL")); url != "" {
		logger.Info("Using APP_DATABASE_URL for database connection")
		return url, nil
	}

	params := map[string]string{}
	var missing []string
	for _, key := range []string{"POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB_NAME", "POSTGRES_SSLMODE"} {
		params[key] = sanitizeEnv(utils.GetEnvTrimmed(key))
		if params[key] == "" && key != "POSTGRES_PASSWORD" && key != "POSTGRES_SSLMODE" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		logger.Error("Missing required database environment variables", "missingVars", strings.Join(missing, ", "))
		return "", fmt.Errorf("missing required database env vars: %s", strings.Join(missing, ", "))
	}

	port, err := strconv.Atoi(params["POSTGRES_PORT"])
	if err != nil {
		return "", fmt.Errorf("invalid POSTGRES_PORT %q: %w", params["POSTGRES_PORT"], err)
	}

	ssl := params["POSTGRES_SSLMODE"]
	if ssl == "" {
		ssl = cfg.SSLMode
	}

	logger.Info("Connecting to database",
		"host", params["POSTGRES_HOST"],
		"port", port,
		"user", params["POSTGRES_USER"],
		"dbname", params["POSTGRES_DB_NAME"],
		"sslmode", ssl,
	)
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		params["POSTGRES_HOST"], port, params["POSTGRES_USER"], params["POSTGRES_PASSWORD"], params["POSTGRES_DB_NAME"], ssl), nil
}

// sanitizeEnv trims whitespace and one pair of matching surrounding quotes.
func sanitizeEnv(v string) string {
	s := strings.TrimSpace(v)

	if len(s) >= 2 && ((s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'')) {
		s = s[1 : len(s)-1]
	}

	return s
}

func AutoMigrate(logger *log.Logger, db *gorm.DB, models ...any) error {
	if db == nil {
		return errors.New("cannot migrate: no database connection")
	}

	if err := db.AutoMigrate(models...); err != nil {
		logger.Error("Database migration failed", "error", err)
		return fmt.Errorf("auto-migrate failed: %w", err)
	}

	logger.Info("Database migration completed successfully")

	return nil
}

func CloseDatabase(db *gorm.DB, logger *log.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("Failed to get SQL DB instance", "error", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		logger.Error("Failed to close database", "error", err)
		return
	}
	logger.Info("Database closed successfully")
}
