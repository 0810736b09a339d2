package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/akeren/go-rest-starter/internal/log"
	"github.com/akeren/go-rest-starter/pkg/utils"
	"github.com/joho/godotenv"
)

const AppEnvKey = "APP_ENV"

// developmentEnvs are the APP_ENV values that unlock --auto-migrate and the fallback JWT secret.
// An unset APP_ENV counts as development.
var developmentEnvs = []string{"", "dev", "development", "local", "test", "testing"}

// InitializeEnvFile loads ENV_FILE (default .env) into the process environment. Variables that
// are already set win over the file. SKIP_DOTENV=true disables loading entirely.
func InitializeEnvFile(logger *log.Logger) {
	if utils.GetEnvBool("SKIP_DOTENV", false) {
		logger.Info("Skipping .env file load (SKIP_DOTENV=true)")
		return
	}

	path := utils.GetEnvTrimmedOrDefault("ENV_FILE", ".env")
	err := godotenv.Load(path)
	switch {
	case err == nil:
		logger.Info("Environment variables loaded from file", "path", path)
	case errors.Is(err, fs.ErrNotExist):
		logger.Debug("No env file found; using process environment only", "path", path)
	default:
		logger.Warn("Failed to load env file", "path", path, "error", err)
	}
}

// GetAppEnv returns APP_ENV lower-cased and trimmed.
func GetAppEnv() string {
	return strings.ToLower(utils.GetEnvTrimmed(AppEnvKey))
}

func IsDevelopmentEnv(appEnv string) bool {
	return slices.Contains(developmentEnvs, strings.ToLower(strings.TrimSpace(appEnv)))
}

func ValidateAutoMigrateAllowed(appEnv string) error {
	if IsDevelopmentEnv(appEnv) {
		return nil
	}

	allowed := make([]string, len(developmentEnvs))
	for i, env := range developmentEnvs {
		allowed[i] = fmt.Sprintf("%q", env)
	}
	return fmt.Errorf("--auto-migrate is not allowed when %s=%q (allowed: %s)",
		AppEnvKey, strings.ToLower(strings.TrimSpace(appEnv)), strings.Join(allowed, ", "))
}
