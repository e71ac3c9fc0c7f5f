package config

import (
	"os"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Config struct {
	Port        string
	DatabaseURL string
	SQLitePath  string
	AIAPIURL    string
	CORSOrigin  string
}

func Load() Config {
	return Config{
		Port:        getenv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getenv("SQLITE_PATH", "reconciliation.db"),
		AIAPIURL:    getenv("AI_API_URL", "https://text.pollinations.ai/"),
		CORSOrigin:  getenv("CORS_ORIGIN", "http://localhost:3000"),
	}
}

// InitDB opens postgres when DATABASE_URL is set and falls back to a local
// sqlite file for development. TranslateError is required: the idempotency
// coordinator depends on unique-constraint violations surfacing as
// gorm.ErrDuplicatedKey.
func InitDB(cfg Config, log *zap.Logger) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	}

	if cfg.DatabaseURL != "" {
		log.Info("connecting to postgres")
		return gorm.Open(postgres.Open(cfg.DatabaseURL), gormCfg)
	}

	log.Info("DATABASE_URL not set, using local sqlite", zap.String("path", cfg.SQLitePath))
	return gorm.Open(sqlite.Open(cfg.SQLitePath), gormCfg)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
