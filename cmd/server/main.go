// Command server runs the memo HTTP API.
//
// Configuration comes from the environment:
//
//	PORT                  listen port (8080)
//	DB_PATH               SQLite file (data/memopad.db)
//	JWT_SECRET            token signing key; unset disables the memo API
//	GITHUB_CLIENT_ID      GitHub OAuth app, optional
//	GITHUB_CLIENT_SECRET
//	GITHUB_CALLBACK_URL   (PUBLIC_URL/auth/github/callback)
//	PUBLIC_URL            externally reachable base URL (http://localhost:PORT)
//	CORS_ORIGINS          comma-separated browser origins
//	LOCALE                day labels of the HTML list (en_US)
//	EXECUTOR_ENABLED      "true" to run code blocks in Docker
//	EXECUTOR_LANGUAGES    comma-separated runtimes (python)
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/goodsign/monday"

	"github.com/sakif/memopad/internal/executor"
	"github.com/sakif/memopad/internal/executor/docker"
	"github.com/sakif/memopad/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	dbPath := envOr("DB_PATH", "data/memopad.db")
	if dbPath != ":memory:" {
		dbDir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	publicURL := strings.TrimRight(envOr("PUBLIC_URL", "http://localhost:"+strconv.Itoa(port)), "/")

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Warn("JWT_SECRET not set: authentication and the memo API are disabled")
	}

	// Only a successfully started sandbox is stored in the interface, so a
	// failed start leaves exec a true nil.
	var exec executor.Executor
	if enabled, _ := strconv.ParseBool(os.Getenv("EXECUTOR_ENABLED")); enabled {
		cfg := docker.DefaultConfig()
		if langs := splitList(os.Getenv("EXECUTOR_LANGUAGES")); len(langs) > 0 {
			var unknown []string
			cfg, unknown = cfg.WithLanguages(langs...)
			for _, name := range unknown {
				logger.Warn("unknown executor language ignored", slog.String("language", name))
			}
		}
		d, err := docker.New(cfg, logger)
		if err != nil {
			logger.Warn("Docker executor unavailable: code blocks cannot run",
				slog.String("error", err.Error()),
			)
		} else {
			defer d.Close()
			exec = d
			logger.Info("code execution enabled", slog.Any("languages", d.Languages()))
		}
	}

	cfg := server.Config{
		Port:               port,
		DBPath:             dbPath,
		JWTSecret:          jwtSecret,
		GitHubClientID:     os.Getenv("GITHUB_CLIENT_ID"),
		GitHubClientSecret: os.Getenv("GITHUB_CLIENT_SECRET"),
		GitHubCallbackURL:  envOr("GITHUB_CALLBACK_URL", publicURL+"/auth/github/callback"),
		CORSOrigins:        splitList(os.Getenv("CORS_ORIGINS")),
		PublicURL:          publicURL,
		Locale:             monday.Locale(envOr("LOCALE", string(monday.LocaleEnUS))),
	}

	srv, err := server.New(cfg, logger, exec)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
