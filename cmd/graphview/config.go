package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/deckerd451/innovation-engine-sub000/pkg/model"
)

const (
	defaultDebounce = 800 * time.Millisecond
	defaultCooldown = 10 * time.Second
)

type Config struct {
	DBPath         string
	UserID         string
	RedisAddr      string // empty disables realtime sync
	MetricsAddr    string // empty disables the metrics endpoint
	Mode           model.DisplayMode
	DebounceWindow time.Duration
	ReloadCooldown time.Duration
	MCPStdio       bool
}

func LoadConfig(args []string) (Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, fmt.Errorf("failed to get cwd: %w", err)
	}

	dbPath := envOrDefault("GRAPHVIEW_DB_PATH", filepath.Join(cwd, "community.db"))
	userID := os.Getenv("GRAPHVIEW_USER")
	redisAddr := os.Getenv("GRAPHVIEW_REDIS_ADDR")
	metricsAddr := os.Getenv("GRAPHVIEW_METRICS_ADDR")
	mode := envOrDefault("GRAPHVIEW_MODE", string(model.ModeFocused))

	debounce := defaultDebounce
	if v := os.Getenv("GRAPHVIEW_DEBOUNCE"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid GRAPHVIEW_DEBOUNCE: %w", err)
		}
		debounce = parsed
	}
	cooldown := defaultCooldown
	if v := os.Getenv("GRAPHVIEW_COOLDOWN"); v != "" {
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid GRAPHVIEW_COOLDOWN: %w", err)
		}
		cooldown = parsed
	}

	flagSet := flag.NewFlagSet("graphview", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagDB := flagSet.String("db", dbPath, "path to SQLite community database")
	flagUser := flagSet.String("user", userID, "current user's member id")
	flagRedis := flagSet.String("redis", redisAddr, "redis address for realtime sync (empty disables)")
	flagMetrics := flagSet.String("metrics-addr", metricsAddr, "listen address for prometheus metrics (empty disables)")
	flagMode := flagSet.String("mode", mode, "display mode: focused|full")
	flagMCP := flagSet.Bool("mcp", false, "serve the Model Context Protocol on stdio instead of the TUI")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flagSet.SetOutput(os.Stdout)
			flagSet.PrintDefaults()
			return Config{}, err
		}
		return Config{}, err
	}

	config := Config{
		DBPath:         resolvePath(*flagDB, cwd),
		UserID:         strings.TrimSpace(*flagUser),
		RedisAddr:      strings.TrimSpace(*flagRedis),
		MetricsAddr:    strings.TrimSpace(*flagMetrics),
		DebounceWindow: debounce,
		ReloadCooldown: cooldown,
		MCPStdio:       *flagMCP,
	}

	if config.UserID == "" {
		return Config{}, errors.New("user id is required (-user or GRAPHVIEW_USER)")
	}

	switch model.DisplayMode(strings.TrimSpace(*flagMode)) {
	case model.ModeFocused:
		config.Mode = model.ModeFocused
	case model.ModeFullCommunity:
		config.Mode = model.ModeFullCommunity
	default:
		return Config{}, fmt.Errorf("unsupported mode: %s", *flagMode)
	}

	return config, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func resolvePath(path string, cwd string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return trimmed
	}
	if filepath.IsAbs(trimmed) {
		return trimmed
	}
	return filepath.Join(cwd, trimmed)
}
