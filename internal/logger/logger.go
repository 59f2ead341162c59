package logger

import (
    "os"
    "strings"
    "time"

    "github.com/marcelomcd/NewFarol-sub000/internal/config"
    "github.com/rs/zerolog"
    "github.com/rs/zerolog/log"
)

// New builds the process logger: console output in dev, JSON elsewhere,
// level taken from LOG_LEVEL.
func New(cfg config.Config) zerolog.Logger {
    level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.LogLevel)))
    if err != nil || level == zerolog.NoLevel { level = zerolog.InfoLevel }
    zerolog.TimeFieldFormat = time.RFC3339

    var out zerolog.Logger
    if cfg.AppEnv == "dev" {
        w := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
        out = zerolog.New(w).Level(level).With().Timestamp().Logger()
    } else {
        out = zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
    }
    log.Logger = out
    return out
}
