/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package config

import (
    "encoding/json"
    "log"
    "os"
    "strconv"
    "strings"
    "time"

    "github.com/joho/godotenv"
)

// DefaultStatuses is the enumerated workflow-status vocabulary used for the
// per-status breakdown when no statuses file is configured.
var DefaultStatuses = []string{
    "New",
    "Em Planejamento",
    "Em Andamento",
    "Projeto em Fase Critica",
    "Homologação Interna",
    "Em Homologação",
    "Em Fase de Encerramento",
    "Em Garantia",
    "Pausado pelo Cliente",
}

type Config struct {
    AppEnv   string
    TZ       string
    HTTPAddr string
    LogLevel string

    DBDSN string

    AzdoBaseURL     string
    AzdoOrg         string
    AzdoPAT         string
    AzdoAPIVersion  string
    AzdoRootProject string

    SecretKey    string
    TokenTTL     time.Duration
    FrontendURL  string

    OpenAIKey     string
    OpenAIModel   string
    OpenAITimeout time.Duration

    NearDeadlineDays int
    CacheSeconds     int
    ScopedTotals     bool

    StatusesFile string
    Statuses     []string

    PrewarmCron string
    HTTPTimeout time.Duration
}

func getenv(key, def string) string {
    v := os.Getenv(key)
    if v == "" { return def }
    return v
}

func atoi(key string, def int) int {
    v := os.Getenv(key)
    if v == "" { return def }
    i, err := strconv.Atoi(v)
    if err != nil { return def }
    return i
}

func dur(key string, def time.Duration) time.Duration {
    v := os.Getenv(key)
    if v == "" { return def }
    d, err := time.ParseDuration(v)
    if err != nil { return def }
    return d
}

func boolenv(key string, def bool) bool {
    v := os.Getenv(key)
    if v == "" { return def }
    b, err := strconv.ParseBool(v)
    if err != nil { return def }
    return b
}

func parseStrings(csv string) []string {
    if csv == "" { return nil }
    parts := strings.Split(csv, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        p = strings.TrimSpace(p)
        if p == "" { continue }
        out = append(out, p)
    }
    return out
}

func Load() Config {
    _ = godotenv.Load()

    cfg := Config{
        AppEnv:   getenv("APP_ENV", "dev"),
        TZ:       getenv("APP_TZ", "America/Sao_Paulo"),
        HTTPAddr: getenv("HTTP_ADDR", ":8080"),
        LogLevel: getenv("LOG_LEVEL", "info"),

        DBDSN: getenv("DB_DSN", ""),

        AzdoBaseURL:     getenv("AZDO_BASE_URL", "https://dev.azure.com/qualiit/"),
        AzdoOrg:         getenv("AZDO_ORG", "qualiit"),
        AzdoPAT:         getenv("AZDO_PAT", ""),
        AzdoAPIVersion:  getenv("AZDO_API_VERSION", "7.0"),
        AzdoRootProject: getenv("AZDO_ROOT_PROJECT", "Quali IT - Inovação e Tecnologia"),

        SecretKey:   getenv("SECRET_KEY", "dev-secret-key-change-in-production"),
        TokenTTL:    dur("TOKEN_TTL", 30*time.Minute),
        FrontendURL: getenv("FRONTEND_URL", "http://localhost:5173"),

        OpenAIKey:     getenv("OPENAI_API_KEY", ""),
        OpenAIModel:   getenv("OPENAI_MODEL", "gpt-4.1-mini"),
        OpenAITimeout: dur("OPENAI_TIMEOUT", 15*time.Second),

        NearDeadlineDays: atoi("NEAR_DEADLINE_DAYS", 7),
        CacheSeconds:     atoi("CACHE_SECONDS", 10),
        ScopedTotals:     boolenv("SCOPED_TOTALS", false),

        StatusesFile: getenv("STATUSES_FILE", "/config/statuses.json"),

        PrewarmCron: getenv("CRON_SPEC", "*/5 * * * *"),
        HTTPTimeout: dur("HTTP_TIMEOUT", 30*time.Second),
    }

    // CSV override wins over the file; the file wins over the default.
    if csv := parseStrings(getenv("STATUSES", "")); len(csv) > 0 {
        cfg.Statuses = csv
    } else {
        cfg.Statuses = loadStatuses(cfg.StatusesFile)
    }

    // set global timezone if available
    if loc, err := time.LoadLocation(cfg.TZ); err == nil {
        time.Local = loc
    } else {
        log.Printf("warning: cannot load TZ %s: %v", cfg.TZ, err)
    }
    return cfg
}

func loadStatuses(path string) []string {
    read := func(p string) []string {
        data, err := os.ReadFile(p)
        if err != nil { return nil }
        var arr []string
        if err := json.Unmarshal(data, &arr); err != nil { return nil }
        out := make([]string, 0, len(arr))
        for _, s := range arr {
            s = strings.TrimSpace(s)
            if s != "" { out = append(out, s) }
        }
        return out
    }
    if out := read(path); len(out) > 0 { return out }
    // try relative path fallback
    if out := read("config/statuses.json"); len(out) > 0 { return out }
    return append([]string(nil), DefaultStatuses...)
}
