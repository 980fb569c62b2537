package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds runtime settings read from the environment
type Config struct {
	Port             string
	APIURL           string
	APITimeout       time.Duration
	RefreshTimeout   time.Duration
	APIRequestsPerS  float64
	CORSOrigins      []string
	FrontendDistPath string
	DBPath           string
	SortLocale       string
	ChartCacheSize   int
	AutoRefresh      time.Duration
	SnapshotHour     int

	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
}

// Load reads an optional .env file and then the process environment.
// Invalid values are logged and replaced by their default.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Config: no .env file found, using system environment variables")
	}

	cfg := Config{
		Port:             getString("PORT", "8080"),
		APIURL:           strings.TrimRight(getString("MINIFIG_API_URL", "http://127.0.0.1:5000"), "/"),
		APITimeout:       getDuration("MINIFIG_API_TIMEOUT", 30*time.Second),
		RefreshTimeout:   getDuration("MINIFIG_API_REFRESH_TIMEOUT", 15*time.Minute),
		APIRequestsPerS:  getFloat("MINIFIG_API_RPS", 5),
		CORSOrigins:      []string{"http://localhost:4200", "http://localhost:5173"},
		FrontendDistPath: os.Getenv("FRONTEND_DIST_PATH"),
		DBPath:           getString("DB_PATH", "./minifig_tracker.db"),
		SortLocale:       getString("SORT_LOCALE", "fr"),
		ChartCacheSize:   getInt("CHART_CACHE_SIZE", 128),
		AutoRefresh:      getDuration("AUTO_REFRESH_INTERVAL", 0),
		SnapshotHour:     getInt("SNAPSHOT_HOUR", 23),
		LogFile:          os.Getenv("LOG_FILE"),
		LogMaxSizeMB:     getInt("LOG_MAX_SIZE_MB", 10),
		LogMaxBackups:    getInt("LOG_MAX_BACKUPS", 3),
	}

	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.CORSOrigins = strings.Split(origins, ",")
	}
	if cfg.SnapshotHour < 0 || cfg.SnapshotHour > 23 {
		log.Printf("Config: SNAPSHOT_HOUR=%d out of range, using 23", cfg.SnapshotHour)
		cfg.SnapshotHour = 23
	}

	return cfg
}

func getString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("Config: invalid %s=%q, using %d", key, v, def)
		return def
	}
	return n
}

func getFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		log.Printf("Config: invalid %s=%q, using %v", key, v, def)
		return def
	}
	return f
}

// getDuration accepts Go durations ("90s", "6h") or a bare number of seconds
func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("Config: invalid %s=%q, using %v", key, v, def)
	return def
}
