package util

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

//nolint:gochecknoglobals // here its ok
var once sync.Once

func init() {
	once.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			log.Printf("Warning: could not load .env file: %v", err)
		}
	})
}

const (
	defaultServerAddr      = "localhost:8081"
	defaultWriteTimeout    = 10 * time.Second
	defaultReadTimeout     = 10 * time.Second
	defaultIdleTimeout     = 30 * time.Second
	defaultGracefulTimeout = 5 * time.Second

	defaultAPIURL         = "http://127.0.0.1:8000"
	defaultHTTPTimeout    = 10 * time.Second
	defaultRefreshTimeout = 10 * time.Second

	// DefaultSafetyMargin: токен считается истекающим за минуту до exp.
	DefaultSafetyMargin = 60 * time.Second
	DefaultMinDelay     = 1 * time.Second

	defaultStoreDriver  = StoreDriverFile
	defaultStoreProfile = "default"

	defaultDevBackendAddr = "localhost:8000"
	defaultAccessTTL      = 5 * time.Minute
	defaultRefreshTTL     = 24 * time.Hour
)

const (
	StoreDriverMemory   = "memory"
	StoreDriverFile     = "file"
	StoreDriverRedis    = "redis"
	StoreDriverPostgres = "postgres"
)

type ServerConfig struct {
	ServerAddr      string
	APIKey          string
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
}

func NewServerConfig() *ServerConfig {
	addr := os.Getenv("SERVER_ADDRESS")
	if addr == "" {
		addr = defaultServerAddr
	}

	apiKey := os.Getenv("AGENT_API_KEY")
	if apiKey == "" {
		log.Fatal("AGENT_API_KEY is not set")
	}

	return &ServerConfig{
		ServerAddr:      addr,
		APIKey:          apiKey,
		WriteTimeout:    parseDurationOrDefault("WRITE_TIMEOUT", defaultWriteTimeout),
		ReadTimeout:     parseDurationOrDefault("READ_TIMEOUT", defaultReadTimeout),
		IdleTimeout:     parseDurationOrDefault("IDLE_TIMEOUT", defaultIdleTimeout),
		GracefulTimeout: parseDurationOrDefault("GRACEFUL_TIMEOUT", defaultGracefulTimeout),
	}
}

// BackendConfig describes the TestSkool REST backend the agent talks to.
type BackendConfig struct {
	BaseURL        string
	Timeout        time.Duration
	RefreshTimeout time.Duration
}

func NewBackendConfig() *BackendConfig {
	baseURL := os.Getenv("API_URL")
	if baseURL == "" {
		baseURL = defaultAPIURL
	}

	return &BackendConfig{
		BaseURL:        strings.TrimRight(baseURL, "/"),
		Timeout:        parseDurationOrDefault("HTTP_TIMEOUT", defaultHTTPTimeout),
		RefreshTimeout: parseDurationOrDefault("REFRESH_TIMEOUT", defaultRefreshTimeout),
	}
}

type TokenConfig struct {
	SafetyMargin time.Duration
	MinDelay     time.Duration
}

func NewTokenConfig() *TokenConfig {
	return &TokenConfig{
		SafetyMargin: parseDurationOrDefault("TOKEN_SAFETY_MARGIN", DefaultSafetyMargin),
		MinDelay:     parseDurationOrDefault("TOKEN_MIN_DELAY", DefaultMinDelay),
	}
}

type StoreConfig struct {
	Driver  string
	Path    string
	Profile string
}

func NewStoreConfig() *StoreConfig {
	driver := os.Getenv("STORE_DRIVER")
	if driver == "" {
		driver = defaultStoreDriver
	}

	profile := os.Getenv("STORE_PROFILE")
	if profile == "" {
		profile = defaultStoreProfile
	}

	path := os.Getenv("STORE_PATH")
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		path = filepath.Join(home, ".testskool", profile+".json")
	}

	return &StoreConfig{
		Driver:  driver,
		Path:    path,
		Profile: profile,
	}
}

type DevBackendConfig struct {
	Addr         string
	JwtSecretKey []byte
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
}

func NewDevBackendConfig() *DevBackendConfig {
	addr := os.Getenv("DEV_BACKEND_ADDRESS")
	if addr == "" {
		addr = defaultDevBackendAddr
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	return &DevBackendConfig{
		Addr:         addr,
		JwtSecretKey: []byte(secret),
		AccessTTL:    parseDurationOrDefault("ACCESS_TOKEN_TTL", defaultAccessTTL),
		RefreshTTL:   parseDurationOrDefault("REFRESH_TOKEN_TTL", defaultRefreshTTL),
	}
}

func parseDurationOrDefault(varName string, def time.Duration) time.Duration {
	if v := os.Getenv(varName); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("Invalid duration in %s: %s, using default %s", varName, v, def)
	}
	return def
}
