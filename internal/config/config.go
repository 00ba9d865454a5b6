package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Secrets and connection settings are strings,
// TTLs are ints or durations depending on how callers consume them.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBDriver       string // "mysql" or "sqlite"
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	DBPath         string // sqlite file path, only read when DBDriver is sqlite
	JWTSecret      string // secret used to sign JWTs
	AccessTTLMin   int    // access token time-to-live in minutes
	RefreshTTLDays int    // refresh token time-to-live in days
	LogLevel       string // debug, info, warn or error

	OTP     OTPConfig
	Mail    MailConfig
	Spotify SpotifyConfig
	Storage StorageConfig
	AMQPURL string // broker URL; empty disables queued mail
}

// OTPConfig controls the email one-time passcode login.
type OTPConfig struct {
	TTL         time.Duration
	MaxAttempts int
	BcryptCost  int
}

// MailConfig holds transactional email settings.
type MailConfig struct {
	ResendAPIKey string
	From         string
	PublicURL    string // base URL used in links inside emails
}

// SpotifyConfig holds client-credentials for the artist search API.
type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	SyncInterval time.Duration // spacing between calls during bulk sync
}

// StorageConfig describes the blob bucket used for images.  BucketURL
// overrides the file bucket rooted at Dir.
type StorageConfig struct {
	BucketURL  string
	Dir        string
	PublicBase string
	MaxBytes   int64
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is loaded first when present.
// Required variables are enforced by must() and missing values cause the
// program to exit with a fatal log message.
func Load() Config {
	_ = godotenv.Load() // a missing .env is normal outside development

	cfg := Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		DBDriver:       envStr("DB_DRIVER", "mysql"),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		OTP: OTPConfig{
			TTL:         time.Duration(envInt("OTP_TTL_MIN", 10)) * time.Minute,
			MaxAttempts: envInt("OTP_MAX_ATTEMPTS", 5),
			BcryptCost:  envInt("OTP_BCRYPT_COST", 10),
		},
		Mail: MailConfig{
			ResendAPIKey: os.Getenv("RESEND_API_KEY"),
			From:         envStr("MAIL_FROM", "FestPlanner <invite@fest.elimu.pl>"),
			PublicURL:    envStr("APP_PUBLIC_URL", "https://festplanner.app"),
		},
		Spotify: SpotifyConfig{
			ClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
			ClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
			SyncInterval: envDur("ARTIST_SYNC_INTERVAL", 600*time.Millisecond),
		},
		Storage: StorageConfig{
			BucketURL:  os.Getenv("STORAGE_URL"),
			Dir:        envStr("STORAGE_DIR", "./data/storage"),
			PublicBase: envStr("STORAGE_PUBLIC_BASE", "/storage"),
			MaxBytes:   int64(envInt("STORAGE_MAX_BYTES", 5<<20)),
		},
		AMQPURL: amqpURL(),
	}

	switch cfg.DBDriver {
	case "sqlite":
		cfg.DBPath = envStr("DB_PATH", "festplanner.db")
	case "mysql":
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	default:
		log.Fatalf("unsupported DB_DRIVER: %q", cfg.DBDriver)
	}
	return cfg
}

// amqpURL returns the broker URL from RABBITMQ_URL or AMQP_URL.  There is no
// localhost default: an empty value means mail is sent inline.
func amqpURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
