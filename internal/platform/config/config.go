package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported values for AUTH_PROVIDER.
const (
	AuthProviderJWT      = "jwt"
	AuthProviderFirebase = "firebase"
)

const defaultPort = "8080"

// Config holds runtime settings read from the environment.
type Config struct {
	Port string

	AuthProvider string
	JWTSecret    string
	JWTIssuer    string
	JWTLeeway    time.Duration

	FirebaseProjectID            string
	GoogleApplicationCredentials string

	// ProjectID is the Google Cloud project used to correlate request logs
	// with Cloud Trace. Empty disables trace fields.
	ProjectID string
}

// Load reads configuration from the process environment after merging the
// given dotenv files. Missing files are ignored and variables already set in
// the environment take precedence over file values.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Config{
		Port:         getenv("PORT", defaultPort),
		AuthProvider: strings.ToLower(getenv("AUTH_PROVIDER", AuthProviderJWT)),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		JWTIssuer:    os.Getenv("JWT_ISSUER"),
		FirebaseProjectID: firstNonEmpty(
			os.Getenv("FIREBASE_PROJECT_ID"),
			os.Getenv("GOOGLE_CLOUD_PROJECT"),
		),
		GoogleApplicationCredentials: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
	}
	cfg.ProjectID = firstNonEmpty(os.Getenv("GOOGLE_CLOUD_PROJECT"), cfg.FirebaseProjectID)

	if raw := os.Getenv("JWT_LEEWAY_SECONDS"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs < 0 {
			return Config{}, fmt.Errorf("invalid JWT_LEEWAY_SECONDS %q", raw)
		}
		cfg.JWTLeeway = time.Duration(secs) * time.Second
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the settings required by the selected auth provider are present.
func (c Config) Validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid PORT %q", c.Port)
	}
	switch c.AuthProvider {
	case AuthProviderJWT:
		if c.JWTSecret == "" {
			return errors.New("JWT_SECRET is required when AUTH_PROVIDER=jwt")
		}
	case AuthProviderFirebase:
		if c.FirebaseProjectID == "" {
			return errors.New("FIREBASE_PROJECT_ID is required when AUTH_PROVIDER=firebase")
		}
	default:
		return fmt.Errorf("unsupported AUTH_PROVIDER %q", c.AuthProvider)
	}
	return nil
}

// Addr returns the listen address for http.Server.
func (c Config) Addr() string {
	return ":" + c.Port
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
