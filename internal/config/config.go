package config // package config loads client configuration from the environment and an optional .env file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds the runtime settings of the booking client.  Each field
// corresponds to an environment variable; defaults apply when unset.
type Config struct {
	Env             string        `envconfig:"APP_ENV" default:"dev"`                               // dev switches logging to a console writer
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`                            // zerolog level name
	APIBaseURL      string        `envconfig:"TICKETBOOTH_API_URL" default:"http://localhost:8080"` // Ticketbooth API root
	HTTPTimeout     time.Duration `envconfig:"HTTP_TIMEOUT" default:"15s"`                          // transport timeout
	PaymentSource   string        `envconfig:"PAYMENT_SOURCE" default:"test-card-4242"`             // opaque payment token
	TierIDFallback  bool          `envconfig:"TIER_ID_FALLBACK" default:"true"`                     // allow the static seat tier-id table
	SessionStore    string        `envconfig:"SESSION_STORE" default:"file"`                        // file | redis | memory
	SessionFile     string        `envconfig:"SESSION_FILE"`                                        // file store location
	RabbitURL       string        `envconfig:"RABBITMQ_URL"`                                        // empty disables outcome events
	BookingExchange string        `envconfig:"BOOKING_EXCHANGE" default:"ticketbooth.bookings"`     // topic exchange for outcome events
}

// FakeAPIConfig configures the local API double started by cmd/fakeapi.
type FakeAPIConfig struct {
	Env          string `envconfig:"APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
	Port         string `envconfig:"FAKEAPI_PORT" default:"8080"`
	JWTSecret    string `envconfig:"JWT_SECRET" default:"dev-secret"`
	AccessTTLMin int    `envconfig:"ACCESS_TOKEN_TTL_MIN" default:"60"`
	BcryptCost   int    `envconfig:"BCRYPT_COST" default:"10"`
}

// Load reads a .env file from the working directory when present and
// then fills a Config from the environment.
func Load() (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if c.RabbitURL == "" {
		c.RabbitURL = os.Getenv("AMQP_URL")
	}
	if c.SessionFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.SessionFile = filepath.Join(home, ".ticketbooth", "auth.json")
	}
	switch c.SessionStore {
	case "file", "redis", "memory":
	default:
		return Config{}, fmt.Errorf("config: invalid SESSION_STORE %q", c.SessionStore)
	}
	return c, nil
}

// LoadFakeAPI is Load for the API double.
func LoadFakeAPI() (FakeAPIConfig, error) {
	if err := loadDotEnv(); err != nil {
		return FakeAPIConfig{}, err
	}
	var c FakeAPIConfig
	if err := envconfig.Process("", &c); err != nil {
		return FakeAPIConfig{}, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

// loadDotEnv never overrides variables that are already set.  A missing
// .env file is not an error.
func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("config: read .env: %w", err)
}
