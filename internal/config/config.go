package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config is the process configuration, read once at startup.
type Config struct {
	HTTPAddr string `validate:"required,hostname_port"`

	NATSURL           string
	NATSSubject       string        `validate:"required"`
	NATSReconnectWait time.Duration `validate:"gt=0"`

	CatalogFile string
	CatalogDSN  string

	SimEnabled         bool
	SimTick            time.Duration `validate:"gt=0"`
	SimDwell           time.Duration `validate:"gte=0"`
	SimSpeedMultiplier float64       `validate:"gte=0.1,lte=10"`

	RoutingURL     string        `validate:"required,url"`
	RoutingTimeout time.Duration `validate:"gt=0"`

	LogFile  string `validate:"required"`
	LogLevel string `validate:"oneof=trace debug info warn warning error"`

	MetricsEnabled bool
}

// Load reads .env (if present) and the environment, applying defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, relying on env vars")
	}

	var errs []string
	c := &Config{
		HTTPAddr:          getEnv("HTTP_ADDR", "0.0.0.0:4000"),
		NATSURL:           getEnv("NATS_URL", ""),
		NATSSubject:       getEnv("NATS_SUBJECT", "vehicles.*.telemetry"),
		NATSReconnectWait: getMillis("NATS_RECONNECT_WAIT_MS", 5000, &errs),

		CatalogFile: getEnv("CATALOG_FILE", ""),
		CatalogDSN:  getEnv("CATALOG_DSN", ""),

		SimEnabled:         getBool("SIM_ENABLED", true, &errs),
		SimTick:            getMillis("SIM_TICK_MS", 2000, &errs),
		SimDwell:           getMillis("SIM_DWELL_MS", 10000, &errs),
		SimSpeedMultiplier: getFloat("SIM_SPEED_MULTIPLIER", 1, &errs),

		RoutingURL:     getEnv("ROUTING_URL", "https://router.project-osrm.org"),
		RoutingTimeout: getMillis("ROUTING_TIMEOUT_MS", 10000, &errs),

		LogFile:  getEnv("LOG_FILE", "./logs/tracker.log"),
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),

		MetricsEnabled: getBool("METRICS_ENABLED", true, &errs),
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	if err := validator.New().Struct(c); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return c, nil
}

// getEnv reads an environment variable or returns the provided default
func getEnv(key, defaultValue string) string {
	if v, exists := os.LookupEnv(key); exists {
		return v
	}
	return defaultValue
}

func getMillis(key string, def int64, errs *[]string) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return time.Duration(def) * time.Millisecond
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: %q is not an integer", key, raw))
		return 0
	}
	return time.Duration(n) * time.Millisecond
}

func getFloat(key string, def float64, errs *[]string) float64 {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: %q is not a number", key, raw))
		return 0
	}
	return f
}

func getBool(key string, def bool, errs *[]string) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: %q is not a boolean", key, raw))
		return def
	}
	return b
}
