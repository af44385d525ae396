package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "time"    // time converts minute/second knobs into durations
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations.
type Config struct {
    Env                 string // application environment (e.g. "dev", "prod")
    Port                string // HTTP port to listen on
    DBUser              string // database username
    DBPass              string // database password (optional)
    DBHost              string // database host address
    DBPort              string // database port number
    DBName              string // database name
    JWTSecret           string // secret used to verify identity tokens
    GracePeriodMin      int    // minutes an unpaid booking keeps its seats
    WebhookSecret       string // shared secret for payment webhook signatures
    WebhookToleranceSec int    // max age of a signed webhook timestamp in seconds
}

// GracePeriod returns the grace window as a duration.
func (c Config) GracePeriod() time.Duration {
    return time.Duration(c.GracePeriodMin) * time.Minute
}

// WebhookTolerance returns the webhook timestamp tolerance as a duration.
func (c Config) WebhookTolerance() time.Duration {
    return time.Duration(c.WebhookToleranceSec) * time.Second
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    return Config{
        Env:                 must("APP_ENV"),                        // environment (dev/test/prod)
        Port:                must("APP_PORT"),                       // port to bind the HTTP server
        DBUser:              must("DB_USER"),                        // database user
        DBPass:              os.Getenv("DB_PASS"),                   // database password (empty allowed)
        DBHost:              must("DB_HOST"),                        // database host
        DBPort:              must("DB_PORT"),                        // database port
        DBName:              must("DB_NAME"),                        // database name
        JWTSecret:           must("JWT_SECRET"),                     // secret for verifying identity tokens
        GracePeriodMin:      optInt("GRACE_PERIOD_MIN", 10),         // payment grace window in minutes
        WebhookSecret:       must("PAYMENT_WEBHOOK_SECRET"),         // webhook signature secret
        WebhookToleranceSec: optInt("PAYMENT_WEBHOOK_TOLERANCE_SEC", 300), // signed timestamp tolerance
    }
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

// optInt retrieves an optional integer environment variable, falling
// back to the given default when unset.  A set-but-invalid value is a
// configuration mistake and exits fatally rather than being silently
// replaced.
func optInt(key string, def int) int {
    v := os.Getenv(key)
    if v == "" {
        return def
    }
    n, err := strconv.Atoi(v)
    if err != nil {
        log.Fatalf("invalid int for %s: %q", key, v)
    }
    return n
}
