package config // package config loads application configuration from environment variables

import (
    "log"     // log is used to report configuration errors and halt execution
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types
    "time"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  Database and token settings are required;
// reservation tuning knobs fall back to sensible defaults so a bare
// environment still produces a working service.
type Config struct {
    Env       string // application environment (e.g. "dev", "prod")
    Port      string // HTTP port to listen on
    DBUser    string // database username
    DBPass    string // database password (optional)
    DBHost    string // database host address
    DBPort    string // database port number
    DBName    string // database name
    JWTSecret string // secret used to sign reservation owner tokens

    DBMaxOpen      int           // pool cap; bounds concurrent reservation transactions
    DBMaxIdle      int           // idle connections kept for bursty on-sale traffic
    DBConnLifetime time.Duration // recycle interval for pooled connections

    HoldMinutes   int           // default hold window when a session does not set one
    SweepInterval time.Duration // how often the expiry sweeper scans
    SweepBatch    int           // max reservations released per sweep run
    MaxItems      int           // per-reservation total quantity cap

    AMQPURL string // RabbitMQ connection string (empty disables events)
}

// Load reads configuration values from environment variables and returns
// a Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    return Config{
        Env:       must("APP_ENV"),
        Port:      must("APP_PORT"),
        DBUser:    must("DB_USER"),
        DBPass:    os.Getenv("DB_PASS"), // empty allowed
        DBHost:    must("DB_HOST"),
        DBPort:    must("DB_PORT"),
        DBName:    must("DB_NAME"),
        JWTSecret: must("JWT_SECRET"),

        DBMaxOpen:      atoiDefault(getenv("DB_MAX_OPEN_CONNS", "25"), 25),
        DBMaxIdle:      atoiDefault(getenv("DB_MAX_IDLE_CONNS", "25"), 25),
        DBConnLifetime: parseDur(getenv("DB_CONN_MAX_LIFETIME", "30m")),

        HoldMinutes:   atoiDefault(getenv("RESERVATION_HOLD_MINUTES", "10"), 10),
        SweepInterval: parseDur(getenv("RESERVATION_SWEEP_INTERVAL", "15s")),
        SweepBatch:    atoiDefault(getenv("RESERVATION_SWEEP_BATCH", "100"), 100),
        MaxItems:      atoiDefault(getenv("RESERVATION_MAX_ITEMS", "10"), 10),

        AMQPURL: os.Getenv("RABBITMQ_URL"),
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

// atoiDefault converts s to an int, falling back to def when the value
// is missing, malformed or not positive.
func atoiDefault(s string, def int) int {
    n, err := strconv.Atoi(s)
    if err != nil || n <= 0 {
        return def
    }
    return n
}
