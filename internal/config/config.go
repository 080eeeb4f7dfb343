package config // package config loads application configuration from environment variables

import (
    "log"     // log reports configuration errors and halts execution
    "os"      // os provides access to environment variables
    "strings"
    "time"
)

// Backend modes select which meet.Backend implementation is wired.
const (
    BackendHTTP  = "http"  // REST client against BACKEND_URL
    BackendMySQL = "mysql" // direct access to the backend database
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
    Env            string        // application environment (e.g. "dev", "prod")
    Port           string        // HTTP port to listen on
    LogLevel       string        // zap level name: debug, info, warn, error
    BackendMode    string        // BackendHTTP or BackendMySQL
    BackendURL     string        // base URL of the meet backend (http mode)
    BackendTimeout time.Duration // per-request timeout for backend calls
    DBUser         string        // database username (mysql mode)
    DBPass         string        // database password (optional)
    DBHost         string        // database host address
    DBPort         string        // database port number
    DBName         string        // database name
    ScheduleFile   string        // JSON file splitting events into meet days
    AMQPURL        string        // RabbitMQ URL; empty disables lane events
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  Database settings
// are only required in mysql mode and BACKEND_URL only in http mode.
func Load() Config {
    cfg := Config{
        Env:            must("APP_ENV"),
        Port:           must("APP_PORT"),
        LogLevel:       getenv("LOG_LEVEL", "info"),
        BackendMode:    strings.ToLower(getenv("BACKEND_MODE", BackendHTTP)),
        BackendTimeout: envDur("BACKEND_TIMEOUT", 10*time.Second),
        ScheduleFile:   getenv("MEET_SCHEDULE_FILE", "config/schedule.json"),
        AMQPURL:        amqpURL(),
    }
    switch cfg.BackendMode {
    case BackendHTTP:
        cfg.BackendURL = must("BACKEND_URL")
    case BackendMySQL:
        cfg.DBUser = must("DB_USER")
        cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
        cfg.DBHost = must("DB_HOST")
        cfg.DBPort = getenv("DB_PORT", "3306")
        cfg.DBName = must("DB_NAME")
    default:
        log.Fatalf("invalid BACKEND_MODE %q (want %s or %s)", cfg.BackendMode, BackendHTTP, BackendMySQL)
    }
    return cfg
}

// amqpURL prefers RABBITMQ_URL and falls back to AMQP_URL.
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
