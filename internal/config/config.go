package config // package config loads application configuration from environment variables

import (
	"fmt"
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Required values are enforced by must(); the rest
// fall back to defaults suitable for local development.
type Config struct {
	Env            string        // application environment (e.g. "development", "production")
	Port           string        // HTTP port to listen on
	LogLevel       string        // slog level name
	DBUser         string        // database username
	DBPass         string        // database password (optional)
	DBHost         string        // database host address
	DBPort         string        // database port number
	DBName         string        // database name
	DBMaxOpenConns int           // upper bound of pooled connections
	DBQueryTimeout time.Duration // per-request budget for store calls
	RunMigrations  bool          // apply embedded migrations at startup
	JWTSecret      string        // secret used to sign JWTs
	TokenTTL       time.Duration // lifetime of issued bearer tokens
	BcryptCost     int           // bcrypt cost for password hashing
	PurgeInterval  time.Duration // cadence of the revocation purge sweep
	UploadDir      string        // directory where cover images are stored
	UploadMaxBytes int64         // maximum accepted cover image size
	CORSOrigins    []string      // allowed browser origins
	RabbitURL      string        // AMQP broker URL; empty disables catalog events
	CatalogLogDir  string        // directory for the catalog audit log written by the consumer
}

// minSecretLen is the shortest JWT secret accepted in production.
const minSecretLen = 32

// Load reads configuration values from environment variables and returns a
// Config.  Missing required variables cause the program to exit with a
// fatal log message.
func Load() Config {
	cfg := Config{
		Env:            getenv("APP_ENV", "development"),
		Port:           getenv("APP_PORT", "5000"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		DBUser:         must("DB_USER"),
		DBPass:         os.Getenv("DB_PASS"), // empty allowed
		DBHost:         must("DB_HOST"),
		DBPort:         getenv("DB_PORT", "3306"),
		DBName:         must("DB_NAME"),
		DBMaxOpenConns: envInt("DB_MAX_OPEN_CONNS", 20),
		DBQueryTimeout: envDur("DB_QUERY_TIMEOUT", 5*time.Second),
		RunMigrations:  envBool("RUN_MIGRATIONS", true),
		JWTSecret:      must("JWT_SECRET"),
		TokenTTL:       envDur("TOKEN_TTL", 24*time.Hour),
		BcryptCost:     envInt("BCRYPT_COST", 12),
		PurgeInterval:  envDur("PURGE_INTERVAL", time.Hour),
		UploadDir:      getenv("UPLOAD_DIR", "uploads"),
		UploadMaxBytes: int64(envInt("UPLOAD_MAX_BYTES", 5<<20)),
		CORSOrigins:    parseList(getenv("CORS_ORIGINS", "http://localhost:5173,http://localhost:80")),
		RabbitURL:      os.Getenv("RABBITMQ_URL"),
		CatalogLogDir:  getenv("CATALOG_LOG_DIR", "logs"),
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	return cfg
}

// Validate rejects values that parse but cannot be used.
func (c Config) Validate() error {
	if c.IsProduction() && len(c.JWTSecret) < minSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in production", minSecretLen)
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("invalid TOKEN_TTL: %s", c.TokenTTL)
	}
	if c.PurgeInterval <= 0 {
		return fmt.Errorf("invalid PURGE_INTERVAL: %s", c.PurgeInterval)
	}
	if c.DBQueryTimeout <= 0 {
		return fmt.Errorf("invalid DB_QUERY_TIMEOUT: %s", c.DBQueryTimeout)
	}
	return nil
}

// IsProduction reports whether internal error details must be hidden from clients.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
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

func parseList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
