package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types

	"github.com/joho/godotenv" // godotenv populates the environment from a local .env file
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Required values are enforced at startup; the
// optional ones fall back to defaults suitable for local development.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBDriver       string // "mysql" (default) or "sqlite"
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name, or the file path when DBDriver is sqlite
	JWTSecret      string // secret used to sign access tokens and nonces
	AccessTTLMin   int    // access token time‑to‑live in minutes
	NonceTTLMin    int    // lifetime of admin form nonces in minutes
	BcryptCost     int    // bcrypt cost for password hashing
	PluginVersion  string // running version compared against stored module versions
	AdminEmail     string // optional bootstrap administrator
	AdminPassword  string // password for the bootstrap administrator
	RabbitURL      string // AMQP broker URL for role audit events (empty disables)
}

// Load reads configuration values from environment variables and returns a
// Config.  A .env file in the working directory is honoured when present.
// Required variables are enforced by must() and missing values cause the
// program to exit with a fatal log message.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, relying on process environment")
	}

	driver := envStr("DB_DRIVER", "mysql")
	cfg := Config{
		Env:           must("APP_ENV"),
		Port:          must("APP_PORT"),
		DBDriver:      driver,
		JWTSecret:     must("JWT_SECRET"),
		AccessTTLMin:  mustInt("ACCESS_TOKEN_TTL_MIN"),
		NonceTTLMin:   envInt("NONCE_TTL_MIN", 720),
		BcryptCost:    mustInt("BCRYPT_COST"),
		PluginVersion: envStr("PLUGIN_VERSION", "1.11.0"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
		RabbitURL:     rabbitURL(),
	}
	if driver == "sqlite" {
		// Only the file path matters for the embedded driver.
		cfg.DBName = envStr("DB_NAME", "data/editorial.db")
		return cfg
	}
	cfg.DBUser = must("DB_USER")
	cfg.DBPass = os.Getenv("DB_PASS")
	cfg.DBHost = must("DB_HOST")
	cfg.DBPort = must("DB_PORT")
	cfg.DBName = must("DB_NAME")
	return cfg
}

// rabbitURL resolves the broker address from RABBITMQ_URL or AMQP_URL.
func rabbitURL() string {
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
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
