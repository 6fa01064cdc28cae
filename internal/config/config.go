package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env, Port                 string
	ReadTimeout, WriteTimeout time.Duration
	DBDsn                     string
	DBTimeout                 time.Duration

	Auth0Domain   string
	Auth0Audience string

	ItemsWriteScope string
	AuditReadScope  string

	MaxBodyBytes     int64
	CorsOrigins      []string
	MetricsAllowCIDR string
	RateRPS          float64
	RateBurst        int

	OTELEndpoint string
	OTELSample   float64
}

// -------- helpers --------
func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic(k + " must be set")
	}
	return v
}
func mustDur(k, def string) time.Duration {
	v := getenv(k, def)
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(k + ": invalid duration " + v)
	}
	return d
}
func mustInt(k, def string) int {
	v := getenv(k, def)
	n, err := strconv.Atoi(v)
	if err != nil {
		panic(k + ": invalid int " + v)
	}
	return n
}
func mustFloat(k, def string) float64 {
	v := getenv(k, def)
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		panic(k + ": invalid float " + v)
	}
	return f
}
func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	a := strings.Split(s, ",")
	for i := range a {
		a[i] = strings.TrimSpace(a[i])
	}
	return a
}

// Builds a MySQL DSN from DB_* vars when DB_DSN is not given.
func mysqlDSNFromEnv() string {
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		return dsn
	}
	host := getenv("DB_HOST", "127.0.0.1")
	port := getenv("DB_PORT", "3306")
	name := getenv("DB_DATABASE", "items")
	user := getenv("DB_USERNAME", "items")
	pass := getenv("DB_PASSWORD", "items")
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&multiStatements=true&charset=utf8mb4",
		user, pass, host, port, name)
}

func Load() Config {
	return Config{
		Env:          getenv("APP_ENV", "dev"),
		Port:         getenv("APP_PORT", "8080"),
		ReadTimeout:  mustDur("APP_READ_TIMEOUT", "5s"),
		WriteTimeout: mustDur("APP_WRITE_TIMEOUT", "10s"),
		DBDsn:        mysqlDSNFromEnv(),
		DBTimeout:    mustDur("DB_TIMEOUT", "3s"),

		Auth0Domain:   mustEnv("AUTH0_DOMAIN"),
		Auth0Audience: mustEnv("AUTH0_API_AUDIENCE"),

		ItemsWriteScope: getenv("ITEMS_WRITE_SCOPE", ""),
		AuditReadScope:  getenv("AUDIT_READ_SCOPE", "read:audit"),

		MaxBodyBytes:     int64(mustInt("MAX_BODY_BYTES", "1048576")),
		CorsOrigins:      splitCSV(getenv("CORS_ORIGINS", "*")),
		MetricsAllowCIDR: getenv("METRICS_ALLOW", "127.0.0.1/32"),
		RateRPS:          mustFloat("RATE_RPS", "10"),
		RateBurst:        mustInt("RATE_BURST", "10"),

		OTELEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTELSample:   mustFloat("OTEL_SAMPLE", "0"),
	}
}

// AQIConfig covers the standalone report job. Loaded separately so the API
// process never requires the mail credentials.
type AQIConfig struct {
	Token    string
	Cities   []string
	BaseURL  string
	SMTPHost string
	SMTPPort string
	From     string
	Password string
	To       string
}

func LoadAQI() AQIConfig {
	from := mustEnv("EMAIL_USER")
	to := getenv("AQI_REPORT_TO", from)
	return AQIConfig{
		Token:    mustEnv("WAQI_API_KEY"),
		Cities:   splitCSV(getenv("AQI_CITIES", "sydney,delhi,mumbai")),
		BaseURL:  getenv("WAQI_BASE_URL", "https://api.waqi.info/feed"),
		SMTPHost: getenv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort: getenv("SMTP_PORT", "587"),
		From:     from,
		Password: mustEnv("EMAIL_APP_PASSWORD"),
		To:       to,
	}
}
