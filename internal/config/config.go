package config

import (
	// Standard library
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	// Third-party
	"gopkg.in/yaml.v2"
)

// Config holds every runtime setting of the gallery server.
// Values come from an optional YAML file and are then overridden by environment variables.
type Config struct {
	ListenAddr       string        `yaml:"listen_addr"`       // e.g. ":8080"
	DBPath           string        `yaml:"db_path"`           // SQLite file
	UploadPath       string        `yaml:"upload_path"`       // Directory for stored photos
	BaseURL          string        `yaml:"base_url"`          // Used to build shareable gallery links
	CookieSecret     string        `yaml:"cookie_secret"`     // Signs the session cookie
	CookieSecure     bool          `yaml:"cookie_secure"`     // Send the cookie over HTTPS only
	AuthorizedEmails []string      `yaml:"authorized_emails"` // Photographers allowed to own collections
	AuthTimeout      time.Duration `yaml:"auth_timeout"`      // Upper bound for the route guard's auth check
	KafkaBrokers     []string      `yaml:"kafka_brokers"`     // Empty disables event publishing
	KafkaTopic       string        `yaml:"kafka_topic"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		ListenAddr:   ":8080",
		DBPath:       "/app/data/gallery.db",
		UploadPath:   "/app/uploads",
		CookieSecret: "fallback-secret-change-in-production",
		AuthTimeout:  5 * time.Second,
		KafkaTopic:   "gallery.collections",
	}
}

// Load reads the YAML file at path (skipped when path is empty) on top of the defaults
// and then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.AuthorizedEmails = normalizeEmails(cfg.AuthorizedEmails)
	if len(cfg.AuthorizedEmails) == 0 {
		log.Println("WARNING: authorized_emails is empty, nobody will be able to sign in.")
	}
	if cfg.AuthTimeout <= 0 {
		return nil, fmt.Errorf("auth_timeout must be positive, got %s", cfg.AuthTimeout)
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v, ok := os.LookupEnv("LISTEN_ADDR"); ok {
		c.ListenAddr = v
	}
	if v, ok := os.LookupEnv("DB_PATH"); ok {
		c.DBPath = v
	}
	if v, ok := os.LookupEnv("UPLOAD_PATH"); ok {
		c.UploadPath = v
	}
	if v, ok := os.LookupEnv("BASE_URL"); ok {
		c.BaseURL = v
	}
	if v, ok := os.LookupEnv("COOKIE_SECRET"); ok {
		c.CookieSecret = v
	}
	if v, ok := os.LookupEnv("COOKIE_SECURE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid COOKIE_SECURE %q: %w", v, err)
		}
		c.CookieSecure = b
	}
	if v, ok := os.LookupEnv("AUTHORIZED_EMAILS"); ok {
		c.AuthorizedEmails = splitList(v)
	}
	if v, ok := os.LookupEnv("AUTH_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid AUTH_TIMEOUT %q: %w", v, err)
		}
		c.AuthTimeout = d
	}
	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok {
		c.KafkaBrokers = splitList(v)
	}
	if v, ok := os.LookupEnv("KAFKA_TOPIC"); ok {
		c.KafkaTopic = v
	}
	return nil
}

// IsAuthorized reports whether email is on the photographer allow-list.
func (c *Config) IsAuthorized(email string) bool {
	email = NormalizeEmail(email)
	if email == "" {
		return false
	}
	for _, allowed := range c.AuthorizedEmails {
		if allowed == email {
			return true
		}
	}
	return false
}

// NormalizeEmail trims and lower-cases an address so comparisons are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeEmails(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, e := range in {
		e = NormalizeEmail(e)
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
