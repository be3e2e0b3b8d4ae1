// Package config resolves the stub's settings from defaults, an optional
// YAML file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the stub configuration.
type Config struct {
	// Port is the HTTP listen port.
	Port string `yaml:"port"`

	// Profiles are loaded in order at startup.
	Profiles []string `yaml:"profiles"`

	// FixturesDir holds one directory per profile. Empty uses the embedded fixtures.
	FixturesDir string `yaml:"fixtures_dir"`

	LogLevel  string `yaml:"log_level"`
	LogPretty bool   `yaml:"log_pretty"`

	// RedisURL enables the Redis session store (host:port). Empty keeps sessions in memory.
	RedisURL   string        `yaml:"redis_url"`
	SessionTTL time.Duration `yaml:"session_ttl"`

	// Username and Password are the only accepted login credentials.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	TLSCertFile string `yaml:"tls_cert_file"`
	TLSKeyFile  string `yaml:"tls_key_file"`
}

// ErrInvalidConfig is wrapped by every validation error.
var ErrInvalidConfig = errors.New("invalid config")

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:       "8080",
		Profiles:   []string{"sample"},
		LogLevel:   "info",
		SessionTTL: 30 * time.Minute,
		Username:   "username",
		Password:   "password",
	}
}

// Load resolves the configuration. path may be empty to skip the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.mergeEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	expanded, err := ExpandEnvStrict(string(data))
	if err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("PORT", &c.Port)
	str("FIXTURES_DIR", &c.FixturesDir)
	str("LOG_LEVEL", &c.LogLevel)
	str("REDIS_URL", &c.RedisURL)
	str("STUB_USERNAME", &c.Username)
	str("STUB_PASSWORD", &c.Password)
	str("TLS_CERT_FILE", &c.TLSCertFile)
	str("TLS_KEY_FILE", &c.TLSKeyFile)

	if v, ok := lookup("PROFILES"); ok && v != "" {
		c.Profiles = SplitList(v)
	}
	if v, ok := lookup("LOG_PRETTY"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: LOG_PRETTY: %v", ErrInvalidConfig, err)
		}
		c.LogPretty = b
	}
	if v, ok := lookup("SESSION_TTL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: SESSION_TTL: %v", ErrInvalidConfig, err)
		}
		c.SessionTTL = d
	}
	return nil
}

// Validate checks the configuration before startup.
func (c Config) Validate() error {
	if len(c.Profiles) == 0 {
		return fmt.Errorf("%w: at least one profile is required", ErrInvalidConfig)
	}
	for _, p := range c.Profiles {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("%w: empty profile name", ErrInvalidConfig)
		}
	}
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 0 || port > 65535 {
		return fmt.Errorf("%w: port %q", ErrInvalidConfig, c.Port)
	}
	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return fmt.Errorf("%w: tls_cert_file and tls_key_file must be set together", ErrInvalidConfig)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("%w: session_ttl must be positive", ErrInvalidConfig)
	}
	return nil
}

// TLSEnabled reports whether the server should listen with TLS.
func (c Config) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}

// Scheme returns "https" when TLS is enabled, else "http".
func (c Config) Scheme() string {
	if c.TLSEnabled() {
		return "https"
	}
	return "http"
}

// SplitList splits a comma separated list, dropping blanks.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z0-9_]+)\}`)

// ExpandEnvStrict expands ${VAR} references and errors if any env var is missing.
func ExpandEnvStrict(input string) (string, error) {
	var missing string
	out := envPattern.ReplaceAllStringFunc(input, func(m string) string {
		name := envPattern.FindStringSubmatch(m)[1]
		val, ok := os.LookupEnv(name)
		if !ok && missing == "" {
			missing = name
		}
		return val
	})
	if missing != "" {
		return "", fmt.Errorf("missing env var %s", missing)
	}
	return out, nil
}
