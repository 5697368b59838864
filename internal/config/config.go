// Package config loads dashboard settings. Values come from built-in
// defaults, then an optional YAML file, then DARTDASH_* environment
// variables, then command line flags; each layer overrides the previous.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"
	"gopkg.in/yaml.v3"

	"dartdash/internal/actions"
	"dartdash/internal/row"
)

const (
	defaultBaseURL        = "http://127.0.0.1:8080"
	defaultActionEndpoint = "/api/action"
	defaultTimeoutSeconds = 10
	defaultMinQueryLength = 1
	defaultNATSSubject    = "dart.state"
)

// Commands configures the lifecycle command transport. Every command is
// a form-encoded POST carrying action, fqdn, process_name and
// process_environment; failures carry a JSON "message" field.
type Commands struct {
	Endpoint  string            `yaml:"endpoint"`
	Endpoints map[string]string `yaml:"endpoints"`
}

// Suggest configures the autocomplete endpoints.
type Suggest struct {
	Host        string `yaml:"host"`
	Process     string `yaml:"process"`
	Environment string `yaml:"environment"`
	MinLength   int    `yaml:"min_length"`
}

// Tables holds the dataset endpoint templates per page scope. Templates
// may reference {fqdn} and {process}.
type Tables struct {
	Host    map[string]string `yaml:"host"`
	Process map[string]string `yaml:"process"`
}

// NATS configures the optional push refresh subscription.
type NATS struct {
	URL      string `yaml:"url"`
	Subject  string `yaml:"subject"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// Scope is the page the dashboard is opened on: one host or one process.
type Scope struct {
	Host        string `yaml:"host"`
	Process     string `yaml:"process"`
	Environment string `yaml:"environment"`
}

// Config is the complete dashboard configuration.
type Config struct {
	BaseURL        string              `yaml:"base_url"`
	TimeoutSeconds int                 `yaml:"timeout_seconds"`
	PollSeconds    int                 `yaml:"poll_seconds"`
	AltScreen      bool                `yaml:"alt_screen"`
	Ignore         []string            `yaml:"ignore"`
	Actions        map[string][]string `yaml:"actions"`
	Commands       Commands            `yaml:"commands"`
	Suggest        Suggest             `yaml:"suggest"`
	Tables         Tables              `yaml:"tables"`
	NATS           NATS                `yaml:"nats"`
	Scope          Scope               `yaml:"scope"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BaseURL:        defaultBaseURL,
		TimeoutSeconds: defaultTimeoutSeconds,
		AltScreen:      true,
		Ignore:         []string{"dart-agent"},
		Commands:       Commands{Endpoint: defaultActionEndpoint, Endpoints: map[string]string{}},
		Suggest: Suggest{
			Host:        "/api/hosts/autocomplete",
			Process:     "/api/processes/autocomplete",
			Environment: "/api/processes/autocomplete/environment",
			MinLength:   defaultMinQueryLength,
		},
		Tables: Tables{
			Host: map[string]string{
				"active":   "/api/host/{fqdn}/active",
				"pending":  "/api/host/{fqdn}/pending",
				"assigned": "/api/host/{fqdn}/assigned",
			},
			Process: map[string]string{
				"active":   "/api/process/{process}/active",
				"pending":  "/api/process/{process}/pending",
				"assigned": "/api/process/{process}/assigned",
			},
		},
		NATS: NATS{Subject: defaultNATSSubject},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/dartdash/config.yaml.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "dartdash", "config.yaml")
}

// Load builds the configuration from defaults, the YAML file at path and
// the environment. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			glog.V(1).Infof("config file %s not found, using defaults", path)
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()
	cfg.normalize()
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() {
	c.BaseURL = envOr("DARTDASH_BASE_URL", c.BaseURL)
	c.TimeoutSeconds = envOrInt("DARTDASH_TIMEOUT", c.TimeoutSeconds)
	c.PollSeconds = envOrInt("DARTDASH_POLL_INTERVAL", c.PollSeconds)
	c.AltScreen = envOrBool("DARTDASH_ALT_SCREEN", c.AltScreen)
	c.Commands.Endpoint = envOr("DARTDASH_ACTION_ENDPOINT", c.Commands.Endpoint)
	c.Suggest.MinLength = envOrInt("DARTDASH_SUGGEST_MIN_LENGTH", c.Suggest.MinLength)
	c.NATS.URL = envOr("DARTDASH_NATS_URL", c.NATS.URL)
	c.NATS.Subject = envOr("DARTDASH_NATS_SUBJECT", c.NATS.Subject)
	c.NATS.User = envOr("DARTDASH_NATS_USER", c.NATS.User)
	c.NATS.Password = envOr("DARTDASH_NATS_PASSWORD", c.NATS.Password)
	c.Scope.Host = envOr("DARTDASH_HOST", c.Scope.Host)
	c.Scope.Process = envOr("DARTDASH_PROCESS", c.Scope.Process)
	if ignore := envOr("DARTDASH_IGNORE", ""); ignore != "" {
		c.Ignore = splitList(ignore)
	}
}

func (c *Config) normalize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	c.TimeoutSeconds = clampInt(c.TimeoutSeconds, 1, 120)
	c.PollSeconds = clampInt(c.PollSeconds, 0, 600)
	c.Suggest.MinLength = clampInt(c.Suggest.MinLength, 1, 8)
	if strings.TrimSpace(c.Commands.Endpoint) == "" {
		c.Commands.Endpoint = defaultActionEndpoint
	}
	if c.NATS.Subject == "" {
		c.NATS.Subject = defaultNATSSubject
	}
	c.Scope.Host = strings.TrimSpace(c.Scope.Host)
	c.Scope.Process = strings.TrimSpace(c.Scope.Process)
	c.Scope.Environment = strings.TrimSpace(c.Scope.Environment)
}

// Validate rejects settings the dashboard cannot run with.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	for kind := range c.Commands.Endpoints {
		if _, err := actions.ParseKind(kind); err != nil {
			return fmt.Errorf("commands.endpoints: %w", err)
		}
	}
	if _, err := c.ActionSets(); err != nil {
		return err
	}
	return nil
}

// Timeout is the per-request transport timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PollInterval is the silent auto-refresh period; zero disables it.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollSeconds) * time.Second
}

// CommandEndpoint returns the endpoint path for one command kind.
func (c Config) CommandEndpoint(kind actions.Kind) string {
	if endpoint, ok := c.Commands.Endpoints[string(kind)]; ok && endpoint != "" {
		return endpoint
	}
	return c.Commands.Endpoint
}

// ActionSets parses the per-table action overrides.
func (c Config) ActionSets() (map[row.Context][]actions.Kind, error) {
	sets := map[row.Context][]actions.Kind{}
	for table, names := range c.Actions {
		ctx, err := row.ParseContext(table)
		if err != nil {
			return nil, fmt.Errorf("actions: %w", err)
		}
		kinds := make([]actions.Kind, 0, len(names))
		for _, name := range names {
			kind, err := actions.ParseKind(name)
			if err != nil {
				return nil, fmt.Errorf("actions.%s: %w", table, err)
			}
			kinds = append(kinds, kind)
		}
		sets[ctx] = kinds
	}
	return sets, nil
}

// Defaults is the page-level row context for the configured scope.
func (c Config) Defaults() row.Defaults {
	return row.Defaults{Identity: c.Scope.Process, Host: c.Scope.Host}
}

// HostScoped reports whether the dashboard is opened on a host page.
func (c Config) HostScoped() bool {
	return c.Scope.Host != ""
}

// TableEndpoint expands the dataset endpoint for one table in the current
// scope.
func (c Config) TableEndpoint(ctx row.Context) (string, error) {
	templates := c.Tables.Process
	if c.HostScoped() {
		templates = c.Tables.Host
	} else if c.Scope.Process == "" {
		return "", errors.New("either a host or a process scope is required")
	}
	template, ok := templates[ctx.String()]
	if !ok || template == "" {
		return "", fmt.Errorf("no endpoint configured for the %s table", ctx)
	}
	replacer := strings.NewReplacer(
		"{fqdn}", url.PathEscape(c.Scope.Host),
		"{process}", url.PathEscape(c.Scope.Process),
	)
	return replacer.Replace(template), nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if value := strings.TrimSpace(part); value != "" {
			out = append(out, value)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		glog.Warningf("ignoring %s=%q: %v", key, value, err)
		return fallback
	}
	return parsed
}

func envOrBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if value == "" {
		return fallback
	}
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func clampInt(value, min, max int) int {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
