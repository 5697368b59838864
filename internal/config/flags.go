package config

import (
	"github.com/spf13/pflag"
)

// Flags are the command line overrides. Only flags the operator actually
// set are applied, so file and environment values survive defaults.
type Flags struct {
	Path        string
	BaseURL     string
	Timeout     int
	Poll        int
	Host        string
	Process     string
	Environment string
	Ignore      []string
	NATSURL     string
	NoAltScreen bool
}

// Register binds the flags onto fs.
func (f *Flags) Register(fs *pflag.FlagSet) {
	fs.StringVar(&f.Path, "config", DefaultPath(), "Path to the YAML configuration file")
	fs.StringVar(&f.BaseURL, "base-url", defaultBaseURL, "Dashboard API base URL")
	fs.IntVar(&f.Timeout, "timeout", defaultTimeoutSeconds, "Per-request timeout in seconds")
	fs.IntVar(&f.Poll, "poll-interval", 0, "Silent auto-refresh interval in seconds (0 disables)")
	fs.StringVar(&f.Host, "host", "", "Open the dashboard for this host (fqdn)")
	fs.StringVar(&f.Process, "process", "", "Open the dashboard for this process")
	fs.StringVar(&f.Environment, "environment", "", "Default process environment for assignments")
	fs.StringSliceVar(&f.Ignore, "ignore", nil, "Processes that are never managed from the dashboard")
	fs.StringVar(&f.NATSURL, "nats-url", "", "NATS server for push refresh notifications")
	fs.BoolVar(&f.NoAltScreen, "no-alt-screen", false, "Render inline instead of on the alternate screen")
}

// Apply copies the changed flags onto cfg.
func (f *Flags) Apply(fs *pflag.FlagSet, cfg *Config) {
	if fs.Changed("base-url") {
		cfg.BaseURL = f.BaseURL
	}
	if fs.Changed("timeout") {
		cfg.TimeoutSeconds = f.Timeout
	}
	if fs.Changed("poll-interval") {
		cfg.PollSeconds = f.Poll
	}
	if fs.Changed("host") {
		cfg.Scope.Host = f.Host
	}
	if fs.Changed("process") {
		cfg.Scope.Process = f.Process
	}
	if fs.Changed("environment") {
		cfg.Scope.Environment = f.Environment
	}
	if fs.Changed("ignore") {
		cfg.Ignore = f.Ignore
	}
	if fs.Changed("nats-url") {
		cfg.NATS.URL = f.NATSURL
	}
	if f.NoAltScreen {
		cfg.AltScreen = false
	}
	cfg.normalize()
}

// LoadWithFlags loads the file and environment layers and then applies
// the flag overrides.
func (f *Flags) LoadWithFlags(fs *pflag.FlagSet) (Config, error) {
	cfg, err := Load(f.Path)
	if err != nil {
		return cfg, err
	}
	f.Apply(fs, &cfg)
	return cfg, cfg.Validate()
}
