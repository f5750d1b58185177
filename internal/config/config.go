// Package config resolves postboard settings from defaults, an optional YAML
// file and POSTBOARD_* environment variables. Command-line flags are applied
// on top by the cli package.
package config

import (
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/idilsaglam/postboard/internal/ui"
)

const (
	// DefaultEndpoint is where `postboard emulate` listens by default.
	DefaultEndpoint = "http://127.0.0.1:9000"
	defaultResource = "posts"
	defaultTimeout  = 15 * time.Second
)

// Config holds runtime configuration.
type Config struct {
	Endpoint string        `yaml:"endpoint"`
	Resource string        `yaml:"resource"`
	Timeout  time.Duration `yaml:"timeout"`
	LogLevel string        `yaml:"log_level"`
	LogFile  string        `yaml:"log_file"`
	Theme    string        `yaml:"theme"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Endpoint: DefaultEndpoint,
		Resource: defaultResource,
		Timeout:  defaultTimeout,
		LogLevel: "info",
		Theme:    ui.ThemeClassic,
	}
}

// Load returns the defaults overridden by the YAML file at path (skipped when
// path is empty) and then by the environment. A path that does not exist is
// an error only when it was given explicitly.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = os.Getenv("POSTBOARD_CONFIG")
		explicit = path != ""
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			if !explicit && errors.Is(err, os.ErrNotExist) {
				return cfg, nil
			}
			return Config{}, err
		}
	}

	if err := cfg.mergeEnv(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config %s", path)
	}
	var file Config
	if err := yaml.Unmarshal(b, &file); err != nil {
		return errors.Wrapf(err, "parse config %s", path)
	}
	c.merge(file)
	return nil
}

func (c *Config) mergeEnv() error {
	env := Config{
		Endpoint: os.Getenv("POSTBOARD_ENDPOINT"),
		Resource: os.Getenv("POSTBOARD_RESOURCE"),
		LogLevel: os.Getenv("POSTBOARD_LOG_LEVEL"),
		LogFile:  os.Getenv("POSTBOARD_LOG_FILE"),
		Theme:    os.Getenv("POSTBOARD_THEME"),
	}
	if v := strings.TrimSpace(os.Getenv("POSTBOARD_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(err, "invalid POSTBOARD_TIMEOUT %q", v)
		}
		env.Timeout = d
	}
	c.merge(env)
	return nil
}

// merge copies every non-zero field of o into c.
func (c *Config) merge(o Config) {
	if v := strings.TrimSpace(o.Endpoint); v != "" {
		c.Endpoint = v
	}
	if v := strings.TrimSpace(o.Resource); v != "" {
		c.Resource = v
	}
	if o.Timeout != 0 {
		c.Timeout = o.Timeout
	}
	if v := strings.TrimSpace(o.LogLevel); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := strings.TrimSpace(o.LogFile); v != "" {
		c.LogFile = v
	}
	if v := strings.TrimSpace(o.Theme); v != "" {
		c.Theme = strings.ToLower(v)
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return errors.Wrapf(err, "invalid endpoint %q", c.Endpoint)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.Errorf("endpoint must be an absolute http(s) URL, got %q", c.Endpoint)
	}
	if strings.Trim(c.Resource, "/ ") == "" {
		return errors.New("resource must not be empty")
	}
	if c.Timeout <= 0 {
		return errors.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrapf(err, "invalid log level")
	}
	if !ui.KnownTheme(c.Theme) {
		return errors.Errorf("unknown theme %q (allowed: %s)", c.Theme, strings.Join(ui.Themes(), "|"))
	}
	return nil
}
