package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/r9s-ai/ngx2edge/pkg/edgegen"
)

const (
	defaultListen         = "127.0.0.1:8180"
	defaultReadTimeoutMs  = 30000
	defaultWriteTimeoutMs = 30000
	defaultDebounceMs     = 300
)

type ServeConfig struct {
	Listen         string `yaml:"listen"`
	AuthToken      string `yaml:"auth_token"`
	H2C            bool   `yaml:"h2c"`
	ReadTimeoutMs  int    `yaml:"read_timeout_ms"`
	WriteTimeoutMs int    `yaml:"write_timeout_ms"`
	AccessLog      bool   `yaml:"access_log"`

	accessLogSet bool `yaml:"-"`
}

// UnmarshalYAML tracks whether access_log was present in the document so
// applyDefaults can tell "absent" apart from an explicit false.
func (c *ServeConfig) UnmarshalYAML(value *yaml.Node) error {
	type rawServe struct {
		Listen         string `yaml:"listen"`
		AuthToken      string `yaml:"auth_token"`
		H2C            bool   `yaml:"h2c"`
		ReadTimeoutMs  int    `yaml:"read_timeout_ms"`
		WriteTimeoutMs int    `yaml:"write_timeout_ms"`
		AccessLog      bool   `yaml:"access_log"`
	}
	var raw rawServe
	if err := value.Decode(&raw); err != nil {
		return err
	}
	c.Listen = raw.Listen
	c.AuthToken = raw.AuthToken
	c.H2C = raw.H2C
	c.ReadTimeoutMs = raw.ReadTimeoutMs
	c.WriteTimeoutMs = raw.WriteTimeoutMs
	c.AccessLog = raw.AccessLog
	c.accessLogSet = false

	if value.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		if strings.TrimSpace(value.Content[i].Value) == "access_log" {
			c.accessLogSet = true
		}
	}
	return nil
}

type LoggingConfig struct {
	// Color is auto, always or never.
	Color string `yaml:"color"`
}

type Config struct {
	Output struct {
		Dir string `yaml:"dir"`
	} `yaml:"output"`

	Convert struct {
		// Targets are the generators run when none are named on the
		// command line. "all" expands to every registered target.
		Targets []string `yaml:"targets"`
	} `yaml:"convert"`

	Serve ServeConfig `yaml:"serve"`

	Watch struct {
		DebounceMs int `yaml:"debounce_ms"`
	} `yaml:"watch"`

	Logging LoggingConfig `yaml:"logging"`
}

func Load(path string) (*Config, error) {
	// #nosec G304 -- path is provided by trusted config/flag.
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default is the configuration used when no file is given. Environment
// overrides still apply.
func Default() (*Config, error) {
	var cfg Config
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.Output.Dir) == "" {
		cfg.Output.Dir = "./dist"
	}
	if len(cfg.Convert.Targets) == 0 {
		cfg.Convert.Targets = []string{edgegen.TargetWorker}
	}
	if strings.TrimSpace(cfg.Serve.Listen) == "" {
		cfg.Serve.Listen = defaultListen
	}
	if cfg.Serve.ReadTimeoutMs <= 0 {
		cfg.Serve.ReadTimeoutMs = defaultReadTimeoutMs
	}
	if cfg.Serve.WriteTimeoutMs <= 0 {
		cfg.Serve.WriteTimeoutMs = defaultWriteTimeoutMs
	}
	// default true
	if !cfg.Serve.accessLogSet {
		cfg.Serve.AccessLog = true
	}
	if cfg.Watch.DebounceMs <= 0 {
		cfg.Watch.DebounceMs = defaultDebounceMs
	}
	if cfg.Logging.Color == "" {
		cfg.Logging.Color = "auto"
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("N2E_OUT_DIR")); v != "" {
		cfg.Output.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv("N2E_TARGETS")); v != "" {
		cfg.Convert.Targets = SplitTargets(v)
	}
	if v := strings.TrimSpace(os.Getenv("N2E_LISTEN")); v != "" {
		cfg.Serve.Listen = v
	}
	if v := strings.TrimSpace(os.Getenv("N2E_AUTH_TOKEN")); v != "" {
		cfg.Serve.AuthToken = v
	}
	cfg.Serve.H2C = envBool("N2E_H2C", cfg.Serve.H2C)
	if n, ok := envInt("N2E_READ_TIMEOUT_MS"); ok && n > 0 {
		cfg.Serve.ReadTimeoutMs = n
	}
	if n, ok := envInt("N2E_WRITE_TIMEOUT_MS"); ok && n > 0 {
		cfg.Serve.WriteTimeoutMs = n
	}
	cfg.Serve.AccessLog = envBool("N2E_ACCESS_LOG", cfg.Serve.AccessLog)
	if n, ok := envInt("N2E_WATCH_DEBOUNCE_MS"); ok {
		cfg.Watch.DebounceMs = n
	}
	if v := strings.TrimSpace(os.Getenv("N2E_COLOR")); v != "" {
		cfg.Logging.Color = strings.ToLower(v)
	}
}

func validate(cfg *Config) error {
	for _, t := range cfg.Convert.Targets {
		if t == "all" || knownTarget(t) {
			continue
		}
		return fmt.Errorf("convert.targets: unknown target %q (valid: all, %s)", t, strings.Join(edgegen.TargetNames(), ", "))
	}
	switch cfg.Logging.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("logging.color must be auto, always or never, got %q", cfg.Logging.Color)
	}
	if cfg.Watch.DebounceMs <= 0 {
		return errors.New("watch.debounce_ms must be > 0")
	}
	if cfg.Serve.ReadTimeoutMs <= 0 {
		return errors.New("serve.read_timeout_ms must be > 0")
	}
	if cfg.Serve.WriteTimeoutMs <= 0 {
		return errors.New("serve.write_timeout_ms must be > 0")
	}
	return nil
}

// SplitTargets parses a comma-separated target list, trimming and
// lowercasing entries and dropping empties.
func SplitTargets(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func knownTarget(name string) bool {
	for _, t := range edgegen.TargetNames() {
		if t == name {
			return true
		}
	}
	return false
}

func envInt(name string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(name string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}
