// Package config loads livechat settings from a YAML file.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/Dyastin-0/livechat/cipherbox"
	"github.com/Dyastin-0/livechat/core"
	"gopkg.in/yaml.v3"
)

const (
	DirName         = "LiveChat"
	ServiceName     = "livechat"
	DefaultFileName = "config.yaml"
)

var ErrInvalid = errors.New("invalid config")

type TLS struct {
	Enabled  bool   `yaml:"enabled"`
	CertDir  string `yaml:"cert_dir"`
	TrustDir string `yaml:"trust_dir"`
	// TrustNew accepts unknown peers without asking.
	TrustNew bool `yaml:"trust_new"`
}

type Config struct {
	Port  uint16   `yaml:"port"`
	Dir   string   `yaml:"dir"`
	Peers []string `yaml:"peers"`
	Name  string   `yaml:"name"`

	Retention     time.Duration `yaml:"retention"`
	ProbeInterval time.Duration `yaml:"probe_interval"`
	ProbeTimeout  time.Duration `yaml:"probe_timeout"`
	SendTimeout   time.Duration `yaml:"send_timeout"`
	IOTimeout     time.Duration `yaml:"io_timeout"`

	MaxPayload  int64 `yaml:"max_payload"`
	MaxInbound  int   `yaml:"max_inbound"`
	MaxOutbound int   `yaml:"max_outbound"`

	// Key and IV are hex encoded. Both empty selects the built-in pair.
	Key string `yaml:"key"`
	IV  string `yaml:"iv"`

	LogFile   string `yaml:"log_file"`
	TLS       TLS    `yaml:"tls"`
	Advertise bool   `yaml:"advertise"`
}

func Default() *Config {
	home := homeDir()

	return &Config{
		Port:          core.DefaultPort,
		Dir:           filepath.Join(os.TempDir(), DirName),
		Name:          hostname(),
		Retention:     core.DefaultRetention,
		ProbeInterval: core.DefaultProbeInterval,
		ProbeTimeout:  core.DefaultProbeTimeout,
		SendTimeout:   core.DefaultSendTimeout,
		MaxPayload:    core.DefaultMaxPayload,
		MaxOutbound:   core.DefaultMaxOutbound,
		TLS: TLS{
			CertDir:  filepath.Join(home, "."+ServiceName, "certs"),
			TrustDir: filepath.Join(home, "."+ServiceName, "trust"),
		},
	}
}

// DefaultPath is ~/.livechat/config.yaml.
func DefaultPath() string {
	return filepath.Join(homeDir(), "."+ServiceName, DefaultFileName)
}

// Load reads path over the defaults. A missing file at the default path is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Port == 0 {
		return fmt.Errorf("%w: port must be set", ErrInvalid)
	}
	if c.Dir == "" {
		return fmt.Errorf("%w: dir must be set", ErrInvalid)
	}

	durations := map[string]time.Duration{
		"retention":      c.Retention,
		"probe_interval": c.ProbeInterval,
		"probe_timeout":  c.ProbeTimeout,
		"send_timeout":   c.SendTimeout,
		"io_timeout":     c.IOTimeout,
	}
	for name, d := range durations {
		if d < 0 {
			return fmt.Errorf("%w: %s is negative", ErrInvalid, name)
		}
	}

	if c.MaxPayload <= 0 {
		return fmt.Errorf("%w: max_payload must be positive", ErrInvalid)
	}
	if c.MaxInbound < 0 || c.MaxOutbound < 0 {
		return fmt.Errorf("%w: connection limits cannot be negative", ErrInvalid)
	}

	if _, err := c.Box(); err != nil {
		return err
	}
	if _, err := c.Targets(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return nil
}

// Targets parses Peers, using Port for entries without one.
func (c *Config) Targets() ([]core.PeerTarget, error) {
	return core.ParseTargets(c.Peers, c.Port)
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Box builds the payload cipher from Key and IV.
func (c *Config) Box() (cipherbox.Box, error) {
	if c.Key == "" && c.IV == "" {
		return cipherbox.NewDefault(), nil
	}

	key, err := hex.DecodeString(c.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: key: %w", ErrInvalid, err)
	}
	iv, err := hex.DecodeString(c.IV)
	if err != nil {
		return nil, fmt.Errorf("%w: iv: %w", ErrInvalid, err)
	}

	box, err := cipherbox.New(key, iv)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return box, nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./"
	}
	return home
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return ServiceName
	}
	return name
}
