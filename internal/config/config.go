package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ProxyProcessConfig describes the external proxy process this hub may own.
// The bearer credential is deliberately absent: it is delivered through the
// child environment, never through config files or argv.
type ProxyProcessConfig struct {
	Command       []string `toml:"command"`
	ListenIP      string   `toml:"listen_ip"`
	ListenPort    int      `toml:"listen_port"`
	APIIP         string   `toml:"api_ip"`
	APIPort       int      `toml:"api_port"`
	DefaultTarget string   `toml:"default_target"`
	HostRouting   bool     `toml:"host_routing"`

	StartupTimeoutSeconds int `toml:"startup_timeout_seconds"`
}

// LoadProxyProcessConfig reads and validates one proxy process description.
func LoadProxyProcessConfig(path string) (ProxyProcessConfig, error) {
	var cfg ProxyProcessConfig
	if err := loadToml(path, &cfg); err != nil {
		return ProxyProcessConfig{}, err
	}
	if cfg.ListenPort == 0 {
		cfg.ListenPort = 8000
	}
	if strings.TrimSpace(cfg.APIIP) == "" {
		cfg.APIIP = "127.0.0.1"
	}
	if cfg.APIPort == 0 {
		cfg.APIPort = 8001
	}
	if err := ValidateProxyProcessConfig(cfg); err != nil {
		return ProxyProcessConfig{}, err
	}
	return cfg, nil
}

// APIURL renders the control endpoint implied by the process config.
func (c ProxyProcessConfig) APIURL() string {
	return fmt.Sprintf("http://%s:%d", c.APIIP, c.APIPort)
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateProxyProcessConfig(cfg ProxyProcessConfig) error {
	if strings.TrimSpace(cfg.DefaultTarget) == "" {
		return fmt.Errorf("proxy config missing default_target")
	}
	if cfg.ListenPort < 1 || cfg.ListenPort > 65535 {
		return fmt.Errorf("proxy config listen_port out of range: %d", cfg.ListenPort)
	}
	if cfg.APIPort < 1 || cfg.APIPort > 65535 {
		return fmt.Errorf("proxy config api_port out of range: %d", cfg.APIPort)
	}
	if cfg.APIPort == cfg.ListenPort {
		return fmt.Errorf("proxy config api_port must differ from listen_port")
	}
	for _, part := range cfg.Command {
		if strings.Contains(part, EnvTokenMarker) {
			return fmt.Errorf("proxy config command must not embed the auth token")
		}
	}
	if cfg.StartupTimeoutSeconds < 0 {
		return fmt.Errorf("proxy config startup_timeout_seconds must not be negative")
	}
	return nil
}

// EnvTokenMarker flags accidental credential leakage into argv.
const EnvTokenMarker = "CONFIGPROXY_AUTH_TOKEN="
