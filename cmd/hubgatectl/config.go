package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/hubgate/hubgate/internal/config"
	"github.com/hubgate/hubgate/internal/hub"
)

// hubgatectl config.toml key mapping to hub runtime settings.
type fileConfig struct {
	AdminAddr   string   `toml:"admin_addr"`
	AdminToken  string   `toml:"admin_token"`
	CORSOrigins []string `toml:"cors_origins"`

	APIURL    string `toml:"api_url"`
	AuthToken string `toml:"auth_token"`

	BasePrefix     string `toml:"base_prefix"`
	DefaultTarget  string `toml:"default_target"`
	HostRouting    bool   `toml:"host_routing"`
	WildcardDomain string `toml:"wildcard_domain"`

	HubManaged      bool   `toml:"hub_managed"`
	ProxyConfigPath string `toml:"proxy_config_path"`

	ReconcileIntervalSeconds int `toml:"reconcile_interval_seconds"`

	Tenants  []config.TenantEntry  `toml:"tenants"`
	Services []config.ServiceEntry `toml:"services"`
}

// hubgatectl loader for TOML config with default overlay.
func loadServiceConfig(path string) (hub.ServiceConfig, error) {
	cfg := hub.DefaultServiceConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return hub.ServiceConfig{}, fmt.Errorf("load hub config: %w", err)
	}

	if meta.IsDefined("admin_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}
	if meta.IsDefined("admin_token") {
		cfg.AdminToken = strings.TrimSpace(raw.AdminToken)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CORSOrigins = raw.CORSOrigins
	}
	if meta.IsDefined("api_url") {
		cfg.APIURL = strings.TrimSpace(raw.APIURL)
	}
	if meta.IsDefined("auth_token") {
		cfg.AuthToken = strings.TrimSpace(raw.AuthToken)
	}
	if meta.IsDefined("base_prefix") {
		cfg.BasePrefix = strings.TrimSpace(raw.BasePrefix)
	}
	if meta.IsDefined("default_target") {
		cfg.DefaultTarget = strings.TrimSpace(raw.DefaultTarget)
	}
	if meta.IsDefined("host_routing") {
		cfg.HostRouting = raw.HostRouting
	}
	if meta.IsDefined("wildcard_domain") {
		cfg.WildcardDomain = strings.TrimSpace(raw.WildcardDomain)
	}
	if meta.IsDefined("hub_managed") {
		cfg.Proxy.HubManaged = raw.HubManaged
	}
	if meta.IsDefined("reconcile_interval_seconds") {
		if raw.ReconcileIntervalSeconds <= 0 {
			return hub.ServiceConfig{}, fmt.Errorf(
				"load hub config: reconcile_interval_seconds must be positive, got %d",
				raw.ReconcileIntervalSeconds,
			)
		}
		cfg.ReconcileInterval = time.Duration(raw.ReconcileIntervalSeconds) * time.Second
	}

	cfg.Seed = config.RouteSnapshot(raw.Tenants, raw.Services)

	proxyPath := strings.TrimSpace(raw.ProxyConfigPath)
	if proxyPath != "" {
		proxyCfg, err := loadProxyRuntimeConfig(path, proxyPath)
		if err != nil {
			return hub.ServiceConfig{}, err
		}
		cfg.Proxy.Command = proxyCfg.Command
		cfg.Proxy.ListenIP = proxyCfg.ListenIP
		cfg.Proxy.ListenPort = proxyCfg.ListenPort
		cfg.Proxy.APIIP = proxyCfg.APIIP
		cfg.Proxy.APIPort = proxyCfg.APIPort
		cfg.Proxy.StartupTimeout = time.Duration(proxyCfg.StartupTimeoutSeconds) * time.Second
		if !meta.IsDefined("api_url") {
			cfg.APIURL = proxyCfg.APIURL()
		}
		if !meta.IsDefined("host_routing") {
			cfg.HostRouting = proxyCfg.HostRouting
		}
		if !meta.IsDefined("default_target") && strings.TrimSpace(proxyCfg.DefaultTarget) != "" {
			cfg.DefaultTarget = strings.TrimSpace(proxyCfg.DefaultTarget)
		}
	}

	if cfg.Proxy.HubManaged && proxyPath == "" {
		cfg.Proxy = cfg.Proxy.WithDefaults()
	}
	if !cfg.Proxy.HubManaged && strings.TrimSpace(cfg.AuthToken) == "" {
		return hub.ServiceConfig{}, fmt.Errorf(
			"load hub config: auth_token is required when hub_managed=false",
		)
	}

	return cfg, nil
}

func loadProxyRuntimeConfig(hubConfigPath string, proxyConfigPath string) (config.ProxyProcessConfig, error) {
	resolved := strings.TrimSpace(proxyConfigPath)
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(filepath.Dir(hubConfigPath), resolved)
	}
	if _, err := os.Stat(resolved); err != nil {
		return config.ProxyProcessConfig{}, fmt.Errorf(
			"load hub config: proxy config path %q: %w",
			proxyConfigPath,
			err,
		)
	}
	out, err := config.LoadProxyProcessConfig(resolved)
	if err != nil {
		return config.ProxyProcessConfig{}, fmt.Errorf(
			"load hub config: parse proxy config %q: %w",
			proxyConfigPath,
			err,
		)
	}
	return out, nil
}
