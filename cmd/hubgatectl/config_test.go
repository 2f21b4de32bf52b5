package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadServiceConfigDefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "config.toml")
	content := `
admin_addr = "127.0.0.1:9081"
admin_token = "adm-secret"
api_url = "http://127.0.0.1:9001"
auth_token = "proxy-secret"
base_prefix = "/hub"
default_target = "http://127.0.0.1:9081"
hub_managed = false
reconcile_interval_seconds = 5
cors_origins = ["http://localhost:3000"]

[[tenants]]
name = "zoe"
backend_url = "http://127.0.0.1:50101"

[[services]]
name = "grader"
url_prefix = "/services/grader"
target = "http://127.0.0.1:9999"
	`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadServiceConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.AdminAddr != "127.0.0.1:9081" {
		t.Fatalf("unexpected admin addr: %q", cfg.AdminAddr)
	}
	if cfg.AdminToken != "adm-secret" {
		t.Fatalf("unexpected admin token: %q", cfg.AdminToken)
	}
	if cfg.APIURL != "http://127.0.0.1:9001" {
		t.Fatalf("unexpected api url: %q", cfg.APIURL)
	}
	if cfg.AuthToken != "proxy-secret" {
		t.Fatalf("unexpected auth token: %q", cfg.AuthToken)
	}
	if cfg.BasePrefix != "/hub" {
		t.Fatalf("unexpected base prefix: %q", cfg.BasePrefix)
	}
	if cfg.Proxy.HubManaged {
		t.Fatalf("expected externally managed proxy")
	}
	if cfg.ReconcileInterval != 5*time.Second {
		t.Fatalf("unexpected reconcile interval: %v", cfg.ReconcileInterval)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:3000" {
		t.Fatalf("unexpected cors origins: %+v", cfg.CORSOrigins)
	}
	if len(cfg.Seed.Tenants) != 1 || cfg.Seed.Tenants[0].Name != "zoe" {
		t.Fatalf("unexpected seed tenants: %+v", cfg.Seed.Tenants)
	}
	if len(cfg.Seed.Services) != 1 || cfg.Seed.Services[0].URLPrefix != "/services/grader" {
		t.Fatalf("unexpected seed services: %+v", cfg.Seed.Services)
	}
}

func TestLoadServiceConfigKeepsDefaultsWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`
hub_managed = true
`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadServiceConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.AdminAddr != ":8081" {
		t.Fatalf("unexpected default admin addr: %q", cfg.AdminAddr)
	}
	if cfg.BasePrefix != "/" {
		t.Fatalf("unexpected default base prefix: %q", cfg.BasePrefix)
	}
	if cfg.ReconcileInterval != 30*time.Second {
		t.Fatalf("unexpected default reconcile interval: %v", cfg.ReconcileInterval)
	}
	if !cfg.Proxy.HubManaged {
		t.Fatalf("expected hub-managed proxy")
	}
	if len(cfg.Proxy.Command) == 0 || cfg.Proxy.Command[0] != "configurable-http-proxy" {
		t.Fatalf("unexpected default proxy command: %+v", cfg.Proxy.Command)
	}
}

func TestLoadServiceConfigExternalRequiresToken(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`
hub_managed = false
`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := loadServiceConfig(path); err == nil {
		t.Fatalf("expected auth token validation error")
	}
}

func TestLoadServiceConfigResolvesProxyConfigRelative(t *testing.T) {
	dir := t.TempDir()

	proxyPath := filepath.Join(dir, "proxy.toml")
	if err := os.WriteFile(proxyPath, []byte(`
command = ["configurable-http-proxy"]
listen_port = 8000
api_ip = "127.0.0.1"
api_port = 8101
default_target = "http://127.0.0.1:8081"
host_routing = true
startup_timeout_seconds = 3
`), 0o644); err != nil {
		t.Fatalf("write proxy config: %v", err)
	}

	hubPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(hubPath, []byte(`
hub_managed = true
proxy_config_path = "proxy.toml"
wildcard_domain = "hub.example.org"
`), 0o644); err != nil {
		t.Fatalf("write hub config: %v", err)
	}

	cfg, err := loadServiceConfig(hubPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.APIURL != "http://127.0.0.1:8101" {
		t.Fatalf("api url not derived from proxy config: %q", cfg.APIURL)
	}
	if !cfg.HostRouting {
		t.Fatalf("host routing not derived from proxy config")
	}
	if cfg.Proxy.APIPort != 8101 {
		t.Fatalf("unexpected proxy api port: %d", cfg.Proxy.APIPort)
	}
	if cfg.Proxy.StartupTimeout != 3*time.Second {
		t.Fatalf("unexpected startup timeout: %v", cfg.Proxy.StartupTimeout)
	}
}

func TestLoadServiceConfigMissingProxyConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`
hub_managed = true
proxy_config_path = "missing.toml"
`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := loadServiceConfig(path); err == nil {
		t.Fatalf("expected missing proxy config error")
	}
}
