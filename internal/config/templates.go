package config

import (
	"fmt"
	"os"
	"strings"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "hub":
		return hubTemplate, nil
	case "proxy":
		return proxyTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const hubTemplate = `admin_addr = ":8081"
admin_token = ""
base_prefix = "/"
default_target = "http://127.0.0.1:8081"
api_url = "http://127.0.0.1:8001"
auth_token = ""
hub_managed = true
proxy_config_path = "proxy.toml"
host_routing = false
wildcard_domain = ""
reconcile_interval_seconds = 30
cors_origins = []

[[tenants]]
name = "zoe"
backend_url = "http://127.0.0.1:50101"

[[services]]
name = "grader"
url_prefix = "/services/grader"
target = "http://127.0.0.1:9999"
`

const proxyTemplate = `command = ["configurable-http-proxy"]
listen_ip = ""
listen_port = 8000
api_ip = "127.0.0.1"
api_port = 8001
default_target = "http://127.0.0.1:8081"
host_routing = false
startup_timeout_seconds = 10
`
