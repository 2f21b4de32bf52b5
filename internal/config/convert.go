package config

import (
	"strings"

	"github.com/hubgate/hubgate/internal/routes"
)

// TenantEntry is one statically configured tenant record.
type TenantEntry struct {
	Name       string `toml:"name"`
	BackendURL string `toml:"backend_url"`
}

// ServiceEntry is one statically configured service record.
type ServiceEntry struct {
	Name      string `toml:"name"`
	URLPrefix string `toml:"url_prefix"`
	Target    string `toml:"target"`
}

// RouteSnapshot converts configured records into a builder snapshot.
func RouteSnapshot(tenants []TenantEntry, services []ServiceEntry) routes.Snapshot {
	snap := routes.Snapshot{
		Tenants:  make([]routes.TenantRecord, 0, len(tenants)),
		Services: make([]routes.ServiceRecord, 0, len(services)),
	}
	for _, entry := range tenants {
		snap.Tenants = append(snap.Tenants, routes.TenantRecord{
			Name:       strings.TrimSpace(entry.Name),
			BackendURL: strings.TrimSpace(entry.BackendURL),
		})
	}
	for _, entry := range services {
		snap.Services = append(snap.Services, routes.ServiceRecord{
			Name:      strings.TrimSpace(entry.Name),
			URLPrefix: strings.TrimSpace(entry.URLPrefix),
			Target:    strings.TrimSpace(entry.Target),
		})
	}
	return snap
}
