package routes

import (
	"fmt"
	"strings"
)

// TenantRecord is one tenant row from the record-store snapshot.
// BackendURL is empty while the tenant has no active compute session.
type TenantRecord struct {
	Name       string
	BackendURL string
}

// ServiceRecord is one registered auxiliary service from the snapshot.
type ServiceRecord struct {
	Name      string
	URLPrefix string
	Target    string
}

// Snapshot is the read-only tenant/service view desired state is built from.
type Snapshot struct {
	Tenants  []TenantRecord
	Services []ServiceRecord
}

// BuilderOptions fixes the routing shape desired state is computed under.
type BuilderOptions struct {
	// BasePrefix is the hub's URL prefix, "/" when unset.
	BasePrefix string
	// DefaultTarget is where the root route forwards unmatched traffic.
	DefaultTarget string
	// HostRouting switches tenant routes from path prefixes to subdomains.
	HostRouting bool
	// WildcardDomain is the parent domain for tenant subdomains.
	WildcardDomain string
}

// DesiredTable computes the full target route mapping for one snapshot.
//
// The root route always exists and always points at the hub's default target.
// Tenants contribute one route each while they hold an active backend;
// services contribute one path-routed route each. Output depends only on the
// snapshot and options, never on collection iteration order.
func DesiredTable(snap Snapshot, opts BuilderOptions) Table {
	out := make(Table, len(snap.Tenants)+len(snap.Services)+1)

	rootSpec := NewRouteSpec("/", "")
	out[rootSpec] = Route{
		Spec:   rootSpec,
		Target: strings.TrimSpace(opts.DefaultTarget),
		Data:   RouteData{HubManaged: true},
	}

	for _, tenant := range snap.Tenants {
		name := strings.TrimSpace(tenant.Name)
		target := strings.TrimSpace(tenant.BackendURL)
		if name == "" || target == "" {
			continue
		}
		spec := TenantSpec(name, opts)
		out[spec] = Route{
			Spec:   spec,
			Target: target,
			Data:   RouteData{HubManaged: true, Tenant: name},
		}
	}

	for _, svc := range snap.Services {
		name := strings.TrimSpace(svc.Name)
		target := strings.TrimSpace(svc.Target)
		prefix := strings.TrimSpace(svc.URLPrefix)
		if name == "" || target == "" || prefix == "" {
			continue
		}
		spec := NewRouteSpec(prefix, "")
		out[spec] = Route{
			Spec:   spec,
			Target: target,
			Data:   RouteData{HubManaged: true, Service: name},
		}
	}

	return out
}

// TenantSpec returns the route identity for one tenant under the options.
func TenantSpec(name string, opts BuilderOptions) RouteSpec {
	host := ""
	if opts.HostRouting && strings.TrimSpace(opts.WildcardDomain) != "" {
		host = DNSLabel(name) + "." + strings.TrimSpace(opts.WildcardDomain)
	}
	return NewRouteSpec(JoinPath(opts.BasePrefix, "user", name), host)
}

// DNSLabel renders a tenant name as a stable DNS-safe subdomain label.
// Characters outside [a-z0-9-] are hex-encoded so distinct names stay
// distinct labels.
func DNSLabel(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			fmt.Fprintf(&b, "x%x", r)
		}
	}
	return b.String()
}
