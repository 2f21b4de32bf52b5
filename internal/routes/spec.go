package routes

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidSpec = errors.New("routes: invalid route spec")

// RouteSpec is the canonical identity of one proxy route.
//
// It is a plain comparable value: equality is (host, path) tuple equality and
// a RouteSpec may be used directly as a map key. Host is empty for path-only
// routing and carries the routing subdomain when host-based routing is on.
type RouteSpec struct {
	Host string
	Path string
}

// NewRouteSpec builds a spec with a normalized path.
func NewRouteSpec(path string, host string) RouteSpec {
	return RouteSpec{
		Host: strings.TrimSpace(host),
		Path: NormalizePath(path),
	}
}

// AsRouteSpec coerces raw route identity input into a RouteSpec.
// A RouteSpec passes through unchanged; a string becomes a path-only spec;
// anything else is rejected before it can reach the control API.
func AsRouteSpec(raw any) (RouteSpec, error) {
	switch v := raw.(type) {
	case RouteSpec:
		return v, nil
	case string:
		return NewRouteSpec(v, ""), nil
	default:
		return RouteSpec{}, fmt.Errorf("%w: %T", ErrInvalidSpec, raw)
	}
}

// Less orders specs lexicographically on (host, path) for deterministic diffs.
func (s RouteSpec) Less(other RouteSpec) bool {
	if s.Host != other.Host {
		return s.Host < other.Host
	}
	return s.Path < other.Path
}

// String renders the path always and the host only when one is set.
func (s RouteSpec) String() string {
	if s.Host == "" {
		return fmt.Sprintf("route path=%q", s.Path)
	}
	return fmt.Sprintf("route host=%q path=%q", s.Host, s.Path)
}

// NormalizePath collapses duplicate separators and guarantees a leading slash.
func NormalizePath(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	out := "/" + strings.Join(kept, "/")
	if strings.HasSuffix(trimmed, "/") && out != "/" {
		out += "/"
	}
	return out
}

// JoinPath joins path segments with single separators, preserving the lead.
func JoinPath(parts ...string) string {
	return NormalizePath(strings.Join(parts, "/"))
}
