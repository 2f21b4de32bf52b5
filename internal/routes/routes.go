package routes

import "sort"

// RouteData is the opaque metadata stored alongside a route target.
//
// HubManaged marks routes owned by this control plane; reconciliation never
// deletes a route that does not carry the tag. Tenant/Service attribute the
// route back to the record that produced it.
type RouteData struct {
	HubManaged bool   `json:"hubgate,omitempty"`
	Tenant     string `json:"tenant,omitempty"`
	Service    string `json:"service,omitempty"`
}

// Route pairs a spec with its backend target and metadata.
type Route struct {
	Spec   RouteSpec
	Target string
	Data   RouteData
}

// Table maps route identity to its current or desired record.
type Table map[RouteSpec]Route

// SortedSpecs returns the table's keys in (host, path) order.
func (t Table) SortedSpecs() []RouteSpec {
	out := make([]RouteSpec, 0, len(t))
	for spec := range t {
		out = append(out, spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
