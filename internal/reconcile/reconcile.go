package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hubgate/hubgate/internal/observability"
	"github.com/hubgate/hubgate/internal/routes"
)

var ErrNoSnapshotSource = errors.New("reconcile: no snapshot source configured")

// ControlClient is the slice of the proxy control API reconciliation needs.
type ControlClient interface {
	GetAllRoutes(ctx context.Context) (routes.Table, error)
	AddRoute(ctx context.Context, spec routes.RouteSpec, target string, data routes.RouteData) error
	DeleteRoute(ctx context.Context, spec routes.RouteSpec) error
}

// SnapshotSource yields the current tenant/service records desired state is
// built from. It is re-read on every pass; desired state is never cached.
type SnapshotSource interface {
	RouteSnapshot() routes.Snapshot
}

// SourceFunc adapts a function into a SnapshotSource.
type SourceFunc func() routes.Snapshot

func (f SourceFunc) RouteSnapshot() routes.Snapshot {
	return f()
}

// PassResult summarizes one full reconciliation pass.
type PassResult struct {
	Added    int `json:"added"`
	Deleted  int `json:"deleted"`
	Repaired int `json:"repaired"`
	Failed   int `json:"failed"`
}

// Mutations counts the control-API writes the pass issued or attempted.
func (p PassResult) Mutations() int {
	return p.Added + p.Deleted + p.Repaired + p.Failed
}

// Reconciler diffs desired route state against the proxy's actual table and
// repairs the difference. At most one full pass runs at a time; immediate
// single-route operations bypass that exclusion and rely on idempotence.
type Reconciler struct {
	passMu sync.Mutex

	client ControlClient
	source SnapshotSource
	opts   routes.BuilderOptions
}

// New builds a reconciler over one control client and snapshot source.
func New(client ControlClient, source SnapshotSource, opts routes.BuilderOptions) *Reconciler {
	return &Reconciler{
		client: client,
		source: source,
		opts:   opts,
	}
}

// CheckRoutes runs one full diff-and-repair pass.
//
// Actual state is always fetched fresh from the proxy and desired state is
// rebuilt from a fresh snapshot; nothing from a prior pass is trusted. Each
// key's mutation is attempted independently: a failure is logged, counted,
// and left for the next pass. Running the pass twice with no underlying
// change issues zero mutations on the second run.
func (r *Reconciler) CheckRoutes(ctx context.Context) (PassResult, error) {
	r.passMu.Lock()
	defer r.passMu.Unlock()

	if r.source == nil {
		return PassResult{}, ErrNoSnapshotSource
	}

	start := time.Now()
	actual, err := r.client.GetAllRoutes(ctx)
	if err != nil {
		observability.RecordReconcilePass(time.Since(start), 1)
		return PassResult{}, fmt.Errorf("reconcile: fetch actual routes: %w", err)
	}
	desired := routes.DesiredTable(r.source.RouteSnapshot(), r.opts)

	var result PassResult
	for _, spec := range desired.SortedSpecs() {
		want := desired[spec]
		got, exists := actual[spec]
		switch {
		case !exists:
			if err := r.client.AddRoute(ctx, spec, want.Target, want.Data); err != nil {
				result.Failed++
				log.Warn().Stringer("spec", spec).Err(err).Msg("route_add_failed")
				continue
			}
			result.Added++
			log.Info().Stringer("spec", spec).Str("target", want.Target).Msg("route_added")
		case got.Target != want.Target || got.Data != want.Data:
			if err := r.client.AddRoute(ctx, spec, want.Target, want.Data); err != nil {
				result.Failed++
				log.Warn().Stringer("spec", spec).Err(err).Msg("route_repair_failed")
				continue
			}
			result.Repaired++
			log.Info().Stringer("spec", spec).Str("target", want.Target).Msg("route_repaired")
		}
	}

	for _, spec := range actual.SortedSpecs() {
		got := actual[spec]
		if !got.Data.HubManaged {
			// Never delete a route this system does not own.
			continue
		}
		if _, wanted := desired[spec]; wanted {
			continue
		}
		if err := r.client.DeleteRoute(ctx, spec); err != nil {
			result.Failed++
			log.Warn().Stringer("spec", spec).Err(err).Msg("route_delete_failed")
			continue
		}
		result.Deleted++
		log.Info().Stringer("spec", spec).Msg("route_deleted")
	}

	observability.RecordReconcilePass(time.Since(start), result.Failed)
	log.Info().
		Int("added", result.Added).
		Int("deleted", result.Deleted).
		Int("repaired", result.Repaired).
		Int("failed", result.Failed).
		Dur("duration", time.Since(start)).
		Msg("reconcile_pass")
	return result, nil
}

// AddTenant upserts one tenant route as soon as its backend comes online.
func (r *Reconciler) AddTenant(ctx context.Context, tenant routes.TenantRecord) error {
	name := strings.TrimSpace(tenant.Name)
	target := strings.TrimSpace(tenant.BackendURL)
	if name == "" || target == "" {
		return fmt.Errorf("reconcile: tenant route requires name and backend url")
	}
	spec := routes.TenantSpec(name, r.opts)
	return r.client.AddRoute(ctx, spec, target, routes.RouteData{HubManaged: true, Tenant: name})
}

// DeleteTenant removes exactly one tenant's route, without waiting for the
// next full pass. Idempotent; safe to interleave with an in-flight pass.
func (r *Reconciler) DeleteTenant(ctx context.Context, name string) error {
	return r.client.DeleteRoute(ctx, routes.TenantSpec(strings.TrimSpace(name), r.opts))
}

// AddService upserts one service route.
func (r *Reconciler) AddService(ctx context.Context, svc routes.ServiceRecord) error {
	name := strings.TrimSpace(svc.Name)
	prefix := strings.TrimSpace(svc.URLPrefix)
	target := strings.TrimSpace(svc.Target)
	if name == "" || prefix == "" || target == "" {
		return fmt.Errorf("reconcile: service route requires name, prefix, and target")
	}
	spec := routes.NewRouteSpec(prefix, "")
	return r.client.AddRoute(ctx, spec, target, routes.RouteData{HubManaged: true, Service: name})
}

// DeleteService removes exactly one service's route.
func (r *Reconciler) DeleteService(ctx context.Context, urlPrefix string) error {
	return r.client.DeleteRoute(ctx, routes.NewRouteSpec(urlPrefix, ""))
}
