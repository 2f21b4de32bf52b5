package hub

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hubgate/hubgate/internal/admin"
	"github.com/hubgate/hubgate/internal/auth"
	"github.com/hubgate/hubgate/internal/lifecycle"
	"github.com/hubgate/hubgate/internal/proxyclient"
	"github.com/hubgate/hubgate/internal/reconcile"
	"github.com/hubgate/hubgate/internal/routes"
)

// ServiceConfig is the hub runtime configuration.
type ServiceConfig struct {
	AdminAddr   string
	AdminToken  string
	CORSOrigins []string

	APIURL    string
	AuthToken string

	BasePrefix     string
	DefaultTarget  string
	HostRouting    bool
	WildcardDomain string

	Proxy lifecycle.Config

	ReconcileInterval time.Duration
	ClientOptions     proxyclient.ClientOptions

	// Seed is the initial tenant/service record view.
	Seed routes.Snapshot
}

// DefaultServiceConfig returns hub runtime defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		AdminAddr:         ":8081",
		APIURL:            "http://127.0.0.1:8001",
		BasePrefix:        "/",
		DefaultTarget:     "http://127.0.0.1:8081",
		ReconcileInterval: 30 * time.Second,
	}
}

// Service owns the reconciliation core wiring: endpoint, control client,
// reconciler, proxy lifecycle, and the admin API.
type Service struct {
	cfg ServiceConfig

	endpoint   *proxyclient.Endpoint
	client     *proxyclient.Client
	source     *MemorySource
	reconciler *reconcile.Reconciler
	manager    *lifecycle.Manager
	admin      *admin.Server
}

// NewServiceWithConfig wires one hub runtime from explicit configuration.
func NewServiceWithConfig(cfg ServiceConfig) (*Service, error) {
	def := DefaultServiceConfig()
	if strings.TrimSpace(cfg.AdminAddr) == "" {
		cfg.AdminAddr = def.AdminAddr
	}
	if strings.TrimSpace(cfg.APIURL) == "" {
		cfg.APIURL = def.APIURL
	}
	if strings.TrimSpace(cfg.BasePrefix) == "" {
		cfg.BasePrefix = def.BasePrefix
	}
	if strings.TrimSpace(cfg.DefaultTarget) == "" {
		cfg.DefaultTarget = def.DefaultTarget
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = def.ReconcileInterval
	}
	if cfg.HostRouting && strings.TrimSpace(cfg.WildcardDomain) == "" {
		return nil, fmt.Errorf("hub: host routing requires a wildcard domain")
	}
	if strings.TrimSpace(cfg.AuthToken) == "" {
		if !cfg.Proxy.HubManaged {
			return nil, fmt.Errorf("hub: auth token required for an externally managed proxy")
		}
		token, err := newAuthToken()
		if err != nil {
			return nil, err
		}
		cfg.AuthToken = token
	}
	cfg.ClientOptions.HostRouting = cfg.HostRouting
	cfg.Proxy.HostRouting = cfg.HostRouting
	cfg.Proxy.DefaultTarget = cfg.DefaultTarget

	svc := &Service{cfg: cfg}
	svc.endpoint = proxyclient.NewEndpoint(cfg.APIURL, cfg.AuthToken)
	svc.client = proxyclient.NewClient(svc.endpoint, cfg.ClientOptions)
	svc.source = NewMemorySource(cfg.Seed)
	svc.reconciler = reconcile.New(svc.client, svc.source, routes.BuilderOptions{
		BasePrefix:     cfg.BasePrefix,
		DefaultTarget:  cfg.DefaultTarget,
		HostRouting:    cfg.HostRouting,
		WildcardDomain: cfg.WildcardDomain,
	})
	svc.manager = lifecycle.NewManager(cfg.Proxy, svc.endpoint)

	var validator auth.Validator
	if strings.TrimSpace(cfg.AdminToken) != "" {
		validator = auth.StaticToken{Token: strings.TrimSpace(cfg.AdminToken)}
	}
	svc.admin = admin.NewServer(admin.Deps{
		Reconciler:  svc.reconciler,
		Endpoint:    svc.endpoint,
		Routes:      svc.client,
		Lifecycle:   svc.manager,
		Validator:   validator,
		CORSOrigins: cfg.CORSOrigins,
	})
	return svc, nil
}

// Reconciler exposes the engine for immediate route operations.
func (s *Service) Reconciler() *reconcile.Reconciler {
	return s.reconciler
}

// Endpoint exposes the shared endpoint configuration.
func (s *Service) Endpoint() *proxyclient.Endpoint {
	return s.endpoint
}

// Source exposes the tenant/service record view.
func (s *Service) Source() *MemorySource {
	return s.source
}

// Admin exposes the administrative HTTP server.
func (s *Service) Admin() *admin.Server {
	return s.admin
}

// Manager exposes the proxy lifecycle manager.
func (s *Service) Manager() *lifecycle.Manager {
	return s.manager
}

// TenantStarted records a tenant backend and routes to it immediately.
func (s *Service) TenantStarted(ctx context.Context, tenant routes.TenantRecord) error {
	s.source.UpsertTenant(tenant)
	return s.reconciler.AddTenant(ctx, tenant)
}

// TenantStopped drops a tenant record and removes exactly its route.
func (s *Service) TenantStopped(ctx context.Context, name string) error {
	s.source.RemoveTenant(name)
	return s.reconciler.DeleteTenant(ctx, name)
}

// ServiceRegistered records a service and routes to it immediately.
func (s *Service) ServiceRegistered(ctx context.Context, svc routes.ServiceRecord) error {
	s.source.UpsertService(svc)
	return s.reconciler.AddService(ctx, svc)
}

// ServiceRemoved drops a service record and removes exactly its route.
func (s *Service) ServiceRemoved(ctx context.Context, name string) error {
	prefix, ok := s.source.RemoveService(name)
	if !ok {
		return nil
	}
	return s.reconciler.DeleteService(ctx, prefix)
}

// Run starts the proxy, reconciles, and serves the admin API until a
// shutdown signal arrives.
func (s *Service) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := s.manager.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := s.manager.Stop(); err != nil {
			log.Warn().Err(err).Msg("proxy_stop_failed")
		}
	}()

	if _, err := s.reconciler.CheckRoutes(ctx); err != nil {
		return fmt.Errorf("hub: initial reconciliation: %w", err)
	}

	go s.reconcileLoop(ctx)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.admin.Run(s.cfg.AdminAddr)
	}()
	log.Info().Str("addr", s.cfg.AdminAddr).Msg("admin_listening")

	select {
	case <-ctx.Done():
		return nil
	case err := <-serveErr:
		return err
	}
}

// reconcileLoop runs periodic full passes until the context ends.
// Failures are logged and retried on the next tick, never fatal.
func (s *Service) reconcileLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ReconcileInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.reconciler.CheckRoutes(ctx); err != nil {
				log.Warn().Err(err).Msg("periodic_reconcile_failed")
			}
		}
	}
}

// newAuthToken generates a fresh control credential for a hub-owned proxy.
func newAuthToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("hub: generate auth token: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
