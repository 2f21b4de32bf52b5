package hub

import (
	"strings"
	"sync"

	"github.com/hubgate/hubgate/internal/routes"
)

// MemorySource is an in-memory tenant/service record view. It stands in for
// the external record store: the spawning subsystem pushes backend addresses
// in, reconciliation reads snapshots out.
type MemorySource struct {
	mu       sync.RWMutex
	tenants  map[string]routes.TenantRecord
	services map[string]routes.ServiceRecord
}

// NewMemorySource seeds the record view from a snapshot.
func NewMemorySource(snap routes.Snapshot) *MemorySource {
	s := &MemorySource{
		tenants:  make(map[string]routes.TenantRecord, len(snap.Tenants)),
		services: make(map[string]routes.ServiceRecord, len(snap.Services)),
	}
	for _, tenant := range snap.Tenants {
		if name := strings.TrimSpace(tenant.Name); name != "" {
			s.tenants[name] = tenant
		}
	}
	for _, svc := range snap.Services {
		if name := strings.TrimSpace(svc.Name); name != "" {
			s.services[name] = svc
		}
	}
	return s
}

// RouteSnapshot returns a point-in-time copy of the records.
func (s *MemorySource) RouteSnapshot() routes.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := routes.Snapshot{
		Tenants:  make([]routes.TenantRecord, 0, len(s.tenants)),
		Services: make([]routes.ServiceRecord, 0, len(s.services)),
	}
	for _, tenant := range s.tenants {
		out.Tenants = append(out.Tenants, tenant)
	}
	for _, svc := range s.services {
		out.Services = append(out.Services, svc)
	}
	return out
}

// UpsertTenant records a tenant's active backend address.
func (s *MemorySource) UpsertTenant(tenant routes.TenantRecord) {
	name := strings.TrimSpace(tenant.Name)
	if name == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenants[name] = tenant
}

// RemoveTenant drops a tenant record.
func (s *MemorySource) RemoveTenant(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tenants, strings.TrimSpace(name))
}

// UpsertService records a registered service.
func (s *MemorySource) UpsertService(svc routes.ServiceRecord) {
	name := strings.TrimSpace(svc.Name)
	if name == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services[name] = svc
}

// RemoveService drops a service record, returning its URL prefix when known.
func (s *MemorySource) RemoveService(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	svc, ok := s.services[strings.TrimSpace(name)]
	if !ok {
		return "", false
	}
	delete(s.services, strings.TrimSpace(name))
	return svc.URLPrefix, true
}
