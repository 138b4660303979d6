// Package registry is the server's table of registered services: the
// (service_id, service_mode) bindings a channel routing configuration can
// resolve against (spec.md §4.4), and the SERVICEMAP_RESPONSE enumeration
// (spec.md §4.8, scenario S3). SPEC_FULL.md §12 promotes this from a single
// hardcoded entry (as in the original source) to a small pluggable table so
// more than one adapter output can be addressed by service_id.
package registry

import (
	"fmt"

	"github.com/openidn/idnserver/internal/adapter"
)

// ServiceType is always 0x80 ("standard laser projector") for every
// service this core exposes (spec.md §4.8).
const ServiceType = 0x80

// ServiceFlagDefault marks a service as the default target when a routing
// configuration does not explicitly request one.
const ServiceFlagDefault = 1 << 0

// Service binds a service_id to the adapter that services it.
type Service struct {
	ID      uint16
	Mode    uint16
	Flags   uint8
	Adapter adapter.Adapter
}

// Name returns the service's adapter name, truncated to the 20-byte wire
// budget used by SERVICEMAP_RESPONSE entries.
func (s Service) Name() string {
	n := s.Adapter.Name()
	if len(n) > 20 {
		n = n[:20]
	}
	return n
}

// Registry is the server's service table.
type Registry struct {
	services []Service
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{}
}

// Register adds svc to the table. The first registered service always gets
// ServiceFlagDefault; a later service registered with that flag set keeps
// it as well, and the first one's flag is not cleared.
func (r *Registry) Register(svc Service) {
	if len(r.services) == 0 {
		svc.Flags |= ServiceFlagDefault
	}
	r.services = append(r.services, svc)
}

// Resolve looks up a service by (id, mode). Per spec.md §4.4, a channel's
// Open transition requires this to succeed.
func (r *Registry) Resolve(id, mode uint16) (Service, error) {
	for _, s := range r.services {
		if s.ID == id && s.Mode == mode {
			return s, nil
		}
	}
	return Service{}, fmt.Errorf("registry: no service for id=%d mode=%d", id, mode)
}

// All returns every registered service in registration order, for
// SERVICEMAP_RESPONSE enumeration.
func (r *Registry) All() []Service {
	return r.services
}
