package proxyclient

import (
	"strings"
	"sync"
)

// EndpointConfig is one consistent view of the control-API location and
// credential. Values are read fresh for every control call so an update
// takes effect on the very next request.
type EndpointConfig struct {
	APIURL    string
	AuthToken string
}

// EndpointUpdate is a partial overwrite of the endpoint configuration.
// Empty fields keep the previous value; last write wins.
type EndpointUpdate struct {
	APIURL    string
	AuthToken string
}

// Endpoint is the shared mutable control-endpoint configuration.
// All components read it through Snapshot so a relocation is visible
// everywhere at once.
type Endpoint struct {
	mu  sync.RWMutex
	cfg EndpointConfig
}

// NewEndpoint seeds endpoint state with the initial URL and credential.
func NewEndpoint(apiURL string, authToken string) *Endpoint {
	return &Endpoint{cfg: EndpointConfig{
		APIURL:    strings.TrimRight(strings.TrimSpace(apiURL), "/"),
		AuthToken: authToken,
	}}
}

// Snapshot returns the current endpoint configuration.
func (e *Endpoint) Snapshot() EndpointConfig {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cfg
}

// Update applies a partial endpoint overwrite and returns the new view.
func (e *Endpoint) Update(update EndpointUpdate) EndpointConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	if url := strings.TrimSpace(update.APIURL); url != "" {
		e.cfg.APIURL = strings.TrimRight(url, "/")
	}
	if token := strings.TrimSpace(update.AuthToken); token != "" {
		e.cfg.AuthToken = token
	}
	return e.cfg
}
