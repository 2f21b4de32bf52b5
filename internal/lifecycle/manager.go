package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hubgate/hubgate/internal/proxyclient"
)

var (
	ErrProxyStartup = errors.New("lifecycle: proxy failed startup health probe")
	ErrNotManaged   = errors.New("lifecycle: proxy process is externally managed")
)

// EnvAuthToken delivers the control credential to the child process.
// Environment, not argv: command lines leak through process listings.
const EnvAuthToken = "CONFIGPROXY_AUTH_TOKEN"

// Phase is the proxy lifecycle state as seen by this manager.
type Phase string

const (
	PhaseNotStarted Phase = "not_started"
	PhaseStarting   Phase = "starting"
	PhaseRunning    Phase = "running"
	PhaseStopped    Phase = "stopped"
)

// ownership tracks whether this manager launched the proxy process. Shutdown
// terminates the child only when this manager owns it.
type ownership int

const (
	notOwned ownership = iota
	ownedStarting
	ownedRunning
)

// Config describes how (and whether) the proxy process is launched.
type Config struct {
	// HubManaged launches and supervises the proxy process. When false the
	// operator runs the proxy and this manager only tracks the endpoint.
	HubManaged bool

	// Command is the proxy executable, with optional extra arguments.
	Command []string

	ListenIP   string
	ListenPort int
	APIIP      string
	APIPort    int

	DefaultTarget string
	HostRouting   bool

	// StartupTimeout bounds the total post-launch health probe.
	StartupTimeout time.Duration
	ProbeInterval  time.Duration
}

// WithDefaults fills unset lifecycle configuration.
func (c Config) WithDefaults() Config {
	if len(c.Command) == 0 {
		c.Command = []string{"configurable-http-proxy"}
	}
	if c.ListenPort == 0 {
		c.ListenPort = 8000
	}
	if strings.TrimSpace(c.APIIP) == "" {
		c.APIIP = "127.0.0.1"
	}
	if c.APIPort == 0 {
		c.APIPort = 8001
	}
	if c.StartupTimeout <= 0 {
		c.StartupTimeout = 10 * time.Second
	}
	if c.ProbeInterval <= 0 {
		c.ProbeInterval = 100 * time.Millisecond
	}
	return c
}

// Manager supervises the external proxy process and its startup health.
type Manager struct {
	mu sync.Mutex

	cfg      Config
	endpoint *proxyclient.Endpoint

	phase Phase
	owner ownership
	cmd   *exec.Cmd
	done  chan error
}

// NewManager binds lifecycle supervision to shared endpoint configuration.
func NewManager(cfg Config, endpoint *proxyclient.Endpoint) *Manager {
	return &Manager{
		cfg:      cfg.WithDefaults(),
		endpoint: endpoint,
		phase:    PhaseNotStarted,
		owner:    notOwned,
	}
}

// Phase returns the current lifecycle phase.
func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Start brings the proxy to Running. In hub-managed mode it launches the
// process and blocks until the control API answers or the startup timeout
// expires; a probe timeout is a fatal startup error. Starting an
// already-running proxy is a no-op. In externally-managed mode no process is
// launched and the proxy is assumed Running.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase == PhaseRunning {
		return nil
	}

	if !m.cfg.HubManaged {
		m.phase = PhaseRunning
		m.owner = notOwned
		log.Info().Str("api_url", m.endpoint.Snapshot().APIURL).Msg("proxy_externally_managed")
		return nil
	}

	m.phase = PhaseStarting
	m.owner = ownedStarting

	args := append([]string{}, m.cfg.Command[1:]...)
	args = append(args,
		"--ip", m.cfg.ListenIP,
		"--port", strconv.Itoa(m.cfg.ListenPort),
		"--api-ip", m.cfg.APIIP,
		"--api-port", strconv.Itoa(m.cfg.APIPort),
		"--default-target", m.cfg.DefaultTarget,
	)
	if m.cfg.HostRouting {
		args = append(args, "--host-routing")
	}

	cmd := exec.Command(m.cfg.Command[0], args...)
	cmd.Env = append(os.Environ(), EnvAuthToken+"="+m.endpoint.Snapshot().AuthToken)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		m.phase = PhaseNotStarted
		m.owner = notOwned
		return fmt.Errorf("lifecycle: launch proxy: %w", err)
	}
	m.cmd = cmd
	m.done = make(chan error, 1)
	go func() { m.done <- cmd.Wait() }()
	log.Info().Int("pid", cmd.Process.Pid).Strs("args", args).Msg("proxy_launched")

	if err := m.waitForHealthyLocked(ctx); err != nil {
		_ = cmd.Process.Kill()
		<-m.done
		m.cmd = nil
		m.phase = PhaseNotStarted
		m.owner = notOwned
		return err
	}

	m.phase = PhaseRunning
	m.owner = ownedRunning
	return nil
}

// Stop terminates the proxy process, but only when this manager launched it.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.owner == notOwned {
		m.phase = PhaseStopped
		return nil
	}
	if m.cmd == nil || m.cmd.Process == nil {
		m.phase = PhaseStopped
		m.owner = notOwned
		return nil
	}

	pid := m.cmd.Process.Pid
	if err := m.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		_ = m.cmd.Process.Kill()
	}
	select {
	case <-m.done:
	case <-time.After(5 * time.Second):
		_ = m.cmd.Process.Kill()
		<-m.done
	}
	log.Info().Int("pid", pid).Msg("proxy_terminated")
	m.cmd = nil
	m.phase = PhaseStopped
	m.owner = notOwned
	return nil
}

// WaitForHealthy polls the control endpoint until any HTTP response arrives
// or the configured startup timeout expires.
func (m *Manager) WaitForHealthy(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waitForHealthyLocked(ctx)
}

func (m *Manager) waitForHealthyLocked(ctx context.Context) error {
	deadline := time.Now().Add(m.cfg.StartupTimeout)
	probe := &http.Client{Timeout: m.cfg.StartupTimeout}
	url := m.endpoint.Snapshot().APIURL + "/api/routes"

	attempt := 0
	for {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("lifecycle: build health probe: %w", err)
		}
		resp, err := probe.Do(req)
		if err == nil {
			// Any HTTP response (403 included) proves the control API is up.
			resp.Body.Close()
			log.Debug().Int("attempts", attempt).Str("url", url).Msg("proxy_healthy")
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s after %d attempts: %v", ErrProxyStartup, url, attempt, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.cfg.ProbeInterval):
		}
	}
}
