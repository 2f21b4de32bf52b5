package lifecycle

import (
	"context"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/hubgate/hubgate/internal/proxyclient"
	"github.com/hubgate/hubgate/internal/testutil/proxytest"
	"github.com/hubgate/hubgate/internal/testutil/testlog"
)

func TestExternallyManagedAssumesRunning(t *testing.T) {
	testlog.Start(t)

	endpoint := proxyclient.NewEndpoint("http://127.0.0.1:8001", "secret")
	mgr := NewManager(Config{HubManaged: false}, endpoint)

	if mgr.Phase() != PhaseNotStarted {
		t.Fatalf("initial phase: %q", mgr.Phase())
	}
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if mgr.Phase() != PhaseRunning {
		t.Fatalf("phase after start: %q", mgr.Phase())
	}

	// Second start is a no-op, not an error.
	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("repeat start: %v", err)
	}

	if err := mgr.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if mgr.Phase() != PhaseStopped {
		t.Fatalf("phase after stop: %q", mgr.Phase())
	}
}

func TestHubManagedStartProbesAndStops(t *testing.T) {
	testlog.Start(t)

	fake := proxytest.Start(t, "secret")
	endpoint := proxyclient.NewEndpoint(fake.URL(), "secret")

	mgr := NewManager(Config{
		HubManaged: true,
		// Stand-in process: holds a pid open while the fake control API
		// answers the health probe.
		Command:        []string{"sh", "-c", "sleep 60", "proxy"},
		DefaultTarget:  "http://127.0.0.1:8081",
		StartupTimeout: 2 * time.Second,
		ProbeInterval:  20 * time.Millisecond,
	}, endpoint)

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if mgr.Phase() != PhaseRunning {
		t.Fatalf("phase after start: %q", mgr.Phase())
	}
	if err := mgr.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if mgr.Phase() != PhaseStopped {
		t.Fatalf("phase after stop: %q", mgr.Phase())
	}
}

func TestHubManagedStartupProbeTimeoutIsFatal(t *testing.T) {
	testlog.Start(t)

	// Nothing listens at the endpoint, so every probe is refused.
	endpoint := proxyclient.NewEndpoint("http://127.0.0.1:1", "secret")
	mgr := NewManager(Config{
		HubManaged:     true,
		Command:        []string{"sh", "-c", "sleep 60", "proxy"},
		DefaultTarget:  "http://127.0.0.1:8081",
		StartupTimeout: 200 * time.Millisecond,
		ProbeInterval:  20 * time.Millisecond,
	}, endpoint)

	err := mgr.Start(context.Background())
	if !errors.Is(err, ErrProxyStartup) {
		t.Fatalf("expected startup error, got %v", err)
	}
	if mgr.Phase() != PhaseNotStarted {
		t.Fatalf("failed startup must reset phase, got %q", mgr.Phase())
	}
}

func TestWaitForHealthyRetriesConnectionRefused(t *testing.T) {
	testlog.Start(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	// The endpoint stays refused for a few probe rounds, then comes up.
	go func() {
		time.Sleep(150 * time.Millisecond)
		relisten, err := net.Listen("tcp", addr)
		if err != nil {
			return
		}
		srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})}
		go func() { _ = srv.Serve(relisten) }()
		time.Sleep(2 * time.Second)
		_ = srv.Close()
	}()

	endpoint := proxyclient.NewEndpoint("http://"+addr, "secret")
	mgr := NewManager(Config{
		HubManaged:     false,
		StartupTimeout: 2 * time.Second,
		ProbeInterval:  20 * time.Millisecond,
	}, endpoint)

	if err := mgr.WaitForHealthy(context.Background()); err != nil {
		t.Fatalf("probe never converged: %v", err)
	}
}
