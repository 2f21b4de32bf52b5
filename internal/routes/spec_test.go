package routes

import (
	"fmt"
	"strings"
	"testing"

	"github.com/hubgate/hubgate/internal/testutil/testlog"
)

func TestNewRouteSpecPathOnly(t *testing.T) {
	testlog.Start(t)

	spec := NewRouteSpec("/test", "")
	if spec.Host != "" {
		t.Fatalf("expected empty host, got %q", spec.Host)
	}
	if spec.Path != "/test" {
		t.Fatalf("unexpected path: %q", spec.Path)
	}
	if !strings.Contains(spec.String(), fmt.Sprintf("path=%q", spec.Path)) {
		t.Fatalf("display missing path: %q", spec.String())
	}
	if strings.Contains(spec.String(), "host") {
		t.Fatalf("display includes empty host: %q", spec.String())
	}
}

func TestNewRouteSpecWithHost(t *testing.T) {
	testlog.Start(t)

	spec := NewRouteSpec("/test2", "myhost")
	if spec.Path != "/test2" || spec.Host != "myhost" {
		t.Fatalf("unexpected spec: %+v", spec)
	}
	if !strings.Contains(spec.String(), fmt.Sprintf("path=%q", spec.Path)) {
		t.Fatalf("display missing path: %q", spec.String())
	}
	if !strings.Contains(spec.String(), fmt.Sprintf("host=%q", spec.Host)) {
		t.Fatalf("display missing host: %q", spec.String())
	}

	copied := spec
	if copied != spec {
		t.Fatalf("copy not equal to original: %+v vs %+v", copied, spec)
	}
	copied.Host = "otherhost"
	if spec.Host != "myhost" {
		t.Fatalf("copy mutation leaked into original: %+v", spec)
	}
}

func TestAsRouteSpecIdentity(t *testing.T) {
	testlog.Start(t)

	spec := NewRouteSpec("/test", "myhost")
	got, err := AsRouteSpec(spec)
	if err != nil {
		t.Fatalf("as routespec: %v", err)
	}
	if got != spec {
		t.Fatalf("typed input not preserved: %+v", got)
	}

	fromString, err := AsRouteSpec("/path")
	if err != nil {
		t.Fatalf("as routespec from string: %v", err)
	}
	if fromString.Path != "/path" || fromString.Host != "" {
		t.Fatalf("unexpected spec from string: %+v", fromString)
	}
}

func TestAsRouteSpecRejectsOtherTypes(t *testing.T) {
	testlog.Start(t)

	if _, err := AsRouteSpec(42); err == nil {
		t.Fatalf("expected identity error for int input")
	}
	if _, err := AsRouteSpec(nil); err == nil {
		t.Fatalf("expected identity error for nil input")
	}
}

func TestNormalizePath(t *testing.T) {
	testlog.Start(t)

	cases := map[string]string{
		"":               "/",
		"/":              "/",
		"test":           "/test",
		"//user///zoe":   "/user/zoe",
		"/hub/user/zoe/": "/hub/user/zoe/",
	}
	for raw, want := range cases {
		if got := NormalizePath(raw); got != want {
			t.Fatalf("normalize %q: got %q want %q", raw, got, want)
		}
	}
}

func TestRouteSpecOrdering(t *testing.T) {
	testlog.Start(t)

	table := Table{
		NewRouteSpec("/b", ""):      {},
		NewRouteSpec("/a", "zed"):   {},
		NewRouteSpec("/a", ""):      {},
		NewRouteSpec("/z", "alpha"): {},
	}
	specs := table.SortedSpecs()
	want := []RouteSpec{
		{Host: "", Path: "/a"},
		{Host: "", Path: "/b"},
		{Host: "alpha", Path: "/z"},
		{Host: "zed", Path: "/a"},
	}
	for i := range want {
		if specs[i] != want[i] {
			t.Fatalf("sorted[%d] = %+v, want %+v", i, specs[i], want[i])
		}
	}
}
