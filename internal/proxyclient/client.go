package proxyclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hubgate/hubgate/internal/observability"
	"github.com/hubgate/hubgate/internal/routes"
)

var ErrProxyUnreachable = errors.New("proxyclient: control api unreachable")

// APIError is a non-success control-API response, carrying status and body.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("proxyclient: api error status=%d body=%q", e.Status, e.Body)
}

// ClientOptions tunes one control-API client.
type ClientOptions struct {
	// HostRouting must match the flag the external proxy was started with;
	// it decides how route identities map onto control-API paths.
	HostRouting    bool
	RequestTimeout time.Duration
	Retry          RetryConfig
}

// WithDefaults fills unset client options.
func (o ClientOptions) WithDefaults() ClientOptions {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
	o.Retry = o.Retry.WithDefaults()
	return o
}

// Client speaks the external proxy's control API with bearer auth and
// bounded retry. The endpoint is re-read on every request so relocation
// and credential rotation take effect without a restart.
type Client struct {
	endpoint *Endpoint
	http     *http.Client
	opts     ClientOptions
}

// NewClient binds a control-API client to shared endpoint configuration.
func NewClient(endpoint *Endpoint, opts ClientOptions) *Client {
	opts = opts.WithDefaults()
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: opts.RequestTimeout},
		opts:     opts,
	}
}

// Endpoint exposes the shared endpoint configuration for admin updates.
func (c *Client) Endpoint() *Endpoint {
	return c.endpoint
}

// routePayload is the control API's wire form for one route record.
type routePayload struct {
	Target string           `json:"target"`
	Data   routes.RouteData `json:"data"`
}

// GetAllRoutes fetches the proxy's full route table, keyed by RouteSpec.
// The table is always fetched fresh; no prior copy is trusted.
func (c *Client) GetAllRoutes(ctx context.Context) (routes.Table, error) {
	body, err := c.apiRequest(ctx, http.MethodGet, "", nil, nil)
	if err != nil {
		return nil, err
	}
	var listing map[string]routePayload
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("proxyclient: decode route listing: %w", err)
	}
	table := make(routes.Table, len(listing))
	for rawPath, payload := range listing {
		spec := c.specFromAPIPath(rawPath)
		table[spec] = routes.Route{
			Spec:   spec,
			Target: payload.Target,
			Data:   payload.Data,
		}
	}
	return table, nil
}

// GetRoute fetches one route record; the second return reports presence.
func (c *Client) GetRoute(ctx context.Context, spec routes.RouteSpec) (routes.Route, bool, error) {
	notFound := false
	body, err := c.apiRequest(ctx, http.MethodGet, c.routeAPIPath(spec), nil, &notFound)
	if err != nil {
		return routes.Route{}, false, err
	}
	if notFound {
		return routes.Route{}, false, nil
	}
	var payload routePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return routes.Route{}, false, fmt.Errorf("proxyclient: decode route: %w", err)
	}
	return routes.Route{Spec: spec, Target: payload.Target, Data: payload.Data}, true, nil
}

// AddRoute upserts one route, replacing any existing route at the same spec.
func (c *Client) AddRoute(ctx context.Context, spec routes.RouteSpec, target string, data routes.RouteData) error {
	payload := routePayload{Target: strings.TrimSpace(target), Data: data}
	_, err := c.apiRequest(ctx, http.MethodPost, c.routeAPIPath(spec), payload, nil)
	observability.RecordRouteMutation("add", err)
	return err
}

// DeleteRoute removes one route; an already-absent route is success.
func (c *Client) DeleteRoute(ctx context.Context, spec routes.RouteSpec) error {
	notFound := false
	_, err := c.apiRequest(ctx, http.MethodDelete, c.routeAPIPath(spec), nil, &notFound)
	observability.RecordRouteMutation("delete", err)
	return err
}

// apiRequest issues one authenticated control-API call with bounded retry on
// connection failure. notFound, when non-nil, marks a 404 as satisfied
// instead of an API error.
func (c *Client) apiRequest(ctx context.Context, method string, path string, payload any, notFound *bool) ([]byte, error) {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("proxyclient: encode request: %w", err)
		}
		body = encoded
	}

	var lastErr error
	for attempt := 1; attempt <= c.opts.Retry.Attempts; attempt++ {
		if attempt > 1 {
			delay := NextBackoffDelay(c.opts.Retry, attempt-1)
			log.Debug().
				Str("method", method).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("proxy_api_retry")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		out, retryable, err := c.doOnce(ctx, method, path, body, notFound)
		if err == nil {
			return out, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%w: %v", ErrProxyUnreachable, lastErr)
}

// doOnce performs a single request. The bool return marks transient
// connection-level failures eligible for retry.
func (c *Client) doOnce(ctx context.Context, method string, path string, body []byte, notFound *bool) ([]byte, bool, error) {
	cfg := c.endpoint.Snapshot()
	reqURL := cfg.APIURL + "/api/routes" + path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, false, fmt.Errorf("proxyclient: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cfg.AuthToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		observability.RecordProxyAPIRequest(method, 0, time.Since(start), false)
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.RecordProxyAPIRequest(method, resp.StatusCode, time.Since(start), false)
		return nil, true, fmt.Errorf("proxyclient: read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound && notFound != nil {
		*notFound = true
		observability.RecordProxyAPIRequest(method, resp.StatusCode, time.Since(start), true)
		return nil, false, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		observability.RecordProxyAPIRequest(method, resp.StatusCode, time.Since(start), false)
		return nil, false, &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}
	observability.RecordProxyAPIRequest(method, resp.StatusCode, time.Since(start), true)
	return respBody, false, nil
}

// routeAPIPath maps a route identity onto its control-API path. Host-routed
// specs serialize as /<host><path>; path-only specs pass through.
func (c *Client) routeAPIPath(spec routes.RouteSpec) string {
	raw := spec.Path
	if spec.Host != "" {
		raw = routes.JoinPath(spec.Host, spec.Path)
	}
	if raw == "/" {
		return "/"
	}
	segments := strings.Split(strings.Trim(raw, "/"), "/")
	for i := range segments {
		segments[i] = url.PathEscape(segments[i])
	}
	return "/" + strings.Join(segments, "/")
}

// specFromAPIPath reverses routeAPIPath. Under host routing the leading
// segment is treated as a host when it looks like one (contains a dot);
// the default route and path-only service routes stay host-free.
func (c *Client) specFromAPIPath(rawPath string) routes.RouteSpec {
	unescaped := rawPath
	if decoded, err := url.PathUnescape(rawPath); err == nil {
		unescaped = decoded
	}
	path := routes.NormalizePath(unescaped)
	if !c.opts.HostRouting || path == "/" {
		return routes.NewRouteSpec(path, "")
	}
	trimmed := strings.TrimPrefix(path, "/")
	head, rest, found := strings.Cut(trimmed, "/")
	if !strings.Contains(head, ".") {
		return routes.NewRouteSpec(path, "")
	}
	if !found || rest == "" {
		return routes.NewRouteSpec("/", head)
	}
	return routes.NewRouteSpec("/"+rest, head)
}
