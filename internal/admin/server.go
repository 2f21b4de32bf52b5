package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/hubgate/hubgate/internal/auth"
	"github.com/hubgate/hubgate/internal/lifecycle"
	"github.com/hubgate/hubgate/internal/observability"
	"github.com/hubgate/hubgate/internal/proxyclient"
	"github.com/hubgate/hubgate/internal/reconcile"
	"github.com/hubgate/hubgate/internal/routes"
)

// RouteLister is the read slice of the control client used by listings.
type RouteLister interface {
	GetAllRoutes(ctx context.Context) (routes.Table, error)
}

// Deps wires the admin surface to the reconciliation core.
type Deps struct {
	Reconciler *reconcile.Reconciler
	Endpoint   *proxyclient.Endpoint
	Routes     RouteLister
	Lifecycle  *lifecycle.Manager

	// Validator guards mutating endpoints. Nil leaves them open (dev only).
	Validator   auth.Validator
	CORSOrigins []string
}

// Server is the hub's administrative HTTP API.
type Server struct {
	deps     Deps
	router   *gin.Engine
	appeared time.Time
}

// NewServer builds the admin router with logging, metrics, and CORS.
func NewServer(deps Deps) *Server {
	s := &Server{
		deps:     deps,
		router:   gin.New(),
		appeared: time.Now(),
	}
	s.router.Use(gin.Recovery())
	s.router.Use(observability.RequestLogger(log.Logger))
	s.router.Use(observability.RequestMetricsMiddleware())
	if len(deps.CORSOrigins) > 0 {
		s.router.Use(cors.New(cors.Config{
			AllowOrigins: deps.CORSOrigins,
			AllowMethods: []string{"GET", "POST", "PATCH"},
			AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
			MaxAge:       12 * time.Hour,
		}))
	}
	s.registerRoutes()
	return s
}

// Router exposes the underlying engine for serving and tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Run serves the admin API until the listener fails or is closed.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"uptime":    time.Since(s.appeared).String(),
			"component": "hubgate-admin",
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		ready := true
		phase := ""
		if s.deps.Lifecycle != nil {
			phase = string(s.deps.Lifecycle.Phase())
			ready = s.deps.Lifecycle.Phase() == lifecycle.PhaseRunning
		}
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{
			"ready":  ready,
			"phase":  phase,
			"uptime": time.Since(s.appeared).String(),
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	guarded := s.router.Group("/", s.requireToken())

	guarded.GET("/routes", func(c *gin.Context) {
		table, err := s.deps.Routes.GetAllRoutes(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		listing := make([]gin.H, 0, len(table))
		for _, spec := range table.SortedSpecs() {
			route := table[spec]
			listing = append(listing, gin.H{
				"host":   spec.Host,
				"path":   spec.Path,
				"target": route.Target,
				"data":   route.Data,
			})
		}
		c.JSON(http.StatusOK, gin.H{"routes": listing})
	})

	guarded.POST("/proxy", func(c *gin.Context) {
		result, err := s.deps.Reconciler.CheckRoutes(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		// Partial per-key failures are recorded, not surfaced as an
		// HTTP error; the next pass retries them.
		c.JSON(http.StatusOK, result)
	})

	guarded.PATCH("/proxy", s.patchProxy)
}

// patchProxyRequest is the accepted PATCH /proxy body shape.
type patchProxyRequest struct {
	APIURL    string `json:"api_url"`
	AuthToken string `json:"auth_token"`
}

// patchProxy relocates the control endpoint and/or rotates its credential.
// The body must be a JSON object; anything else is rejected with no state
// change.
func (s *Server) patchProxy(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read request body"})
		return
	}
	if !isJSONObject(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be a JSON object"})
		return
	}
	var req patchProxyRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := s.deps.Endpoint.Update(proxyclient.EndpointUpdate{
		APIURL:    req.APIURL,
		AuthToken: req.AuthToken,
	})
	log.Info().Str("api_url", cfg.APIURL).Bool("token_rotated", req.AuthToken != "").Msg("proxy_endpoint_updated")
	c.JSON(http.StatusOK, gin.H{"api_url": cfg.APIURL})
}

// isJSONObject reports whether body parses as a JSON object (not null, not
// an array, not a bare value).
func isJSONObject(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	var probe map[string]json.RawMessage
	return json.Unmarshal(trimmed, &probe) == nil
}

// requireToken enforces bearer auth on mutating admin endpoints.
func (s *Server) requireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.deps.Validator == nil {
			c.Next()
			return
		}
		token, ok := auth.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "missing bearer token"})
			return
		}
		if err := s.deps.Validator.Validate(token); err != nil {
			if errors.Is(err, auth.ErrUnauthorized) {
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid token"})
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}
