// Package server exposes the supervisor's method table over HTTP.
package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/farmkeep/farmkeep/internal/api"
	"github.com/farmkeep/farmkeep/internal/metrics"
	"github.com/farmkeep/farmkeep/internal/registry"
	"github.com/farmkeep/farmkeep/internal/shareconf"
	"github.com/farmkeep/farmkeep/internal/snapshot"
)

// Router binds the RPC method table to HTTP routes:
//
//	POST {basePath}/start    body: {"path": "/etc/farmkeep/share.json"}
//	POST {basePath}/stop     body: {"id": "..."}
//	POST {basePath}/restart  body: {"id": "..."} ("*" for all)
//	POST {basePath}/destroy  body: {"id": "..."}
//	GET  {basePath}/status
//	POST {basePath}/killall
//	POST {basePath}/save     body: {"path": "..."} (optional)
//	POST {basePath}/load     body: {"path": "..."} (optional)
//	GET  {basePath}/healthz
//	GET  {basePath}/metrics
//
// basePath may be empty or start with '/'; no trailing slash.
type Router struct {
	methods  map[string]api.Method
	basePath string
}

func NewRouter(methods map[string]api.Method, basePath string) *Router {
	return &Router{methods: methods, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any
// server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/status", r.call("status"))
	for _, name := range []string{"start", "stop", "restart", "destroy", "killall", "save", "load"} {
		group.POST("/"+name, r.call(name))
	}
	group.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	group.GET("/metrics", gin.WrapH(metrics.Handler()))
	return g
}

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK     bool `json:"ok"`
	Result any  `json:"result,omitempty"`
}

func (r *Router) call(name string) gin.HandlerFunc {
	m := r.methods[name]
	return func(c *gin.Context) {
		var p api.Params
		if c.Request.Method == http.MethodPost && c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&p); err != nil {
				c.JSON(http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
				return
			}
		}
		res, err := m.Handler(c.Request.Context(), p)
		if err != nil {
			c.JSON(statusFor(err), errorResp{Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, okResp{OK: true, Result: res})
	}
}

// statusFor maps the supervisor's error kinds onto HTTP codes so remote
// callers can distinguish caller mistakes from supervisor faults.
func statusFor(err error) int {
	var (
		notRunning *registry.NotRunningError
		duplicate  *registry.DuplicateError
		cfgRead    *shareconf.ReadError
		cfgParse   *shareconf.ParseError
		validation *shareconf.ValidationError
		allocation *shareconf.AllocationError
		snapRead   *snapshot.ReadError
		snapParse  *snapshot.ParseError
	)
	switch {
	case errors.As(err, &notRunning), errors.As(err, &snapRead), errors.As(err, &cfgRead):
		return http.StatusNotFound
	case errors.As(err, &duplicate):
		return http.StatusConflict
	case errors.As(err, &cfgParse), errors.As(err, &validation),
		errors.As(err, &allocation), errors.As(err, &snapParse):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr, basePath string, methods map[string]api.Method) *http.Server {
	r := NewRouter(methods, basePath)
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}

func sanitizeBase(basePath string) string {
	bp := strings.TrimSpace(basePath)
	if bp == "" {
		return ""
	}
	if !strings.HasPrefix(bp, "/") {
		bp = "/" + bp
	}
	return strings.TrimRight(bp, "/")
}
