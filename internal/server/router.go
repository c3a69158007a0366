package server

import (
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loykin/videospace/internal/command"
	"github.com/loykin/videospace/internal/history"
	"github.com/loykin/videospace/internal/logger"
)

// Router provides embeddable HTTP handlers for the shell's commands.
// Endpoints:
//   POST {basePath}/server/start
//   POST {basePath}/server/stop
//   GET  {basePath}/server/status
//   GET  {basePath}/server/info
//   GET  {basePath}/server/history  query: limit=N (needs a history reader)
//   POST {basePath}/open            body: {"url": "..."}
//   GET  {basePath}/system-info
//   POST {basePath}/deep-link       body: {"url": "..."}
// basePath may be empty or start with '/'; no trailing slash.
// When a UI directory is set, every other path serves the bundled UI.

type Router struct {
	cmds     *command.Commands
	basePath string
	hist     history.Reader
	uiDir    string
	log      *slog.Logger
}

// Option customizes a Router.
type Option func(*Router)

// WithHistory enables GET /server/history backed by r.
func WithHistory(r history.Reader) Option { return func(rt *Router) { rt.hist = r } }

// WithUI serves the static files in dir for paths outside the API.
func WithUI(dir string) Option { return func(rt *Router) { rt.uiDir = dir } }

// WithLogger sets the access logger.
func WithLogger(l *slog.Logger) Option { return func(rt *Router) { rt.log = l } }

// NewRouter constructs a new Router with configurable basePath.
func NewRouter(cmds *command.Commands, basePath string, opts ...Option) *Router {
	r := &Router{cmds: cmds, basePath: sanitizeBase(basePath), log: logger.Discard()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery(), r.accessLog())
	group := g.Group(r.basePath)
	group.POST("/server/start", r.handleStart)
	group.POST("/server/stop", r.handleStop)
	group.GET("/server/status", r.handleStatus)
	group.GET("/server/info", r.handleInfo)
	group.GET("/server/history", r.handleHistory)
	group.POST("/open", r.handleOpen)
	group.GET("/system-info", r.handleSystemInfo)
	group.POST("/deep-link", r.handleDeepLink)
	g.NoRoute(r.handleNoRoute())
	return g
}

// NewServer wraps the router in an http.Server for addr. The caller starts it.
func NewServer(addr string, r *Router) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func (r *Router) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		r.log.Debug("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"took", time.Since(start),
		)
	}
}

// --- Handlers ---

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

type messageResp struct {
	Message string `json:"message"`
}

type statusResp struct {
	Running bool `json:"running"`
}

type urlReq struct {
	URL string `json:"url" binding:"required"`
}

func (r *Router) handleStart(c *gin.Context) {
	msg, err := r.cmds.StartServer(c.Request.Context())
	if err != nil {
		writeJSON(c, statusFor(err), errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, messageResp{Message: msg})
}

func (r *Router) handleStop(c *gin.Context) {
	msg, err := r.cmds.StopServer(c.Request.Context())
	if err != nil {
		writeJSON(c, statusFor(err), errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, messageResp{Message: msg})
}

func (r *Router) handleStatus(c *gin.Context) {
	writeJSON(c, http.StatusOK, statusResp{Running: r.cmds.ServerStatus()})
}

func (r *Router) handleInfo(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.cmds.ServerInfo())
}

func (r *Router) handleHistory(c *gin.Context) {
	if r.hist == nil {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "history is not enabled"})
		return
	}
	limit, ok := parseLimit(c.Query("limit"))
	if !ok {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "limit must be a positive integer"})
		return
	}
	events, err := r.hist.Recent(c.Request.Context(), limit)
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	if events == nil {
		events = []history.Event{}
	}
	writeJSON(c, http.StatusOK, events)
}

func (r *Router) handleOpen(c *gin.Context) {
	var req urlReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if err := r.cmds.OpenInBrowser(c.Request.Context(), req.URL); err != nil {
		writeJSON(c, statusFor(err), errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

func (r *Router) handleSystemInfo(c *gin.Context) {
	in, err := r.cmds.SystemInfo(c.Request.Context())
	if err != nil {
		writeJSON(c, statusFor(err), errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, in)
}

func (r *Router) handleDeepLink(c *gin.Context) {
	var req urlReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	if err := r.cmds.HandleDeepLink(c.Request.Context(), req.URL); err != nil {
		writeJSON(c, statusFor(err), errorResp{Error: err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

// handleNoRoute answers unknown API paths with JSON and, when a UI
// directory is configured, serves its files with index.html as fallback.
func (r *Router) handleNoRoute() gin.HandlerFunc {
	var files http.Handler
	if r.uiDir != "" {
		files = http.FileServer(http.Dir(r.uiDir))
	}
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		inAPI := r.basePath != "" && (p == r.basePath || strings.HasPrefix(p, r.basePath+"/"))
		if files == nil || inAPI || (c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
			writeJSON(c, http.StatusNotFound, errorResp{Error: "not found"})
			return
		}
		// http.Dir rejects traversal; unknown client-side routes get index.html
		clean := path.Clean("/" + p)
		if _, err := os.Stat(filepath.Join(r.uiDir, filepath.FromSlash(clean))); err != nil {
			c.Request.URL.Path = "/"
		}
		files.ServeHTTP(c.Writer, c.Request)
	}
}
