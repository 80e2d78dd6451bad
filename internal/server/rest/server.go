package rest

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"zonesync/internal/config"
	"zonesync/internal/resync"
)

// Pinger checks record store connectivity for the health endpoint.
type Pinger interface {
	Ping() error
}

// Server exposes the small ops surface of the daemon: health, sync status
// and a manual resync trigger. Zone and record management stay with the
// external administration layer.
type Server struct {
	cfg        *config.Config
	store      Pinger
	syncer     *resync.Syncer
	r          *gin.Engine
	httpServer *http.Server
}

func NewServer(cfg *config.Config, store Pinger, syncer *resync.Syncer) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		return fmt.Sprintf("API %s %s %d %s from %s\n",
			param.Method,
			param.Path,
			param.StatusCode,
			param.Latency,
			param.ClientIP,
		)
	}))
	r.Use(gin.Recovery())

	s := &Server{cfg: cfg, store: store, syncer: syncer, r: r}

	r.GET("/health", s.health)
	r.GET("/status", s.status)

	api := r.Group("/")
	api.Use(s.auth)
	{
		api.POST("/resync", s.resync)
	}
	return s
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    s.cfg.RESTListen,
		Handler: s.r,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// auth validates the bearer token against the configured bcrypt hash, or
// the plain token as a deprecated fallback. No configured token allows all.
func (s *Server) auth(c *gin.Context) {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")

	authenticated := false
	if s.cfg.APITokenHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.APITokenHash), []byte(token)); err == nil {
			authenticated = true
		}
	} else if s.cfg.APIToken != "" {
		if token == s.cfg.APIToken {
			authenticated = true
		}
	} else {
		authenticated = true
	}

	if !authenticated {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	c.Next()
}

// Handlers

func (s *Server) health(c *gin.Context) {
	status := "ok"
	dbStatus := "ok"
	if err := s.store.Ping(); err != nil {
		dbStatus = "unreachable"
		status = "degraded"
	}

	response := gin.H{
		"status": status,
		"db":     dbStatus,
	}
	if status == "ok" {
		c.JSON(http.StatusOK, response)
	} else {
		c.JSON(http.StatusServiceUnavailable, response)
	}
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, s.syncer.Status())
}

func (s *Server) resync(c *gin.Context) {
	s.syncer.Request()
	c.JSON(http.StatusAccepted, gin.H{"status": "resync requested"})
}
