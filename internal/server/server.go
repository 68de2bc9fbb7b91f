// Package server exposes the pipeline over HTTP: a health probe, a schema
// endpoint, and a query endpoint that streams progress as server-sent
// events.
package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/chartquery/chartquery/internal/config"
	"github.com/chartquery/chartquery/internal/logging"
	"github.com/chartquery/chartquery/internal/pipeline"
)

// queryRunner is the pipeline surface the server needs.
type queryRunner interface {
	Run(ctx context.Context, query string, sink pipeline.Sink) pipeline.Result
	Schema(ctx context.Context) ([]pipeline.TableSchema, error)
}

// pinger reports storage liveness for the health endpoint.
type pinger interface {
	Ping(ctx context.Context) error
}

// Server hosts the HTTP API.
type Server struct {
	runner queryRunner
	store  pinger
	cfg    config.ServerConfig
	logger *logging.Logger
	engine *gin.Engine
}

// New assembles the router.
func New(runner queryRunner, store pinger, cfg config.ServerConfig, logger *logging.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		runner: runner,
		store:  store,
		cfg:    cfg,
		logger: logger,
		engine: gin.New(),
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(s.requestID())
	s.engine.Use(s.cors())
	s.engine.Use(s.requestLog())

	api := s.engine.Group("/api")
	api.GET("/health", s.handleHealth)
	api.GET("/schema", s.handleSchema)
	api.POST("/query", s.handleQuery)
	api.GET("/query", s.handleQuery)

	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe blocks serving HTTP until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		errCh <- srv.ListenAndServe()
	}()

	s.logger.WithField("addr", s.cfg.Addr()).Info("server listening")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}

		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func (s *Server) cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if origin != "" && s.originAllowed(origin) {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func (s *Server) originAllowed(origin string) bool {
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}

	return false
}

func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.WithFields(map[string]any{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"duration":   time.Since(start).String(),
			"request_id": c.GetString("request_id"),
		}).Info("request completed")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	status := "ok"
	database := "up"

	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		status = "degraded"
		database = "down"

		s.logger.WithError(err).Warn("health check database ping failed")
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"database": database,
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleSchema(c *gin.Context) {
	schemas, err := s.runner.Schema(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "schema unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tables": schemas})
}

type queryRequest struct {
	Query string `json:"query"`
}

// handleQuery streams pipeline progress as SSE. The query arrives either as
// a JSON body (POST) or a q parameter (GET, for EventSource clients).
func (s *Server) handleQuery(c *gin.Context) {
	query := c.Query("q")

	if query == "" && c.Request.Method == http.MethodPost {
		var req queryRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			query = req.Query
		}
	}

	query = strings.TrimSpace(query)
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()

	sink := pipeline.SinkFunc(func(ctx context.Context, event pipeline.Event) {
		if ctx.Err() != nil {
			return
		}

		c.SSEvent(string(event.Type), event)
		c.Writer.Flush()
	})

	s.runner.Run(ctx, query, sink)
}
