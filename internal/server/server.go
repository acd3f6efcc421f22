// Package server is the HTTP chat shell: an HTML chat page, a JSON and
// WebSocket chat API, and the operational endpoints.
package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"cryptoguide/config"
	"cryptoguide/internal/assistant"
	"cryptoguide/internal/metrics"
	"cryptoguide/internal/session"
	"cryptoguide/logger"
)

//go:embed templates/*.tmpl assets/*
var embeddedFS embed.FS

// Server hosts the Gin chat application.
type Server struct {
	cfg             config.ServerConfig
	log             *logger.Log
	entry           *logger.Entry
	answerer        session.Answerer
	sessions        *session.Store
	limiter         *rateLimiter
	metricStore     *metricStore
	logStore        *logStore
	metricHandler   metrics.MetricHandlerID
	resourceSampler *resourceSampler
	httpServer      *http.Server
	startedAt       time.Time
}

// NewServer wires the chat endpoints to answerer. The server attaches a log
// hook and a metric handler to feed /api/logs and /api/metrics; Run removes
// them on exit.
func NewServer(cfg config.ServerConfig, answerer session.Answerer, log *logger.Log) (*Server, error) {
	if answerer == nil {
		return nil, errors.New("server: answerer is required")
	}
	if log == nil {
		log = logger.GetLogger()
	}

	cfg.Address = normalizeAddress(cfg.Address)

	metricStore := newMetricStore(cfg.MetricsHistory)
	handlerID := metrics.RegisterMetricHandler(metricStore.handle)

	logStore := newLogStore(cfg.LogHistory)
	log.AddHook(logStore)

	return &Server{
		cfg:             cfg,
		log:             log,
		entry:           log.WithComponent("server"),
		answerer:        answerer,
		sessions:        session.NewStore(cfg.SessionIdleTimeout, cfg.MaxSessions),
		limiter:         newRateLimiter(cfg.RateLimit, log),
		metricStore:     metricStore,
		logStore:        logStore,
		metricHandler:   handlerID,
		resourceSampler: newResourceSampler(cfg.MetricsHistory, cfg.ResourceInterval, "/", log),
		startedAt:       time.Now(),
	}, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled or the server
// exits with an error.
func (s *Server) Run(ctx context.Context, appName string) error {
	defer s.cleanup()

	router, err := s.buildRouter(appName)
	if err != nil {
		return err
	}

	s.resourceSampler.start(ctx)

	s.httpServer = &http.Server{
		Addr:              s.cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.entry.WithFields(logger.Fields{"address": s.cfg.Address}).Info("chat server listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) cleanup() {
	metrics.UnregisterMetricHandler(s.metricHandler)
	s.logStore.close()
	s.resourceSampler.stop()
}

// Address reports the network address the server listens on.
func (s *Server) Address() string {
	if s == nil {
		return ""
	}
	return s.cfg.Address
}

func (s *Server) buildRouter(appName string) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	// Use the socket peer address for ClientIP; forwarded headers are ignored.
	if err := router.SetTrustedProxies(nil); err != nil {
		return nil, err
	}
	router.Use(s.corsMiddleware())

	tmpl := template.Must(template.New("chat").ParseFS(embeddedFS, "templates/index.tmpl"))
	router.SetHTMLTemplate(tmpl)

	if assetsFS, err := fs.Sub(embeddedFS, "assets"); err == nil {
		router.StaticFS("/assets", http.FS(assetsFS))
	}

	router.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.tmpl", gin.H{
			"AppName": appName,
			"Title":   assistant.Title,
			"Intro":   assistant.Intro,
			"Sources": assistant.Sources,
			"Credit":  assistant.Credit,
		})
	})

	limited := s.limiter.middleware()
	router.POST("/api/chat", limited, s.handleChat)
	router.GET("/api/history", s.handleHistory)
	router.DELETE("/api/history", s.handleClearHistory)
	router.GET("/ws", limited, s.handleWebSocket)

	router.GET("/api/metrics", func(c *gin.Context) {
		metricsSnapshot := s.metricStore.snapshot()
		payload := make([]gin.H, 0, len(metricsSnapshot))
		for _, m := range metricsSnapshot {
			payload = append(payload, gin.H{
				"timestamp": m.Timestamp.Format(time.RFC3339Nano),
				"component": m.Component,
				"name":      m.Name,
				"value":     m.Value,
				"type":      m.Type,
				"fields":    m.Fields,
			})
		}
		c.JSON(http.StatusOK, gin.H{"metrics": payload})
	})

	router.GET("/api/logs", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"logs": s.logStore.snapshot()})
	})

	router.GET("/api/resources", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"resources": s.resourceSampler.snapshot()})
	})

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/healthz", s.handleHealth)

	return router, nil
}

func (s *Server) corsMiddleware() gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	if len(s.cfg.CORS.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = s.cfg.CORS.AllowedOrigins
		corsConfig.AllowCredentials = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"}
	return cors.New(corsConfig)
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)

	if addr == "" {
		return "0.0.0.0:8080"
	}

	if strings.Contains(addr, "://") {
		if parsed, err := url.Parse(addr); err == nil {
			if host := parsed.Host; host != "" {
				addr = host
			} else if parsed.Opaque != "" {
				addr = parsed.Opaque
			}
		}
	}

	if strings.HasPrefix(addr, ":") {
		if len(addr) > 1 && addr[1] >= '0' && addr[1] <= '9' {
			return "0.0.0.0" + addr
		}
	}

	host, port, err := net.SplitHostPort(addr)
	if err == nil {
		if host == "" || host == "*" {
			host = "0.0.0.0"
		}
		if port == "" {
			port = "8080"
		}
		return net.JoinHostPort(host, port)
	}

	if ip := net.ParseIP(addr); ip != nil {
		return net.JoinHostPort(addr, "8080")
	}

	if !strings.Contains(addr, ":") {
		return net.JoinHostPort(addr, "8080")
	}

	return addr
}
