package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/pngme/internal/commands"
	"github.com/danmuck/pngme/internal/config"
	"github.com/danmuck/pngme/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	HeaderPassphrase = "X-Pngme-Passphrase"
	HeaderCID        = "X-Pngme-Cid"
	ContentTypePNG   = "image/png"
)

// Server exposes the chunk commands over HTTP. Every request carries its own
// container; nothing is stored between requests.
type Server struct {
	ID       string
	Addr     string
	Appeared time.Time

	cfg     config.Config
	runner  *commands.Runner
	logger  zerolog.Logger
	router  *gin.Engine
	maxBody int64
}

func Appear(id string, cfg config.Config, logger zerolog.Logger) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestObserver(logger, id))
	if len(cfg.Server.CorsOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.Server.CorsOrigins,
			AllowMethods:  []string{"GET", "POST"},
			AllowHeaders:  []string{"Origin", "Content-Type", HeaderPassphrase},
			ExposeHeaders: []string{HeaderCID},
			MaxAge:        12 * time.Hour,
		}))
	}
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		logger.Warn().Err(err).Strs("trusted_proxies", cfg.Server.TrustedProxies).Msg("ignoring trusted proxies, using remote address")
		r.ForwardedByClientIP = false
	}

	return &Server{
		ID:       id,
		Addr:     cfg.Server.Addr,
		Appeared: time.Now(),
		cfg:      cfg,
		runner:   commands.NewRunner(logger),
		logger:   logger,
		router:   r,
		maxBody:  cfg.Server.MaxBodyBytes,
	}
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

// Serve blocks until ctx is cancelled or the listener fails.
func (s *Server) Serve(ctx context.Context) error {
	s.RegisterRoutes()
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.Addr).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info().Msg("server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
