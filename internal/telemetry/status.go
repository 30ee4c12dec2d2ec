package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/born-ml/superres/internal/metriclog"
)

// Snapshot is the loop state served on /status.
type Snapshot struct {
	State          string            `json:"state"`
	RunDir         string            `json:"run_dir"`
	Iteration      int64             `json:"iteration"`
	Epoch          int               `json:"epoch"`
	MaxEpochs      int               `json:"max_epochs"`
	TrainLoss      float64           `json:"train_loss"`
	StartedAt      time.Time         `json:"started_at"`
	LastEvaluation *metriclog.Record `json:"last_evaluation,omitempty"`
}

// StatusServer serves /healthz, /status and /metrics.
type StatusServer struct {
	router *gin.Engine
	srv    *http.Server
	logger *slog.Logger
}

// NewStatusServer builds the server. status is called on every /status request.
func NewStatusServer(addr string, m *Metrics, status func() Snapshot, logger *slog.Logger) *StatusServer {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, status())
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))

	return &StatusServer{
		router: router,
		srv: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the HTTP handler.
func (s *StatusServer) Handler() http.Handler {
	return s.router
}

// Start binds the address and serves in the background. The returned
// address is the bound one (useful with port 0).
func (s *StatusServer) Start() (string, error) {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return "", err
	}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server stopped", "error", err)
		}
	}()
	s.logger.Info("status server listening", "addr", ln.Addr().String())
	return ln.Addr().String(), nil
}

// Shutdown stops the server gracefully.
func (s *StatusServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
