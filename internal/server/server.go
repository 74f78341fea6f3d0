package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/genecompare/internal/config"
	"github.com/agenthands/genecompare/internal/core"
	"github.com/agenthands/genecompare/internal/requestctx"
	"github.com/agenthands/genecompare/internal/rest"
	"github.com/agenthands/genecompare/internal/version"
)

type Server struct {
	Aggregator *core.Aggregator
	Config     *config.Config
	Logger     *slog.Logger

	started time.Time
}

func NewServer(agg *core.Aggregator, cfg *config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		Aggregator: agg,
		Config:     cfg,
		Logger:     logger,
		started:    time.Now().UTC(),
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	gin.SetMode(s.Config.Server.GinMode)

	r := gin.New()
	r.Use(
		RequestID(),
		AccessLog(s.Logger),
		gin.Recovery(),
		CORS(s.Config.Server.AllowedOrigins),
		Timeout(s.Config.Server.RequestTimeout.Duration),
	)

	r.GET("/health", s.Health)
	r.GET("/version", s.Version)
	r.GET("/config", s.PublicConfig)

	r.GET("/compare", s.Compare)
	r.POST("/compare", s.Compare)
	r.GET("/annotate", s.Annotate)
	r.POST("/annotate", s.Annotate)

	return r
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("starting server", "addr", addr, "version", version.Version)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.Logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

func (s *Server) Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version": version.Version,
		"commit":  version.Commit,
		"started": s.started,
	})
}

func (s *Server) PublicConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.Config.Public(version.Version))
}

// CompareRequest accepts idA/idB and the id1/id2 aliases older clients send.
type CompareRequest struct {
	IDA string `json:"idA" form:"idA"`
	IDB string `json:"idB" form:"idB"`
	ID1 string `json:"id1" form:"id1"`
	ID2 string `json:"id2" form:"id2"`
}

func (r CompareRequest) pair() (string, string) {
	return firstNonBlank(r.IDA, r.ID1), firstNonBlank(r.IDB, r.ID2)
}

func (s *Server) Compare(c *gin.Context) {
	var req CompareRequest
	if err := bind(c, &req); err != nil {
		s.writeError(c, err)
		return
	}

	idA, idB := req.pair()
	result, err := s.Aggregator.Compare(c.Request.Context(), idA, idB)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AnnotateRequest accepts either an explicit list or the two-id form.
type AnnotateRequest struct {
	IDs      []string `json:"ids" form:"ids"`
	ID1      string   `json:"id1" form:"id1"`
	ID2      string   `json:"id2" form:"id2"`
	Ensembl1 string   `json:"ensembl1" form:"ensembl1"`
	Ensembl2 string   `json:"ensembl2" form:"ensembl2"`
}

func (r AnnotateRequest) list() []string {
	var ids []string
	for _, v := range r.IDs {
		// GET clients may pass ids=a,b as well as ids=a&ids=b.
		ids = append(ids, strings.Split(v, ",")...)
	}
	if len(ids) > 0 {
		return ids
	}
	for _, v := range []string{firstNonBlank(r.ID1, r.Ensembl1), firstNonBlank(r.ID2, r.Ensembl2)} {
		if v != "" {
			ids = append(ids, v)
		}
	}
	return ids
}

func (s *Server) Annotate(c *gin.Context) {
	var req AnnotateRequest
	if err := bind(c, &req); err != nil {
		s.writeError(c, err)
		return
	}

	report, err := s.Aggregator.Annotate(c.Request.Context(), req.list())
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// bind reads a POST body as JSON. A POST without a body, like a GET, is
// bound from the query string.
func bind(c *gin.Context, req any) error {
	var err error
	if c.Request.Method == http.MethodPost && c.Request.ContentLength != 0 {
		err = c.ShouldBindJSON(req)
	} else {
		err = c.ShouldBindQuery(req)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrValidation, err)
	}
	return nil
}

// StatusFor maps the error taxonomy onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrUpstream):
		if rest.IsTimeout(err) {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	status := StatusFor(err)
	ctx := c.Request.Context()
	if status >= http.StatusInternalServerError {
		s.Logger.ErrorContext(ctx, "request failed", "path", c.FullPath(), "status", status, "error", err)
	} else {
		s.Logger.InfoContext(ctx, "request rejected", "path", c.FullPath(), "status", status, "error", err)
	}

	c.JSON(status, gin.H{
		"error":     core.Kind(err),
		"detail":    err.Error(),
		"requestId": requestctx.RequestIDFromContext(ctx),
	})
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
