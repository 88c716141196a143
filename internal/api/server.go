package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"
	"time"

	"surveystats/adapters/stats/weighted"
	"surveystats/app"
	"surveystats/domain/core"
	"surveystats/domain/survey"
	"surveystats/internal"
	"surveystats/internal/errors"
	"surveystats/ports"

	"github.com/gin-gonic/gin"
)

// Server exposes the survey estimators over HTTP
type Server struct {
	router       *gin.Engine
	service      *app.SurveyService
	results      ports.ResultRepository
	metrics      *Metrics
	logger       *internal.Logger
	maxBodyBytes int64
}

// ServerOptions configures a Server. Results may be nil to disable run
// persistence and the /runs endpoints.
type ServerOptions struct {
	Service      *app.SurveyService
	Results      ports.ResultRepository
	Logger       *internal.Logger
	GinMode      string
	MaxBodyBytes int64
}

// AggregateRequest is the body of POST /api/v1/aggregate
type AggregateRequest struct {
	Records         []Record `json:"records" binding:"required"`
	Weight          string   `json:"weight" binding:"required"`
	Indicators      []string `json:"indicators" binding:"required"`
	GroupBy         []string `json:"group_by"`
	ConfidenceLevel float64  `json:"confidence_level"`
	MinN            int      `json:"min_n"`
	SkipIntervals   bool     `json:"skip_intervals"`
	Store           bool     `json:"store"`
	Label           string   `json:"label"`
}

// AggregateResponse is the result of POST /api/v1/aggregate
type AggregateResponse struct {
	RunID core.RunID          `json:"run_id,omitempty"`
	Rows  []survey.SummaryRow `json:"rows"`
}

// CrosstabRequest is the body of POST /api/v1/crosstab
type CrosstabRequest struct {
	Records   []Record `json:"records" binding:"required"`
	Row       string   `json:"row" binding:"required"`
	Col       string   `json:"col" binding:"required"`
	Value     string   `json:"value" binding:"required"`
	Weight    string   `json:"weight" binding:"required"`
	Normalize string   `json:"normalize"`
}

// CrosstabResponse is the result of POST /api/v1/crosstab
type CrosstabResponse struct {
	Cells []survey.CrosstabCell `json:"cells"`
}

// DesignEffectRequest is the body of POST /api/v1/design-effect
type DesignEffectRequest struct {
	Records []Record `json:"records" binding:"required"`
	Weight  string   `json:"weight" binding:"required"`
}

// RunResponse is the result of GET /api/v1/runs/:id
type RunResponse struct {
	Run       ports.RunRecord     `json:"run"`
	Summary   []survey.SummaryRow `json:"summary"`
	Crosstabs []string            `json:"crosstabs,omitempty"`
}

type crosstabLister interface {
	CrosstabNames(ctx context.Context, runID core.RunID) ([]string, error)
}

// NewServer creates the HTTP server and registers its routes
func NewServer(opts ServerOptions) *Server {
	if opts.GinMode != "" {
		gin.SetMode(opts.GinMode)
	}
	if opts.Logger == nil {
		opts.Logger = internal.DefaultLogger
	}
	if opts.Service == nil {
		opts.Service = app.NewSurveyService(app.ServiceOptions{Logger: opts.Logger})
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 32 << 20
	}

	s := &Server{
		router:       gin.New(),
		service:      opts.Service,
		results:      opts.Results,
		metrics:      NewMetrics(),
		logger:       opts.Logger,
		maxBodyBytes: opts.MaxBodyBytes,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(s.metrics.Middleware())
	s.router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxBodyBytes)
		c.Next()
	})
	s.router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("[API] %s %s %d %.2fms", c.Request.Method, c.Request.URL.Path,
			c.Writer.Status(), float64(time.Since(start).Nanoseconds())/1e6)
	})
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	v1 := s.router.Group("/api/v1")
	v1.POST("/aggregate", s.handleAggregate)
	v1.POST("/crosstab", s.handleCrosstab)
	v1.POST("/design-effect", s.handleDesignEffect)
	v1.GET("/runs", s.handleListRuns)
	v1.GET("/runs/:id", s.handleGetRun)
	v1.GET("/runs/:id/crosstabs/:name", s.handleGetCrosstab)
}

// Handler returns the router for embedding or testing
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("[API] listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("[API] shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"estimator": s.service.EstimatorName(),
		"store":     s.results != nil,
	})
}

func (s *Server) handleAggregate(c *gin.Context) {
	var req AggregateRequest
	if !s.bind(c, &req) {
		return
	}
	if req.Store && s.results == nil {
		s.writeError(c, errors.InvalidInput("result store is not configured"))
		return
	}

	numeric := append([]string{req.Weight}, req.Indicators...)
	table, err := tableFromRecords(req.Records, numeric, req.GroupBy)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.metrics.observeRecords("aggregate", len(req.Records))

	rows, err := s.service.Summarize(c.Request.Context(), table, app.SummaryRequest{
		Roles:           survey.ColumnRoles{Weight: req.Weight, Indicators: req.Indicators, GroupBy: req.GroupBy},
		ConfidenceLevel: req.ConfidenceLevel,
		MinN:            req.MinN,
		SkipIntervals:   req.SkipIntervals,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}

	resp := AggregateResponse{Rows: rows}
	if req.Store {
		runID := core.NewRunID()
		run := ports.RunRecord{ID: runID, Label: req.Label, Source: "api"}
		if err := s.results.SaveRun(c.Request.Context(), run, rows, nil); err != nil {
			s.writeError(c, err)
			return
		}
		resp.RunID = runID
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCrosstab(c *gin.Context) {
	var req CrosstabRequest
	if !s.bind(c, &req) {
		return
	}
	mode, err := weighted.ParseNormalizeMode(req.Normalize)
	if err != nil {
		s.writeError(c, err)
		return
	}
	table, err := tableFromRecords(req.Records, []string{req.Value, req.Weight}, []string{req.Row, req.Col})
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.metrics.observeRecords("crosstab", len(req.Records))

	cells, err := s.service.Crosstab(c.Request.Context(), table, weighted.CrosstabSpec{
		Row: req.Row, Col: req.Col, Value: req.Value, Weight: req.Weight, Normalize: mode,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, CrosstabResponse{Cells: cells})
}

func (s *Server) handleDesignEffect(c *gin.Context) {
	var req DesignEffectRequest
	if !s.bind(c, &req) {
		return
	}
	table, err := tableFromRecords(req.Records, []string{req.Weight}, nil)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.metrics.observeRecords("design_effect", len(req.Records))

	res, err := s.service.DesignEffect(table, req.Weight)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleListRuns(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(c, errors.InvalidInput("limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	runs, err := s.results.ListRuns(c.Request.Context(), limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleGetRun(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	runID, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		s.writeError(c, errors.WithCode(errors.CodeInvalidInput, err))
		return
	}
	ctx := c.Request.Context()
	run, err := s.results.GetRun(ctx, runID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	rows, err := s.results.GetSummary(ctx, runID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	resp := RunResponse{Run: *run, Summary: rows}
	if lister, ok := s.results.(crosstabLister); ok {
		if resp.Crosstabs, err = lister.CrosstabNames(ctx, runID); err != nil {
			s.writeError(c, err)
			return
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetCrosstab(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	runID, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		s.writeError(c, errors.WithCode(errors.CodeInvalidInput, err))
		return
	}
	cells, err := s.results.GetCrosstab(c.Request.Context(), runID, c.Param("name"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, CrosstabResponse{Cells: cells})
}

func (s *Server) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		s.writeError(c, errors.WithCode(errors.CodeInvalidInput, err))
		return false
	}
	return true
}

func (s *Server) requireStore(c *gin.Context) bool {
	if s.results == nil {
		s.writeError(c, errors.NotFound("result store"))
		return false
	}
	return true
}

// writeError renders err as {"error": {"code", "message"}} with the status
// its code maps to.
func (s *Server) writeError(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := errors.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("[API] %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	s.metrics.observeFailure(code)
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{
			"code":    code,
			"message": err.Error(),
		},
	})
}
