package ui

import (
	"fmt"
	"net/http"
	"strconv"

	"hdmed/adapters/report"
	"hdmed/app"
	"hdmed/domain/mediation"
	"hdmed/internal"
	"hdmed/models"
	"hdmed/ports"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

// Server represents the web surface for the mediation estimator
type Server struct {
	router  *gin.Engine
	service *app.MediationService
	repo    ports.ResultsRepository
	logger  *internal.Logger
}

// NewServer creates a web server around an estimation service. The
// repository is optional; without it the report routes return 503.
func NewServer(service *app.MediationService, repo ports.ResultsRepository) *Server {
	s := &Server{
		router:  gin.Default(),
		service: service,
		repo:    repo,
		logger:  internal.DefaultLogger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	api.POST("/estimate", s.handleEstimate)
	api.GET("/reports", s.handleListReports)
	api.GET("/reports/:id", s.handleGetReport)

	s.router.GET("/reports/:id", s.handleReportHTML)
}

// Run starts the server on the given port
func (s *Server) Run(port string) error {
	s.logger.Info("Starting server on port %s", port)
	return s.router.Run(":" + port)
}

// Router exposes the gin engine for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// EstimateRequest carries a cohort and estimator settings. Mediators and
// confounders are row-major: one inner slice per observation.
type EstimateRequest struct {
	Outcome     []float64   `json:"outcome" binding:"required"`
	Exposure    []int       `json:"exposure" binding:"required"`
	Mediators   [][]float64 `json:"mediators" binding:"required"`
	Confounders [][]float64 `json:"confounders" binding:"required"`

	Trim       *float64 `json:"trim"`
	Normalized *bool    `json:"normalized"`
	FewSplits  bool     `json:"few_splits"`
	Seed       *int64   `json:"seed"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleEstimate(c *gin.Context) {
	var req EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ds, err := datasetFromRequest(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := mediation.DefaultConfig()
	if req.Trim != nil {
		cfg.Trim = *req.Trim
	}
	if req.Normalized != nil {
		cfg.Normalized = *req.Normalized
	}
	if req.Seed != nil {
		cfg.Seed = *req.Seed
	}
	cfg.FewSplits = req.FewSplits

	rep, err := s.service.EstimateAll(c.Request.Context(), ds, cfg)
	if err != nil {
		s.logger.Error("Estimation failed: %v", err)
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}

	if s.repo != nil {
		if err := s.repo.SaveReport(c.Request.Context(), rep); err != nil {
			s.logger.Error("Failed to persist report %s: %v", rep.RunID, err)
		}
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) handleListReports(c *gin.Context) {
	if s.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no results store configured"})
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}
	summaries, err := s.repo.ListReports(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summaries)
}

func (s *Server) handleGetReport(c *gin.Context) {
	rep, ok := s.lookupReport(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) handleReportHTML(c *gin.Context) {
	rep, ok := s.lookupReport(c)
	if !ok {
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", report.RenderHTML(rep))
}

func (s *Server) lookupReport(c *gin.Context) (rep *models.Report, ok bool) {
	if s.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no results store configured"})
		return nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return nil, false
	}
	rep, err = s.repo.GetReport(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	return rep, true
}

func datasetFromRequest(req *EstimateRequest) (*mediation.Dataset, error) {
	n := len(req.Outcome)
	if n == 0 {
		return nil, fmt.Errorf("outcome is empty")
	}
	if len(req.Mediators) != n || len(req.Confounders) != n {
		return nil, fmt.Errorf("mediators and confounders must have one row per observation")
	}
	m, err := denseFromRows(req.Mediators, "mediators")
	if err != nil {
		return nil, err
	}
	x, err := denseFromRows(req.Confounders, "confounders")
	if err != nil {
		return nil, err
	}
	return mediation.NewDataset(req.Outcome, req.Exposure, m, x)
}

func denseFromRows(rows [][]float64, name string) (*mat.Dense, error) {
	cols := len(rows[0])
	if cols == 0 {
		return nil, fmt.Errorf("%s rows are empty", name)
	}
	out := mat.NewDense(len(rows), cols, nil)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("%s row %d has %d values, want %d", name, i, len(row), cols)
		}
		out.SetRow(i, row)
	}
	return out, nil
}
