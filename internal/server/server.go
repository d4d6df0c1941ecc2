// Package server is the read-only operator dashboard: a small gin service
// over the run log. It mutates nothing; the jobs stay batch-only.
package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/paperchase/relay/internal/config"
	"github.com/paperchase/relay/internal/core/model"
	"github.com/paperchase/relay/internal/core/report"
)

const defaultRunsLimit = 50

type Server struct {
	addr   string
	runLog string
	log    *zap.SugaredLogger
}

func New(cfg config.ServerConfig, runLog string, log *zap.SugaredLogger) *Server {
	return &Server{
		addr:   cfg.Addr,
		runLog: runLog,
		log:    log.Named("server"),
	}
}

func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.healthz)
	r.GET("/runs", s.listRuns)
	r.GET("/runs/latest", s.latestRun)

	return r
}

// Run serves until the listener fails.
func (s *Server) Run() error {
	s.log.Infow("dashboard listening", "addr", s.addr, "run_log", s.runLog)
	return s.Router().Run(s.addr)
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// listRuns returns recent runs, newest first. ?limit= bounds the page,
// ?job= filters to one job.
func (s *Server) listRuns(c *gin.Context) {
	runs, err := s.load(c)
	if err != nil {
		return
	}

	if job := c.Query("job"); job != "" {
		filtered := runs[:0]
		for _, r := range runs {
			if r.Job == job {
				filtered = append(filtered, r)
			}
		}
		runs = filtered
	}

	limit := defaultRunsLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	// Newest first.
	out := make([]model.BatchResult, 0, limit)
	for i := len(runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, runs[i])
	}
	c.JSON(http.StatusOK, gin.H{"runs": out})
}

func (s *Server) latestRun(c *gin.Context) {
	runs, err := s.load(c)
	if err != nil {
		return
	}
	if len(runs) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no runs recorded"})
		return
	}
	c.JSON(http.StatusOK, runs[len(runs)-1])
}

// load reads the run log and writes the error response itself on failure,
// so handlers can just bail on a non-nil error.
func (s *Server) load(c *gin.Context) ([]model.BatchResult, error) {
	runs, err := report.ReadRunLog(s.runLog)
	if err != nil {
		s.log.Errorw("run log unreadable", "path", s.runLog, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "run log unreadable"})
		return nil, err
	}
	return runs, nil
}
