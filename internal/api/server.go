package api

import (
	"bytes"
	"log"
	"net/http"

	"rankfair/app"
	"rankfair/domain/verdict"
	"rankfair/internal/errors"
	"rankfair/internal/oracle"
	"rankfair/internal/render"

	"github.com/gin-gonic/gin"
)

// Server exposes the audit, metrics and stability operations over HTTP
type Server struct {
	router     *gin.Engine
	audits     *app.AuditService
	tables     *app.MetricsService
	defaults   oracle.Options
	thresholds verdict.Thresholds
	metrics    *Metrics
}

// NewServer wires the handlers. defaults fill any option a request leaves out.
func NewServer(
	audits *app.AuditService,
	tables *app.MetricsService,
	defaults oracle.Options,
	thresholds verdict.Thresholds,
	metrics *Metrics,
) *Server {
	if metrics == nil {
		metrics = NewMetrics()
	}

	s := &Server{
		router:     gin.New(),
		audits:     audits,
		tables:     tables,
		defaults:   defaults,
		thresholds: thresholds,
		metrics:    metrics,
	}
	s.router.Use(gin.Logger(), gin.Recovery(), metrics.middleware())
	s.routes()
	return s
}

func (s *Server) routes() {
	v1 := s.router.Group("/v1")
	{
		v1.POST("/audits", s.createAudit)
		v1.GET("/audits", s.listAudits)
		v1.GET("/audits/:id", s.getAudit)
		v1.POST("/metrics", s.buildMetrics)
		v1.POST("/stability", s.checkStability)
	}
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Metrics returns the collectors the server records into
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// statusFor maps an application error code onto an HTTP status
func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.CodeInvalidInput:
		return http.StatusBadRequest
	case errors.CodeDegenerateGroup:
		return http.StatusUnprocessableEntity
	case errors.CodeNotFound:
		return http.StatusNotFound
	case errors.CodeExternalOracle:
		return http.StatusBadGateway
	case errors.CodeDatabaseError:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("[API] %s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{
		"error": err.Error(),
		"code":  errors.GetCode(err),
	})
}

func (s *Server) badRequest(c *gin.Context, err error) {
	s.fail(c, errors.InvalidInput("invalid request: %v", err))
}

// requestFormat reads the optional ?format= query parameter
func requestFormat(c *gin.Context) (render.Format, error) {
	value := c.Query("format")
	if value == "" {
		return render.FormatJSON, nil
	}
	return render.ParseFormat(value)
}

var contentTypes = map[render.Format]string{
	render.FormatYAML:     "application/yaml; charset=utf-8",
	render.FormatMarkdown: "text/markdown; charset=utf-8",
	render.FormatHTML:     "text/html; charset=utf-8",
}

// respond writes v as JSON, or through renderFn for the other formats
func (s *Server) respond(c *gin.Context, status int, format render.Format, v interface{}, renderFn func(*bytes.Buffer) error) {
	if format == render.FormatJSON {
		c.JSON(status, v)
		return
	}
	var buf bytes.Buffer
	if err := renderFn(&buf); err != nil {
		s.fail(c, errors.Wrap(err, "failed to render response"))
		return
	}
	c.Data(status, contentTypes[format], buf.Bytes())
}
