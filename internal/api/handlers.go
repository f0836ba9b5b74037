package api

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"rankfair/app"
	"rankfair/domain/classification"
	"rankfair/domain/core"
	"rankfair/domain/ranking"
	"rankfair/domain/verdict"
	"rankfair/internal/errors"
	"rankfair/internal/oracle"
	"rankfair/internal/render"

	"github.com/gin-gonic/gin"
)

// optionOverrides lets a request replace individual oracle defaults
type optionOverrides struct {
	TopK               *int    `json:"top_k" binding:"omitempty,gte=1"`
	Runs               *int    `json:"runs" binding:"omitempty,gte=1,lte=100000"`
	Precision          *int    `json:"precision" binding:"omitempty,gte=0"`
	StabilityPrecision *int    `json:"stability_precision" binding:"omitempty,gte=0"`
	Seed               *int64  `json:"seed"`
	Workers            *int    `json:"workers" binding:"omitempty,gte=1"`
	Alternative        *string `json:"alternative"`
}

func (o optionOverrides) apply(opts oracle.Options) oracle.Options {
	if o.TopK != nil {
		opts.TopK = *o.TopK
	}
	if o.Runs != nil {
		opts.Runs = *o.Runs
	}
	if o.Precision != nil {
		opts.Precision = *o.Precision
	}
	if o.StabilityPrecision != nil {
		opts.StabilityPrecision = *o.StabilityPrecision
	}
	if o.Seed != nil {
		opts.Seed = *o.Seed
	}
	if o.Workers != nil {
		opts.Workers = *o.Workers
	}
	if o.Alternative != nil {
		opts.Alternative = verdict.Alternative(*o.Alternative)
	}
	return opts
}

// auditRequest carries an inline column table and the audit parameters
type auditRequest struct {
	DatasetName        string                 `json:"dataset_name"`
	IDs                []string               `json:"ids"`
	Numeric            map[string][]float64   `json:"numeric" binding:"required"`
	Categorical        map[string][]string    `json:"categorical" binding:"required"`
	ScoreColumn        string                 `json:"score_column" binding:"required"`
	Group              ranking.ProtectedGroup `json:"group"`
	Options            optionOverrides        `json:"options"`
	DiversityAttribute string                 `json:"diversity_attribute"`
	DiversityTopN      int                    `json:"diversity_top_n" binding:"gte=0"`
	Persist            bool                   `json:"persist"`
}

func (s *Server) createAudit(c *gin.Context) {
	format, err := requestFormat(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	var req auditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	if req.Group.Attribute == "" || req.Group.Value == "" {
		s.fail(c, errors.InvalidInput("group attribute and value are required"))
		return
	}

	ds, err := ranking.FromColumns(req.IDs, req.Numeric, req.Categorical)
	if err != nil {
		s.fail(c, err)
		return
	}

	start := time.Now()
	report, err := s.audits.Run(c.Request.Context(), ds, app.AuditRequest{
		DatasetName:        req.DatasetName,
		ScoreColumn:        req.ScoreColumn,
		Group:              req.Group,
		Options:            req.Options.apply(s.defaults),
		DiversityAttribute: req.DiversityAttribute,
		DiversityTopN:      req.DiversityTopN,
		Persist:            req.Persist,
	})
	s.metrics.AuditDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.AuditsTotal.WithLabelValues("error").Inc()
		s.fail(c, err)
		return
	}

	s.metrics.AuditsTotal.WithLabelValues("ok").Inc()
	s.metrics.observeVerdict("rank_probability", report.Summary.RankFair)
	s.metrics.observeVerdict("pairwise", report.Summary.PairwiseFair)
	s.metrics.observeVerdict("proportion", report.Summary.ProportionFair)

	s.respond(c, http.StatusCreated, format, report, func(buf *bytes.Buffer) error {
		return render.Report(buf, report, format)
	})
}

func (s *Server) getAudit(c *gin.Context) {
	format, err := requestFormat(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	id, err := core.ParseReportID(c.Param("id"))
	if err != nil {
		s.fail(c, errors.InvalidInput("%v", err))
		return
	}

	report, err := s.audits.Get(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.respond(c, http.StatusOK, format, report, func(buf *bytes.Buffer) error {
		return render.Report(buf, report, format)
	})
}

func (s *Server) listAudits(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.fail(c, errors.InvalidInput("limit must be a non-negative integer, got %q", raw))
			return
		}
		limit = n
	}

	reports, err := s.audits.List(c.Request.Context(), limit)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"count":   len(reports),
	})
}

// metricsRequest is a labeled dataset plus the classifier's predictions
type metricsRequest struct {
	classification.LabeledDataset
	Predicted []float64 `json:"predicted" binding:"required"`
}

func (s *Server) buildMetrics(c *gin.Context) {
	format, err := requestFormat(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	var req metricsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	report, err := s.tables.Build(c.Request.Context(), &req.LabeledDataset, req.Predicted)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.metrics.MetricsTables.Inc()

	s.respond(c, http.StatusOK, format, report, func(buf *bytes.Buffer) error {
		return render.Metrics(buf, render.MetricsView{Table: report.Table, BiasCounts: report.BiasCounts}, format)
	})
}

type stabilityRequest struct {
	Scores    []float64 `json:"scores" binding:"required"`
	Precision *int      `json:"precision"`
}

type stabilityResponse struct {
	*verdict.StabilityResult
	Stable bool `json:"stable"`
}

func (s *Server) checkStability(c *gin.Context) {
	format, err := requestFormat(c)
	if err != nil {
		s.fail(c, err)
		return
	}

	var req stabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	precision := s.defaults.StabilityPrecision
	if req.Precision != nil {
		precision = *req.Precision
	}
	slope, err := oracle.Slope(req.Scores, precision)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.metrics.StabilityCalls.Inc()

	res := &verdict.StabilityResult{Slope: slope, N: len(req.Scores)}
	s.respond(c, http.StatusOK, format, stabilityResponse{StabilityResult: res, Stable: s.thresholds.IsStable(slope)},
		func(buf *bytes.Buffer) error {
			return render.Stability(buf, res, s.thresholds, format)
		})
}
