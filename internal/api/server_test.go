package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rankfair/adapters/classmetrics"
	"rankfair/adapters/fair"
	rngadapter "rankfair/adapters/rng"
	"rankfair/app"
	"rankfair/domain/verdict"
	"rankfair/internal/errors"
	"rankfair/internal/oracle"
	"rankfair/internal/testkit"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	audits := app.NewAuditService(
		fair.NewTester(fair.DefaultAlpha),
		fair.NewGenerator(),
		fair.NewPairCounter(),
		rngadapter.NewSeededAdapter(),
		verdict.DefaultThresholds(),
		testkit.NewInMemoryReportRepository(),
	)
	tables := app.NewMetricsService(classmetrics.NewLibrary())
	return NewServer(audits, tables, oracle.DefaultOptions(), verdict.DefaultThresholds(), NewMetrics())
}

func perform(h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func scenarioBody(persist bool) map[string]interface{} {
	return map[string]interface{}{
		"dataset_name": "scenario",
		"ids":          []string{"r01", "r02", "r03", "r04", "r05", "r06", "r07", "r08", "r09", "r10"},
		"numeric":      map[string][]float64{"Score": {95, 90, 80, 75, 70, 60, 55, 50, 40, 30}},
		"categorical":  map[string][]string{"group": {"P", "P", "U", "U", "U", "U", "U", "U", "U", "U"}},
		"score_column": "Score",
		"group":        map[string]string{"attribute": "group", "value": "P"},
		"persist":      persist,
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Code
}

func TestCreateAudit_Scenario(t *testing.T) {
	s := newTestServer(t)

	rec := perform(s.Handler(), http.MethodPost, "/v1/audits", scenarioBody(true))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var report verdict.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "scenario", report.DatasetName)
	assert.Equal(t, verdict.ProtectedDisadvantaged, report.Alternative)
	assert.True(t, report.Summary.RankFair)
	assert.True(t, report.Summary.ProportionFair)
	assert.True(t, report.Summary.Stable)

	rec = perform(s.Handler(), http.MethodGet, "/v1/audits/"+report.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stored verdict.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	assert.Equal(t, report.ID, stored.ID)
	assert.Equal(t, report.Summary, stored.Summary)

	rec = perform(s.Handler(), http.MethodGet, "/v1/audits?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
}

func TestCreateAudit_OptionOverrides(t *testing.T) {
	s := newTestServer(t)

	body := scenarioBody(false)
	body["options"] = map[string]interface{}{"alternative": "advantaged", "seed": 7}
	rec := perform(s.Handler(), http.MethodPost, "/v1/audits", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var report verdict.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, verdict.ProtectedAdvantaged, report.Alternative)
	assert.Equal(t, int64(7), report.Seed)
	assert.False(t, report.Summary.RankFair)
	assert.False(t, report.Summary.ProportionFair)

	rec = perform(s.Handler(), http.MethodGet, "/v1/audits/"+report.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, errors.CodeNotFound, errorCode(t, rec))
}

func TestCreateAudit_Markdown(t *testing.T) {
	s := newTestServer(t)

	rec := perform(s.Handler(), http.MethodPost, "/v1/audits?format=markdown", scenarioBody(false))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/markdown"))
	assert.Contains(t, rec.Body.String(), "#")
}

func TestCreateAudit_Errors(t *testing.T) {
	s := newTestServer(t)

	unknownValue := scenarioBody(false)
	unknownValue["group"] = map[string]string{"attribute": "group", "value": "X"}

	missingScore := scenarioBody(false)
	missingScore["score_column"] = "Missing"

	badAlternative := scenarioBody(false)
	badAlternative["options"] = map[string]interface{}{"alternative": "sideways"}

	badRuns := scenarioBody(false)
	badRuns["options"] = map[string]interface{}{"runs": 0}

	tooManyRuns := scenarioBody(false)
	tooManyRuns["options"] = map[string]interface{}{"runs": 1000000}

	noGroup := scenarioBody(false)
	delete(noGroup, "group")

	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"malformed json", "/v1/audits", "{", http.StatusBadRequest, errors.CodeInvalidInput},
		{"missing columns", "/v1/audits", map[string]string{"score_column": "Score"}, http.StatusBadRequest, errors.CodeInvalidInput},
		{"no group", "/v1/audits", noGroup, http.StatusBadRequest, errors.CodeInvalidInput},
		{"unknown protected value", "/v1/audits", unknownValue, http.StatusBadRequest, errors.CodeInvalidInput},
		{"missing score column", "/v1/audits", missingScore, http.StatusBadRequest, errors.CodeInvalidInput},
		{"bad alternative", "/v1/audits", badAlternative, http.StatusBadRequest, errors.CodeInvalidInput},
		{"zero runs", "/v1/audits", badRuns, http.StatusBadRequest, errors.CodeInvalidInput},
		{"runs above cap", "/v1/audits", tooManyRuns, http.StatusBadRequest, errors.CodeInvalidInput},
		{"unknown format", "/v1/audits?format=pdf", scenarioBody(false), http.StatusBadRequest, errors.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := perform(s.Handler(), http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, errorCode(t, rec))
		})
	}
}

func TestGetAudit_MalformedID(t *testing.T) {
	s := newTestServer(t)

	rec := perform(s.Handler(), http.MethodGet, "/v1/audits/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	assert.Equal(t, errors.CodeInvalidInput, errorCode(t, rec))

	rec = perform(s.Handler(), http.MethodGet, "/v1/audits/0190a3c4-1111-7000-8000-00000000ffff", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())
	assert.Equal(t, errors.CodeNotFound, errorCode(t, rec))
}

func TestListAudits_InvalidLimit(t *testing.T) {
	s := newTestServer(t)

	rec := perform(s.Handler(), http.MethodGet, "/v1/audits?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = perform(s.Handler(), http.MethodGet, "/v1/audits", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBuildMetrics(t *testing.T) {
	s := newTestServer(t)
	ds, predicted := testkit.LabeledFixture()

	body := map[string]interface{}{
		"labels":               ds.Labels,
		"favorable_label":      ds.FavorableLabel,
		"protected_attributes": ds.ProtectedAttributes,
		"features":             ds.Features,
		"predicted":            predicted,
	}
	rec := perform(s.Handler(), http.MethodPost, "/v1/metrics", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report app.MetricsReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 4, report.BiasCounts["sex"])
	assert.Equal(t, 4, report.BiasCounts["race"])

	row, ok := report.Table.Row("sex")
	require.True(t, ok)
	assert.InDelta(t, -0.5, row.Values[0], 1e-9)

	body["predicted"] = predicted[:3]
	rec = perform(s.Handler(), http.MethodPost, "/v1/metrics", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckStability(t *testing.T) {
	s := newTestServer(t)

	rec := perform(s.Handler(), http.MethodPost, "/v1/stability", map[string]interface{}{"scores": []float64{1, 3, 5}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res struct {
		Slope  float64 `json:"slope"`
		N      int     `json:"n"`
		Stable bool    `json:"stable"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.InDelta(t, 2.0, res.Slope, 1e-12)
	assert.Equal(t, 3, res.N)
	assert.True(t, res.Stable)

	rec = perform(s.Handler(), http.MethodPost, "/v1/stability", map[string]interface{}{"scores": []float64{4, 4, 4}})
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.False(t, res.Stable)

	rec = perform(s.Handler(), http.MethodPost, "/v1/stability", map[string]interface{}{"scores": []float64{1}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{errors.InvalidInput("x"), http.StatusBadRequest},
		{errors.DegenerateGroup("x"), http.StatusUnprocessableEntity},
		{errors.NotFound("x"), http.StatusNotFound},
		{errors.ExternalOracleFailure("x", fmt.Errorf("boom")), http.StatusBadGateway},
		{errors.DatabaseError("x", fmt.Errorf("down")), http.StatusServiceUnavailable},
		{fmt.Errorf("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, statusFor(tt.err), tt.err.Error())
	}
}

func TestOpsRouter(t *testing.T) {
	s := newTestServer(t)
	rec := perform(s.Handler(), http.MethodPost, "/v1/audits", scenarioBody(false))
	require.Equal(t, http.StatusCreated, rec.Code)

	ops := NewOpsRouter(s.Metrics(), nil)

	rec = perform(ops, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = perform(ops, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = perform(ops, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `rankfair_audits_total{outcome="ok"} 1`)
	assert.Contains(t, rec.Body.String(), `rankfair_http_requests_total{method="POST",path="/v1/audits",status="201"} 1`)

	rec = perform(ops, http.MethodGet, "/debug/pprof/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	failing := NewOpsRouter(s.Metrics(), func(ctx context.Context) error { return fmt.Errorf("database unreachable") })
	rec = perform(failing, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "database unreachable")
}
