package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aristath/volregime/internal/domain"
	"github.com/aristath/volregime/internal/modules/analysis"
	"github.com/aristath/volregime/internal/modules/backtest"
	"github.com/aristath/volregime/internal/modules/regime"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	lastRequest analysis.Request
	result      *analysis.Result
	runs        []analysis.RunSummary
	err         error
	listLimit   int
}

func (f *fakeService) Run(_ context.Context, req analysis.Request) (*analysis.Result, error) {
	f.lastRequest = req
	return f.result, f.err
}

func (f *fakeService) Compare(_ context.Context, req analysis.Request) (*regime.Comparison, error) {
	f.lastRequest = req
	if f.err != nil {
		return nil, f.err
	}
	return &regime.Comparison{Scores: []regime.ModelScore{{States: 2}}, BestByAIC: 2, BestByBIC: 2}, nil
}

func (f *fakeService) Get(_ context.Context, id string) (*analysis.Result, error) {
	if f.result == nil || f.result.ID != id {
		return nil, analysis.ErrRunNotFound
	}
	return f.result, nil
}

func (f *fakeService) Latest(context.Context) (*analysis.Result, error) {
	if f.result == nil {
		return nil, analysis.ErrRunNotFound
	}
	return f.result, f.err
}

func (f *fakeService) List(_ context.Context, limit int) ([]analysis.RunSummary, error) {
	f.listLimit = limit
	return f.runs, f.err
}

func (f *fakeService) States(_ context.Context, id string) ([]analysis.DayState, error) {
	if f.result == nil || f.result.ID != id {
		return nil, analysis.ErrRunNotFound
	}
	return []analysis.DayState{{State: 0, Label: "Low"}}, nil
}

func newRouter(svc AnalysisService) http.Handler {
	router := chi.NewRouter()
	NewHandler(svc, zerolog.Nop()).RegisterRoutes(router)
	return router
}

func storedResult() *analysis.Result {
	return &analysis.Result{
		ID: "run-1",
		Backtest: analysis.BacktestSummary{
			Comparison: []backtest.StrategyPerformance{
				{Name: backtest.RegimeStrategyName, Metrics: domain.PerformanceMetrics{TotalReturn: 0.1, Observations: 10}},
			},
		},
	}
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandleRun(t *testing.T) {
	svc := &fakeService{result: storedResult()}
	rec := serve(newRouter(svc), http.MethodPost, "/api/analysis/run", `{"dataset":"/data/prices.csv","profile":{"name":"custom","states":4}}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/data/prices.csv", svc.lastRequest.Dataset)
	require.NotNil(t, svc.lastRequest.Profile)
	assert.Equal(t, 4, svc.lastRequest.Profile.States)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "run-1", body["id"])
}

func TestHandleRun_EmptyBodyUsesDefaults(t *testing.T) {
	svc := &fakeService{result: storedResult()}
	rec := serve(newRouter(svc), http.MethodPost, "/api/analysis/run", "")

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, svc.lastRequest.Profile)
}

func TestHandleRun_Errors(t *testing.T) {
	rec := serve(newRouter(&fakeService{}), http.MethodPost, "/api/analysis/run", `{"dataset":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(newRouter(&fakeService{err: errors.New("fit failed")}), http.MethodPost, "/api/analysis/run", "{}")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "fit failed")
}

func TestHandleCompare(t *testing.T) {
	rec := serve(newRouter(&fakeService{}), http.MethodPost, "/api/analysis/compare", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var cmp regime.Comparison
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cmp))
	assert.Equal(t, 2, cmp.BestByBIC)
}

func TestHandleLatest(t *testing.T) {
	rec := serve(newRouter(&fakeService{}), http.MethodGet, "/api/analysis/latest", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(newRouter(&fakeService{result: storedResult()}), http.MethodGet, "/api/analysis/latest", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(newRouter(&fakeService{result: storedResult(), err: errors.New("disk")}), http.MethodGet, "/api/analysis/latest", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleListRuns(t *testing.T) {
	svc := &fakeService{runs: []analysis.RunSummary{{ID: "a"}, {ID: "b"}}}
	router := newRouter(svc)

	rec := serve(router, http.MethodGet, "/api/analysis/runs?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, svc.listLimit)

	var body struct {
		Runs  []analysis.RunSummary `json:"runs"`
		Count int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)

	rec = serve(router, http.MethodGet, "/api/analysis/runs?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetRun(t *testing.T) {
	router := newRouter(&fakeService{result: storedResult()})

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/analysis/runs/run-1", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/api/analysis/runs/other", "").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/analysis/runs/run-1/states", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/api/analysis/runs/other/states", "").Code)
}

func TestHandleGetSummary(t *testing.T) {
	rec := serve(newRouter(&fakeService{result: storedResult()}), http.MethodGet, "/api/analysis/runs/run-1/summary.csv", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Regime Strategy,0.1,")
}
