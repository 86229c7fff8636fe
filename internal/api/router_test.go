package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dvdzapata/EPREL/internal/config"
	"github.com/dvdzapata/EPREL/internal/domain"
	"github.com/dvdzapata/EPREL/internal/logger"
	"github.com/dvdzapata/EPREL/internal/repository"
	"github.com/dvdzapata/EPREL/internal/service"
)

func testRouter(t *testing.T) (http.Handler, *repository.JobRepository, *repository.CheckpointRepository) {
	t.Helper()
	db, err := repository.InitDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         ":memory:",
		AutoMigrate:  true,
		MaxIdleConns: 1,
		MaxOpenConns: 1,
	})
	if err != nil {
		t.Fatal(err)
	}

	jobs := repository.NewJobRepository(db)
	checkpoints := repository.NewCheckpointRepository(db)
	products := repository.NewProductRepository(db)
	groups := repository.NewGroupRepository(db)
	stats := service.NewStatsService(jobs, checkpoints, products, groups)

	router := SetupRouter(stats, nil, &config.ServerConfig{
		Mode: "test",
		CORS: config.CORSConfig{AllowAllOrigins: true},
	}, logger.Default())
	return router, jobs, checkpoints
}

func doGet(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	router, _, _ := testRouter(t)
	w := doGet(t, router, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestLatestJobNotFound(t *testing.T) {
	router, _, _ := testRouter(t)
	w := doGet(t, router, "/api/v1/jobs/latest")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 with no jobs", w.Code)
	}
}

func TestJobEndpoints(t *testing.T) {
	router, jobs, checkpoints := testRouter(t)
	ctx := context.Background()

	job := &domain.SyncJob{ID: "job-1", Kind: domain.JobKindFull, Status: domain.JobStatusRunning}
	if err := jobs.Create(ctx, job); err != nil {
		t.Fatal(err)
	}
	if err := checkpoints.Save(ctx, &domain.Checkpoint{
		JobID:       "job-1",
		Category:    "dishwashers",
		CurrentPage: 4,
		Status:      domain.CheckpointInProgress,
	}); err != nil {
		t.Fatal(err)
	}

	w := doGet(t, router, "/api/v1/jobs/job-1")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var detail struct {
		Job         domain.SyncJob      `json:"job"`
		Checkpoints []domain.Checkpoint `json:"checkpoints"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatal(err)
	}
	if detail.Job.ID != "job-1" || len(detail.Checkpoints) != 1 {
		t.Fatalf("detail = %+v", detail)
	}
	if detail.Checkpoints[0].CurrentPage != 4 {
		t.Fatalf("checkpoint page = %d", detail.Checkpoints[0].CurrentPage)
	}

	w = doGet(t, router, "/api/v1/jobs/latest")
	if w.Code != http.StatusOK {
		t.Fatalf("latest status = %d", w.Code)
	}

	w = doGet(t, router, "/api/v1/jobs/missing")
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing job status = %d, want 404", w.Code)
	}

	w = doGet(t, router, "/api/v1/jobs/job-1/checkpoints")
	if w.Code != http.StatusOK {
		t.Fatalf("checkpoints status = %d", w.Code)
	}
}

func TestStatsEndpoint(t *testing.T) {
	router, _, _ := testRouter(t)
	w := doGet(t, router, "/api/v1/stats")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var stats service.Stats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	if stats.TotalProducts != 0 {
		t.Fatalf("total = %d on an empty catalog", stats.TotalProducts)
	}
}
