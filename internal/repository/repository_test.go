package repository

import (
	"context"
	"testing"
	"time"

	"github.com/dvdzapata/EPREL/internal/config"
	"github.com/dvdzapata/EPREL/internal/domain"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := InitDB(&config.DatabaseConfig{
		Driver:       "sqlite",
		Path:         ":memory:",
		AutoMigrate:  true,
		MaxIdleConns: 1,
		MaxOpenConns: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	return db
}

func TestProductUpsertIsIdempotent(t *testing.T) {
	repo := NewProductRepository(testDB(t))
	ctx := context.Background()

	p := &domain.Product{
		ID:       "uuid-1",
		EprelID:  "12345",
		Category: "dishwashers",
		Brand:    "Acme",
	}
	if err := repo.Upsert(ctx, p); err != nil {
		t.Fatal(err)
	}

	// Re-applying the same external id updates in place.
	p2 := &domain.Product{
		ID:       "uuid-2",
		EprelID:  "12345",
		Category: "dishwashers",
		Brand:    "Acme Updated",
	}
	if err := repo.Upsert(ctx, p2); err != nil {
		t.Fatal(err)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want a single row after re-applying", count)
	}

	stored, err := repo.GetByExternalID(ctx, "dishwashers", "12345")
	if err != nil {
		t.Fatal(err)
	}
	if stored.Brand != "Acme Updated" {
		t.Fatalf("brand = %q, want the updated value", stored.Brand)
	}
	if stored.SyncVersion != 2 {
		t.Fatalf("sync_version = %d, want 2 after one re-application", stored.SyncVersion)
	}
	// The original row identity survives.
	if stored.ID != "uuid-1" {
		t.Fatalf("id = %q, want the first insert's id", stored.ID)
	}
}

func TestProductSameIDAcrossCategories(t *testing.T) {
	repo := NewProductRepository(testDB(t))
	ctx := context.Background()

	for i, category := range []string{"dishwashers", "ovens"} {
		p := &domain.Product{
			ID:       "uuid-" + category,
			EprelID:  "777",
			Category: category,
		}
		if err := repo.Upsert(ctx, p); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Fatalf("count = %d, the same eprel id in two categories must be two rows", count)
	}
}

func TestProductLabelKeysSurviveResync(t *testing.T) {
	repo := NewProductRepository(testDB(t))
	ctx := context.Background()

	p := &domain.Product{ID: "uuid-1", EprelID: "1", Category: "tyres"}
	if err := repo.Upsert(ctx, p); err != nil {
		t.Fatal(err)
	}
	if err := repo.SetDocumentKeys(ctx, "uuid-1", "labels/tyres/1.pdf", "fiches/tyres/1.pdf"); err != nil {
		t.Fatal(err)
	}

	// A later catalog sweep re-applies the record.
	if err := repo.Upsert(ctx, &domain.Product{ID: "uuid-9", EprelID: "1", Category: "tyres"}); err != nil {
		t.Fatal(err)
	}

	stored, err := repo.GetByExternalID(ctx, "tyres", "1")
	if err != nil {
		t.Fatal(err)
	}
	if stored.LabelStorageKey != "labels/tyres/1.pdf" || stored.FicheStorageKey != "fiches/tyres/1.pdf" {
		t.Fatalf("document keys lost on resync: %q %q", stored.LabelStorageKey, stored.FicheStorageKey)
	}
}

func TestProductListMissingLabels(t *testing.T) {
	repo := NewProductRepository(testDB(t))
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		if err := repo.Upsert(ctx, &domain.Product{ID: "uuid-" + id, EprelID: id, Category: "ovens"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := repo.SetDocumentKeys(ctx, "uuid-2", "labels/ovens/2.pdf", ""); err != nil {
		t.Fatal(err)
	}

	missing, err := repo.ListMissingLabels(ctx, "ovens", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(missing) != 2 {
		t.Fatalf("missing = %d products, want 2", len(missing))
	}
	for _, p := range missing {
		if p.EprelID == "2" {
			t.Fatal("product with a stored label listed as missing")
		}
	}
}

func TestCheckpointSaveLoadRoundtrip(t *testing.T) {
	repo := NewCheckpointRepository(testDB(t))
	ctx := context.Background()

	loaded, err := repo.Load(ctx, "job-1", "dishwashers")
	if err != nil {
		t.Fatal(err)
	}
	if loaded != nil {
		t.Fatal("expected nil for an absent checkpoint")
	}

	three := 3
	cp := &domain.Checkpoint{
		JobID:       "job-1",
		Category:    "dishwashers",
		CurrentPage: 1,
		TotalPages:  &three,
		TotalItems:  42,
		Status:      domain.CheckpointInProgress,
	}
	if err := repo.Save(ctx, cp); err != nil {
		t.Fatal(err)
	}

	// Advance through a reloaded copy, as a resumed run would.
	loaded, err = repo.Load(ctx, "job-1", "dishwashers")
	if err != nil {
		t.Fatal(err)
	}
	loaded.CurrentPage = 3
	loaded.Status = domain.CheckpointCompleted
	loaded.LastProcessedID = "999"
	if err := repo.Save(ctx, loaded); err != nil {
		t.Fatal(err)
	}

	final, err := repo.Load(ctx, "job-1", "dishwashers")
	if err != nil {
		t.Fatal(err)
	}
	if final.CurrentPage != 3 || final.Status != domain.CheckpointCompleted {
		t.Fatalf("checkpoint = page %d status %s", final.CurrentPage, final.Status)
	}
	if final.LastProcessedID != "999" {
		t.Fatalf("last processed id = %q", final.LastProcessedID)
	}
	if final.TotalItems != 42 {
		t.Fatalf("total items = %d, want 42", final.TotalItems)
	}

	// One row per (job, category).
	list, err := repo.ListByJob(ctx, "job-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("checkpoints = %d, want 1", len(list))
	}
}

func TestCheckpointUpsertWithoutPriorLoad(t *testing.T) {
	repo := NewCheckpointRepository(testDB(t))
	ctx := context.Background()

	// Two saves of fresh structs for the same key must converge on one row.
	for page := 1; page <= 2; page++ {
		cp := &domain.Checkpoint{
			JobID:       "job-1",
			Category:    "tyres",
			CurrentPage: page,
			Status:      domain.CheckpointInProgress,
		}
		if err := repo.Save(ctx, cp); err != nil {
			t.Fatal(err)
		}
	}

	list, err := repo.ListByJob(ctx, "job-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("checkpoints = %d, want 1", len(list))
	}
	if list[0].CurrentPage != 2 {
		t.Fatalf("page = %d, want the later save", list[0].CurrentPage)
	}
}

func TestCheckpointsIsolatedPerJob(t *testing.T) {
	repo := NewCheckpointRepository(testDB(t))
	ctx := context.Background()

	for _, jobID := range []string{"job-1", "job-2"} {
		if err := repo.Save(ctx, &domain.Checkpoint{
			JobID:       jobID,
			Category:    "dishwashers",
			CurrentPage: 5,
			Status:      domain.CheckpointInProgress,
		}); err != nil {
			t.Fatal(err)
		}
	}

	one, err := repo.ListByJob(ctx, "job-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(one) != 1 {
		t.Fatalf("job-1 checkpoints = %d, want 1", len(one))
	}
}

func TestJobLifecycle(t *testing.T) {
	repo := NewJobRepository(testDB(t))
	ctx := context.Background()

	job := &domain.SyncJob{ID: "job-1", Kind: domain.JobKindFull, Status: domain.JobStatusPending}
	if err := repo.Create(ctx, job); err != nil {
		t.Fatal(err)
	}
	if err := repo.MarkRunning(ctx, job.ID); err != nil {
		t.Fatal(err)
	}

	running, err := repo.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if running.StartedAt == nil {
		t.Fatal("running job has no started_at")
	}
	firstStart := *running.StartedAt

	// A resumed invocation marks the job running again without touching the
	// original start time.
	if err := repo.MarkRunning(ctx, job.ID); err != nil {
		t.Fatal(err)
	}
	resumed, err := repo.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if resumed.StartedAt == nil || !resumed.StartedAt.Equal(firstStart) {
		t.Fatalf("started_at changed on resume: %v -> %v", firstStart, resumed.StartedAt)
	}

	if err := repo.AddCounters(ctx, job.ID, 100, 95, 5); err != nil {
		t.Fatal(err)
	}
	if err := repo.AddCounters(ctx, job.ID, 50, 50, 0); err != nil {
		t.Fatal(err)
	}
	if err := repo.Finish(ctx, job.ID, domain.JobStatusCompleted, ""); err != nil {
		t.Fatal(err)
	}

	stored, err := repo.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Status != domain.JobStatusCompleted {
		t.Fatalf("status = %s", stored.Status)
	}
	if stored.TotalProducts != 150 || stored.SyncedProducts != 145 || stored.FailedProducts != 5 {
		t.Fatalf("counters = %d/%d/%d", stored.TotalProducts, stored.SyncedProducts, stored.FailedProducts)
	}
	if stored.CompletedAt == nil {
		t.Fatal("completed job has no completed_at")
	}
}

func TestJobLatestResumable(t *testing.T) {
	repo := NewJobRepository(testDB(t))
	ctx := context.Background()

	job, err := repo.LatestResumable(ctx, domain.JobKindFull)
	if err != nil {
		t.Fatal(err)
	}
	if job != nil {
		t.Fatal("expected nil with no jobs stored")
	}

	older := &domain.SyncJob{ID: "job-done", Kind: domain.JobKindFull, Status: domain.JobStatusCompleted}
	if err := repo.Create(ctx, older); err != nil {
		t.Fatal(err)
	}
	interrupted := &domain.SyncJob{ID: "job-open", Kind: domain.JobKindFull, Status: domain.JobStatusInterrupted}
	interrupted.CreatedAt = time.Now().Add(time.Second)
	if err := repo.Create(ctx, interrupted); err != nil {
		t.Fatal(err)
	}
	otherKind := &domain.SyncJob{ID: "job-cat", Kind: domain.JobKindCategory, Status: domain.JobStatusInterrupted}
	otherKind.CreatedAt = time.Now().Add(2 * time.Second)
	if err := repo.Create(ctx, otherKind); err != nil {
		t.Fatal(err)
	}

	job, err = repo.LatestResumable(ctx, domain.JobKindFull)
	if err != nil {
		t.Fatal(err)
	}
	if job == nil || job.ID != "job-open" {
		t.Fatalf("resumable = %v, want job-open", job)
	}
}

func TestGroupSeedAndTotals(t *testing.T) {
	repo := NewGroupRepository(testDB(t))
	ctx := context.Background()

	if err := repo.EnsureKnown(ctx); err != nil {
		t.Fatal(err)
	}
	// Seeding twice must not duplicate or reset rows.
	if err := repo.SetTotal(ctx, "dishwashers", 4200); err != nil {
		t.Fatal(err)
	}
	if err := repo.EnsureKnown(ctx); err != nil {
		t.Fatal(err)
	}

	groups, err := repo.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(groups) != len(domain.KnownGroups) {
		t.Fatalf("groups = %d, want %d", len(groups), len(domain.KnownGroups))
	}
	for _, g := range groups {
		if g.Code == "dishwashers" {
			if g.TotalProducts != 4200 {
				t.Fatalf("total = %d, want the recorded 4200", g.TotalProducts)
			}
			if g.LastSyncAt == nil {
				t.Fatal("last_sync_at not stamped")
			}
		}
	}
}
