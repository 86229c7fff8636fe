package sync

import (
	"context"
	"fmt"
	stdsync "sync"

	"github.com/google/uuid"

	"github.com/dvdzapata/EPREL/internal/domain"
	"github.com/dvdzapata/EPREL/internal/logger"
)

// JobStore persists sync jobs and their aggregate counters.
// LatestResumable returns (nil, nil) when no resumable job exists.
type JobStore interface {
	Create(ctx context.Context, job *domain.SyncJob) error
	LatestResumable(ctx context.Context, kind domain.JobKind) (*domain.SyncJob, error)
	MarkRunning(ctx context.Context, id string) error
	AddCounters(ctx context.Context, id string, total, synced, failed int) error
	Finish(ctx context.Context, id string, status domain.JobStatus, lastError string) error
}

// GroupStore records per-category upstream totals. Optional; a nil store
// skips the bookkeeping.
type GroupStore interface {
	SetTotal(ctx context.Context, code string, total int) error
}

// Options controls one orchestrated run.
type Options struct {
	// Kind of the job row. Empty picks full for multi-category runs and
	// category for single-category ones.
	Kind domain.JobKind
	// Resume reuses the newest running or interrupted job of the same kind
	// instead of starting a fresh one, so its checkpoints carry over.
	Resume bool
	// Concurrency bounds the number of categories synced in parallel.
	// Values below 1 mean sequential.
	Concurrency int
}

// JobResult is the aggregate outcome of one orchestrated run. Total covers
// the categories this run actually fetched; the job row carries the totals
// accumulated across all runs of the job.
type JobResult struct {
	JobID      string
	Status     domain.JobStatus
	Total      int
	Synced     int
	Failed     int
	Categories []CategoryResult
}

// Orchestrator fans a job out over its categories with a bounded worker
// pool, aggregates per-category results into the job row, and settles the
// final status. Severity wins on aggregation: any failed category makes the
// job failed, otherwise any paused category makes it interrupted, otherwise
// it is completed.
type Orchestrator struct {
	fetcher     PageFetcher
	checkpoints CheckpointStore
	sink        Sink
	jobs        JobStore
	groups      GroupStore
	runnerCfg   RunnerConfig
	stop        *StopFlag
	log         *logger.Logger
}

func NewOrchestrator(fetcher PageFetcher, checkpoints CheckpointStore, sink Sink, jobs JobStore, groups GroupStore, runnerCfg RunnerConfig, log *logger.Logger) *Orchestrator {
	if log == nil {
		log = logger.Default()
	}
	return &Orchestrator{
		fetcher:     fetcher,
		checkpoints: checkpoints,
		sink:        sink,
		jobs:        jobs,
		groups:      groups,
		runnerCfg:   runnerCfg,
		stop:        &StopFlag{},
		log:         log,
	}
}

// RequestStop asks all running category sweeps to pause at their next page
// boundary. Safe to call from a signal handler.
func (o *Orchestrator) RequestStop() {
	o.stop.Stop()
}

// Run syncs the given categories under one job. An empty category list means
// every known product group. The returned error covers setup faults only;
// per-category failures are reported through the result.
func (o *Orchestrator) Run(ctx context.Context, categories []string, opts Options) (*JobResult, error) {
	if len(categories) == 0 {
		categories = append(categories, domain.KnownGroups...)
	}
	for _, c := range categories {
		if !domain.IsKnownGroup(c) {
			return nil, fmt.Errorf("unknown product group %q", c)
		}
	}

	job, err := o.prepareJob(ctx, categories, opts)
	if err != nil {
		return nil, err
	}

	log := o.log.WithField(logger.FieldJobID, job.ID)
	log.WithFields(logger.Fields{
		"kind":       job.Kind,
		"categories": len(categories),
	}).Info("sync run starting")

	results := o.runCategories(ctx, job.ID, categories, opts.Concurrency)

	res := &JobResult{JobID: job.ID, Status: domain.JobStatusCompleted}
	var lastErr string
	for _, cr := range results {
		res.Categories = append(res.Categories, cr)
		res.Total += cr.Total
		res.Synced += cr.Synced
		res.Failed += cr.Failed

		switch cr.Status {
		case domain.CheckpointFailed:
			res.Status = domain.JobStatusFailed
			if cr.Err != nil {
				lastErr = fmt.Sprintf("%s: %v", cr.Category, cr.Err)
			}
		case domain.CheckpointInProgress:
			if res.Status != domain.JobStatusFailed {
				res.Status = domain.JobStatusInterrupted
			}
		}

		if err := o.jobs.AddCounters(ctx, job.ID, cr.TotalDelta, cr.Synced, cr.Failed); err != nil {
			log.WithField(logger.FieldCategory, cr.Category).WithError(err).Error("failed to record counters")
		}
		if o.groups != nil && cr.Total > 0 {
			if err := o.groups.SetTotal(ctx, cr.Category, cr.Total); err != nil {
				log.WithField(logger.FieldCategory, cr.Category).WithError(err).Warn("failed to record group total")
			}
		}
	}

	if err := o.jobs.Finish(context.WithoutCancel(ctx), job.ID, res.Status, lastErr); err != nil {
		return res, err
	}
	log.WithFields(logger.Fields{
		logger.FieldStatus: res.Status,
		"total":            res.Total,
		"synced":           res.Synced,
		"failed":           res.Failed,
	}).Info("sync run finished")
	return res, nil
}

// prepareJob reuses the newest resumable job of the requested kind or
// creates a fresh one, and marks it running either way.
func (o *Orchestrator) prepareJob(ctx context.Context, categories []string, opts Options) (*domain.SyncJob, error) {
	kind := opts.Kind
	if kind == "" {
		kind = domain.JobKindFull
		if len(categories) == 1 {
			kind = domain.JobKindCategory
		}
	}

	if opts.Resume {
		job, err := o.jobs.LatestResumable(ctx, kind)
		if err != nil {
			return nil, err
		}
		if job != nil {
			o.log.WithField(logger.FieldJobID, job.ID).Info("resuming previous job")
			if err := o.jobs.MarkRunning(ctx, job.ID); err != nil {
				return nil, err
			}
			return job, nil
		}
	}

	job := &domain.SyncJob{
		ID:     uuid.NewString(),
		Kind:   kind,
		Status: domain.JobStatusPending,
	}
	if err := o.jobs.Create(ctx, job); err != nil {
		return nil, err
	}
	if err := o.jobs.MarkRunning(ctx, job.ID); err != nil {
		return nil, err
	}
	return job, nil
}

// runCategories runs one CategoryRunner per category over a bounded worker
// pool and returns results in category order.
func (o *Orchestrator) runCategories(ctx context.Context, jobID string, categories []string, concurrency int) []CategoryResult {
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(categories) {
		concurrency = len(categories)
	}

	results := make([]CategoryResult, len(categories))
	indexes := make(chan int)
	var wg stdsync.WaitGroup

	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			runner := NewCategoryRunner(o.fetcher, o.checkpoints, o.sink, o.runnerCfg, o.stop, o.log)
			for i := range indexes {
				results[i] = *runner.Run(ctx, jobID, categories[i])
			}
		}()
	}

	for i := range categories {
		indexes <- i
	}
	close(indexes)
	wg.Wait()
	return results
}
