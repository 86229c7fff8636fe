package sync

import (
	"context"
	"errors"
	"time"

	"github.com/dvdzapata/EPREL/internal/domain"
	"github.com/dvdzapata/EPREL/internal/eprel"
	"github.com/dvdzapata/EPREL/internal/logger"
)

// PageFetcher retrieves one page of raw records for a category. Pages are
// 0-indexed. Implementations classify failures as eprel.TransientError or
// eprel.FatalError; callers only ever see the fatal side because retries
// happen inside the fetcher.
type PageFetcher interface {
	FetchPage(ctx context.Context, category string, page, pageSize int) (*eprel.Page, error)
}

// CheckpointStore persists per-(job, category) pagination progress.
// Load returns (nil, nil) when no checkpoint exists yet.
type CheckpointStore interface {
	Load(ctx context.Context, jobID, category string) (*domain.Checkpoint, error)
	Save(ctx context.Context, cp *domain.Checkpoint) error
}

// RunnerConfig tunes one category sweep.
type RunnerConfig struct {
	// PageSize is the number of records requested per page, 1..100.
	PageSize int
	// MaxItems caps the number of records processed in this run. Zero means
	// unlimited. Hitting the cap leaves the checkpoint in_progress so a later
	// run picks up where this one stopped.
	MaxItems int
	// RecheckTTL makes a previously completed checkpoint eligible for a fresh
	// sweep once it is older than the TTL. Zero means completed stays done.
	RecheckTTL time.Duration
}

// CategoryResult is the outcome of one category sweep.
type CategoryResult struct {
	Category string
	Status   domain.CheckpointStatus
	// Total is the upstream catalog size reported by this run's pages, zero
	// when no page was fetched.
	Total int
	// TotalDelta is Total minus what earlier runs of the same checkpoint
	// already credited, so resumed jobs increment their counters without
	// counting the catalog twice.
	TotalDelta int
	// Synced and Failed count records from pages whose checkpoint advance was
	// durably saved in this run. Items of an aborted page are not counted;
	// they are re-delivered on resume.
	Synced int
	Failed int
	Err    error
}

// CategoryRunner drives the page loop for a single category: fetch a page,
// upsert its records, advance the checkpoint, repeat. Progress is saved after
// every page so a crash at any point loses at most the in-flight page.
type CategoryRunner struct {
	fetcher     PageFetcher
	checkpoints CheckpointStore
	sink        Sink
	cfg         RunnerConfig
	stop        *StopFlag
	log         *logger.Logger
}

func NewCategoryRunner(fetcher PageFetcher, checkpoints CheckpointStore, sink Sink, cfg RunnerConfig, stop *StopFlag, log *logger.Logger) *CategoryRunner {
	if cfg.PageSize <= 0 {
		cfg.PageSize = eprel.MaxPageSize
	}
	if log == nil {
		log = logger.Default()
	}
	return &CategoryRunner{
		fetcher:     fetcher,
		checkpoints: checkpoints,
		sink:        sink,
		cfg:         cfg,
		stop:        stop,
		log:         log,
	}
}

// Run executes the sweep for one category under the given job. It never
// returns a non-nil error alongside a usable result; failures are reported in
// CategoryResult.Err with Status set to CheckpointFailed. A checkpoint-store
// fault before any page work is the one case where only Err is meaningful.
func (r *CategoryRunner) Run(ctx context.Context, jobID, category string) *CategoryResult {
	res := &CategoryResult{Category: category}
	log := r.log.WithFields(logger.Fields{
		logger.FieldJobID:    jobID,
		logger.FieldCategory: category,
	})

	cp, err := r.checkpoints.Load(ctx, jobID, category)
	if err != nil {
		res.Status = domain.CheckpointFailed
		res.Err = err
		return res
	}
	if cp == nil {
		cp = &domain.Checkpoint{JobID: jobID, Category: category}
	}

	switch {
	case cp.Status == domain.CheckpointCompleted && !cp.StaleAfter(r.cfg.RecheckTTL, time.Now()):
		log.Debug("category already completed, skipping")
		res.Status = domain.CheckpointCompleted
		return res
	case cp.Status == domain.CheckpointCompleted:
		// Stale completion: sweep the whole catalog again so upstream edits
		// and deletions since the last pass are picked up.
		log.WithField("updated_at", cp.UpdatedAt).Info("completed checkpoint is stale, restarting sweep")
		cp.CurrentPage = 0
		cp.TotalPages = nil
		cp.LastProcessedID = ""
	case cp.Status == domain.CheckpointFailed:
		log.WithField(logger.FieldPage, cp.CurrentPage).Info("retrying previously failed category")
	}

	cp.Status = domain.CheckpointInProgress
	cp.ErrorMessage = ""
	if err := r.checkpoints.Save(ctx, cp); err != nil {
		res.Status = domain.CheckpointFailed
		res.Err = err
		return res
	}

	processed := 0
	for {
		if cp.Done() {
			break
		}
		if err := ctx.Err(); err != nil {
			return r.interrupt(ctx, cp, res, log, "context canceled")
		}
		if r.stop.Stopped() {
			return r.interrupt(ctx, cp, res, log, "stop requested")
		}
		if r.cfg.MaxItems > 0 && processed >= r.cfg.MaxItems {
			return r.interrupt(ctx, cp, res, log, "item cap reached")
		}

		page, err := r.fetcher.FetchPage(ctx, category, cp.CurrentPage, r.cfg.PageSize)
		if err != nil {
			return r.fail(ctx, cp, res, log, err)
		}
		delta := 0
		if page.TotalItems != cp.TotalItems {
			delta = page.TotalItems - cp.TotalItems
			cp.TotalItems = page.TotalItems
			res.TotalDelta += delta
		}
		if page.TotalItems > 0 {
			res.Total = page.TotalItems
		}
		if cp.TotalPages == nil || *cp.TotalPages != page.TotalPages {
			total := page.TotalPages
			cp.TotalPages = &total
		}
		if len(page.Items) == 0 {
			// Upstream shrank below what the reported total promised.
			// Treat the catalog as exhausted rather than spinning on
			// empty pages.
			total := cp.CurrentPage
			cp.TotalPages = &total
			break
		}

		synced, failed, err := r.processPage(ctx, category, page, cp)
		if err != nil {
			return r.fail(ctx, cp, res, log, err)
		}

		cp.CurrentPage++
		if err := r.checkpoints.Save(ctx, cp); err != nil {
			// The credited catalog size never reached the checkpoint;
			// take it back so a retry does not count it twice.
			res.TotalDelta -= delta
			res.Status = domain.CheckpointFailed
			res.Err = err
			return res
		}
		res.Synced += synced
		res.Failed += failed
		processed += len(page.Items)

		log.WithFields(logger.Fields{
			logger.FieldPage:  cp.CurrentPage - 1,
			logger.FieldCount: len(page.Items),
		}).Debug("page processed")
	}

	cp.Status = domain.CheckpointCompleted
	if err := r.checkpoints.Save(ctx, cp); err != nil {
		res.Status = domain.CheckpointFailed
		res.Err = err
		return res
	}
	log.WithFields(logger.Fields{
		"synced": res.Synced,
		"failed": res.Failed,
	}).Info("category sweep completed")
	res.Status = domain.CheckpointCompleted
	return res
}

// processPage upserts every record of one page. Validation failures are
// counted and skipped; a storage failure aborts the page before its
// checkpoint advances, so a rerun re-delivers the whole page.
func (r *CategoryRunner) processPage(ctx context.Context, category string, page *eprel.Page, cp *domain.Checkpoint) (synced, failed int, err error) {
	for _, raw := range page.Items {
		if err := r.sink.Upsert(ctx, category, raw); err != nil {
			if domain.IsValidation(err) {
				r.log.WithFields(logger.Fields{
					logger.FieldCategory: category,
					logger.FieldPage:     page.Page,
				}).WithError(err).Warn("record rejected")
				failed++
				continue
			}
			return 0, 0, err
		}
		synced++
		if id := raw.ExternalID(); id != "" {
			cp.LastProcessedID = id
		}
	}
	return synced, failed, nil
}

func (r *CategoryRunner) interrupt(ctx context.Context, cp *domain.Checkpoint, res *CategoryResult, log *logger.Logger, reason string) *CategoryResult {
	log.WithField(logger.FieldPage, cp.CurrentPage).WithField("reason", reason).Info("category sweep paused")
	res.Status = domain.CheckpointInProgress
	// Save with a fresh context so a canceled ctx does not block recording
	// the pause position.
	if err := r.checkpoints.Save(detach(ctx), cp); err != nil {
		res.Status = domain.CheckpointFailed
		res.Err = err
	}
	return res
}

func (r *CategoryRunner) fail(ctx context.Context, cp *domain.Checkpoint, res *CategoryResult, log *logger.Logger, cause error) *CategoryResult {
	// A cancellation surfacing through the fetcher is a pause, not a fault
	// of the category.
	if errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded) {
		return r.interrupt(ctx, cp, res, log, "canceled mid-fetch")
	}
	log.WithField(logger.FieldPage, cp.CurrentPage).WithError(cause).Error("category sweep failed")
	cp.Status = domain.CheckpointFailed
	cp.ErrorMessage = cause.Error()
	if err := r.checkpoints.Save(detach(ctx), cp); err != nil {
		log.WithError(err).Error("failed to persist failure state")
	}
	res.Status = domain.CheckpointFailed
	res.Err = cause
	return res
}

// detach strips cancellation from ctx while keeping its values, for the
// final checkpoint write of a run that is stopping because ctx was canceled.
func detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
