package service

import (
	"context"
	"fmt"

	"github.com/dvdzapata/EPREL/internal/domain"
	"github.com/dvdzapata/EPREL/internal/repository"
)

// Stats is the aggregate catalog overview served by the CLI and the API.
type Stats struct {
	TotalProducts int64                      `json:"total_products"`
	ByCategory    []repository.CategoryCount `json:"by_category"`
	Groups        []domain.ProductGroup      `json:"groups"`
	LatestJob     *domain.SyncJob            `json:"latest_job,omitempty"`
}

// JobDetail pairs a job with its per-category checkpoints.
type JobDetail struct {
	Job         *domain.SyncJob     `json:"job"`
	Checkpoints []domain.Checkpoint `json:"checkpoints"`
}

// StatsService aggregates catalog and job progress figures from the
// repositories.
type StatsService struct {
	jobs        *repository.JobRepository
	checkpoints *repository.CheckpointRepository
	products    *repository.ProductRepository
	groups      *repository.GroupRepository
}

func NewStatsService(jobs *repository.JobRepository, checkpoints *repository.CheckpointRepository, products *repository.ProductRepository, groups *repository.GroupRepository) *StatsService {
	return &StatsService{
		jobs:        jobs,
		checkpoints: checkpoints,
		products:    products,
		groups:      groups,
	}
}

// Overview returns the stored catalog totals and the newest job.
func (s *StatsService) Overview(ctx context.Context) (*Stats, error) {
	total, err := s.products.Count(ctx)
	if err != nil {
		return nil, err
	}
	byCategory, err := s.products.CountByCategory(ctx)
	if err != nil {
		return nil, err
	}
	groups, err := s.groups.List(ctx)
	if err != nil {
		return nil, err
	}
	latest, err := s.jobs.Latest(ctx)
	if err != nil {
		return nil, err
	}

	return &Stats{
		TotalProducts: total,
		ByCategory:    byCategory,
		Groups:        groups,
		LatestJob:     latest,
	}, nil
}

// Job returns one job with its checkpoints, or an error when the job does
// not exist.
func (s *StatsService) Job(ctx context.Context, id string) (*JobDetail, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job %s not found", id)
	}
	checkpoints, err := s.checkpoints.ListByJob(ctx, id)
	if err != nil {
		return nil, err
	}
	return &JobDetail{Job: job, Checkpoints: checkpoints}, nil
}

// LatestJob returns the newest job with its checkpoints, or (nil, nil) when
// no job has run yet.
func (s *StatsService) LatestJob(ctx context.Context) (*JobDetail, error) {
	job, err := s.jobs.Latest(ctx)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, nil
	}
	checkpoints, err := s.checkpoints.ListByJob(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	return &JobDetail{Job: job, Checkpoints: checkpoints}, nil
}
