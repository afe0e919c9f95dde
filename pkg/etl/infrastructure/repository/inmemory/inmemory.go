// Package inmemory provides a mutex-guarded in-process JobRepository. It is
// the default backend for tests and for deployments that do not need job
// history to survive restarts.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
	repo "github.com/tigerroll/undertow/pkg/etl/core/domain/repository"
	logger "github.com/tigerroll/undertow/pkg/etl/support/util/logger"
)

// Repository is an in-memory implementation of repo.JobRepository.
type Repository struct {
	mu        sync.RWMutex
	jobs      map[string]model.Job
	runs      map[string]model.JobRun
	knowledge []model.KnowledgeRecord
}

// NewRepository creates an empty in-memory repository.
func NewRepository() *Repository {
	return &Repository{
		jobs: make(map[string]model.Job),
		runs: make(map[string]model.JobRun),
	}
}

var _ repo.JobRepository = (*Repository)(nil)

// SaveJob persists a new job. Saving an existing ID is an error.
func (r *Repository) SaveJob(ctx context.Context, job *model.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.ID]; exists {
		return fmt.Errorf("job with ID %s already exists", job.ID)
	}
	r.jobs[job.ID] = copyJob(job)
	logger.Debugf("in-memory repository: saved job %s (%s)", job.ID, job.Definition.Pattern())
	return nil
}

// UpdateJob updates an existing job and bumps its version.
func (r *Repository) UpdateJob(ctx context.Context, job *model.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.ID]; !exists {
		return repo.ErrJobNotFound
	}
	job.Version++
	r.jobs[job.ID] = copyJob(job)
	return nil
}

// FindJobByID retrieves a job by ID.
func (r *Repository) FindJobByID(ctx context.Context, id string) (*model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, exists := r.jobs[id]
	if !exists {
		return nil, repo.ErrJobNotFound
	}
	out := copyJob(&stored)
	return &out, nil
}

// FindJobs retrieves jobs matching the filter, newest first.
func (r *Repository) FindJobs(ctx context.Context, filter repo.JobFilter) ([]*model.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]*model.Job, 0)
	for id := range r.jobs {
		stored := r.jobs[id]
		if filter.JobType != "" && stored.Definition.JobType != filter.JobType {
			continue
		}
		if filter.Status != "" && stored.Status != filter.Status {
			continue
		}
		out := copyJob(&stored)
		matched = append(matched, &out)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreateTime.Equal(matched[j].CreateTime) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreateTime.After(matched[j].CreateTime)
	})
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// SaveJobRun persists a new run. Saving an existing ID is an error.
func (r *Repository) SaveJobRun(ctx context.Context, run *model.JobRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.runs[run.ID]; exists {
		return fmt.Errorf("job run with ID %s already exists", run.ID)
	}
	r.runs[run.ID] = copyRun(run)
	return nil
}

// UpdateJobRun updates an existing run and bumps its version.
func (r *Repository) UpdateJobRun(ctx context.Context, run *model.JobRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.runs[run.ID]; !exists {
		return repo.ErrJobRunNotFound
	}
	run.Version++
	r.runs[run.ID] = copyRun(run)
	return nil
}

// FindJobRunByID retrieves a run by ID.
func (r *Repository) FindJobRunByID(ctx context.Context, id string) (*model.JobRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, exists := r.runs[id]
	if !exists {
		return nil, repo.ErrJobRunNotFound
	}
	out := copyRun(&stored)
	return &out, nil
}

// FindJobRunsByJobID retrieves all runs for a job, newest first.
func (r *Repository) FindJobRunsByJobID(ctx context.Context, jobID string) ([]*model.JobRun, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]*model.JobRun, 0)
	for id := range r.runs {
		stored := r.runs[id]
		if stored.JobID != jobID {
			continue
		}
		out := copyRun(&stored)
		matched = append(matched, &out)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].StartTime.Equal(matched[j].StartTime) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].StartTime.After(matched[j].StartTime)
	})
	return matched, nil
}

// AppendKnowledge appends a knowledge record to the log.
func (r *Repository) AppendKnowledge(ctx context.Context, record *model.KnowledgeRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.knowledge = append(r.knowledge, *record)
	return nil
}

// FindKnowledgeByPattern retrieves the most recent records for a pattern,
// newest first.
func (r *Repository) FindKnowledgeByPattern(ctx context.Context, pattern string, limit int) ([]*model.KnowledgeRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]*model.KnowledgeRecord, 0)
	for i := len(r.knowledge) - 1; i >= 0; i-- {
		if r.knowledge[i].Pattern != pattern {
			continue
		}
		record := r.knowledge[i]
		matched = append(matched, &record)
		if limit > 0 && len(matched) >= limit {
			break
		}
	}
	return matched, nil
}

// Close is a no-op for the in-memory repository.
func (r *Repository) Close() error {
	return nil
}

func copyJob(job *model.Job) model.Job {
	out := *job
	return out
}

func copyRun(run *model.JobRun) model.JobRun {
	out := *run
	out.Errors = append(model.ETLErrorList(nil), run.Errors...)
	out.Improvements = append(model.StringList(nil), run.Improvements...)
	if run.EndTime != nil {
		end := *run.EndTime
		out.EndTime = &end
	}
	return out
}
