// Package sql provides the gorm-backed JobRepository. It supports sqlite,
// postgres, and mysql through the corresponding gorm drivers and applies its
// schema with golang-migrate.
package sql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
	repo "github.com/tigerroll/undertow/pkg/etl/core/domain/repository"
	logger "github.com/tigerroll/undertow/pkg/etl/support/util/logger"
)

// Repository is the gorm-backed implementation of repo.JobRepository. Updates
// use optimistic locking on the version column.
type Repository struct {
	db *gorm.DB
}

// NewRepository wraps an open gorm connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

var _ repo.JobRepository = (*Repository)(nil)

// SaveJob persists a new job.
func (r *Repository) SaveJob(ctx context.Context, job *model.Job) error {
	entity, err := fromDomainJob(job)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return fmt.Errorf("failed to save job %s: %w", job.ID, err)
	}
	logger.Debugf("sql repository: saved job %s (%s)", job.ID, job.Definition.Pattern())
	return nil
}

// UpdateJob updates an existing job, failing on a version conflict or a
// missing row.
func (r *Repository) UpdateJob(ctx context.Context, job *model.Job) error {
	originalVersion := job.Version
	job.Version++
	entity, err := fromDomainJob(job)
	if err != nil {
		job.Version = originalVersion
		return err
	}

	res := r.db.WithContext(ctx).Model(&jobEntity{}).
		Where("id = ? AND version = ?", job.ID, originalVersion).
		Updates(map[string]interface{}{
			"status":       entity.Status,
			"last_updated": entity.LastUpdated,
			"version":      entity.Version,
		})
	if res.Error != nil {
		job.Version = originalVersion
		return fmt.Errorf("failed to update job %s: %w", job.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		job.Version = originalVersion
		var count int64
		if err := r.db.WithContext(ctx).Model(&jobEntity{}).Where("id = ?", job.ID).Count(&count).Error; err == nil && count == 0 {
			return repo.ErrJobNotFound
		}
		return fmt.Errorf("version conflict updating job %s (expected version %d)", job.ID, originalVersion)
	}
	return nil
}

// FindJobByID retrieves a job by ID.
func (r *Repository) FindJobByID(ctx context.Context, id string) (*model.Job, error) {
	var entity jobEntity
	if err := r.db.WithContext(ctx).First(&entity, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to find job %s: %w", id, err)
	}
	return toDomainJob(&entity)
}

// FindJobs retrieves jobs matching the filter, newest first.
func (r *Repository) FindJobs(ctx context.Context, filter repo.JobFilter) ([]*model.Job, error) {
	q := r.db.WithContext(ctx).Model(&jobEntity{}).Order("create_time DESC, id DESC")
	if filter.JobType != "" {
		q = q.Where("job_type = ?", string(filter.JobType))
	}
	if filter.Status != "" {
		q = q.Where("status = ?", string(filter.Status))
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	var entities []jobEntity
	if err := q.Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	jobs := make([]*model.Job, 0, len(entities))
	for i := range entities {
		job, err := toDomainJob(&entities[i])
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// SaveJobRun persists a new run.
func (r *Repository) SaveJobRun(ctx context.Context, run *model.JobRun) error {
	if err := r.db.WithContext(ctx).Create(fromDomainJobRun(run)).Error; err != nil {
		return fmt.Errorf("failed to save job run %s: %w", run.ID, err)
	}
	return nil
}

// UpdateJobRun updates an existing run, failing on a version conflict or a
// missing row.
func (r *Repository) UpdateJobRun(ctx context.Context, run *model.JobRun) error {
	originalVersion := run.Version
	run.Version++
	entity := fromDomainJobRun(run)

	res := r.db.WithContext(ctx).Model(&jobRunEntity{}).
		Where("id = ? AND version = ?", run.ID, originalVersion).
		Updates(map[string]interface{}{
			"status":            entity.Status,
			"end_time":          entity.EndTime,
			"records_processed": entity.RecordsProcessed,
			"records_failed":    entity.RecordsFailed,
			"errors":            entity.Errors,
			"par_iterations":    entity.PARIterations,
			"improvements":      entity.Improvements,
			"last_updated":      entity.LastUpdated,
			"version":           entity.Version,
		})
	if res.Error != nil {
		run.Version = originalVersion
		return fmt.Errorf("failed to update job run %s: %w", run.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		run.Version = originalVersion
		var count int64
		if err := r.db.WithContext(ctx).Model(&jobRunEntity{}).Where("id = ?", run.ID).Count(&count).Error; err == nil && count == 0 {
			return repo.ErrJobRunNotFound
		}
		return fmt.Errorf("version conflict updating job run %s (expected version %d)", run.ID, originalVersion)
	}
	return nil
}

// FindJobRunByID retrieves a run by ID.
func (r *Repository) FindJobRunByID(ctx context.Context, id string) (*model.JobRun, error) {
	var entity jobRunEntity
	if err := r.db.WithContext(ctx).First(&entity, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repo.ErrJobRunNotFound
		}
		return nil, fmt.Errorf("failed to find job run %s: %w", id, err)
	}
	return toDomainJobRun(&entity), nil
}

// FindJobRunsByJobID retrieves all runs for a job, newest first.
func (r *Repository) FindJobRunsByJobID(ctx context.Context, jobID string) ([]*model.JobRun, error) {
	var entities []jobRunEntity
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("start_time DESC, id DESC").
		Find(&entities).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list runs for job %s: %w", jobID, err)
	}
	runs := make([]*model.JobRun, 0, len(entities))
	for i := range entities {
		runs = append(runs, toDomainJobRun(&entities[i]))
	}
	return runs, nil
}

// AppendKnowledge appends a knowledge record.
func (r *Repository) AppendKnowledge(ctx context.Context, record *model.KnowledgeRecord) error {
	if err := r.db.WithContext(ctx).Create(fromDomainKnowledge(record)).Error; err != nil {
		return fmt.Errorf("failed to append knowledge record %s: %w", record.ID, err)
	}
	return nil
}

// FindKnowledgeByPattern retrieves the most recent records for a pattern.
func (r *Repository) FindKnowledgeByPattern(ctx context.Context, pattern string, limit int) ([]*model.KnowledgeRecord, error) {
	q := r.db.WithContext(ctx).
		Where("pattern = ?", pattern).
		Order("create_time DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var entities []knowledgeEntity
	if err := q.Find(&entities).Error; err != nil {
		return nil, fmt.Errorf("failed to list knowledge for pattern %q: %w", pattern, err)
	}
	records := make([]*model.KnowledgeRecord, 0, len(entities))
	for i := range entities {
		records = append(records, toDomainKnowledge(&entities[i]))
	}
	return records, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}
