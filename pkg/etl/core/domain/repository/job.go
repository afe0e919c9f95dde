package repository

import (
	"context"
	"errors"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
)

// ErrJobNotFound is returned when a job record is not found.
var ErrJobNotFound = errors.New("job not found")

// JobFilter narrows the jobs returned by FindJobs. Zero-valued fields match everything.
type JobFilter struct {
	JobType model.JobType
	Status  model.JobStatus
	// Limit caps the number of results. 0 means no limit.
	Limit int
}

// JobStore defines operations for persisting and retrieving job records.
type JobStore interface {
	// SaveJob persists a new Job. It returns an error if a job with the same ID exists.
	SaveJob(ctx context.Context, job *model.Job) error

	// UpdateJob updates an existing Job (status, timestamps).
	UpdateJob(ctx context.Context, job *model.Job) error

	// FindJobByID retrieves a job record by its ID.
	// Returns ErrJobNotFound if no such job exists.
	FindJobByID(ctx context.Context, id string) (*model.Job, error)

	// FindJobs retrieves job records matching the filter, newest first.
	FindJobs(ctx context.Context, filter JobFilter) ([]*model.Job, error)
}
