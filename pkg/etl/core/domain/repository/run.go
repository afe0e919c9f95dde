package repository

import (
	"context"
	"errors"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
)

// ErrJobRunNotFound is returned when a run record is not found.
var ErrJobRunNotFound = errors.New("job run not found")

// JobRunStore defines operations for persisting and retrieving run records.
type JobRunStore interface {
	// SaveJobRun persists a new JobRun. At most one active run exists per run ID;
	// saving a duplicate ID is an error.
	SaveJobRun(ctx context.Context, run *model.JobRun) error

	// UpdateJobRun updates an existing JobRun (final status, metrics, errors).
	UpdateJobRun(ctx context.Context, run *model.JobRun) error

	// FindJobRunByID retrieves a run record by its ID.
	// Returns ErrJobRunNotFound if no such run exists.
	FindJobRunByID(ctx context.Context, id string) (*model.JobRun, error)

	// FindJobRunsByJobID retrieves all run records for a job, newest first.
	FindJobRunsByJobID(ctx context.Context, jobID string) ([]*model.JobRun, error)
}
