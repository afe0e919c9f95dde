package repository

import (
	"context"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
)

// KnowledgeStore defines operations for the append-only knowledge log.
type KnowledgeStore interface {
	// AppendKnowledge appends a knowledge record. Records are never updated or deleted.
	AppendKnowledge(ctx context.Context, record *model.KnowledgeRecord) error

	// FindKnowledgeByPattern retrieves the most recent knowledge records for a
	// pattern (jobType:name), newest first. limit caps the result; 0 means no limit.
	FindKnowledgeByPattern(ctx context.Context, pattern string, limit int) ([]*model.KnowledgeRecord, error)
}
