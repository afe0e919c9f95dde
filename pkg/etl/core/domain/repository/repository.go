// Package repository defines the persistence interfaces for job definitions,
// run outcomes, and knowledge records. Any durable store suffices as long as
// job/run records survive process restarts.
package repository

// JobRepository is the interface for persisting and managing ingestion
// metadata. It embeds multiple smaller repository interfaces to separate
// concerns.
type JobRepository interface {
	JobStore       // job definition records (definition in job.go)
	JobRunStore    // per-attempt run records (definition in run.go)
	KnowledgeStore // append-only lessons (definition in knowledge.go)

	// Close releases resources (such as database connections) used by the repository.
	Close() error
}
