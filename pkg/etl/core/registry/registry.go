// Package registry maps job types to worker factories. Registration is
// idempotent and last-wins, so applications can override built-in workers.
package registry

import (
	"sort"
	"sync"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
	par "github.com/tigerroll/undertow/pkg/etl/engine/par"
	exception "github.com/tigerroll/undertow/pkg/etl/support/util/exception"
	logger "github.com/tigerroll/undertow/pkg/etl/support/util/logger"
)

const moduleName = "registry"

// WorkerFactory builds a ready-to-run executor for one job definition.
// Domain dependencies (loaders, policies, advisors) are captured in the
// closure at registration time; run identity and persistence collaborators
// arrive in the engine params at execution time.
type WorkerFactory func(def model.JobDefinition, p par.EngineParams) (par.Executor, error)

// Registry is a concurrency-safe jobType to factory map.
type Registry struct {
	mu        sync.RWMutex
	factories map[model.JobType]WorkerFactory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[model.JobType]WorkerFactory)}
}

// Register binds a factory to a job type. Registering the same type again
// replaces the previous factory.
func (r *Registry) Register(jobType model.JobType, factory WorkerFactory) {
	if factory == nil {
		logger.Warnf("ignoring nil worker factory for job type '%s'", jobType)
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[jobType]; exists {
		logger.Debugf("worker factory for job type '%s' replaced", jobType)
	}
	r.factories[jobType] = factory
}

// Resolve returns the factory for a job type, or a WORKER_NOT_FOUND error
// naming the type when none is registered.
func (r *Registry) Resolve(jobType model.JobType) (WorkerFactory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[jobType]
	if !ok {
		return nil, exception.NewEngineErrorf(moduleName, exception.CodeWorkerNotFound,
			"no worker registered for job type '%s'", jobType)
	}
	return factory, nil
}

// RegisteredTypes returns the registered job types in sorted order.
func (r *Registry) RegisteredTypes() []model.JobType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]model.JobType, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
