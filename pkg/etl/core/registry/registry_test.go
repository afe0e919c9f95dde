package registry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
	"github.com/tigerroll/undertow/pkg/etl/core/registry"
	"github.com/tigerroll/undertow/pkg/etl/engine/par"
	"github.com/tigerroll/undertow/pkg/etl/support/util/exception"
)

type stubExecutor struct{ name string }

func (s *stubExecutor) Execute(ctx context.Context) (*model.JobRunResult, error) {
	return &model.JobRunResult{}, nil
}

func factoryFor(name string) registry.WorkerFactory {
	return func(def model.JobDefinition, p par.EngineParams) (par.Executor, error) {
		return &stubExecutor{name: name}, nil
	}
}

func TestRegisterAndResolve(t *testing.T) {
	r := registry.NewRegistry()
	r.Register(model.JobTypeCSVImport, factoryFor("csv"))

	factory, err := r.Resolve(model.JobTypeCSVImport)
	require.NoError(t, err)

	exec, err := factory(model.JobDefinition{}, par.EngineParams{})
	require.NoError(t, err)
	assert.Equal(t, "csv", exec.(*stubExecutor).name)
}

func TestResolveUnknownType(t *testing.T) {
	r := registry.NewRegistry()

	_, err := r.Resolve(model.JobTypeKGBuild)
	require.Error(t, err)
	assert.Equal(t, exception.CodeWorkerNotFound, exception.CodeOf(err))
	assert.Contains(t, err.Error(), "kg_build")
}

func TestRegisterLastWins(t *testing.T) {
	r := registry.NewRegistry()
	r.Register(model.JobTypeCSVImport, factoryFor("first"))
	r.Register(model.JobTypeCSVImport, factoryFor("second"))

	factory, err := r.Resolve(model.JobTypeCSVImport)
	require.NoError(t, err)
	exec, _ := factory(model.JobDefinition{}, par.EngineParams{})
	assert.Equal(t, "second", exec.(*stubExecutor).name)
}

func TestRegisterIgnoresNilFactory(t *testing.T) {
	r := registry.NewRegistry()
	r.Register(model.JobTypeCSVImport, nil)

	_, err := r.Resolve(model.JobTypeCSVImport)
	assert.Error(t, err)
}

func TestRegisteredTypesSorted(t *testing.T) {
	r := registry.NewRegistry()
	r.Register(model.JobTypeKGBuild, factoryFor("kg"))
	r.Register(model.JobTypeAPIImport, factoryFor("api"))
	r.Register(model.JobTypeCSVImport, factoryFor("csv"))

	assert.Equal(t, []model.JobType{
		model.JobTypeAPIImport,
		model.JobTypeCSVImport,
		model.JobTypeKGBuild,
	}, r.RegisteredTypes())
}
