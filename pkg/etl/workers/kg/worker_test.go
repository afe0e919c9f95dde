package kg_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
	"github.com/tigerroll/undertow/pkg/etl/engine/reflection"
	"github.com/tigerroll/undertow/pkg/etl/loader"
	"github.com/tigerroll/undertow/pkg/etl/workers/kg"
	"github.com/tigerroll/undertow/pkg/etl/workers/tabular"
)

type fakeGraph struct {
	buildErr error
	cleared  int
	builds   int
}

func (g *fakeGraph) Build(ctx context.Context, ds *loader.Dataset) (*kg.BuildStats, error) {
	g.builds++
	if g.buildErr != nil {
		return nil, g.buildErr
	}
	return &kg.BuildStats{
		NodesCreated:     ds.RowCount(),
		EdgesCreated:     ds.RowCount() - 1,
		RecordsProcessed: ds.RowCount(),
	}, nil
}

func (g *fakeGraph) Clear(ctx context.Context) error {
	g.cleared++
	return nil
}

func (g *fakeGraph) Stats(ctx context.Context) (int, int, error) {
	return 0, 0, nil
}

func kgDefinition() model.JobDefinition {
	return model.JobDefinition{
		JobType: model.JobTypeKGBuild,
		Name:    "graph",
		Source: model.SourceConfig{
			Kind:   model.SourceKindInline,
			Format: "json",
			Inline: &model.InlineSource{Content: `[{"id": 1}, {"id": 2}, {"id": 3}]`},
		},
	}
}

func newKGWorker(graph kg.GraphService) *kg.Worker {
	return kg.NewWorker(kgDefinition(), tabular.NewSourceFetcher(), graph, nil, reflection.NewPolicy(0, 0), nil)
}

// lookupKnowledge records lookup patterns; lookups may be scripted to fail.
type lookupKnowledge struct {
	patterns []string
	err      error
}

func (s *lookupKnowledge) AppendKnowledge(ctx context.Context, record *model.KnowledgeRecord) error {
	return nil
}

func (s *lookupKnowledge) FindKnowledgeByPattern(ctx context.Context, pattern string, limit int) ([]*model.KnowledgeRecord, error) {
	s.patterns = append(s.patterns, pattern)
	return nil, s.err
}

func TestKGWorkerPerceiveConsultsKnowledge(t *testing.T) {
	store := &lookupKnowledge{}
	w := kg.NewWorker(kgDefinition(), tabular.NewSourceFetcher(), &fakeGraph{}, store, reflection.NewPolicy(0, 0), nil)

	_, err := w.Perceive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"kg_build:graph"}, store.patterns)

	// A failing lookup never blocks perception.
	store.err = errors.New("log unavailable")
	p, err := w.Perceive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, p.Data.RowCount())
}

func TestKGWorkerBuild(t *testing.T) {
	graph := &fakeGraph{}
	w := newKGWorker(graph)
	ctx := context.Background()

	p, err := w.Perceive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Data.RowCount())

	action, err := w.Act(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 3, action.Metrics.RecordsProcessed)
	stats := action.Result.(*kg.BuildStats)
	assert.Equal(t, 3, stats.NodesCreated)

	r, err := w.Reflect(ctx, action, p)
	require.NoError(t, err)
	assert.True(t, r.Success)
}

func TestKGWorkerRequiresGraphService(t *testing.T) {
	w := newKGWorker(nil)
	_, err := w.Perceive(context.Background())
	assert.Error(t, err)
}

func TestKGWorkerBuildFailureIsRecordLevel(t *testing.T) {
	graph := &fakeGraph{buildErr: errors.New("graph store unreachable")}
	w := newKGWorker(graph)
	ctx := context.Background()

	p, err := w.Perceive(ctx)
	require.NoError(t, err)

	// The backend failure is accounted per row, not raised as a phase error.
	action, err := w.Act(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 3, action.Metrics.RecordsFailed)
	require.Len(t, action.Errors, 1)
	assert.Equal(t, model.ErrCodeTarget, action.Errors[0].Code)

	r, err := w.Reflect(ctx, action, p)
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.True(t, r.Retry)
	require.NotNil(t, r.Adjustment)
	assert.True(t, r.Adjustment.ClearBeforeBuild)
}

func TestKGWorkerClearsBeforeRetry(t *testing.T) {
	graph := &fakeGraph{}
	w := newKGWorker(graph)
	ctx := context.Background()

	p, err := w.Perceive(ctx)
	require.NoError(t, err)
	p.PreviousAdjustment = &kg.Adjustment{ClearBeforeBuild: true}

	_, err = w.Act(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 1, graph.cleared)
	assert.Equal(t, 1, graph.builds)
}
