package loader

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	config "github.com/tigerroll/undertow/pkg/etl/core/config"
	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
	metrics "github.com/tigerroll/undertow/pkg/etl/core/metrics"
)

// Params collects the loader's collaborators from the fx graph. Backends are
// optional; a missing backend turns the corresponding target kind into a
// whole-target failure at load time rather than a startup error.
type Params struct {
	fx.In

	Config   *config.Config
	Recorder metrics.MetricRecorder
	DB       *gorm.DB    `optional:"true"`
	Embedder Embedder    `optional:"true"`
	Vector   VectorIndex `optional:"true"`
	Search   SearchIndex `optional:"true"`
}

// NewLoader builds the multi-target loader with every supported target kind
// registered.
func NewLoader(p Params) *MultiTargetLoader {
	cfg := p.Config.Undertow.Loader
	l := NewMultiTargetLoader(cfg.TypeSampleSize, p.Recorder)
	l.RegisterBuilder(model.TargetKindSQLTable, NewSQLTargetFactory(p.DB, cfg.BatchSize).Builder())
	l.RegisterBuilder(model.TargetKindVectorStore, NewVectorTargetFactory(p.Embedder, p.Vector, cfg.BatchSize).Builder())
	l.RegisterBuilder(model.TargetKindSearchIndex, NewSearchTargetFactory(p.Embedder, p.Search, cfg.BatchSize).Builder())
	l.RegisterBuilder(model.TargetKindParquetFile, NewParquetTargetFactory().Builder())
	return l
}

// Module provides the loader to the fx graph.
var Module = fx.Options(
	fx.Provide(NewLoader),
)
