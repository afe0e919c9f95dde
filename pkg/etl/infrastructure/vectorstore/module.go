package vectorstore

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	config "github.com/tigerroll/undertow/pkg/etl/core/config"
	loader "github.com/tigerroll/undertow/pkg/etl/loader"
	logger "github.com/tigerroll/undertow/pkg/etl/support/util/logger"
)

// Params collects the vector backend inputs. The shared gorm connection is
// reused; only a postgres connection can host pgvector.
type Params struct {
	fx.In

	Config *config.Config
	DB     *gorm.DB `optional:"true"`
}

// NewVectorIndex provides the loader's VectorIndex, or nil when no postgres
// connection is available. A nil backend turns vector_store loads into
// whole-target failures.
func NewVectorIndex(p Params) loader.VectorIndex {
	if p.DB == nil || p.DB.Dialector == nil || p.DB.Dialector.Name() != "postgres" {
		logger.Infof("no postgres connection available, vector_store targets disabled")
		return nil
	}
	return NewPgVectorIndex(p.DB, p.Config.Undertow.Embedding.Dimension)
}

// Module provides the vector index backend to the fx graph.
var Module = fx.Options(
	fx.Provide(NewVectorIndex),
)
