// Package repository wires the configured JobRepository backend into the fx
// graph: the gorm-backed store for sqlite/postgres/mysql drivers, or the
// in-memory store.
package repository

import (
	"io/fs"

	"go.uber.org/fx"
	"gorm.io/gorm"

	config "github.com/tigerroll/undertow/pkg/etl/core/config"
	repo "github.com/tigerroll/undertow/pkg/etl/core/domain/repository"
	"github.com/tigerroll/undertow/pkg/etl/infrastructure/repository/inmemory"
	sqlrepo "github.com/tigerroll/undertow/pkg/etl/infrastructure/repository/sql"
	logger "github.com/tigerroll/undertow/pkg/etl/support/util/logger"
)

// Migrations points at the embedded migration files for the SQL backend.
// The application entrypoint provides it; when absent the schema is created
// with gorm's AutoMigrate instead.
type Migrations struct {
	FS   fs.FS
	Path string
}

// Params collects the repository provider inputs.
type Params struct {
	fx.In

	Config     *config.Config
	Migrations *Migrations `optional:"true"`
}

// Result exposes the repository and, for SQL backends, the shared gorm
// connection reused by the loader's sql_table targets.
type Result struct {
	fx.Out

	Repository repo.JobRepository
	DB         *gorm.DB
}

// NewJobRepository builds the backend selected by repository.driver.
func NewJobRepository(lc fx.Lifecycle, p Params) (Result, error) {
	cfg := p.Config.Undertow.Repository
	if cfg.Driver == "" || cfg.Driver == "inmemory" {
		logger.Infof("using in-memory job repository")
		return Result{Repository: inmemory.NewRepository()}, nil
	}

	db, err := sqlrepo.Connect(cfg)
	if err != nil {
		return Result{}, err
	}
	if p.Migrations != nil {
		if err := sqlrepo.Migrate(db, cfg.Driver, p.Migrations.FS, p.Migrations.Path); err != nil {
			return Result{}, err
		}
	} else {
		if err := sqlrepo.AutoMigrate(db); err != nil {
			return Result{}, err
		}
	}

	r := sqlrepo.NewRepository(db)
	lc.Append(fx.StopHook(func() error {
		return r.Close()
	}))
	logger.Infof("using %s job repository", cfg.Driver)
	return Result{Repository: r, DB: db}, nil
}

// Module provides the job repository to the fx graph.
var Module = fx.Options(
	fx.Provide(NewJobRepository),
)
