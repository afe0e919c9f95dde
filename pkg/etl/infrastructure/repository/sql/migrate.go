package sql

import (
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	logger "github.com/tigerroll/undertow/pkg/etl/support/util/logger"
)

const migrationsTable = "etl_schema_migrations"

// Migrate applies all pending migrations from the embedded filesystem against
// the repository schema. ErrNoChange is not an error.
func Migrate(db *gorm.DB, driver string, migrationFS fs.FS, path string) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sourceDriver, err := iofs.New(migrationFS, path)
	if err != nil {
		return fmt.Errorf("failed to create iofs source driver for path %s: %w", path, err)
	}

	dbDriver, err := databaseDriver(sqlDB, driver)
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, driver, dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("migration failed (driver: %s, path: %s): %w", driver, path, err)
	}
	logger.Infof("repository schema migration completed (driver: %s)", driver)
	return nil
}

// AutoMigrate creates the repository schema directly from the entity
// definitions. It is the fallback when no migration files are provided, such
// as in tests.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&jobEntity{}, &jobRunEntity{}, &knowledgeEntity{})
}

func databaseDriver(sqlDB *sql.DB, driver string) (database.Driver, error) {
	switch driver {
	case "postgres":
		return migratepostgres.WithInstance(sqlDB, &migratepostgres.Config{
			MigrationsTable: migrationsTable,
		})
	case "mysql":
		return migratemysql.WithInstance(sqlDB, &migratemysql.Config{
			MigrationsTable: migrationsTable,
		})
	case "sqlite":
		return migratesqlite.WithInstance(sqlDB, &migratesqlite.Config{
			MigrationsTable: migrationsTable,
		})
	default:
		return nil, fmt.Errorf("unsupported database driver for migration: %s", driver)
	}
}
