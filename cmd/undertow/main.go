package main

import (
	"context"
	"embed"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"go.uber.org/fx"

	"github.com/tigerroll/undertow/pkg/etl/support/util/logger"
)

// embeddedConfig embeds the content of the application's YAML configuration
// file. It is loaded once at startup and merged over the built-in defaults.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// migrationsFS is an embedded file system containing the database migration
// files for the SQL-backed job repository.
//
//go:embed all:resources/migrations
var migrationsFS embed.FS

// embeddedJob embeds the job definition executed at startup. The
// UNDERTOW_JOB_FILE environment variable overrides it with a file on disk.
//
//go:embed resources/job.yaml
var embeddedJob []byte

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobYAML := embeddedJob
	if path := os.Getenv("UNDERTOW_JOB_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			logger.Fatalf("Failed to read job file %s: %v", path, err)
		}
		jobYAML = data
	}

	app := fx.New(getApplicationOptions(ctx, embeddedConfig, migrationsFS, jobYAML)...)
	app.Run()
}
