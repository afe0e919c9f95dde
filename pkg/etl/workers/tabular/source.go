package tabular

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
	loader "github.com/tigerroll/undertow/pkg/etl/loader"
)

// maxPayloadBytes caps remote payloads to keep a misbehaving endpoint from
// exhausting memory.
const maxPayloadBytes = 64 << 20

// SourceFetcher resolves a SourceConfig to either raw text (inline, remote) or
// a ready dataset (database).
type SourceFetcher struct {
	client *http.Client
}

// NewSourceFetcher creates a fetcher with a default HTTP client.
func NewSourceFetcher() *SourceFetcher {
	return &SourceFetcher{client: &http.Client{Timeout: 60 * time.Second}}
}

// FetchText retrieves the raw payload of an inline or remote source.
func (f *SourceFetcher) FetchText(ctx context.Context, src model.SourceConfig) (string, error) {
	switch src.Kind {
	case model.SourceKindInline:
		return src.Inline.Content, nil
	case model.SourceKindRemote:
		return f.fetchRemote(ctx, src.Remote)
	default:
		return "", fmt.Errorf("source kind %q does not produce a text payload", src.Kind)
	}
}

func (f *SourceFetcher) fetchRemote(ctx context.Context, remote *model.RemoteSource) (string, error) {
	method := remote.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if remote.Body != "" {
		body = strings.NewReader(remote.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, remote.URL, body)
	if err != nil {
		return "", fmt.Errorf("failed to build request for %s: %w", remote.URL, err)
	}
	for k, v := range remote.Headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", remote.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetching %s returned status %d", remote.URL, resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response from %s: %w", remote.URL, err)
	}
	return string(payload), nil
}

// FetchDataset runs a database source's query and returns the result set with
// its natural column order.
func (f *SourceFetcher) FetchDataset(ctx context.Context, src *model.DatabaseSource) (*loader.Dataset, error) {
	db, err := openSource(src)
	if err != nil {
		return nil, err
	}
	defer func() {
		if sqlDB, derr := db.DB(); derr == nil {
			sqlDB.Close()
		}
	}()

	rows, err := db.WithContext(ctx).Raw(src.Query).Rows()
	if err != nil {
		return nil, fmt.Errorf("source query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	var out []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			switch v := values[i].(type) {
			case []byte:
				row[col] = string(v)
			default:
				row[col] = v
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("source result iteration failed: %w", err)
	}
	return loader.NewDataset(columns, out), nil
}

func openSource(src *model.DatabaseSource) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch src.Driver {
	case "postgres":
		dialector = postgres.Open(src.DSN)
	case "mysql":
		dialector = mysql.Open(src.DSN)
	case "sqlite":
		dialector = sqlite.Open(src.DSN)
	default:
		return nil, fmt.Errorf("unsupported source database driver %q", src.Driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open source database: %w", err)
	}
	return db, nil
}
