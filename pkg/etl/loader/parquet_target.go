package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
	logger "github.com/tigerroll/undertow/pkg/etl/support/util/logger"
)

// ParquetTargetFactory builds parquet_file targets writing to the local
// filesystem.
type ParquetTargetFactory struct{}

// NewParquetTargetFactory creates the factory.
func NewParquetTargetFactory() *ParquetTargetFactory {
	return &ParquetTargetFactory{}
}

// Builder returns the TargetBuilder for parquet_file configurations.
func (f *ParquetTargetFactory) Builder() TargetBuilder {
	return func(cfg model.StorageTargetConfig) (Target, error) {
		if cfg.Parquet == nil || cfg.Parquet.Path == "" {
			return nil, fmt.Errorf("parquet_file target requires a parquet section with a path")
		}
		codec, err := compressionCodec(cfg.Parquet.Compression)
		if err != nil {
			return nil, err
		}
		return &parquetTarget{cfg: *cfg.Parquet, codec: codec}, nil
	}
}

func compressionCodec(name string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(name) {
	case "", "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "NONE", "UNCOMPRESSED":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return parquet.CompressionCodec_SNAPPY, fmt.Errorf("unsupported parquet compression %q", name)
	}
}

type parquetTarget struct {
	cfg   model.ParquetFileTarget
	codec parquet.CompressionCodec
}

// Load writes the whole dataset to one Parquet file, building the schema from
// the inferred column types. A row that cannot be encoded is recorded and
// skipped; a file-level failure fails the whole target.
func (t *parquetTarget) Load(ctx context.Context, ds *Dataset, types map[string]ColumnType) (result *TargetResult, err error) {
	if dir := filepath.Dir(t.cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create parquet output directory: %w", err)
		}
	}

	fw, err := local.NewLocalFileWriter(t.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file %q: %w", t.cfg.Path, err)
	}
	defer fw.Close()

	pw, err := writer.NewCSVWriter(schemaFor(ds.Columns, types), fw, 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create parquet writer for %q: %w", t.cfg.Path, err)
	}
	pw.CompressionType = t.codec

	// The library can panic on malformed schemas or values; treat that as a
	// whole-target failure like the other fatal paths.
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("parquet writer panicked for %q: %v", t.cfg.Path, r)
			result, err = nil, fmt.Errorf("parquet writer panicked: %v", r)
		}
	}()

	result = &TargetResult{}
	for i, row := range ds.Rows {
		rec := encodeRow(row, ds.Columns, types)
		if werr := pw.WriteString(rec); werr != nil {
			result.Failed++
			result.Errors = append(result.Errors, model.NewRowError(model.ErrCodeRowInsert,
				werr.Error(), i+1, ""))
			continue
		}
		result.Succeeded++
	}

	var multiErr *multierror.Error
	if serr := pw.WriteStop(); serr != nil {
		multiErr = multierror.Append(multiErr, fmt.Errorf("failed to finalize parquet file %q: %w", t.cfg.Path, serr))
	}
	if cerr := fw.Close(); cerr != nil {
		multiErr = multierror.Append(multiErr, fmt.Errorf("failed to close parquet file %q: %w", t.cfg.Path, cerr))
	}
	if ferr := multiErr.ErrorOrNil(); ferr != nil {
		return nil, ferr
	}
	logger.Debugf("parquet file %q: wrote %d row(s)", t.cfg.Path, result.Succeeded)
	return result, nil
}

// schemaFor maps inferred column types onto a parquet CSV schema.
func schemaFor(columns []string, types map[string]ColumnType) []string {
	md := make([]string, 0, len(columns))
	for _, col := range columns {
		switch types[col] {
		case ColumnTypeInteger:
			md = append(md, fmt.Sprintf("name=%s, type=INT64", col))
		case ColumnTypeDecimal:
			md = append(md, fmt.Sprintf("name=%s, type=DOUBLE", col))
		case ColumnTypeBoolean:
			md = append(md, fmt.Sprintf("name=%s, type=BOOLEAN", col))
		default:
			md = append(md, fmt.Sprintf("name=%s, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY", col))
		}
	}
	return md
}

// encodeRow renders one row as the writer's string record form, normalizing
// boolean tokens and leaving null cells nil.
func encodeRow(row map[string]interface{}, columns []string, types map[string]ColumnType) []*string {
	rec := make([]*string, 0, len(columns))
	for _, col := range columns {
		v, ok := row[col]
		if !ok || v == nil {
			rec = append(rec, nil)
			continue
		}
		s := stringify(v)
		if types[col] == ColumnTypeBoolean {
			s = normalizeBool(s)
		}
		rec = append(rec, &s)
	}
	return rec
}

func normalizeBool(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "1":
		return strconv.FormatBool(true)
	default:
		return strconv.FormatBool(false)
	}
}

var _ Target = (*parquetTarget)(nil)
