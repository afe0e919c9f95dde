package loader

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
	logger "github.com/tigerroll/undertow/pkg/etl/support/util/logger"
)

// DefaultBatchSize is the number of rows written per INSERT batch.
const DefaultBatchSize = 100

// identifierPattern is the allow-list for table and column names. Identifiers
// are the only text interpolated into DDL; every value travels as a bound
// parameter.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidateIdentifier rejects table or column names outside the allow-list.
func ValidateIdentifier(name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("invalid SQL identifier %q", name)
	}
	return nil
}

// SQLTargetFactory builds sql_table targets over one shared gorm connection.
// It also owns the per-table locks that serialize replace-mode loads within
// this process; concurrent replace across processes remains unguarded.
type SQLTargetFactory struct {
	db        *gorm.DB
	batchSize int

	mu         sync.Mutex
	tableLocks map[string]*sync.Mutex
}

// NewSQLTargetFactory creates a factory writing through the given connection.
func NewSQLTargetFactory(db *gorm.DB, batchSize int) *SQLTargetFactory {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &SQLTargetFactory{
		db:         db,
		batchSize:  batchSize,
		tableLocks: make(map[string]*sync.Mutex),
	}
}

// Builder returns the TargetBuilder for sql_table configurations.
func (f *SQLTargetFactory) Builder() TargetBuilder {
	return func(cfg model.StorageTargetConfig) (Target, error) {
		if cfg.SQL == nil {
			return nil, fmt.Errorf("sql_table target requires an sql section")
		}
		if err := ValidateIdentifier(cfg.SQL.TableName); err != nil {
			return nil, err
		}
		if cfg.SQL.Mode == model.WriteModeUpsert {
			if cfg.SQL.KeyColumn == "" {
				return nil, fmt.Errorf("upsert mode requires a key_column")
			}
			if err := ValidateIdentifier(cfg.SQL.KeyColumn); err != nil {
				return nil, err
			}
		}
		return &sqlTarget{factory: f, cfg: *cfg.SQL}, nil
	}
}

func (f *SQLTargetFactory) tableLock(table string) *sync.Mutex {
	f.mu.Lock()
	defer f.mu.Unlock()
	lock, ok := f.tableLocks[table]
	if !ok {
		lock = &sync.Mutex{}
		f.tableLocks[table] = lock
	}
	return lock
}

type sqlTarget struct {
	factory *SQLTargetFactory
	cfg     model.SQLTableTarget
}

// Load creates the destination table if absent, truncates it first in replace
// mode, and writes the rows in fixed-size batches. A failing batch is retried
// row by row so a single malformed value costs one row, not the batch, and
// never stops subsequent batches.
func (t *sqlTarget) Load(ctx context.Context, ds *Dataset, types map[string]ColumnType) (*TargetResult, error) {
	db := t.factory.db
	if db == nil {
		return nil, fmt.Errorf("no database connection configured for sql_table targets")
	}
	for _, col := range ds.Columns {
		if err := ValidateIdentifier(col); err != nil {
			return nil, err
		}
	}

	if err := t.ensureTable(ctx, ds.Columns, types); err != nil {
		return nil, fmt.Errorf("failed to ensure table %q: %w", t.cfg.TableName, err)
	}

	if t.cfg.Mode == model.WriteModeReplace {
		// Truncation must precede every insert of this load, and two in-process
		// replace loads of the same table must not interleave.
		lock := t.factory.tableLock(t.cfg.TableName)
		lock.Lock()
		defer lock.Unlock()
		if err := db.WithContext(ctx).Exec("DELETE FROM " + t.quote(t.cfg.TableName)).Error; err != nil {
			return nil, fmt.Errorf("failed to truncate table %q: %w", t.cfg.TableName, err)
		}
	}

	result := &TargetResult{}
	batchSize := t.factory.batchSize
	for start := 0; start < len(ds.Rows); start += batchSize {
		end := start + batchSize
		if end > len(ds.Rows) {
			end = len(ds.Rows)
		}
		batch := make([]map[string]interface{}, 0, end-start)
		for _, row := range ds.Rows[start:end] {
			batch = append(batch, t.projectRow(row, ds.Columns))
		}

		if err := t.write(ctx, batch).Error; err != nil {
			logger.Debugf("batch starting at row %d failed against table %q, retrying row by row: %v",
				start+1, t.cfg.TableName, err)
			result.Errors = append(result.Errors, model.NewETLError(model.ErrCodeBatchInsert,
				fmt.Sprintf("batch starting at row %d failed: %s", start+1, err.Error())))
			t.writeRowByRow(ctx, batch, start, result)
			continue
		}
		result.Succeeded += len(batch)
	}
	return result, nil
}

// writeRowByRow salvages a failed batch one row at a time, attributing errors
// to 1-based row positions.
func (t *sqlTarget) writeRowByRow(ctx context.Context, batch []map[string]interface{}, offset int, result *TargetResult) {
	for i, row := range batch {
		if err := t.write(ctx, []map[string]interface{}{row}).Error; err != nil {
			result.Failed++
			result.Errors = append(result.Errors, model.NewRowError(model.ErrCodeRowInsert,
				err.Error(), offset+i+1, ""))
			continue
		}
		result.Succeeded++
	}
}

func (t *sqlTarget) write(ctx context.Context, batch []map[string]interface{}) *gorm.DB {
	tx := t.factory.db.WithContext(ctx).Table(t.cfg.TableName)
	if t.cfg.Mode == model.WriteModeUpsert {
		tx = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: t.cfg.KeyColumn}},
			UpdateAll: true,
		})
	}
	return tx.Create(batch)
}

func (t *sqlTarget) projectRow(row map[string]interface{}, columns []string) map[string]interface{} {
	out := make(map[string]interface{}, len(columns))
	for _, col := range columns {
		out[col] = row[col]
	}
	return out
}

func (t *sqlTarget) ensureTable(ctx context.Context, columns []string, types map[string]ColumnType) error {
	defs := make([]string, 0, len(columns))
	for _, col := range columns {
		defs = append(defs, fmt.Sprintf("%s %s", t.quote(col), t.ddlType(types[col])))
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)",
		t.quote(t.cfg.TableName), strings.Join(defs, ", "))
	return t.factory.db.WithContext(ctx).Exec(ddl).Error
}

func (t *sqlTarget) quote(identifier string) string {
	if t.factory.db.Dialector != nil && t.factory.db.Dialector.Name() == "mysql" {
		return "`" + identifier + "`"
	}
	return `"` + identifier + `"`
}

func (t *sqlTarget) ddlType(ct ColumnType) string {
	switch ct {
	case ColumnTypeInteger:
		return "BIGINT"
	case ColumnTypeDecimal:
		return "DOUBLE PRECISION"
	case ColumnTypeDate:
		return "TIMESTAMP"
	case ColumnTypeBoolean:
		return "BOOLEAN"
	case ColumnTypeUUID:
		return "VARCHAR(36)"
	default:
		return "TEXT"
	}
}

var _ Target = (*sqlTarget)(nil)
