package loader_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
	"github.com/tigerroll/undertow/pkg/etl/loader"
)

func TestValidateIdentifier(t *testing.T) {
	for _, ok := range []string{"products", "Products_2026", "_staging", "a"} {
		assert.NoError(t, loader.ValidateIdentifier(ok), ok)
	}
	for _, bad := range []string{
		"",
		"1table",
		"drop table",
		"products;--",
		`pro"ducts`,
		"products.orders",
		"ありえない",
	} {
		assert.Error(t, loader.ValidateIdentifier(bad), bad)
	}
	// 63 characters is the longest accepted identifier.
	long := make([]byte, 63)
	for i := range long {
		long[i] = 'a'
	}
	assert.NoError(t, loader.ValidateIdentifier(string(long)))
	assert.Error(t, loader.ValidateIdentifier(string(long)+"a"))
}

func newMockSQLTarget(t *testing.T, batchSize int, cfg model.SQLTableTarget) (loader.Target, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	target, err := loader.NewSQLTargetFactory(gormDB, batchSize).Builder()(model.StorageTargetConfig{
		Kind: model.TargetKindSQLTable,
		SQL:  &cfg,
	})
	require.NoError(t, err)
	return target, mock
}

func productRows(n int) *loader.Dataset {
	rows := make([]map[string]interface{}, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, map[string]interface{}{
			"id":   fmt.Sprintf("%d", i+1),
			"name": fmt.Sprintf("product-%d", i+1),
		})
	}
	return loader.NewDataset([]string{"id", "name"}, rows)
}

func TestSQLTargetLoadsCleanBatch(t *testing.T) {
	target, mock := newMockSQLTarget(t, 0, model.SQLTableTarget{TableName: "products"})
	ds := productRows(10)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS `products`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO `products`").
		WillReturnResult(sqlmock.NewResult(0, 10))

	result, err := target.Load(context.Background(), ds, loader.InferColumnTypes(ds, 100))
	require.NoError(t, err)
	assert.Equal(t, 10, result.Succeeded)
	assert.Zero(t, result.Failed)
	assert.Empty(t, result.Errors)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLTargetSalvagesPoisonedBatchRowByRow(t *testing.T) {
	target, mock := newMockSQLTarget(t, 0, model.SQLTableTarget{TableName: "products"})
	ds := productRows(10)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS `products`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO `products`").
		WillReturnError(fmt.Errorf("data too long for column 'name'"))
	for row := 1; row <= 10; row++ {
		e := mock.ExpectExec("INSERT INTO `products`")
		if row == 3 {
			e.WillReturnError(fmt.Errorf("data too long for column 'name'"))
			continue
		}
		e.WillReturnResult(sqlmock.NewResult(0, 1))
	}

	result, err := target.Load(context.Background(), ds, loader.InferColumnTypes(ds, 100))
	require.NoError(t, err)
	assert.Equal(t, 9, result.Succeeded)
	assert.Equal(t, 1, result.Failed)

	codes := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		codes = append(codes, e.Code)
	}
	assert.Contains(t, codes, model.ErrCodeBatchInsert)
	assert.Contains(t, codes, model.ErrCodeRowInsert)
	for _, e := range result.Errors {
		if e.Code == model.ErrCodeRowInsert {
			assert.Equal(t, 3, e.Row)
		}
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLTargetReplaceTruncatesBeforeInsert(t *testing.T) {
	target, mock := newMockSQLTarget(t, 0, model.SQLTableTarget{
		TableName: "products",
		Mode:      model.WriteModeReplace,
	})
	ds := productRows(3)

	// Ordered expectations: the truncate must land before any insert.
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS `products`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM `products`").
		WillReturnResult(sqlmock.NewResult(0, 5))
	mock.ExpectExec("INSERT INTO `products`").
		WillReturnResult(sqlmock.NewResult(0, 3))

	result, err := target.Load(context.Background(), ds, loader.InferColumnTypes(ds, 100))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Succeeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLTargetUpsertUsesConflictClause(t *testing.T) {
	target, mock := newMockSQLTarget(t, 0, model.SQLTableTarget{
		TableName: "products",
		Mode:      model.WriteModeUpsert,
		KeyColumn: "id",
	})
	ds := productRows(2)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS `products`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO `products`.*ON DUPLICATE KEY UPDATE").
		WillReturnResult(sqlmock.NewResult(0, 2))

	result, err := target.Load(context.Background(), ds, loader.InferColumnTypes(ds, 100))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Succeeded)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLBuilderValidatesConfig(t *testing.T) {
	builder := loader.NewSQLTargetFactory(nil, 0).Builder()

	_, err := builder(model.StorageTargetConfig{Kind: model.TargetKindSQLTable})
	assert.Error(t, err, "missing sql section")

	_, err = builder(model.StorageTargetConfig{
		Kind: model.TargetKindSQLTable,
		SQL:  &model.SQLTableTarget{TableName: "bad name"},
	})
	assert.Error(t, err, "invalid table name")

	_, err = builder(model.StorageTargetConfig{
		Kind: model.TargetKindSQLTable,
		SQL:  &model.SQLTableTarget{TableName: "t", Mode: model.WriteModeUpsert},
	})
	assert.Error(t, err, "upsert without key column")

	_, err = builder(model.StorageTargetConfig{
		Kind: model.TargetKindSQLTable,
		SQL:  &model.SQLTableTarget{TableName: "t", Mode: model.WriteModeUpsert, KeyColumn: "id"},
	})
	assert.NoError(t, err)
}
