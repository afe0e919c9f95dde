package loader

import (
	"context"
	"fmt"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
	logger "github.com/tigerroll/undertow/pkg/etl/support/util/logger"
)

// SearchIndex is the full-text/semantic search capability consumed by
// search_index targets. Semantic configuration is provider-specific and passed
// through opaquely.
type SearchIndex interface {
	EnsureIndex(ctx context.Context, indexName string, semantic map[string]interface{}) error
	BulkUpsert(ctx context.Context, indexName string, docs []Document) error
}

// SearchTargetFactory builds search_index targets over one embedder and one
// search backend.
type SearchTargetFactory struct {
	embedder  Embedder
	index     SearchIndex
	batchSize int
}

// NewSearchTargetFactory creates the factory. A nil embedder disables vector
// enrichment but documents are still indexed for full-text search; a nil index
// backend makes target construction fail.
func NewSearchTargetFactory(embedder Embedder, index SearchIndex, batchSize int) *SearchTargetFactory {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &SearchTargetFactory{embedder: embedder, index: index, batchSize: batchSize}
}

// Builder returns the TargetBuilder for search_index configurations.
func (f *SearchTargetFactory) Builder() TargetBuilder {
	return func(cfg model.StorageTargetConfig) (Target, error) {
		if cfg.Search == nil || cfg.Search.IndexName == "" {
			return nil, fmt.Errorf("search_index target requires a search section with an index_name")
		}
		if f.index == nil {
			return nil, fmt.Errorf("no search backend configured for search_index targets")
		}
		return &searchTarget{factory: f, cfg: *cfg.Search}, nil
	}
}

type searchTarget struct {
	factory *SearchTargetFactory
	cfg     model.SearchIndexTarget
}

// Load indexes the rows as {id, content, embedding, metadata} documents in
// batches, with the same per-batch failure isolation as the other targets.
func (t *searchTarget) Load(ctx context.Context, ds *Dataset, types map[string]ColumnType) (*TargetResult, error) {
	if err := t.factory.index.EnsureIndex(ctx, t.cfg.IndexName, t.cfg.Semantic); err != nil {
		return nil, fmt.Errorf("failed to ensure search index %q: %w", t.cfg.IndexName, err)
	}

	embedCols := SelectEmbeddingColumns(ds.Columns, t.cfg.EmbeddingColumns)
	result := &TargetResult{}
	batchSize := t.factory.batchSize

	for start := 0; start < len(ds.Rows); start += batchSize {
		end := start + batchSize
		if end > len(ds.Rows) {
			end = len(ds.Rows)
		}
		rows := ds.Rows[start:end]

		docs := make([]Document, 0, len(rows))
		for _, row := range rows {
			docs = append(docs, Document{
				ID:       rowID(row),
				Content:  rowContent(row, embedCols),
				Metadata: rowMetadata(row, ds.Columns, embedCols),
			})
		}

		if t.factory.embedder != nil {
			texts := make([]string, len(docs))
			for i, d := range docs {
				texts[i] = d.Content
			}
			vectors, err := t.factory.embedder.EmbedDocuments(ctx, texts)
			if err != nil {
				result.Failed += len(rows)
				result.Errors = append(result.Errors, model.NewRowError(model.ErrCodeEmbedding,
					fmt.Sprintf("embedding failed for batch starting at row %d: %s", start+1, err.Error()),
					start+1, ""))
				continue
			}
			for i := range docs {
				if i < len(vectors) {
					docs[i].Embedding = vectors[i]
				}
			}
		}

		if err := t.factory.index.BulkUpsert(ctx, t.cfg.IndexName, docs); err != nil {
			result.Failed += len(rows)
			result.Errors = append(result.Errors, model.NewRowError(model.ErrCodeTarget,
				fmt.Sprintf("search upsert failed for batch starting at row %d: %s", start+1, err.Error()),
				start+1, ""))
			continue
		}
		result.Succeeded += len(rows)
		logger.Debugf("search index %q: indexed %d document(s)", t.cfg.IndexName, len(docs))
	}
	return result, nil
}

var _ Target = (*searchTarget)(nil)
