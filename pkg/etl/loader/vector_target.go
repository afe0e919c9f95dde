package loader

import (
	"context"
	"fmt"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
	logger "github.com/tigerroll/undertow/pkg/etl/support/util/logger"
)

// VectorIndex is the vector storage capability consumed by vector_store
// targets.
type VectorIndex interface {
	// EnsureIndex creates the named index if it does not exist.
	EnsureIndex(ctx context.Context, indexName string) error
	// UpsertDocuments writes documents, replacing any with the same ID.
	UpsertDocuments(ctx context.Context, indexName string, docs []Document) error
}

// VectorTargetFactory builds vector_store targets over one embedder and one
// vector index backend.
type VectorTargetFactory struct {
	embedder  Embedder
	index     VectorIndex
	batchSize int
}

// NewVectorTargetFactory creates the factory. embedder and index may be nil
// when the deployment carries no vector backend; building a target then fails,
// which the loader records as a whole-target failure.
func NewVectorTargetFactory(embedder Embedder, index VectorIndex, batchSize int) *VectorTargetFactory {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &VectorTargetFactory{embedder: embedder, index: index, batchSize: batchSize}
}

// Builder returns the TargetBuilder for vector_store configurations.
func (f *VectorTargetFactory) Builder() TargetBuilder {
	return func(cfg model.StorageTargetConfig) (Target, error) {
		if cfg.Vector == nil || cfg.Vector.IndexName == "" {
			return nil, fmt.Errorf("vector_store target requires a vector section with an index_name")
		}
		if f.embedder == nil {
			return nil, fmt.Errorf("no embedder configured for vector_store targets")
		}
		if f.index == nil {
			return nil, fmt.Errorf("no vector index backend configured for vector_store targets")
		}
		return &vectorTarget{factory: f, cfg: *cfg.Vector}, nil
	}
}

type vectorTarget struct {
	factory *VectorTargetFactory
	cfg     model.VectorStoreTarget
}

// Load embeds the selected content columns per row and upserts the resulting
// documents in batches. An embedding or upsert failure costs the whole batch
// and is recorded as a record-level error; subsequent batches still run.
func (t *vectorTarget) Load(ctx context.Context, ds *Dataset, types map[string]ColumnType) (*TargetResult, error) {
	if err := t.factory.index.EnsureIndex(ctx, t.cfg.IndexName); err != nil {
		return nil, fmt.Errorf("failed to ensure vector index %q: %w", t.cfg.IndexName, err)
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
			id := rowID(row)
			meta := rowMetadata(row, ds.Columns, embedCols)
			content := rowContent(row, embedCols)
			chunks := chunkText(content, t.cfg.ChunkSize, t.cfg.ChunkOverlap)
			for i, chunk := range chunks {
				docID := id
				if len(chunks) > 1 {
					docID = fmt.Sprintf("%s:%d", id, i)
				}
				docs = append(docs, Document{ID: docID, Content: chunk, Metadata: meta})
			}
		}

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
		if len(vectors) != len(docs) {
			result.Failed += len(rows)
			result.Errors = append(result.Errors, model.NewRowError(model.ErrCodeEmbedding,
				fmt.Sprintf("embedder returned %d vectors for %d documents", len(vectors), len(docs)),
				start+1, ""))
			continue
		}
		for i := range docs {
			docs[i].Embedding = vectors[i]
		}

		if err := t.factory.index.UpsertDocuments(ctx, t.cfg.IndexName, docs); err != nil {
			result.Failed += len(rows)
			result.Errors = append(result.Errors, model.NewRowError(model.ErrCodeTarget,
				fmt.Sprintf("vector upsert failed for batch starting at row %d: %s", start+1, err.Error()),
				start+1, ""))
			continue
		}
		result.Succeeded += len(rows)
		logger.Debugf("vector index %q: upserted %d document(s) for %d row(s)",
			t.cfg.IndexName, len(docs), len(rows))
	}
	return result, nil
}

var _ Target = (*vectorTarget)(nil)
