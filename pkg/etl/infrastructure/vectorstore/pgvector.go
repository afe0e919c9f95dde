// Package vectorstore provides the pgvector-backed document index consumed by
// vector_store targets. Each index is one table carrying {id, content,
// embedding, metadata} documents.
package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	loader "github.com/tigerroll/undertow/pkg/etl/loader"
	logger "github.com/tigerroll/undertow/pkg/etl/support/util/logger"
)

// PgVectorIndex implements loader.VectorIndex over a PostgreSQL connection
// with the pgvector extension installed.
type PgVectorIndex struct {
	db        *gorm.DB
	dimension int
}

// NewPgVectorIndex wraps a connection. dimension fixes the embedding width of
// every index table this instance creates.
func NewPgVectorIndex(db *gorm.DB, dimension int) *PgVectorIndex {
	return &PgVectorIndex{db: db, dimension: dimension}
}

var _ loader.VectorIndex = (*PgVectorIndex)(nil)

// EnsureIndex creates the index table and its ivfflat index if absent. The
// index name is restricted to the SQL identifier allow-list because it is
// interpolated into DDL.
func (s *PgVectorIndex) EnsureIndex(ctx context.Context, indexName string) error {
	if err := loader.ValidateIdentifier(indexName); err != nil {
		return err
	}
	table := tableFor(indexName)
	ddl := fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS %[1]s (
  id        TEXT PRIMARY KEY,
  content   TEXT NOT NULL,
  embedding vector(%[2]d),
  metadata  JSONB,
  updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS %[1]s_embedding_idx ON %[1]s USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
`, table, s.dimension)
	if err := s.db.WithContext(ctx).Exec(ddl).Error; err != nil {
		return fmt.Errorf("failed to ensure vector index %q: %w", indexName, err)
	}
	return nil
}

// UpsertDocuments writes documents in one transaction, replacing rows with the
// same ID.
func (s *PgVectorIndex) UpsertDocuments(ctx context.Context, indexName string, docs []loader.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := loader.ValidateIdentifier(indexName); err != nil {
		return err
	}
	table := tableFor(indexName)
	stmt := fmt.Sprintf(`
INSERT INTO %s (id, content, embedding, metadata, updated_at)
 VALUES (?, ?, ?, ?, now())
 ON CONFLICT (id) DO UPDATE SET
   content=EXCLUDED.content,
   embedding=EXCLUDED.embedding,
   metadata=EXCLUDED.metadata,
   updated_at=now()`, table)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, doc := range docs {
			metaBytes, err := json.Marshal(doc.Metadata)
			if err != nil {
				return fmt.Errorf("failed to marshal metadata for document %s: %w", doc.ID, err)
			}
			embedding, err := vectorLiteral(doc.Embedding, s.dimension)
			if err != nil {
				return fmt.Errorf("document %s: %w", doc.ID, err)
			}
			if err := tx.Exec(stmt, doc.ID, doc.Content, embedding, string(metaBytes)).Error; err != nil {
				return fmt.Errorf("failed to upsert document %s: %w", doc.ID, err)
			}
		}
		logger.Debugf("vector index %q: upserted %d document(s)", indexName, len(docs))
		return nil
	})
}

func tableFor(indexName string) string {
	return "vec_" + indexName
}

// vectorLiteral renders an embedding in pgvector's text form.
func vectorLiteral(embedding []float32, dimension int) (string, error) {
	if len(embedding) != dimension {
		return "", fmt.Errorf("embedding has %d dimensions, index expects %d", len(embedding), dimension)
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range embedding {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String(), nil
}
