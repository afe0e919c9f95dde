package loader

import (
	"context"
	"strings"

	model "github.com/tigerroll/undertow/pkg/etl/core/domain/model"
)

// Embedder is the batch text-to-vector capability consumed by embedding
// targets. github.com/tmc/langchaingo's embeddings.Embedder satisfies it.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

// Document is the unit written to vector and search destinations.
type Document struct {
	ID        string
	Content   string
	Embedding []float32
	Metadata  map[string]interface{}
}

// contentColumnNames are the column names treated as content-bearing when no
// explicit embedding column list is configured, in preference order.
var contentColumnNames = []string{"content", "text", "description", "name", "title"}

// SelectEmbeddingColumns picks the columns whose text is embedded. An explicit
// configuration list wins (filtered to columns actually present); otherwise
// common content-bearing names are matched case-insensitively; otherwise the
// first column is used.
func SelectEmbeddingColumns(columns []string, explicit []string) []string {
	if len(explicit) > 0 {
		present := make(map[string]string, len(columns))
		for _, c := range columns {
			present[strings.ToLower(c)] = c
		}
		selected := make([]string, 0, len(explicit))
		for _, want := range explicit {
			if actual, ok := present[strings.ToLower(want)]; ok {
				selected = append(selected, actual)
			}
		}
		if len(selected) > 0 {
			return selected
		}
	}
	for _, want := range contentColumnNames {
		for _, c := range columns {
			if strings.EqualFold(c, want) {
				return []string{c}
			}
		}
	}
	if len(columns) > 0 {
		return []string{columns[0]}
	}
	return nil
}

// rowContent concatenates the selected columns' text for one row, skipping
// null cells.
func rowContent(row map[string]interface{}, columns []string) string {
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		v, ok := row[col]
		if !ok || v == nil {
			continue
		}
		s := strings.TrimSpace(stringify(v))
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// rowID returns a stable document identity for a row: the row's own "id"
// column when present, otherwise a fresh UUID.
func rowID(row map[string]interface{}) string {
	if v, ok := row["id"]; ok && v != nil {
		if s := strings.TrimSpace(stringify(v)); s != "" {
			return s
		}
	}
	return model.NewID()
}

// rowMetadata copies every non-embedded cell into document metadata.
func rowMetadata(row map[string]interface{}, columns []string, embedded []string) map[string]interface{} {
	skip := make(map[string]struct{}, len(embedded))
	for _, c := range embedded {
		skip[c] = struct{}{}
	}
	meta := make(map[string]interface{})
	for _, col := range columns {
		if _, ok := skip[col]; ok {
			continue
		}
		if v, ok := row[col]; ok && v != nil {
			meta[col] = v
		}
	}
	return meta
}

// chunkText splits text into chunks of at most size runes with the given
// overlap between adjacent chunks. size <= 0 disables chunking.
func chunkText(text string, size, overlap int) []string {
	if size <= 0 || len([]rune(text)) <= size {
		return []string{text}
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	runes := []rune(text)
	step := size - overlap
	chunks := make([]string, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
