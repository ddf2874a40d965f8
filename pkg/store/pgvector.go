package store

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"docchat/internal/models"
	"docchat/internal/types"
)

type VectorStoreConfig struct {
	ConnString  string
	TableName   string
	VectorDim   int
	BatchSize   int
	SearchLimit int
}

// VectorStore keeps document chunks and their embeddings in Postgres with
// the pgvector extension. Keyword rank for hybrid retrieval uses the
// built-in full-text machinery over the chunk text.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

var _ types.VectorStore = (*VectorStore)(nil)

func NewWithConfig(config VectorStoreConfig) (*VectorStore, error) {
	if config.TableName == "" {
		config.TableName = "chunks"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}
	if config.SearchLimit == 0 {
		config.SearchLimit = 5
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	vs := &VectorStore{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize() error {
	ctx := context.Background()

	// Enable pgvector extension
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			document_name TEXT,
			chunk_index INTEGER,
			content TEXT,
			embedding vector(%d)
		)`, vs.config.TableName, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	// Vector index for cosine search
	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %v", err)
	}

	// Keyword index for hybrid retrieval
	createTextIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_content_idx
		ON %s
		USING gin (to_tsvector('english', coalesce(content, '')))`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createTextIndex)
	if err != nil {
		return fmt.Errorf("failed to create text index: %v", err)
	}

	return nil
}

// Store upserts chunks with their embeddings. Chunks and embeddings are
// parallel slices.
func (vs *VectorStore) Store(ctx context.Context, chunks []models.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk/embedding count mismatch: %d vs %d", len(chunks), len(embeddings))
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, document_id, document_name, chunk_index, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`,
		vs.config.TableName)

	for i, chunk := range chunks {
		_, err = tx.Exec(ctx, stmt,
			chunk.ID,
			chunk.DocumentID,
			sanitizeUTF8(chunk.DocumentName),
			chunk.Index,
			sanitizeUTF8(chunk.Text),
			pgvector.NewVector(embeddings[i]),
		)
		if err != nil {
			return fmt.Errorf("failed to insert chunk: %v", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

// Search returns the closest chunks for a query embedding. Hybrid requests
// blend cosine distance with full-text rank; per-document requests keep the
// best chunk of each source document.
func (vs *VectorStore) Search(ctx context.Context, req types.SearchRequest) ([]models.Chunk, error) {
	limit := req.Limit
	if limit == 0 {
		limit = vs.config.SearchLimit
	}

	embedding := pgvector.NewVector(req.Embedding)

	var query string
	var args []interface{}

	switch {
	case req.Hybrid:
		query = fmt.Sprintf(`
			SELECT id, document_id, document_name, chunk_index, content
			FROM %s
			ORDER BY (embedding <=> $1)
				- 0.5 * ts_rank(to_tsvector('english', coalesce(content, '')),
					plainto_tsquery('english', $2))
			LIMIT $3`,
			vs.config.TableName)
		args = []interface{}{embedding, req.Text, limit}
	case req.PerDocument:
		query = fmt.Sprintf(`
			SELECT id, document_id, document_name, chunk_index, content
			FROM (
				SELECT DISTINCT ON (document_id)
					id, document_id, document_name, chunk_index, content,
					embedding <=> $1 AS distance
				FROM %s
				ORDER BY document_id, embedding <=> $1
			) best
			ORDER BY distance
			LIMIT $2`,
			vs.config.TableName)
		args = []interface{}{embedding, limit}
	default:
		query = fmt.Sprintf(`
			SELECT id, document_id, document_name, chunk_index, content
			FROM %s
			ORDER BY embedding <=> $1
			LIMIT $2`,
			vs.config.TableName)
		args = []interface{}{embedding, limit}
	}

	rows, err := vs.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %v", err)
	}
	defer rows.Close()

	var chunks []models.Chunk
	for rows.Next() {
		var chunk models.Chunk
		err := rows.Scan(
			&chunk.ID,
			&chunk.DocumentID,
			&chunk.DocumentName,
			&chunk.Index,
			&chunk.Text,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		chunks = append(chunks, chunk)
	}

	return chunks, nil
}

func (vs *VectorStore) Count(ctx context.Context) (int, error) {
	var count int
	query := fmt.Sprintf("SELECT count(*) FROM %s", vs.config.TableName)
	if err := vs.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %v", err)
	}
	return count, nil
}

func (vs *VectorStore) DocumentCount(ctx context.Context) (int, error) {
	var count int
	query := fmt.Sprintf("SELECT count(DISTINCT document_id) FROM %s", vs.config.TableName)
	if err := vs.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %v", err)
	}
	return count, nil
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
