package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.IndexStore = (*Store)(nil)

// Store reads and writes index snapshots to SQLite database files.
// Each call opens the database at the given path and closes it before
// returning.
type Store struct {
	migrations fs.FS
}

// NewStore creates a SQLite index store.
func NewStore() *Store {
	return &Store{migrations: migrations.FS}
}

// Save replaces the stored snapshot at path and returns the database file size.
func (s *Store) Save(ctx context.Context, path string, idx *domain.Index) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if idx == nil {
		return 0, &domain.ValidationError{Field: "index", Reason: "must not be nil"}
	}
	if err := idx.Validate(); err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return 0, fmt.Errorf("creating index directory: %w", err)
	}

	db, err := s.open(ctx, path)
	if err != nil {
		return 0, err
	}

	if err := writeSnapshot(ctx, db, idx); err != nil {
		db.Close()
		return 0, err
	}

	// Closing the last connection checkpoints the WAL into the main file.
	if err := db.Close(); err != nil {
		return 0, fmt.Errorf("closing database: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat index: %w", err)
	}
	return info.Size(), nil
}

// Load reads the snapshot stored at path.
func (s *Store) Load(ctx context.Context, path string) (*domain.Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &domain.NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("stat index: %w", err)
	}

	db, err := openExisting(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := checkSchema(ctx, db); err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, &domain.ParseError{Path: path, Err: err}
	}

	idx, err := readSnapshot(ctx, db)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, &domain.ParseError{Path: path, Err: err}
	}
	return idx, nil
}

// open opens the database for writing, enables foreign keys and applies
// migrations. Only Save calls it.
func (s *Store) open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := migrate(ctx, db, s.migrations); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}

// openExisting opens a database for reading without changing its journal
// mode or schema.
func openExisting(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=query_only(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return db, nil
}

// indexTables are the tables a saved index always has.
var indexTables = []string{"schema_migrations", "index_meta", "documents", "chunks"}

// checkSchema reports an error unless every index table is present.
func checkSchema(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table'")
	if err != nil {
		return fmt.Errorf("reading schema: %w", err)
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("reading schema: %w", err)
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading schema: %w", err)
	}

	var missing []string
	for _, name := range indexTables {
		if !present[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("not a sercha-rag index: missing tables %s", strings.Join(missing, ", "))
	}
	return nil
}

// migrate applies every NNN_name.up.sql newer than the recorded version.
func migrate(ctx context.Context, db *sql.DB, fsys fs.FS) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := db.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

func writeSnapshot(ctx context.Context, db *sql.DB, idx *domain.Index) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, stmt := range []string{"DELETE FROM chunks", "DELETE FROM documents", "DELETE FROM index_meta"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clearing index: %w", err)
		}
	}

	meta := idx.Metadata
	_, err = tx.ExecContext(ctx, `
		INSERT INTO index_meta (id, model, chunk_size, chunk_overlap, created_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?)
	`, meta.Model, meta.ChunkSize, meta.ChunkOverlap, formatTimePtr(meta.Created), formatTimePtr(meta.Updated))
	if err != nil {
		return fmt.Errorf("saving metadata: %w", err)
	}

	docStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (seq, id, name, type, metadata, chunk_count, total_tokens, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing document insert: %w", err)
	}
	defer docStmt.Close()

	for i := range idx.Documents {
		doc := &idx.Documents[i]
		metadataJSON, err := marshalMap(doc.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling metadata for %s: %w", doc.ID, err)
		}
		_, err = docStmt.ExecContext(ctx, i, doc.ID, doc.Name, doc.Type, metadataJSON,
			doc.ChunkCount, doc.TotalTokens, formatTime(doc.ProcessedAt))
		if err != nil {
			return fmt.Errorf("saving document %s: %w", doc.ID, err)
		}
	}

	chunkStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (seq, id, document_id, document_name, document_type, extra, text,
			token_estimate, position, start_word, end_word, embedding, embedding_model, tokens_used, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer chunkStmt.Close()

	for i := range idx.Chunks {
		c := &idx.Chunks[i]
		extraJSON, err := marshalMap(c.Metadata.Extra)
		if err != nil {
			return fmt.Errorf("marshalling metadata for chunk %s: %w", c.ID, err)
		}

		// A nil embedding must be stored as NULL, not as an empty blob.
		var embedding any
		if c.Embedding != nil {
			embedding = float64SliceToBytes(c.Embedding)
		}

		_, err = chunkStmt.ExecContext(ctx, i, c.ID, c.Metadata.DocumentID, c.Metadata.DocumentName,
			c.Metadata.DocumentType, extraJSON, c.Text, c.TokenEstimate, c.Position, c.StartWord,
			c.EndWord, embedding, c.EmbeddingModel, c.TokensUsed, c.Error)
		if err != nil {
			return fmt.Errorf("saving chunk %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing index: %w", err)
	}
	return nil
}

func readSnapshot(ctx context.Context, db *sql.DB) (*domain.Index, error) {
	idx := &domain.Index{
		Documents: []domain.Document{},
		Chunks:    []domain.Chunk{},
	}

	var created, updated sql.NullString
	err := db.QueryRowContext(ctx, `
		SELECT model, chunk_size, chunk_overlap, created_at, updated_at FROM index_meta WHERE id = 1
	`).Scan(&idx.Metadata.Model, &idx.Metadata.ChunkSize, &idx.Metadata.ChunkOverlap, &created, &updated)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Fresh database with no snapshot yet.
	case err != nil:
		return nil, fmt.Errorf("querying metadata: %w", err)
	default:
		if idx.Metadata.Created, err = parseTimePtr(created); err != nil {
			return nil, err
		}
		if idx.Metadata.Updated, err = parseTimePtr(updated); err != nil {
			return nil, err
		}
	}

	docs, err := scanDocuments(ctx, db)
	if err != nil {
		return nil, err
	}
	idx.Documents = docs

	chunks, err := scanChunks(ctx, db)
	if err != nil {
		return nil, err
	}
	idx.Chunks = chunks

	if err := idx.Validate(); err != nil {
		return nil, err
	}
	idx.Recount()
	return idx, nil
}

func scanDocuments(ctx context.Context, db *sql.DB) ([]domain.Document, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, type, metadata, chunk_count, total_tokens, processed_at
		FROM documents ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		var doc domain.Document
		var metadataJSON sql.NullString
		var processedAt string

		if err := rows.Scan(&doc.ID, &doc.Name, &doc.Type, &metadataJSON,
			&doc.ChunkCount, &doc.TotalTokens, &processedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		if doc.Metadata, err = unmarshalMap(metadataJSON); err != nil {
			return nil, fmt.Errorf("document %s metadata: %w", doc.ID, err)
		}
		if doc.ProcessedAt, err = parseTime(processedAt); err != nil {
			return nil, fmt.Errorf("document %s: %w", doc.ID, err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func scanChunks(ctx context.Context, db *sql.DB) ([]domain.Chunk, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, document_id, document_name, document_type, extra, text, token_estimate,
			position, start_word, end_word, embedding IS NOT NULL, embedding, embedding_model,
			tokens_used, error
		FROM chunks ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	chunks := []domain.Chunk{}
	for rows.Next() {
		var c domain.Chunk
		var extraJSON sql.NullString
		var hasEmbedding bool
		var embeddingBlob []byte

		if err := rows.Scan(&c.ID, &c.Metadata.DocumentID, &c.Metadata.DocumentName,
			&c.Metadata.DocumentType, &extraJSON, &c.Text, &c.TokenEstimate, &c.Position,
			&c.StartWord, &c.EndWord, &hasEmbedding, &embeddingBlob, &c.EmbeddingModel,
			&c.TokensUsed, &c.Error); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		if c.Metadata.Extra, err = unmarshalMap(extraJSON); err != nil {
			return nil, fmt.Errorf("chunk %s metadata: %w", c.ID, err)
		}
		if hasEmbedding {
			if c.Embedding, err = bytesToFloat64Slice(embeddingBlob); err != nil {
				return nil, fmt.Errorf("chunk %s: %w", c.ID, err)
			}
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// ==================== Helper Functions ====================

// float64SliceToBytes converts a []float64 to a little-endian byte slice.
func float64SliceToBytes(floats []float64) []byte {
	buf := make([]byte, len(floats)*8)
	for i, f := range floats {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

// bytesToFloat64Slice converts a little-endian byte slice back to []float64.
// The result is never nil.
func bytesToFloat64Slice(data []byte) ([]float64, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("embedding blob length %d is not a multiple of 8", len(data))
	}
	floats := make([]float64, len(data)/8)
	for i := range floats {
		floats[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return floats, nil
}

// marshalMap encodes a metadata map, keeping nil as SQL NULL.
func marshalMap(m map[string]any) (any, error) {
	if m == nil {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func unmarshalMap(s sql.NullString) (map[string]any, error) {
	if !s.Valid {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s.String), &m); err != nil {
		return nil, err
	}
	return m, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time %q: %w", s, err)
	}
	return t, nil
}

func parseTimePtr(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
