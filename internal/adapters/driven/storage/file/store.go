// Package file persists the vector index as a single JSON document.
//
// The file has three top-level fields, documents, chunks and metadata.
// Embedding values are encoded in Go's shortest round-trip float form, so
// a save followed by a load yields bit-identical vectors.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.IndexStore = (*Store)(nil)

// Store reads and writes index files.
type Store struct {
	atomic bool
}

// Option configures a Store.
type Option func(*Store)

// WithAtomicWrite writes to path.tmp and renames it over the target, so a
// crash mid-write never leaves a truncated index behind.
func WithAtomicWrite() Option {
	return func(s *Store) {
		s.atomic = true
	}
}

// NewStore creates a JSON index store.
func NewStore(opts ...Option) *Store {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes the full index to path and returns the number of bytes written.
func (s *Store) Save(ctx context.Context, path string, idx *domain.Index) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	data, err := Encode(idx)
	if err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return 0, fmt.Errorf("create index directory: %w", err)
	}

	target := path
	if s.atomic {
		target = path + ".tmp"
	}

	if err := os.WriteFile(target, data, 0600); err != nil {
		return 0, fmt.Errorf("write index: %w", err)
	}

	if s.atomic {
		if err := os.Rename(target, path); err != nil {
			_ = os.Remove(target)
			return 0, fmt.Errorf("replace index: %w", err)
		}
	}

	return int64(len(data)), nil
}

// Load reads the index at path.
func (s *Store) Load(ctx context.Context, path string) (*domain.Index, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &domain.NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("read index: %w", err)
	}

	idx, err := Decode(data)
	if err != nil {
		return nil, &domain.ParseError{Path: path, Err: err}
	}
	return idx, nil
}

// Encode serialises an index to indented JSON.
func Encode(idx *domain.Index) ([]byte, error) {
	if idx == nil {
		return nil, &domain.ValidationError{Field: "index", Reason: "must not be nil"}
	}

	out := *idx
	if out.Documents == nil {
		out.Documents = []domain.Document{}
	}
	if out.Chunks == nil {
		out.Chunks = []domain.Chunk{}
	}
	out.Recount()

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(&out); err != nil {
		return nil, fmt.Errorf("encode index: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses an index document. Unknown fields are ignored; chunks
// referencing unknown documents are rejected.
func Decode(data []byte) (*domain.Index, error) {
	var idx domain.Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, err
	}
	if err := idx.Validate(); err != nil {
		return nil, err
	}
	idx.Recount()
	return &idx, nil
}
