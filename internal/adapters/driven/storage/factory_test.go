package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/file"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

func TestNewIndexStore(t *testing.T) {
	tests := []struct {
		name     string
		settings domain.IndexSettings
		check    func(t *testing.T, v any)
	}{
		{
			name:     "default is json",
			settings: domain.IndexSettings{},
			check: func(t *testing.T, v any) {
				assert.IsType(t, &file.Store{}, v)
			},
		},
		{
			name:     "json atomic",
			settings: domain.IndexSettings{Backend: domain.IndexBackendJSON, AtomicWrite: true},
			check: func(t *testing.T, v any) {
				assert.Equal(t, file.NewStore(file.WithAtomicWrite()), v)
			},
		},
		{
			name:     "sqlite",
			settings: domain.IndexSettings{Backend: domain.IndexBackendSQLite},
			check: func(t *testing.T, v any) {
				assert.IsType(t, &sqlite.Store{}, v)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := NewIndexStore(tt.settings)
			require.NoError(t, err)
			tt.check(t, store)
		})
	}
}

func TestNewIndexStore_Unsupported(t *testing.T) {
	_, err := NewIndexStore(domain.IndexSettings{Backend: "parquet"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}
