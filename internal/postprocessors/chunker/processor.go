// Package chunker provides an overlapping word-window chunking processor.
package chunker

import (
	"context"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// DefaultChunkSize is the default token budget per chunk.
const DefaultChunkSize = 500

// DefaultChunkOverlap is the default number of overlapping tokens.
const DefaultChunkOverlap = 50

// WordsPerToken converts token budgets into word budgets.
const WordsPerToken = 0.75

// Ensure Processor implements the interface.
var _ driven.PostProcessor = (*Processor)(nil)

// Processor splits document content into overlapping word windows.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
	estimator driven.TokenEstimator
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in tokens.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in tokens.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// WithEstimator replaces the character-ratio token estimator.
func WithEstimator(e driven.TokenEstimator) Option {
	return func(p *Processor) {
		if e != nil {
			p.estimator = e
		}
	}
}

// New creates a new chunker processor with the given options.
// Returns *domain.ValidationError unless size > overlap >= 0.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		estimator: CharRatioEstimator{CharsPerToken: DefaultCharsPerToken},
	}

	for _, opt := range opts {
		opt(p)
	}

	err := domain.ChunkingSettings{Size: p.chunkSize, Overlap: p.overlap}.Validate()
	if err != nil {
		return nil, err
	}

	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the token budget per chunk.
func (p *Processor) ChunkSize() int { return p.chunkSize }

// Overlap returns the token overlap between chunks.
func (p *Processor) Overlap() int { return p.overlap }

// WordBudgets returns the window length and overlap in words.
// The window is at least one word and the overlap is always
// strictly smaller than the window so the start always advances.
func (p *Processor) WordBudgets() (wordsPerChunk, overlapWords int) {
	wordsPerChunk = int(math.Floor(float64(p.chunkSize) * WordsPerToken))
	if wordsPerChunk < 1 {
		wordsPerChunk = 1
	}
	overlapWords = int(math.Floor(float64(p.overlap) * WordsPerToken))
	if overlapWords > wordsPerChunk-1 {
		overlapWords = wordsPerChunk - 1
	}
	return wordsPerChunk, overlapWords
}

// Process splits the content into chunks for doc.
// Input chunks are ignored; this processor creates new chunks from content.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, content string, _ []domain.Chunk) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.Split(content, doc), nil
}

// Split slides a window of wordsPerChunk words over the text, advancing
// by wordsPerChunk-overlapWords, and stops once a window reaches the last
// word. Empty or whitespace-only text produces no chunks.
func (p *Processor) Split(text string, doc *domain.Document) []domain.Chunk {
	words := strings.Fields(text)
	n := len(words)
	if n == 0 {
		return nil
	}

	wordsPerChunk, overlapWords := p.WordBudgets()
	step := wordsPerChunk - overlapWords

	chunks := make([]domain.Chunk, 0, n/step+1)
	for start := 0; start < n; start += step {
		end := min(start+wordsPerChunk, n)
		chunkText := strings.Join(words[start:end], " ")

		chunks = append(chunks, domain.Chunk{
			ID:            uuid.New().String(),
			Text:          chunkText,
			TokenEstimate: p.estimator.Estimate(chunkText),
			Position:      len(chunks),
			StartWord:     start,
			EndWord:       end,
			Metadata:      chunkMetadata(doc),
		})

		if end == n {
			break
		}
	}

	return chunks
}

func chunkMetadata(doc *domain.Document) domain.ChunkMetadata {
	if doc == nil {
		return domain.ChunkMetadata{}
	}
	return domain.ChunkMetadata{
		DocumentID:   doc.ID,
		DocumentName: doc.Name,
		DocumentType: doc.Type,
		Extra:        domain.CloneMetadata(doc.Metadata),
	}
}
