package postprocessors

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// BuilderFunc creates a PostProcessor from the flattened settings of one
// pipeline stage (see domain.PipelineConfig).
type BuilderFunc func(cfg map[string]any) (driven.PostProcessor, error)

// Registry maps stage names to builders so the chunking pipeline can be
// assembled from settings.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry creates an empty registry. RegisterDefaults adds the built-in stages.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]BuilderFunc)}
}

// Register adds or replaces the builder for name. Name should match the
// built processor's Name().
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build creates the stage called name. Unknown names fail with
// domain.ErrUnsupportedType.
func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: processor %q (registered: %v)", domain.ErrUnsupportedType, name, r.Names())
	}
	p, err := builder(cfg)
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", name, err)
	}
	return p, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names returns the registered stage names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
