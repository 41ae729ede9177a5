package facet

import (
	"context"
	"fmt"
	"sort"

	"github.com/jonesrussell/north-cloud/list-pages/internal/entity"
	"github.com/jonesrussell/north-cloud/list-pages/internal/index"
)

// Processor rewrites facet results after the query type built them.
type Processor interface {
	ID() string
	DefaultWeight() int
	Build(ctx context.Context, f index.Facet, field index.FieldDescriptor, results []Result) ([]Result, error)
}

// Processors is a set of build processors keyed by id.
type Processors struct {
	byID map[string]Processor
}

// NewProcessors creates a processor set.
func NewProcessors(processors ...Processor) *Processors {
	p := &Processors{byID: make(map[string]Processor, len(processors))}
	for _, proc := range processors {
		p.byID[proc.ID()] = proc
	}
	return p
}

// DefaultProcessors holds the built-in processors.
func DefaultProcessors(storage entity.Storage) *Processors {
	return NewProcessors(NewTransformLabel(storage), BooleanLabels{})
}

// Run applies the processors enabled on f, lightest weight first. A configured
// weight of zero falls back to the processor default. Unknown processor ids are
// an error so a typo in the sources file does not go unnoticed.
func (p *Processors) Run(ctx context.Context, f index.Facet, field index.FieldDescriptor, results []Result) ([]Result, error) {
	type step struct {
		proc   Processor
		weight int
	}

	steps := make([]step, 0, len(f.Processors))
	for _, cfg := range f.Processors {
		proc, ok := p.byID[cfg.ID]
		if !ok {
			return nil, fmt.Errorf("facet %s: unknown processor %q", f.ID, cfg.ID)
		}
		weight := cfg.Weight
		if weight == 0 {
			weight = proc.DefaultWeight()
		}
		steps = append(steps, step{proc: proc, weight: weight})
	}
	sort.SliceStable(steps, func(i, j int) bool { return steps[i].weight < steps[j].weight })

	var err error
	for _, s := range steps {
		results, err = s.proc.Build(ctx, f, field, results)
		if err != nil {
			return nil, fmt.Errorf("facet %s processor %s: %w", f.ID, s.proc.ID(), err)
		}
	}
	return results, nil
}

// TransformLabelID is the id of the entity label processor.
const TransformLabelID = "transform_label"

// TransformLabel replaces entity ids with the referenced entities' labels.
// Results whose entity does not load are dropped.
type TransformLabel struct {
	storage entity.Storage
}

// NewTransformLabel creates the processor.
func NewTransformLabel(storage entity.Storage) *TransformLabel {
	return &TransformLabel{storage: storage}
}

// ID implements Processor.
func (*TransformLabel) ID() string { return TransformLabelID }

// DefaultWeight implements Processor.
func (*TransformLabel) DefaultWeight() int { return 40 }

// Build implements Processor. Without entity storage the results are left
// as they are.
func (t *TransformLabel) Build(ctx context.Context, _ index.Facet, field index.FieldDescriptor, results []Result) ([]Result, error) {
	targetType := field.Settings.TargetType
	if targetType == "" || len(results) == 0 || t.storage == nil {
		return results, nil
	}

	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.RawValue)
	}
	entities, err := t.storage.LoadMultiple(ctx, targetType, ids)
	if err != nil {
		return nil, err
	}

	out := results[:0]
	for _, r := range results {
		e, ok := entities[r.RawValue]
		if !ok || e == nil {
			continue
		}
		r.DisplayValue = e.Label
		out = append(out, r)
	}
	return out, nil
}

// BooleanLabelsID is the id of the boolean label processor.
const BooleanLabelsID = "boolean_labels"

const (
	defaultOnLabel  = "Yes"
	defaultOffLabel = "No"
)

// BooleanLabels shows "1" and "0" with the facet's on and off labels.
type BooleanLabels struct{}

// ID implements Processor.
func (BooleanLabels) ID() string { return BooleanLabelsID }

// DefaultWeight implements Processor.
func (BooleanLabels) DefaultWeight() int { return 45 }

// Build implements Processor.
func (BooleanLabels) Build(_ context.Context, f index.Facet, _ index.FieldDescriptor, results []Result) ([]Result, error) {
	on, off := BooleanDisplayLabels(f)
	for i, r := range results {
		switch v, _ := CanonicalBoolean(r.RawValue); v {
		case BooleanOn:
			results[i].DisplayValue = on
		case BooleanOff:
			results[i].DisplayValue = off
		}
	}
	return results, nil
}

// BooleanDisplayLabels returns the on and off labels of a boolean facet.
func BooleanDisplayLabels(f index.Facet) (on, off string) {
	on, off = f.Settings.OnLabel, f.Settings.OffLabel
	if on == "" {
		on = defaultOnLabel
	}
	if off == "" {
		off = defaultOffLabel
	}
	return on, off
}
