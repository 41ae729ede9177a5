package filterfield

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jonesrussell/north-cloud/list-pages/internal/domain"
	"github.com/jonesrussell/north-cloud/list-pages/internal/facet"
	"github.com/jonesrussell/north-cloud/list-pages/internal/index"
)

// BooleanID is the id of the boolean plugin.
const BooleanID = "boolean"

// BooleanDefinition handles boolean fields.
func BooleanDefinition() Definition {
	return Definition{
		ID:         BooleanID,
		Weight:     0,
		FieldTypes: []string{index.FieldTypeBoolean},
		New: func(def Definition, b Binding) Plugin {
			return &Boolean{base: base{def: def, binding: b}}
		},
	}
}

// Boolean stores "1" and "0".
type Boolean struct {
	base
}

// NormalizeSubmittedValue accepts 0/1/true/false.
func (p *Boolean) NormalizeSubmittedValue(raw []string) ([]string, error) {
	if !p.binding.Resolved {
		return nil, nil
	}

	out := make([]string, 0, len(raw))
	var errs []error
	for _, v := range nonEmpty(raw) {
		canonical, ok := facet.CanonicalBoolean(v)
		if !ok {
			errs = append(errs, invalid(v, "not a boolean"))
			continue
		}
		out = append(out, canonical)
	}
	return out, errors.Join(errs...)
}

// labels builds the two boolean results and runs them through the facet's
// processors, so the labels match the ones shown on the facet itself.
func (p *Boolean) labels(ctx context.Context) map[string]string {
	f := p.binding.Facet
	results := facet.BooleanQueryType{}.Build(f, nil, time.Time{})
	results, _ = facet.BooleanLabels{}.Build(ctx, f, p.binding.Field, results)
	if p.binding.Processors != nil {
		if processed, err := p.binding.Processors.Run(ctx, f, p.binding.Field, results); err == nil {
			results = processed
		}
	}

	out := make(map[string]string, len(results))
	for _, r := range results {
		out[r.RawValue] = r.DisplayValue
	}
	return out
}

// DefaultValues maps stored values to their labels. Unknown values are kept as they are.
func (p *Boolean) DefaultValues(ctx context.Context, stored []string) []string {
	if !p.binding.Resolved {
		return nil
	}
	labels := p.labels(ctx)
	out := make([]string, 0, len(stored))
	for _, v := range nonEmpty(stored) {
		canonical, _ := facet.CanonicalBoolean(v)
		if label, ok := labels[canonical]; ok {
			out = append(out, label)
			continue
		}
		out = append(out, v)
	}
	return out
}

// DescribeDefaultValues joins the labels of the stored values.
func (p *Boolean) DescribeDefaultValues(ctx context.Context, stored []string) string {
	return strings.Join(p.DefaultValues(ctx, stored), ", ")
}

// RenderDefaultValueInput returns a select with the on and off options.
func (p *Boolean) RenderDefaultValueInput(ctx context.Context, preset *domain.PresetFilter) FormElement {
	if !p.binding.Resolved {
		return FormElement{}
	}
	labels := p.labels(ctx)

	el := p.element("select", preset)
	el.EmptyOption = "Select"
	el.Options = []domain.Option{
		{Value: facet.BooleanOn, Label: labels[facet.BooleanOn]},
		{Value: facet.BooleanOff, Label: labels[facet.BooleanOff]},
	}
	return el
}

// FieldValues reads the value column as "1" or "0".
func (p *Boolean) FieldValues(items []map[string]any) []string {
	if !p.binding.Resolved {
		return nil
	}
	raw := fieldValues(items, "value")
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if canonical, ok := facet.CanonicalBoolean(v); ok {
			out = append(out, canonical)
		}
	}
	return out
}
