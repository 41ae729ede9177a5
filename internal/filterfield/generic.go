package filterfield

import (
	"context"
	"strings"

	"github.com/jonesrussell/north-cloud/list-pages/internal/domain"
	"github.com/jonesrussell/north-cloud/list-pages/internal/index"
)

// GenericID is the id of the pass-through plugin.
const GenericID = "generic"

// GenericDefinition handles plain value fields.
func GenericDefinition() Definition {
	return Definition{
		ID:     GenericID,
		Weight: 0,
		FieldTypes: []string{
			index.FieldTypeString,
			index.FieldTypeKeyword,
			index.FieldTypeText,
			index.FieldTypeInteger,
			index.FieldTypeLong,
			index.FieldTypeFloat,
			index.FieldTypeDouble,
			index.FieldTypeDate,
		},
		New: func(def Definition, b Binding) Plugin {
			return &Generic{base: base{def: def, binding: b}}
		},
	}
}

// Generic stores submitted values as they are.
type Generic struct {
	base
}

// NormalizeSubmittedValue drops blank values.
func (g *Generic) NormalizeSubmittedValue(raw []string) ([]string, error) {
	if !g.binding.Resolved {
		return nil, nil
	}
	return nonEmpty(raw), nil
}

// DefaultValues returns the stored values.
func (g *Generic) DefaultValues(_ context.Context, stored []string) []string {
	if !g.binding.Resolved {
		return nil
	}
	return nonEmpty(stored)
}

// DescribeDefaultValues joins the stored values.
func (g *Generic) DescribeDefaultValues(ctx context.Context, stored []string) string {
	return strings.Join(g.DefaultValues(ctx, stored), ", ")
}

// RenderDefaultValueInput returns a text field.
func (g *Generic) RenderDefaultValueInput(_ context.Context, preset *domain.PresetFilter) FormElement {
	if !g.binding.Resolved {
		return FormElement{}
	}
	el := g.element("textfield", preset)
	el.RequiredError = g.requiredError()
	return el
}

// FieldValues reads the value column.
func (g *Generic) FieldValues(items []map[string]any) []string {
	if !g.binding.Resolved {
		return nil
	}
	return fieldValues(items, "value")
}
