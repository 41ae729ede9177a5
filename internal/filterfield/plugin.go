// Package filterfield adapts preset filter handling to the type of the field a
// facet filters on: how submitted values are normalised, how stored values are
// described and which input an administrator gets.
package filterfield

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonesrussell/north-cloud/list-pages/internal/domain"
	"github.com/jonesrussell/north-cloud/list-pages/internal/entity"
	"github.com/jonesrussell/north-cloud/list-pages/internal/facet"
	"github.com/jonesrussell/north-cloud/list-pages/internal/index"
)

// Plugin handles filter values for one family of field types.
type Plugin interface {
	ID() string
	Weight() int
	FieldTypes() []string
	// NormalizeSubmittedValue returns the canonical values. Malformed values are
	// dropped and reported through an error wrapping ErrInvalidSubmittedValue;
	// the returned slice still holds every valid value.
	NormalizeSubmittedValue(raw []string) ([]string, error)
	// DescribeDefaultValues joins the display strings of stored values with ", ".
	DescribeDefaultValues(ctx context.Context, stored []string) string
	// DefaultValues returns the display string of each stored value.
	DefaultValues(ctx context.Context, stored []string) []string
	RenderDefaultValueInput(ctx context.Context, preset *domain.PresetFilter) FormElement
	// FieldValues extracts canonical values from stored field items.
	FieldValues(items []map[string]any) []string
}

// Binding is what a plugin instance works on.
type Binding struct {
	Facet index.Facet
	Field index.FieldDescriptor
	// Resolved is false when the facet's field does not exist on the list
	// source bundle; every operation then returns an empty result.
	Resolved   bool
	Storage    entity.Storage
	Processors *facet.Processors
}

// FormElement is a declarative description of an input element.
type FormElement struct {
	Type                string          `json:"type,omitempty"`
	Title               string          `json:"title,omitempty"`
	Options             []domain.Option `json:"options,omitempty"`
	EmptyOption         string          `json:"empty_option,omitempty"`
	DefaultValue        []string        `json:"default_value,omitempty"`
	Multiple            bool            `json:"multiple,omitempty"`
	MaxLength           int             `json:"maxlength,omitempty"`
	RequiredError       string          `json:"required_error,omitempty"`
	TargetType          string          `json:"target_type,omitempty"`
	SelectionHandler    string          `json:"selection_handler,omitempty"`
	SelectionSettings   map[string]any  `json:"selection_settings,omitempty"`
	LinkType            string          `json:"link_type,omitempty"`
	ProcessDefaultValue *bool           `json:"process_default_value,omitempty"`
}

// IsZero reports whether e describes no element.
func (e FormElement) IsZero() bool {
	return e.Type == ""
}

// base carries the definition and binding shared by every plugin.
type base struct {
	def     Definition
	binding Binding
}

func (b base) ID() string           { return b.def.ID }
func (b base) Weight() int          { return b.def.Weight }
func (b base) FieldTypes() []string { return b.def.FieldTypes }

func (b base) facetLabel() string {
	if b.binding.Facet.Label != "" {
		return b.binding.Facet.Label
	}
	return b.binding.Facet.ID
}

func (b base) requiredError() string {
	return fmt.Sprintf("%s field is required.", b.facetLabel())
}

func (b base) element(typ string, preset *domain.PresetFilter) FormElement {
	el := FormElement{Type: typ, Title: b.facetLabel()}
	if preset != nil && len(preset.Values) > 0 {
		el.DefaultValue = append([]string(nil), preset.Values...)
	}
	return el
}

// fieldValues reads column from each item.
func fieldValues(items []map[string]any, column string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		v, ok := item[column]
		if !ok || v == nil {
			continue
		}
		out = append(out, fmt.Sprint(v))
	}
	return out
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func invalid(value string, reason string) error {
	return fmt.Errorf("%q: %s: %w", value, reason, domain.ErrInvalidSubmittedValue)
}
