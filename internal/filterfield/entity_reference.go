package filterfield

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"regexp"
	"strings"

	"github.com/jonesrussell/north-cloud/list-pages/internal/domain"
	"github.com/jonesrussell/north-cloud/list-pages/internal/index"
)

// EntityReferenceID is the id of the entity reference plugin.
const EntityReferenceID = "entity_reference"

const (
	autocompleteMaxLength  = 1024
	autocompleteMatchLimit = 10
)

// autocompleteInput matches "Label (id)" as produced by an autocomplete widget.
var autocompleteInput = regexp.MustCompile(`^.+\s\(([^()]+)\)$`)

// EntityReferenceDefinition handles reference fields.
func EntityReferenceDefinition() Definition {
	return Definition{
		ID:     EntityReferenceID,
		Weight: 100,
		FieldTypes: []string{
			index.FieldTypeEntityReference,
			index.FieldTypeEntityRevisions,
			index.FieldTypeSkosReference,
		},
		New: func(def Definition, b Binding) Plugin {
			return &EntityReference{base: base{def: def, binding: b}}
		},
	}
}

// EntityReference stores referenced entity ids.
type EntityReference struct {
	base
}

// ExtractEntityID returns the id from "Label (id)" or a bare id token.
func ExtractEntityID(input string) (string, bool) {
	input = strings.TrimSpace(input)
	if m := autocompleteInput.FindStringSubmatch(input); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	if input == "" || strings.ContainsAny(input, " \t()") {
		return "", false
	}
	return input, true
}

// NormalizeSubmittedValue extracts the entity ids.
func (p *EntityReference) NormalizeSubmittedValue(raw []string) ([]string, error) {
	if !p.binding.Resolved {
		return nil, nil
	}

	out := make([]string, 0, len(raw))
	var errs []error
	for _, v := range nonEmpty(raw) {
		id, ok := ExtractEntityID(v)
		if !ok {
			errs = append(errs, invalid(v, "no entity id"))
			continue
		}
		out = append(out, id)
	}
	return out, errors.Join(errs...)
}

func (p *EntityReference) load(ctx context.Context, stored []string) ([]*domain.Entity, error) {
	targetType := p.binding.Field.Settings.TargetType
	ids := nonEmpty(stored)
	if targetType == "" || len(ids) == 0 || p.binding.Storage == nil {
		return nil, nil
	}

	found, err := p.binding.Storage.LoadMultiple(ctx, targetType, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.Entity, 0, len(ids))
	for _, id := range ids {
		if e, ok := found[id]; ok && e != nil {
			out = append(out, e)
		}
	}
	return out, nil
}

// DefaultValues returns "Label (id)" for every stored id that still loads.
func (p *EntityReference) DefaultValues(ctx context.Context, stored []string) []string {
	if !p.binding.Resolved {
		return nil
	}
	entities, err := p.load(ctx, stored)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(entities))
	for _, e := range entities {
		out = append(out, fmt.Sprintf("%s (%s)", e.Label, e.ID))
	}
	return out
}

// DescribeDefaultValues joins the labels of the referenced entities, skipping
// empty ids and entities that no longer exist.
func (p *EntityReference) DescribeDefaultValues(ctx context.Context, stored []string) string {
	if !p.binding.Resolved {
		return ""
	}
	entities, err := p.load(ctx, stored)
	if err != nil {
		return ""
	}
	labels := make([]string, 0, len(entities))
	for _, e := range entities {
		labels = append(labels, e.Label)
	}
	return strings.Join(labels, ", ")
}

// RenderDefaultValueInput returns an entity autocomplete over the target type.
func (p *EntityReference) RenderDefaultValueInput(ctx context.Context, preset *domain.PresetFilter) FormElement {
	if !p.binding.Resolved {
		return FormElement{}
	}
	settings := p.binding.Field.Settings

	selection := maps.Clone(settings.HandlerSettings)
	if selection == nil {
		selection = make(map[string]any, 2)
	}
	selection["match_operator"] = "CONTAINS"
	selection["match_limit"] = autocompleteMatchLimit

	el := p.element("entity_autocomplete", preset)
	if preset != nil {
		el.DefaultValue = p.DefaultValues(ctx, preset.Values)
	}
	el.RequiredError = p.requiredError()
	el.MaxLength = autocompleteMaxLength
	el.TargetType = settings.TargetType
	el.SelectionHandler = settings.Handler
	el.SelectionSettings = selection
	return el
}

// FieldValues reads the target_id column.
func (p *EntityReference) FieldValues(items []map[string]any) []string {
	if !p.binding.Resolved {
		return nil
	}
	return fieldValues(items, "target_id")
}
