// Package index describes the search indexes that back list pages: which entity
// types and bundles each index serves, its typed field descriptors and its facets.
package index

import "slices"

// Field types understood by the list page layer.
const (
	FieldTypeString          = "string"
	FieldTypeKeyword         = "keyword"
	FieldTypeText            = "text"
	FieldTypeBoolean         = "boolean"
	FieldTypeDate            = "date"
	FieldTypeInteger         = "integer"
	FieldTypeLong            = "long"
	FieldTypeFloat           = "float"
	FieldTypeDouble          = "double"
	FieldTypeEntityReference = "entity_reference"
	FieldTypeEntityRevisions = "entity_reference_revisions"
	FieldTypeSkosReference   = "skos_concept_entity_reference"
	FieldTypeLink            = "link"
)

// Link types of link fields.
const (
	LinkTypeInternal = "internal"
	LinkTypeExternal = "external"
	LinkTypeGeneric  = "generic"
)

// facetCapableTypes are the field types that can be exposed as filters.
var facetCapableTypes = map[string]struct{}{
	FieldTypeString:          {},
	FieldTypeKeyword:         {},
	FieldTypeBoolean:         {},
	FieldTypeDate:            {},
	FieldTypeInteger:         {},
	FieldTypeLong:            {},
	FieldTypeFloat:           {},
	FieldTypeDouble:          {},
	FieldTypeEntityReference: {},
	FieldTypeEntityRevisions: {},
	FieldTypeSkosReference:   {},
	FieldTypeLink:            {},
}

// IsFacetCapable reports whether fields of type t can back a facet.
func IsFacetCapable(t string) bool {
	_, ok := facetCapableTypes[t]
	return ok
}

// FieldSettings are the named optional settings of a field.
type FieldSettings struct {
	TargetType      string         `mapstructure:"target_type"`
	Handler         string         `mapstructure:"handler"`
	HandlerSettings map[string]any `mapstructure:"handler_settings"`
	LinkType        string         `mapstructure:"link_type"`
}

// FieldDescriptor is an indexed field.
type FieldDescriptor struct {
	ID           string
	Label        string
	Type         string
	PropertyPath string
	// Datasource is the entity type the field belongs to; empty means every datasource.
	Datasource string
	// Bundles limits the field to some bundles of the datasource; empty means all.
	Bundles  []string
	Settings FieldSettings
}

// AppliesTo reports whether the field exists on the given entity type and bundle.
func (f FieldDescriptor) AppliesTo(entityType, bundle string) bool {
	if f.Datasource != "" && f.Datasource != entityType {
		return false
	}
	return len(f.Bundles) == 0 || slices.Contains(f.Bundles, bundle)
}

// FacetSettings are the named optional settings of a facet.
type FacetSettings struct {
	Operator      string `mapstructure:"operator"`
	Size          int    `mapstructure:"size"`
	StrictStatus  bool   `mapstructure:"strict_status"`
	PastLabel     string `mapstructure:"past_label"`
	UpcomingLabel string `mapstructure:"upcoming_label"`
	OnLabel       string `mapstructure:"on_label"`
	OffLabel      string `mapstructure:"off_label"`
}

// ProcessorConfig enables a facet build processor.
type ProcessorConfig struct {
	ID     string `yaml:"id"`
	Weight int    `yaml:"weight"`
}

// EmptyBehavior describes what a facet shows when it has no results.
type EmptyBehavior struct {
	Behavior string `yaml:"behavior" json:"behavior"`
	Text     string `yaml:"text"     json:"text,omitempty"`
}

// Facet is a countable filter dimension over one indexed field.
type Facet struct {
	ID              string
	Label           string
	FieldIdentifier string
	QueryType       string
	// Widget overrides the filter field plugin chosen by field type.
	Widget        string
	Processors    []ProcessorConfig
	EmptyBehavior EmptyBehavior
	Settings      FacetSettings
}

// Bundle is a selectable bundle of an entity type.
type Bundle struct {
	ID    string
	Label string
}

// EntityType is a content entity type with its bundles.
type EntityType struct {
	ID      string
	Label   string
	Bundles []Bundle
}

// Datasource is the entity type an index holds, and which of its bundles.
type Datasource struct {
	EntityType string
	BundleKey  string
	LabelField string
	URLPattern string
	// Bundles selected for indexing; empty means all bundles of the entity type.
	Bundles []string
}

// Includes reports whether bundle is indexed by the datasource.
func (d Datasource) Includes(bundle string) bool {
	return len(d.Bundles) == 0 || slices.Contains(d.Bundles, bundle)
}

// Index is a configured search index. Instances are shared and read-only.
type Index struct {
	ID            string
	Name          string
	Enabled       bool
	ReadOnly      bool
	LanguageField string
	Datasources   []Datasource
	Fields        map[string]FieldDescriptor
	Facets        []Facet
}

// Datasource returns the datasource of entityType.
func (i *Index) Datasource(entityType string) (Datasource, bool) {
	for _, ds := range i.Datasources {
		if ds.EntityType == entityType {
			return ds, true
		}
	}
	return Datasource{}, false
}

// Serves reports whether the index holds entityType documents of bundle.
func (i *Index) Serves(entityType, bundle string) bool {
	ds, ok := i.Datasource(entityType)
	return ok && ds.Includes(bundle)
}

// Field returns a field descriptor by id.
func (i *Index) Field(id string) (FieldDescriptor, bool) {
	f, ok := i.Fields[id]
	return f, ok
}

// Facet returns a facet by id.
func (i *Index) Facet(id string) (Facet, bool) {
	for _, f := range i.Facets {
		if f.ID == id {
			return f, true
		}
	}
	return Facet{}, false
}

// FieldFormats returns the value formats used when comparing fields, keyed by field id.
// Date fields are stored and compared as epoch seconds.
func (i *Index) FieldFormats() map[string]string {
	formats := make(map[string]string)
	for id, f := range i.Fields {
		if f.Type == FieldTypeDate {
			formats[id] = "epoch_second"
		}
	}
	return formats
}
