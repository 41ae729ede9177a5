package index

import (
	"fmt"
	"os"
	"slices"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Definitions is the decoded and validated content of a sources file.
type Definitions struct {
	EntityTypes []EntityType
	Indexes     []*Index
}

type fileDefinitions struct {
	EntityTypes []fileEntityType `yaml:"entity_types"`
	Indexes     []fileIndex      `yaml:"indexes"`
}

type fileEntityType struct {
	ID      string `yaml:"id"`
	Label   string `yaml:"label"`
	Bundles []struct {
		ID    string `yaml:"id"`
		Label string `yaml:"label"`
	} `yaml:"bundles"`
}

type fileIndex struct {
	ID            string           `yaml:"id"`
	Name          string           `yaml:"name"`
	Enabled       *bool            `yaml:"enabled"`
	ReadOnly      bool             `yaml:"read_only"`
	LanguageField string           `yaml:"language_field"`
	Datasources   []fileDatasource `yaml:"datasources"`
	Fields        []fileField      `yaml:"fields"`
	Facets        []fileFacet      `yaml:"facets"`
}

type fileDatasource struct {
	EntityType string   `yaml:"entity_type"`
	BundleKey  string   `yaml:"bundle_key"`
	LabelField string   `yaml:"label_field"`
	URLPattern string   `yaml:"url_pattern"`
	Bundles    []string `yaml:"bundles"`
}

type fileField struct {
	ID           string         `yaml:"id"`
	Label        string         `yaml:"label"`
	Type         string         `yaml:"type"`
	PropertyPath string         `yaml:"property_path"`
	Datasource   string         `yaml:"datasource"`
	Bundles      []string       `yaml:"bundles"`
	Settings     map[string]any `yaml:"settings"`
}

type fileFacet struct {
	ID            string            `yaml:"id"`
	Label         string            `yaml:"label"`
	Field         string            `yaml:"field"`
	QueryType     string            `yaml:"query_type"`
	Widget        string            `yaml:"widget"`
	Processors    []ProcessorConfig `yaml:"processors"`
	EmptyBehavior EmptyBehavior     `yaml:"empty_behavior"`
	Settings      map[string]any    `yaml:"settings"`
}

// LoadFile reads and validates a sources file.
func LoadFile(path string) (*Definitions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sources file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes sources YAML. Field and facet settings are decoded into their
// typed records here, so unknown or mistyped settings fail at load time.
func Parse(data []byte) (*Definitions, error) {
	var raw fileDefinitions
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse sources: %w", err)
	}

	defs := &Definitions{
		EntityTypes: make([]EntityType, 0, len(raw.EntityTypes)),
		Indexes:     make([]*Index, 0, len(raw.Indexes)),
	}

	for _, et := range raw.EntityTypes {
		entityType := EntityType{ID: et.ID, Label: et.Label}
		if entityType.Label == "" {
			entityType.Label = et.ID
		}
		for _, b := range et.Bundles {
			label := b.Label
			if label == "" {
				label = b.ID
			}
			entityType.Bundles = append(entityType.Bundles, Bundle{ID: b.ID, Label: label})
		}
		defs.EntityTypes = append(defs.EntityTypes, entityType)
	}

	for _, fi := range raw.Indexes {
		idx, err := buildIndex(fi)
		if err != nil {
			return nil, err
		}
		defs.Indexes = append(defs.Indexes, idx)
	}

	if err := defs.Validate(); err != nil {
		return nil, err
	}
	return defs, nil
}

func buildIndex(fi fileIndex) (*Index, error) {
	idx := &Index{
		ID:            fi.ID,
		Name:          fi.Name,
		Enabled:       fi.Enabled == nil || *fi.Enabled,
		ReadOnly:      fi.ReadOnly,
		LanguageField: fi.LanguageField,
		Fields:        make(map[string]FieldDescriptor, len(fi.Fields)),
		Facets:        make([]Facet, 0, len(fi.Facets)),
	}
	if idx.Name == "" {
		idx.Name = fi.ID
	}
	if idx.LanguageField == "" {
		idx.LanguageField = "langcode"
	}

	for _, ds := range fi.Datasources {
		datasource := Datasource(ds)
		if datasource.BundleKey == "" {
			datasource.BundleKey = "type"
		}
		if datasource.LabelField == "" {
			datasource.LabelField = "title"
		}
		idx.Datasources = append(idx.Datasources, datasource)
	}

	for _, ff := range fi.Fields {
		var settings FieldSettings
		if err := decodeSettings(ff.Settings, &settings); err != nil {
			return nil, fmt.Errorf("index %s field %s settings: %w", fi.ID, ff.ID, err)
		}
		path := ff.PropertyPath
		if path == "" {
			path = ff.ID
		}
		idx.Fields[ff.ID] = FieldDescriptor{
			ID:           ff.ID,
			Label:        ff.Label,
			Type:         ff.Type,
			PropertyPath: path,
			Datasource:   ff.Datasource,
			Bundles:      ff.Bundles,
			Settings:     settings,
		}
	}

	for _, fc := range fi.Facets {
		var settings FacetSettings
		if err := decodeSettings(fc.Settings, &settings); err != nil {
			return nil, fmt.Errorf("index %s facet %s settings: %w", fi.ID, fc.ID, err)
		}
		queryType := fc.QueryType
		if queryType == "" {
			queryType = "string"
		}
		idx.Facets = append(idx.Facets, Facet{
			ID:              fc.ID,
			Label:           fc.Label,
			FieldIdentifier: fc.Field,
			QueryType:       queryType,
			Widget:          fc.Widget,
			Processors:      fc.Processors,
			EmptyBehavior:   fc.EmptyBehavior,
			Settings:        settings,
		})
	}

	return idx, nil
}

func decodeSettings(in map[string]any, out any) error {
	if len(in) == 0 {
		return nil
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(in)
}

// Validate checks cross references between indexes, fields and facets.
func (d *Definitions) Validate() error {
	seen := make(map[string]struct{}, len(d.Indexes))
	for _, idx := range d.Indexes {
		if idx.ID == "" {
			return fmt.Errorf("index without id")
		}
		if _, dup := seen[idx.ID]; dup {
			return fmt.Errorf("duplicate index id %q", idx.ID)
		}
		seen[idx.ID] = struct{}{}

		if len(idx.Datasources) == 0 {
			return fmt.Errorf("index %s: at least one datasource is required", idx.ID)
		}
		for _, ds := range idx.Datasources {
			if ds.EntityType == "" {
				return fmt.Errorf("index %s: datasource without entity_type", idx.ID)
			}
		}

		for id, f := range idx.Fields {
			if f.Type == "" {
				return fmt.Errorf("index %s field %s: type is required", idx.ID, id)
			}
			if f.Datasource != "" {
				if _, ok := idx.Datasource(f.Datasource); !ok {
					return fmt.Errorf("index %s field %s: unknown datasource %q", idx.ID, id, f.Datasource)
				}
			}
			switch f.Settings.LinkType {
			case "", LinkTypeInternal, LinkTypeExternal, LinkTypeGeneric:
			default:
				return fmt.Errorf("index %s field %s: invalid link_type %q", idx.ID, id, f.Settings.LinkType)
			}
			if isReferenceType(f.Type) && f.Settings.TargetType == "" {
				return fmt.Errorf("index %s field %s: target_type is required", idx.ID, id)
			}
		}

		facetIDs := make(map[string]struct{}, len(idx.Facets))
		for _, facet := range idx.Facets {
			if facet.ID == "" {
				return fmt.Errorf("index %s: facet without id", idx.ID)
			}
			if _, dup := facetIDs[facet.ID]; dup {
				return fmt.Errorf("index %s: duplicate facet id %q", idx.ID, facet.ID)
			}
			facetIDs[facet.ID] = struct{}{}
			if _, ok := idx.Fields[facet.FieldIdentifier]; !ok {
				return fmt.Errorf("index %s facet %s: unknown field %q", idx.ID, facet.ID, facet.FieldIdentifier)
			}
		}
	}
	return d.checkSourceOverlap()
}

// checkSourceOverlap rejects an entity type and bundle served by more than
// one enabled datasource. An empty bundle list claims every bundle.
func (d *Definitions) checkSourceOverlap() error {
	type claim struct {
		index   string
		bundles []string
	}
	claims := make(map[string][]claim)
	for _, idx := range d.Indexes {
		if !idx.Enabled {
			continue
		}
		for _, ds := range idx.Datasources {
			for _, c := range claims[ds.EntityType] {
				if bundle, ok := sharedBundle(c.bundles, ds.Bundles); ok {
					return fmt.Errorf("entity type %s bundle %s is served by both index %s and index %s",
						ds.EntityType, bundle, c.index, idx.ID)
				}
			}
			claims[ds.EntityType] = append(claims[ds.EntityType], claim{index: idx.ID, bundles: ds.Bundles})
		}
	}
	return nil
}

func sharedBundle(a, b []string) (string, bool) {
	switch {
	case len(a) == 0 && len(b) == 0:
		return "*", true
	case len(a) == 0:
		return b[0], true
	case len(b) == 0:
		return a[0], true
	}
	for _, bundle := range a {
		if slices.Contains(b, bundle) {
			return bundle, true
		}
	}
	return "", false
}

func isReferenceType(t string) bool {
	return t == FieldTypeEntityReference || t == FieldTypeEntityRevisions || t == FieldTypeSkosReference
}
