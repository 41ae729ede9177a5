package filterfield

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"github.com/jonesrussell/north-cloud/list-pages/internal/domain"
	"github.com/jonesrussell/north-cloud/list-pages/internal/index"
)

// LinkID is the id of the link plugin.
const LinkID = "link"

const (
	linkMaxLength = 2048
	frontPage     = "<front>"
	nodeType      = "node"
)

// LinkDefinition handles link fields.
func LinkDefinition() Definition {
	return Definition{
		ID:         LinkID,
		Weight:     0,
		FieldTypes: []string{index.FieldTypeLink},
		New: func(def Definition, b Binding) Plugin {
			return &Link{base: base{def: def, binding: b}}
		},
	}
}

// Link stores link URIs (internal:, entity:, route: or external).
type Link struct {
	base
}

type submittedLink struct {
	Link string `json:"link"`
}

// NormalizeSubmittedValue turns each submitted value into a URI. A value may
// be the form layer's {"link": ...} object or the raw entered string.
func (p *Link) NormalizeSubmittedValue(raw []string) ([]string, error) {
	if !p.binding.Resolved {
		return nil, nil
	}

	linkType := p.binding.Field.Settings.LinkType
	out := make([]string, 0, len(raw))
	var errs []error
	for _, v := range nonEmpty(raw) {
		entered := v
		if strings.HasPrefix(v, "{") {
			var submitted submittedLink
			if err := json.Unmarshal([]byte(v), &submitted); err == nil {
				entered = strings.TrimSpace(submitted.Link)
			}
		}
		if entered == "" {
			continue
		}

		uri, err := userEnteredStringAsURI(entered, linkType)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, uri)
	}
	return out, errors.Join(errs...)
}

func userEnteredStringAsURI(s, linkType string) (string, error) {
	if linkType != index.LinkTypeExternal {
		if id, ok := autocompleteID(s); ok {
			return "entity:" + nodeType + "/" + id, nil
		}
	}

	switch {
	case strings.HasPrefix(s, frontPage):
		s = "internal:/" + strings.TrimPrefix(s, frontPage)
	case strings.HasPrefix(s, "/"), strings.HasPrefix(s, "?"), strings.HasPrefix(s, "#"):
		s = "internal:" + s
	}

	scheme := uriScheme(s)
	builtin := scheme == "internal" || scheme == "entity" || scheme == "route"
	switch {
	case scheme == "":
		return "", invalid(s, "manually entered paths should start with one of /, ? or #")
	case linkType == index.LinkTypeExternal && builtin:
		return "", invalid(s, "only external URLs are allowed")
	case linkType == index.LinkTypeInternal && !builtin:
		return "", invalid(s, "only internal links are allowed")
	}
	if !builtin {
		if _, err := url.Parse(s); err != nil {
			return "", invalid(s, "not a valid URL")
		}
	}
	return s, nil
}

// autocompleteID extracts the id of a "Label (id)" autocomplete value.
func autocompleteID(s string) (string, bool) {
	m := autocompleteInput.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// uriScheme returns the scheme of uri, or "" when it has none.
func uriScheme(uri string) string {
	scheme, _, ok := strings.Cut(uri, ":")
	if !ok || scheme == "" {
		return ""
	}
	for i, r := range scheme {
		letter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if letter || (i > 0 && ((r >= '0' && r <= '9') || r == '+' || r == '-' || r == '.')) {
			continue
		}
		return ""
	}
	return strings.ToLower(scheme)
}

// DisplayableURI renders a stored URI for humans: internal: loses its scheme
// and "/" becomes <front>, entity:node/ID becomes the node label when it
// loads, route: loses its prefix. Anything else is returned as is.
func (p *Link) DisplayableURI(ctx context.Context, uri string) string {
	switch uriScheme(uri) {
	case "internal":
		reference := strings.SplitN(uri, ":", 2)[1]
		path := reference
		if i := strings.IndexAny(path, "?#"); i >= 0 {
			path = path[:i]
		}
		if path == "/" {
			return frontPage + reference[1:]
		}
		return reference
	case "entity":
		entityType, id, ok := strings.Cut(strings.SplitN(uri, ":", 2)[1], "/")
		if !ok || entityType != nodeType || p.binding.Storage == nil {
			return uri
		}
		e, err := p.binding.Storage.Load(ctx, entityType, id)
		if err != nil || e == nil {
			return uri
		}
		return e.Label
	case "route":
		return strings.TrimPrefix(uri, "route:")
	default:
		return uri
	}
}

// DefaultValues returns the displayable form of each stored URI.
func (p *Link) DefaultValues(ctx context.Context, stored []string) []string {
	if !p.binding.Resolved {
		return nil
	}
	values := nonEmpty(stored)
	out := make([]string, 0, len(values))
	for _, uri := range values {
		out = append(out, p.DisplayableURI(ctx, uri))
	}
	return out
}

// DescribeDefaultValues joins the displayable URIs.
func (p *Link) DescribeDefaultValues(ctx context.Context, stored []string) string {
	return strings.Join(p.DefaultValues(ctx, stored), ", ")
}

// RenderDefaultValueInput returns a url input, or a node autocomplete for
// internal and generic link fields.
func (p *Link) RenderDefaultValueInput(ctx context.Context, preset *domain.PresetFilter) FormElement {
	if !p.binding.Resolved {
		return FormElement{}
	}
	linkType := p.binding.Field.Settings.LinkType

	el := p.element("url", preset)
	if preset != nil {
		el.DefaultValue = p.DefaultValues(ctx, preset.Values)
	}
	el.RequiredError = p.requiredError()
	el.MaxLength = linkMaxLength
	el.LinkType = linkType

	if linkType == index.LinkTypeInternal || linkType == index.LinkTypeGeneric {
		processDefault := false
		el.Type = "entity_autocomplete"
		el.TargetType = nodeType
		el.ProcessDefaultValue = &processDefault
	}
	return el
}

// FieldValues reads the uri column.
func (p *Link) FieldValues(items []map[string]any) []string {
	if !p.binding.Resolved {
		return nil
	}
	return fieldValues(items, "uri")
}
