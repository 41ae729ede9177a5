package domain

// Entity is an indexed content item as seen by the list page layer.
type Entity struct {
	ID         string         `json:"id"`
	EntityType string         `json:"entity_type"`
	Bundle     string         `json:"bundle"`
	Label      string         `json:"label"`
	Fields     map[string]any `json:"fields,omitempty"`
}

// Link is one entry of a list page link list.
type Link struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	URL        string `json:"url"`
	EntityType string `json:"entity_type"`
	Bundle     string `json:"bundle"`
}

// Option is a value/label pair offered to an administrator.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}
