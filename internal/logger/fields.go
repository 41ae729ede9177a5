package logger

// List page field helpers, so every layer logs the same keys.

// OwnerID is the content entity owning a list page.
func OwnerID(id string) Field { return String("owner_id", id) }

// Source is a list source as entity_type:bundle.
func Source(entityType, bundle string) Field { return String("source", entityType+":"+bundle) }

// FacetID is a facet identifier.
func FacetID(id string) Field { return String("facet_id", id) }
