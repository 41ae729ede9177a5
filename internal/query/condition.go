package query

import (
	"fmt"
	"strings"
)

// Conjunction joins the members of a condition group.
type Conjunction string

const (
	And Conjunction = "AND"
	Or  Conjunction = "OR"
)

// Operator compares a field against a value.
type Operator string

const (
	OpEqual        Operator = "="
	OpNotEqual     Operator = "<>"
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpIn           Operator = "IN"
	OpNotIn        Operator = "NOT IN"
)

// FacetTagPrefix marks a group as the filter of one facet.
const FacetTagPrefix = "facet:"

// FacetTag returns the tag scoping a condition group to the facet on field.
func FacetTag(field string) string {
	return FacetTagPrefix + field
}

// Condition is a single field comparison.
type Condition struct {
	Field    string
	Value    any
	Operator Operator
}

// ConditionGroup is a tagged set of conditions and nested groups.
type ConditionGroup struct {
	conjunction Conjunction
	tags        []string
	conditions  []Condition
	groups      []*ConditionGroup
}

// NewConditionGroup creates a group. An unknown conjunction falls back to AND.
func NewConditionGroup(conjunction Conjunction, tags ...string) *ConditionGroup {
	c := Conjunction(strings.ToUpper(string(conjunction)))
	if c != Or {
		c = And
	}
	return &ConditionGroup{conjunction: c, tags: tags}
}

// AddCondition appends a comparison to the group.
func (g *ConditionGroup) AddCondition(field string, value any, op Operator) *ConditionGroup {
	if op == "" {
		op = OpEqual
	}
	g.conditions = append(g.conditions, Condition{Field: field, Value: value, Operator: op})
	return g
}

// AddConditionGroup nests another group.
func (g *ConditionGroup) AddConditionGroup(child *ConditionGroup) *ConditionGroup {
	if child != nil {
		g.groups = append(g.groups, child)
	}
	return g
}

// Conjunction returns the group's conjunction.
func (g *ConditionGroup) Conjunction() Conjunction { return g.conjunction }

// Conditions returns the direct conditions of the group.
func (g *ConditionGroup) Conditions() []Condition { return g.conditions }

// Groups returns the nested groups.
func (g *ConditionGroup) Groups() []*ConditionGroup { return g.groups }

// Tags returns the group's tags.
func (g *ConditionGroup) Tags() []string { return g.tags }

// HasTag reports whether the group carries tag.
func (g *ConditionGroup) HasTag(tag string) bool {
	for _, t := range g.tags {
		if t == tag {
			return true
		}
	}
	return false
}

// FacetField returns the field of the first facet tag, if any.
func (g *ConditionGroup) FacetField() (string, bool) {
	for _, t := range g.tags {
		if field, ok := strings.CutPrefix(t, FacetTagPrefix); ok {
			return field, true
		}
	}
	return "", false
}

// IsEmpty reports whether the group holds no conditions at any depth.
func (g *ConditionGroup) IsEmpty() bool {
	if len(g.conditions) > 0 {
		return false
	}
	for _, child := range g.groups {
		if !child.IsEmpty() {
			return false
		}
	}
	return true
}

func (c Condition) String() string {
	return fmt.Sprintf("%s %s %v", c.Field, c.Operator, c.Value)
}
