// Package facet implements facet query types: how an active facet selection
// alters a query and how raw value counts become facet results.
package facet

import (
	"slices"
	"time"
)

// Result is one selectable entry of a facet.
type Result struct {
	RawValue     string `json:"raw_value"`
	DisplayValue string `json:"display_value"`
	Count        int64  `json:"count"`
	Active       bool   `json:"active"`
}

// Clock supplies the current time. A request resolves it once and passes the
// same instant to every query type.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now returns f().
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

// FixedClock always returns t.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// MarkActive flags the results whose raw value is among active.
func MarkActive(results []Result, active []string) []Result {
	for i := range results {
		results[i].Active = slices.Contains(active, results[i].RawValue)
	}
	return results
}

