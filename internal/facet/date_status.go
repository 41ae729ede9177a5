package facet

import (
	"strconv"
	"strings"
	"time"

	"github.com/jonesrussell/north-cloud/list-pages/internal/index"
	"github.com/jonesrussell/north-cloud/list-pages/internal/query"
)

// DateStatusQueryTypeID is the id of the date status query type.
const DateStatusQueryTypeID = "date_status"

// Date status values.
const (
	StatusPast     = "past"
	StatusUpcoming = "coming"
)

const (
	defaultPastLabel     = "Past"
	defaultUpcomingLabel = "Upcoming"
)

// DateStatusQueryType splits a date field into past and upcoming items relative
// to the request time.
type DateStatusQueryType struct{}

// ID implements QueryType.
func (DateStatusQueryType) ID() string { return DateStatusQueryTypeID }

// Apply adds field <= now (newest first) for "past" and field > now (soonest
// first) for upcoming. Values other than "past" count as upcoming unless the
// facet sets strict_status.
func (DateStatusQueryType) Apply(q *query.Query, f index.Facet, active []string, now time.Time) {
	ts := now.UTC().Unix()
	q.RequestFacet(statusFacetRequest(q, f, ts))
	if len(active) == 0 {
		return
	}

	field := f.FieldIdentifier
	group := q.CreateConditionGroup(query.Or, query.FacetTag(field))

	for _, v := range active {
		switch {
		case v == StatusPast:
			group.AddCondition(field, ts, query.OpLessEqual)
			q.Sort(field, query.Desc)
		case v == StatusUpcoming || !f.Settings.StrictStatus:
			group.AddCondition(field, ts, query.OpGreater)
			q.Sort(field, query.Asc)
		}
	}

	if !group.IsEmpty() {
		q.AddConditionGroup(group)
	}
}

// statusFacetRequest counts the facet as two ranges split at now, so the
// counts do not depend on how many distinct dates the field holds.
func statusFacetRequest(q *query.Query, f index.Facet, ts int64) query.FacetRequest {
	req := facetRequest(q, f)
	split := strconv.FormatInt(ts+1, 10)
	req.Ranges = []query.Range{
		{Key: StatusPast, To: split},
		{Key: StatusUpcoming, From: split},
	}
	return req
}

// Build always returns [past, coming]. Range buckets keyed past or coming are
// taken as they are. Any other bucket is a date: its count goes to past when
// the date is at or before now, or is not a readable date, and to upcoming
// otherwise. Negative counts add nothing.
func (DateStatusQueryType) Build(f index.Facet, buckets []query.Bucket, now time.Time) []Result {
	ts := now.UTC().Unix()

	var past, upcoming int64
	for _, b := range buckets {
		if b.Count <= 0 {
			continue
		}
		switch b.Value {
		case StatusPast:
			past += b.Count
			continue
		case StatusUpcoming:
			upcoming += b.Count
			continue
		}
		if when, ok := parseTimestamp(b.Value); ok && when > ts {
			upcoming += b.Count
		} else {
			past += b.Count
		}
	}

	pastLabel := f.Settings.PastLabel
	if pastLabel == "" {
		pastLabel = defaultPastLabel
	}
	upcomingLabel := f.Settings.UpcomingLabel
	if upcomingLabel == "" {
		upcomingLabel = defaultUpcomingLabel
	}

	return []Result{
		{RawValue: StatusPast, DisplayValue: pastLabel, Count: past},
		{RawValue: StatusUpcoming, DisplayValue: upcomingLabel, Count: upcoming},
	}
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	time.DateOnly,
}

// parseTimestamp reads epoch seconds, RFC 3339 or a plain date, in UTC, at
// second resolution.
func parseTimestamp(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return secs, true
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return int64(f), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC().Unix(), true
		}
	}
	return 0, false
}
