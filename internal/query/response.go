package query

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID     string         `json:"_id"`
			Score  float64        `json:"_score"`
			Source map[string]any `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
	Aggregations map[string]json.RawMessage `json:"aggregations"`
}

type aggregationBucket struct {
	Key         any    `json:"key"`
	KeyAsString string `json:"key_as_string"`
	DocCount    int64  `json:"doc_count"`
}

type facetAggregation struct {
	Values struct {
		Buckets []aggregationBucket `json:"buckets"`
	} `json:"values"`
}

// ParseResponse decodes an Elasticsearch search response produced by a compiled query.
func ParseResponse(body io.Reader) (*ResultSet, error) {
	var resp searchResponse
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	rs := &ResultSet{
		Total:  resp.Hits.Total.Value,
		Items:  make([]Item, 0, len(resp.Hits.Hits)),
		Facets: make(map[string][]Bucket, len(resp.Aggregations)),
	}
	for _, hit := range resp.Hits.Hits {
		rs.Items = append(rs.Items, Item{ID: hit.ID, Score: hit.Score, Source: hit.Source})
	}

	for id, raw := range resp.Aggregations {
		var agg facetAggregation
		if err := json.Unmarshal(raw, &agg); err != nil {
			return nil, fmt.Errorf("decode facet %s: %w", id, err)
		}
		buckets := make([]Bucket, 0, len(agg.Values.Buckets))
		for _, b := range agg.Values.Buckets {
			buckets = append(buckets, Bucket{Value: bucketValue(b), Count: b.DocCount})
		}
		rs.Facets[id] = buckets
	}

	return rs, nil
}

func bucketValue(b aggregationBucket) string {
	if b.KeyAsString != "" {
		return b.KeyAsString
	}
	switch key := b.Key.(type) {
	case string:
		return key
	case float64:
		return strconv.FormatFloat(key, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(key)
	case nil:
		return ""
	default:
		return fmt.Sprint(key)
	}
}
