// Package corpus loads evaluation samples: plain-text clinical notes with
// optional gold annotation and prediction files next to them.
//
// Record files are JSON and tolerant by contract. A file holds either a bare
// array of extraction objects or an object with an "extractions" array; any
// other shape decodes to an empty, non-nil sequence instead of an error so a
// single malformed file can never abort an evaluation run.
package corpus

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/ahrav/clinicalextract/internal/domain"
)

// DecodeExtractions parses a record collection.
// The returned slice is never nil, which marks the set as available even
// when it is empty or the payload was malformed.
func DecodeExtractions(data []byte) []domain.Extraction {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return []domain.Extraction{}
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case map[string]any:
		if list, ok := v["extractions"].([]any); ok {
			items = list
		}
	}

	out := make([]domain.Extraction, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, decodeExtraction(obj))
	}
	return out
}

// decodeExtraction maps one loosely typed object onto a record.
// Missing or non-string class/text fields decode as empty strings; a blank
// text still counts toward the totals but can never produce a match.
func decodeExtraction(obj map[string]any) domain.Extraction {
	e := domain.Extraction{
		Class:   stringField(obj, "class"),
		Text:    stringField(obj, "text"),
		Snippet: stringField(obj, "snippet"),
		Start:   offsetField(obj, "start"),
		End:     offsetField(obj, "end"),
	}
	if attrs, ok := obj["attributes"].(map[string]any); ok && len(attrs) > 0 {
		e.Attributes = make(map[string]string, len(attrs))
		for k, v := range attrs {
			switch v := v.(type) {
			case string:
				e.Attributes[k] = v
			case nil:
				e.Attributes[k] = ""
			default:
				e.Attributes[k] = fmt.Sprint(v)
			}
		}
	}
	if e.Start != nil && e.End != nil && *e.End < *e.Start {
		e.Start, e.End = nil, nil
	}
	return e
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

// offsetField accepts non-negative integral JSON numbers only.
func offsetField(obj map[string]any, key string) *int {
	f, ok := obj[key].(float64)
	if !ok || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return nil
	}
	v := int(f)
	return &v
}
