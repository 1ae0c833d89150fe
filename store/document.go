package store

// Document is a loosely typed record. Exactly one field, "id", is
// mandatory and immutable after creation; everything else is
// collection-specific and typed only by convention at the call site.
type Document map[string]any

// ID returns the document's id, or "" when absent.
func (d Document) ID() string {
	id, _ := d["id"].(string)
	return id
}

// Clone returns a deep copy. Snapshots handed to readers are clones, so
// mutating a returned document never leaks into stored state.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	return Document(cloneValue(map[string]any(d)).(map[string]any))
}

// String returns the string value of a field, or "" when the field is
// absent or not a string.
func (d Document) String(field string) string {
	value, _ := d[field].(string)
	return value
}

// Number returns the numeric value of a field. Numbers decoded from stored
// JSON arrive as float64; numbers set in-process may be int or int64.
func (d Document) Number(field string) float64 {
	switch v := d[field].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// Strings returns a string-slice field, tolerating the []any shape that
// JSON decoding produces.
func (d Document) Strings(field string) []string {
	switch v := d[field].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, entry := range v {
			if s, ok := entry.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func cloneValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		cloned := make(map[string]any, len(v))
		for key, entry := range v {
			cloned[key] = cloneValue(entry)
		}
		return cloned
	case Document:
		return cloneValue(map[string]any(v))
	case []any:
		cloned := make([]any, len(v))
		for i, entry := range v {
			cloned[i] = cloneValue(entry)
		}
		return cloned
	case []string:
		cloned := make([]string, len(v))
		copy(cloned, v)
		return cloned
	default:
		return v
	}
}

func cloneAll(docs []Document) []Document {
	cloned := make([]Document, len(docs))
	for i, doc := range docs {
		cloned[i] = doc.Clone()
	}
	return cloned
}
