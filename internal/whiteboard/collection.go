package whiteboard

// collectionItems extracts the record list from a decoded list response.
// Endpoint generations disagree on the envelope: current endpoints return
// {"items": [...]}, older ones {"value": [...]}, and the oldest a bare array.
// Isolating the three-way check here keeps version skew out of call sites.
func collectionItems(raw any) []any {
	switch v := raw.(type) {
	case []any:
		return v
	case map[string]any:
		if items, ok := v["items"].([]any); ok {
			return items
		}
		if items, ok := v["value"].([]any); ok {
			return items
		}
	}
	return nil
}

// asObject narrows a decoded value to an object, returning an empty map for
// anything else.
func asObject(raw any) map[string]any {
	if m, ok := raw.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// stringField returns the first present string value among the given keys.
func stringField(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok {
			return s
		}
	}
	return ""
}

// numberField returns the value for key if it is a JSON number.
func numberField(m map[string]any, key string) (float64, bool) {
	n, ok := m[key].(float64)
	return n, ok
}
