package main

import "encoding/json"

// decodeModel keeps JSON numbers as int when they are integral, matching
// the number model the expression engine computes with.
func decodeModel(raw []byte, model *map[string]interface{}) error {
	if err := json.Unmarshal(raw, model); err != nil {
		return err
	}
	*model = normalizeMap(*model)
	return nil
}

func normalizeMap(m map[string]interface{}) map[string]interface{} {
	for k, v := range m {
		m[k] = normalize(v)
	}
	return m
}

func normalize(v interface{}) interface{} {
	switch val := v.(type) {
	case float64:
		if val == float64(int(val)) {
			return int(val)
		}
	case map[string]interface{}:
		return normalizeMap(val)
	case []interface{}:
		for i, el := range val {
			val[i] = normalize(el)
		}
	}
	return v
}
