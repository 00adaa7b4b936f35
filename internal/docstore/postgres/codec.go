package postgres

import (
	"encoding/json"
	"time"
)

// timeLayout is fixed width in UTC so text comparison of two encoded times
// agrees with their chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func encodeFields(fields map[string]any) ([]byte, error) {
	return json.Marshal(toJSON(fields))
}

func encodeValue(v any) ([]byte, error) {
	return json.Marshal(toJSON(v))
}

func toJSON(v any) any {
	switch t := v.(type) {
	case time.Time:
		return t.UTC().Format(timeLayout)
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UTC().Format(timeLayout)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = toJSON(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = toJSON(val)
		}
		return out
	default:
		return v
	}
}

// decodeFields leaves timestamps as strings; docstore.Document.Time parses
// them on access.
func decodeFields(raw []byte) (map[string]any, error) {
	out := map[string]any{}
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
