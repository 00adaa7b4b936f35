package docstore

import "time"

// String returns the string field key, or "" when absent or not a string.
func (d Document) String(key string) string {
	s, _ := d.Fields[key].(string)
	return s
}

// Float returns a numeric field as float64, or 0.
func (d Document) Float(key string) float64 {
	f, _ := toFloat(d.Fields[key])
	return f
}

// Number reports a numeric field and whether it was numeric at all.
func (d Document) Number(key string) (float64, bool) {
	return toFloat(d.Fields[key])
}

// Bool returns a boolean field, or false.
func (d Document) Bool(key string) bool {
	b, _ := d.Fields[key].(bool)
	return b
}

// Has reports whether key is present.
func (d Document) Has(key string) bool {
	_, ok := d.Fields[key]
	return ok
}

// Time returns a timestamp field; string values in RFC 3339 form are
// accepted to cover JSON-backed stores.
func (d Document) Time(key string) (time.Time, bool) {
	return AsTime(d.Fields[key])
}

// Strings returns the string elements of an array field.
func (d Document) Strings(key string) []string {
	out := []string{}
	switch list := d.Fields[key].(type) {
	case []any:
		for _, v := range list {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
	case []string:
		out = append(out, list...)
	}
	return out
}

// StringMap returns the string values of a map field.
func (d Document) StringMap(key string) map[string]string {
	out := map[string]string{}
	switch m := d.Fields[key].(type) {
	case map[string]any:
		for k, v := range m {
			if s, ok := v.(string); ok {
				out[k] = s
			}
		}
	case map[string]string:
		for k, v := range m {
			out[k] = v
		}
	}
	return out
}

// AsTime converts time.Time and RFC 3339 strings.
func AsTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	}
	return time.Time{}, false
}
