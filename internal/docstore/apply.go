package docstore

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"
)

// ApplyUpdates mutates fields in place. Backends that do read-modify-write
// inside their own transaction share this so all of them agree on the
// semantics of the sentinels.
func ApplyUpdates(fields map[string]any, updates []Update, now time.Time) error {
	for _, u := range updates {
		if len(u.Path) == 0 {
			return fmt.Errorf("%w: empty update path", ErrInvalidQuery)
		}
		parent := fields
		for _, key := range u.Path[:len(u.Path)-1] {
			next, ok := parent[key].(map[string]any)
			if !ok {
				if IsDelete(u.Value) {
					parent = nil
					break
				}
				next = map[string]any{}
				parent[key] = next
			}
			parent = next
		}
		if parent == nil {
			continue
		}
		leaf := u.Path[len(u.Path)-1]

		switch v := u.Value.(type) {
		case deleteField:
			delete(parent, leaf)
		case serverTimestamp:
			parent[leaf] = now
		case ArrayOp:
			current, _ := parent[leaf].([]any)
			if v.Union {
				parent[leaf] = unionValues(current, v.Values)
			} else {
				parent[leaf] = removeValues(current, v.Values)
			}
		default:
			parent[leaf] = ResolveValue(u.Value, now)
		}
	}
	return nil
}

// ResolveValue replaces ServerTimestamp sentinels nested in v and
// normalizes typed slices and maps to []any / map[string]any.
func ResolveValue(v any, now time.Time) any {
	switch t := v.(type) {
	case serverTimestamp:
		return now
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = ResolveValue(val, now)
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = val
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = val
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = ResolveValue(val, now)
		}
		return out
	default:
		return v
	}
}

// ResolveFields applies ResolveValue to every top-level field.
func ResolveFields(fields map[string]any, now time.Time) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if IsDelete(v) {
			continue
		}
		out[k] = ResolveValue(v, now)
	}
	return out
}

func unionValues(current, values []any) []any {
	out := append([]any(nil), current...)
	for _, v := range values {
		if !containsValue(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func removeValues(current, values []any) []any {
	out := make([]any, 0, len(current))
	for _, c := range current {
		if !containsValue(values, c) {
			out = append(out, c)
		}
	}
	return out
}

func containsValue(list []any, v any) bool {
	for _, item := range list {
		if EqualValues(item, v) {
			return true
		}
	}
	return false
}

// EqualValues compares decoded field values, treating all numeric kinds as
// float64.
func EqualValues(a, b any) bool {
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum || bNum {
		return aNum && bNum && fa == fb
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return reflect.DeepEqual(a, b)
}

// Matches reports whether doc satisfies every filter of q.
func Matches(doc Document, q Query) bool {
	for _, f := range q.Filters {
		v, ok := doc.Fields[f.Field]
		if !ok || !EqualValues(v, f.Value) {
			return false
		}
	}
	return true
}

// SortDocuments orders docs by q.OrderBy, falling back to id order. Missing
// values sort first in ascending order.
func SortDocuments(docs []Document, q Query) {
	sort.SliceStable(docs, func(i, j int) bool {
		if q.OrderBy == "" {
			return docs[i].ID < docs[j].ID
		}
		c := compareValues(docs[i].Fields[q.OrderBy], docs[j].Fields[q.OrderBy])
		if c == 0 {
			c = strings.Compare(docs[i].ID, docs[j].ID)
		}
		if q.Desc {
			return c > 0
		}
		return c < 0
	})
}

func compareValues(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	if ta, ok := AsTime(a); ok {
		if tb, ok := AsTime(b); ok {
			return ta.Compare(tb)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// CloneFields deep-copies a decoded field map.
func CloneFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneFields(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
