package firestore

import (
	"fmt"

	"cloud.google.com/go/firestore"

	"github.com/flume-app/flume-backend/internal/docstore"
)

// encodeValue swaps docstore sentinels for their Firestore equivalents.
func encodeValue(v any) any {
	switch {
	case docstore.IsDelete(v):
		return firestore.Delete
	case docstore.IsServerTimestamp(v):
		return firestore.ServerTimestamp
	}
	switch t := v.(type) {
	case docstore.ArrayOp:
		if t.Union {
			return firestore.ArrayUnion(t.Values...)
		}
		return firestore.ArrayRemove(t.Values...)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = encodeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = encodeValue(val)
		}
		return out
	default:
		return v
	}
}

// encodeFields prepares a document body. Firestore rejects Delete outside
// a merge, so without merge those keys are dropped.
func encodeFields(fields map[string]any, merge bool) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if !merge && docstore.IsDelete(v) {
			continue
		}
		out[k] = encodeValue(v)
	}
	return out
}

// encodeUpdates uses FieldPath rather than dotted strings so user ids
// containing dots or slashes address a single map key.
func encodeUpdates(updates []docstore.Update) ([]firestore.Update, error) {
	out := make([]firestore.Update, 0, len(updates))
	for _, u := range updates {
		if len(u.Path) == 0 {
			return nil, fmt.Errorf("%w: empty update path", docstore.ErrInvalidQuery)
		}
		out = append(out, firestore.Update{
			FieldPath: firestore.FieldPath(append([]string(nil), u.Path...)),
			Value:     encodeValue(u.Value),
		})
	}
	return out, nil
}
