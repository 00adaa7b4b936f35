package docstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyUpdates(t *testing.T) {
	now := time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)

	t.Run("nested path creates intermediate maps", func(t *testing.T) {
		fields := map[string]any{}
		require.NoError(t, ApplyUpdates(fields, []Update{Set("scout", "registered_volunteers", "u1")}, now))
		assert.Equal(t, map[string]any{"registered_volunteers": map[string]any{"u1": "scout"}}, fields)
	})

	t.Run("delete of missing nested key is a no-op", func(t *testing.T) {
		fields := map[string]any{"name": "p"}
		require.NoError(t, ApplyUpdates(fields, []Update{Set(Delete(), "registered_volunteers", "u1")}, now))
		assert.Equal(t, map[string]any{"name": "p"}, fields)
	})

	t.Run("server timestamp resolves to now", func(t *testing.T) {
		fields := map[string]any{}
		require.NoError(t, ApplyUpdates(fields, []Update{Set(ServerTimestamp(), "createdAt")}, now))
		assert.Equal(t, now, fields["createdAt"])
	})

	t.Run("array union deduplicates across numeric kinds", func(t *testing.T) {
		fields := map[string]any{"attendance": []any{"a", float64(1)}}
		require.NoError(t, ApplyUpdates(fields, []Update{Set(ArrayUnion("a", 1, "b"), "attendance")}, now))
		assert.Equal(t, []any{"a", float64(1), "b"}, fields["attendance"])
	})

	t.Run("array remove drops every occurrence", func(t *testing.T) {
		fields := map[string]any{"attendance": []any{"a", "b", "a"}}
		require.NoError(t, ApplyUpdates(fields, []Update{Set(ArrayRemove("a"), "attendance")}, now))
		assert.Equal(t, []any{"b"}, fields["attendance"])
	})

	t.Run("array union on missing field creates it", func(t *testing.T) {
		fields := map[string]any{}
		require.NoError(t, ApplyUpdates(fields, []Update{Set(ArrayUnion("x"), "participated")}, now))
		assert.Equal(t, []any{"x"}, fields["participated"])
	})

	t.Run("empty path is rejected", func(t *testing.T) {
		err := ApplyUpdates(map[string]any{}, []Update{{Value: 1}}, now)
		assert.ErrorIs(t, err, ErrInvalidQuery)
	})

	t.Run("typed slices are normalized", func(t *testing.T) {
		fields := map[string]any{}
		require.NoError(t, ApplyUpdates(fields, []Update{Set([]string{"a"}, "attendance")}, now))
		assert.Equal(t, []any{"a"}, fields["attendance"])
	})
}

func TestResolveFields(t *testing.T) {
	now := time.Date(2026, 5, 2, 9, 30, 0, 0, time.UTC)
	out := ResolveFields(map[string]any{
		"createdAt": ServerTimestamp(),
		"gone":      Delete(),
		"nested":    map[string]any{"at": ServerTimestamp()},
	}, now)

	assert.Equal(t, now, out["createdAt"])
	assert.NotContains(t, out, "gone")
	assert.Equal(t, map[string]any{"at": now}, out["nested"])
}

func TestMatchesAndSort(t *testing.T) {
	docs := []Document{
		{ID: "b", Fields: map[string]any{"requestor": "u1", "length_hours": 2.0}},
		{ID: "a", Fields: map[string]any{"requestor": "u1", "length_hours": int64(2)}},
		{ID: "c", Fields: map[string]any{"requestor": "u2", "length_hours": 1.5}},
	}

	q := Collection("TimeRequests").Where("requestor", "u1")
	var matched []Document
	for _, d := range docs {
		if Matches(d, q) {
			matched = append(matched, d)
		}
	}
	require.Len(t, matched, 2)

	q.OrderBy = "length_hours"
	SortDocuments(docs, q)
	assert.Equal(t, []string{"c", "a", "b"}, []string{docs[0].ID, docs[1].ID, docs[2].ID})

	q.Desc = true
	SortDocuments(docs, q)
	assert.Equal(t, []string{"b", "a", "c"}, []string{docs[0].ID, docs[1].ID, docs[2].ID})
}

func TestQueryWhereDoesNotAlias(t *testing.T) {
	base := Collection("Notifications").Where("userId", "u1")
	a := base.Where("read", false)
	b := base.Where("read", true)

	require.Len(t, a.Filters, 2)
	require.Len(t, b.Filters, 2)
	assert.Equal(t, false, a.Filters[1].Value)
	assert.Equal(t, true, b.Filters[1].Value)
}

func TestDocumentAccessors(t *testing.T) {
	when := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	d := Document{Fields: map[string]any{
		"name":     "Park",
		"hours":    int64(4),
		"approved": true,
		"date":     when.Format(time.RFC3339Nano),
		"list":     []any{"a", 1, "b"},
		"roles":    map[string]any{"u1": "scout", "u2": 3},
	}}

	assert.Equal(t, "Park", d.String("name"))
	assert.Equal(t, "", d.String("missing"))
	assert.Equal(t, 4.0, d.Float("hours"))
	assert.True(t, d.Bool("approved"))
	ts, ok := d.Time("date")
	require.True(t, ok)
	assert.True(t, when.Equal(ts))
	assert.Equal(t, []string{"a", "b"}, d.Strings("list"))
	assert.Equal(t, []string{}, d.Strings("missing"))
	assert.Equal(t, map[string]string{"u1": "scout"}, d.StringMap("roles"))
}
