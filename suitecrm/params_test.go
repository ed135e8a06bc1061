package suitecrm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEncodeParams(t *testing.T) {
	tests := []struct {
		name     string
		params   []Param
		expected string
	}{
		{
			name:     "empty",
			params:   nil,
			expected: "",
		},
		{
			name: "order is preserved",
			params: []Param{
				{Key: "b", Value: "2"},
				{Key: "a", Value: "1"},
			},
			expected: "b=2&a=1",
		},
		{
			name: "values are escaped",
			params: []Param{
				{Key: "filter[name][eq]", Value: "a b&c"},
			},
			expected: "filter%5Bname%5D%5Beq%5D=a+b%26c",
		},
		{
			name: "array values expand to repeated pairs",
			params: []Param{
				{Key: "modules", Values: []string{"Calls", "Meetings"}},
				{Key: "limit", Value: "5"},
			},
			expected: "modules%5B%5D=Calls&modules%5B%5D=Meetings&limit=5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, encodeParams(tt.params))
		})
	}
}

func TestJoinFilters(t *testing.T) {
	filters := []string{
		"filter[date_willexecute][gt]=600",
		"filter[date_willexecute][lt]=87200",
	}

	expected := "filter[date_willexecute][gt]=600" +
		"&filter[operator]=and&" +
		"filter[date_willexecute][lt]=87200"

	assert.Equal(t, expected, joinFilters(filters))
	assert.Equal(t, "filter[is_read][eq]=0", joinFilters([]string{"filter[is_read][eq]=0"}))
	assert.Equal(t, "", joinFilters(nil))
}

func TestRedactParams(t *testing.T) {
	params := []Param{
		{Key: "client_id", Value: "public-id"},
		{Key: "client_secret", Value: "s3cret"},
		{Key: "username", Value: "bob"},
		{Key: "password", Value: "hunter2"},
		{Key: "refresh_token", Value: "rt-123"},
	}

	msg := `request failed: client_id=public-id&client_secret=s3cret&username=bob&password=hunter2&refresh_token=rt-123`
	got := redactParams(msg, params)

	assert.NotContains(t, got, "s3cret")
	assert.NotContains(t, got, "hunter2")
	assert.NotContains(t, got, "rt-123")
	assert.Contains(t, got, "public-id")
	assert.Contains(t, got, "bob")
	assert.Contains(t, got, "********")
}

func TestPaginate(t *testing.T) {
	hits := []SearchHit{
		{DisplayName: "a"},
		{DisplayName: "b"},
		{DisplayName: "c"},
		{DisplayName: "d"},
	}

	tests := []struct {
		name     string
		offset   int
		limit    int
		expected []string
	}{
		{name: "full slice with zero limit", offset: 0, limit: 0, expected: []string{"a", "b", "c", "d"}},
		{name: "offset and limit", offset: 1, limit: 2, expected: []string{"b", "c"}},
		{name: "limit beyond end", offset: 3, limit: 5, expected: []string{"d"}},
		{name: "offset beyond end", offset: 10, limit: 2, expected: []string{}},
		{name: "negative offset clamps to zero", offset: -2, limit: 1, expected: []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := paginate(hits, tt.offset, tt.limit)

			names := make([]string, 0, len(got))
			for _, h := range got {
				names = append(names, h.DisplayName)
			}

			assert.Equal(t, tt.expected, names)
		})
	}
}

func TestNewQueryMatcher(t *testing.T) {
	t.Run("case insensitive regexp", func(t *testing.T) {
		match := newQueryMatcher("acme")

		assert.True(t, match("Acme Corp"))
		assert.True(t, match("MEGA ACME"))
		assert.False(t, match("Bob Smith"))
	})

	t.Run("invalid regexp falls back to substring", func(t *testing.T) {
		match := newQueryMatcher("a[b")

		assert.True(t, match("xx A[B yy"))
		assert.False(t, match("ab"))
	})
}

func TestAttrHelpers(t *testing.T) {
	attrs := map[string]any{
		"str":    "hello",
		"num":    float64(42),
		"numstr": "17",
		"bad":    []any{"x"},
	}

	assert.Equal(t, "hello", attrString(attrs, "str"))
	assert.Equal(t, "42", attrString(attrs, "num"))
	assert.Equal(t, "", attrString(attrs, "bad"))
	assert.Equal(t, "", attrString(attrs, "missing"))

	assert.Equal(t, int64(42), attrInt64(attrs, "num"))
	assert.Equal(t, int64(17), attrInt64(attrs, "numstr"))
	assert.Equal(t, int64(0), attrInt64(attrs, "str"))
	assert.Equal(t, int64(0), attrInt64(attrs, "missing"))
}

func TestParseDate(t *testing.T) {
	got, ok := parseDate("2024-01-15 10:30:00")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC), got)

	_, ok = parseDate("15/01/2024")
	assert.False(t, ok)

	_, ok = parseDate("")
	assert.False(t, ok)
}
