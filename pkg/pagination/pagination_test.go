package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromRequest(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Params
	}{
		{"defaults", "", Params{Page: 1, PerPage: 20, Offset: 0}},
		{"explicit", "?page=3&per_page=10", Params{Page: 3, PerPage: 10, Offset: 20}},
		{"garbage", "?page=abc&per_page=xyz", Params{Page: 1, PerPage: 20, Offset: 0}},
		{"negative page", "?page=-2", Params{Page: 1, PerPage: 20, Offset: 0}},
		{"per_page too large", "?per_page=500", Params{Page: 1, PerPage: 20, Offset: 0}},
		{"per_page at max", "?page=2&per_page=100", Params{Page: 2, PerPage: 100, Offset: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/v1/products"+tt.query, nil)
			assert.Equal(t, tt.want, FromRequest(r))
		})
	}
}

func TestWindow(t *testing.T) {
	start, end := New(2, 5).Window(12)
	assert.Equal(t, 5, start)
	assert.Equal(t, 10, end)

	start, end = New(3, 5).Window(12)
	assert.Equal(t, 10, start)
	assert.Equal(t, 12, end)

	start, end = New(9, 5).Window(12)
	assert.Equal(t, 12, start)
	assert.Equal(t, 12, end)
}

func TestNewResult(t *testing.T) {
	r := NewResult([]string{"a", "b"}, 5, New(1, 2))
	assert.Equal(t, 3, r.TotalPages)
	assert.True(t, r.HasNext)
	assert.False(t, r.HasPrev)

	last := NewResult([]string{"e"}, 5, New(3, 2))
	assert.False(t, last.HasNext)
	assert.True(t, last.HasPrev)
}

func TestNewResult_EmptyItemsEncodeAsArray(t *testing.T) {
	r := NewResult[int](nil, 0, New(1, 20))
	assert.NotNil(t, r.Items)
	assert.Equal(t, 0, r.TotalPages)
	assert.False(t, r.HasNext)
}
