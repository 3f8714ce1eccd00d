package medicine

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseListQuery_Defaults(t *testing.T) {
	q := ParseListQuery(url.Values{})

	assert.Equal(t, ListQuery{Sort: SortName, Page: 1, PageSize: 20}, q)
	assert.Equal(t, 0, q.Offset())
}

func TestParseListQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  ListQuery
	}{
		{
			name:  "full query",
			query: "search=para&category=Painkillers&sort=price_desc&page=3&limit=10",
			want:  ListQuery{Search: "para", Category: "Painkillers", Sort: SortPriceDesc, Page: 3, PageSize: 10},
		},
		{
			name:  "unknown sort falls back to name",
			query: "sort=bogus",
			want:  ListQuery{Sort: SortName, Page: 1, PageSize: 20},
		},
		{
			name:  "non-numeric pagination ignored",
			query: "page=abc&limit=-5",
			want:  ListQuery{Sort: SortName, Page: 1, PageSize: 20},
		},
		{
			name:  "page size clamped",
			query: "limit=10000",
			want:  ListQuery{Sort: SortName, Page: 1, PageSize: 100},
		},
		{
			name:  "search trimmed",
			query: "search=++aspirin++",
			want:  ListQuery{Search: "aspirin", Sort: SortName, Page: 1, PageSize: 20},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, ParseListQuery(values))
		})
	}
}

func TestListQuery_Offset(t *testing.T) {
	q := ListQuery{Page: 4, PageSize: 25}
	assert.Equal(t, 75, q.Offset())
}
