package listopt_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/simple-config-server/listopt"
	"github.com/stevemurr/simple-config-server/sortutil"
	"github.com/stevemurr/simple-config-server/store"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want store.FindOptions
	}{
		{
			name: "all parameters",
			in:   "/v1/configurations?sort=a,-b,%2Bc&limit=10&start=5",
			want: store.FindOptions{
				Sort:  []sortutil.Key{{Name: "a", Order: 1}, {Name: "b", Order: -1}, {Name: "c", Order: 1}},
				Limit: 10,
				Start: 5,
			},
		},
		{
			name: "unescaped plus",
			in:   "?sort=a,-b,+c",
			want: store.FindOptions{
				Sort: []sortutil.Key{{Name: "a", Order: 1}, {Name: "b", Order: -1}, {Name: "c", Order: 1}},
			},
		},
		{
			name: "bare query string",
			in:   "limit=3",
			want: store.FindOptions{Limit: 3},
		},
		{
			name: "empty input",
			in:   "",
			want: store.FindOptions{},
		},
		{
			name: "no query",
			in:   "/v1/configurations",
			want: store.FindOptions{},
		},
		{
			name: "empty values are unset",
			in:   "?limit=&start=&sort=",
			want: store.FindOptions{},
		},
		{
			name: "spaces around fields",
			in:   "?sort=%20name%20,%20-port",
			want: store.FindOptions{Sort: []sortutil.Key{sortutil.Asc("name"), sortutil.Desc("port")}},
		},
		{
			name: "unrelated parameters ignored",
			in:   "?q=x&start=0",
			want: store.FindOptions{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := listopt.Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"negative limit", "?limit=-1", listopt.ErrInvalidLimit},
		{"non-numeric limit", "?limit=ten", listopt.ErrInvalidLimit},
		{"trailing garbage", "?limit=10abc", listopt.ErrInvalidLimit},
		{"negative start", "?start=-5", listopt.ErrInvalidStart},
		{"non-numeric start", "?start=x", listopt.ErrInvalidStart},
		{"empty sort field", "?sort=a,,b", listopt.ErrInvalidSort},
		{"bare prefix", "?sort=-", listopt.ErrInvalidSort},
		{"bad escape", "?sort=%zz", listopt.ErrInvalidQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := listopt.Parse(tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/v1/configurations?sort=-hostname&limit=2", nil)
	got, err := listopt.ParseRequest(r)
	require.NoError(t, err)
	assert.Equal(t, store.FindOptions{Sort: []sortutil.Key{sortutil.Desc("hostname")}, Limit: 2}, got)

	got, err = listopt.ParseRequest(nil)
	require.NoError(t, err)
	assert.Equal(t, store.FindOptions{}, got)
}
