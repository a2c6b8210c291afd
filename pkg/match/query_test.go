package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/nimbrowse/pkg/provider"
)

func sampleEntries() []provider.Object {
	return []provider.Object{
		{Key: "p/abc/", IsDirectory: true},
		{Key: "p/abc.txt", Size: 10, LastModified: ts("2024-01-10T00:00:00Z")},
		{Key: "p/big.bin", Size: 5 * MiB, LastModified: ts("2024-03-10T00:00:00Z")},
		{Key: "p/notes.md", Size: 200, LastModified: ts("2023-12-31T00:00:00Z")},
		{Key: "p/xABCy.csv", Size: 30},
	}
}

func keys(objs []provider.Object) []string {
	out := make([]string, len(objs))
	for i, o := range objs {
		out[i] = o.Key
	}
	return out
}

func TestQuery(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"empty matches all", "", []string{"p/abc/", "p/abc.txt", "p/big.bin", "p/notes.md", "p/xABCy.csv"}},
		{"substring is case insensitive", "abc", []string{"p/abc/", "p/abc.txt", "p/xABCy.csv"}},
		{"glob", "*.csv", []string{"p/xABCy.csv"}},
		{"size lower bound", "size>1KiB", []string{"p/big.bin"}},
		{"size upper bound excludes dirs", "size<=30", []string{"p/abc.txt", "p/xABCy.csv"}},
		{"date", "after:2024-01-01", []string{"p/abc.txt", "p/big.bin"}},
		{"combined terms", "abc type:file", []string{"p/abc.txt", "p/xABCy.csv"}},
		{"regex on key", `re:^p/.*\.md$`, []string{"p/notes.md"}},
		{"not a size term", "sizes", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := Parse(tt.text)
			require.NoError(t, err)
			got := keys(q.Apply(sampleEntries()))
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuery_ParseErrors(t *testing.T) {
	for _, text := range []string{"size>", "size>lots", "after:soon", "re:(", "type:pipe", "size<0"} {
		_, err := Parse(text)
		assert.Error(t, err, text)
	}
}

func TestLenient_FallsBackToSubstring(t *testing.T) {
	q := Lenient("size>")
	assert.False(t, q.Empty())
	assert.Equal(t, "size>", q.Text())
	assert.Empty(t, q.Apply(sampleEntries()))

	q = Lenient("abc")
	assert.Len(t, q.Apply(sampleEntries()), 3)
}

func TestQuery_ApplyIsNonDestructive(t *testing.T) {
	items := sampleEntries()
	before := keys(items)

	q, err := Parse("abc")
	require.NoError(t, err)
	filtered := q.Apply(items)
	require.Len(t, filtered, 3)
	filtered[0].Key = "mutated"

	assert.Equal(t, before, keys(items))

	var cleared *Query
	assert.True(t, cleared.Empty())
	assert.Equal(t, before, keys(cleared.Apply(items)))
}
