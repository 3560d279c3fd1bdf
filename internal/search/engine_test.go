package search

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chess10kp/vibe/internal/apps"
)

func scenarioCatalog() apps.Catalog {
	return apps.NewCatalog("personal", []apps.Entry{
		{Package: "com.x.camera", Name: "Camera", Profile: "personal"},
		{Package: "com.x.cal", Name: "Calendar", Profile: "personal"},
		{Package: "com.x.calc", Name: "Calculator", Profile: "personal"},
	})
}

func newEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(50, zap.NewNop())
	require.NoError(t, err)
	return e
}

func entryNames(entries []apps.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestSearch_Scenarios(t *testing.T) {
	testCases := []struct {
		name     string
		query    string
		want     []string
		prefix   int
		contains int
	}{
		{"prefix tier alphabetical", "Cal", []string{"Calculator", "Calendar"}, 2, 0},
		{"contains tier alphabetical", "am", []string{"Camera"}, 0, 1},
		{"mixed tiers", "a", []string{"Calculator", "Calendar", "Camera"}, 0, 3},
		{"normalizes case and whitespace", "  CAMERA ", []string{"Camera"}, 1, 0},
		{"no match", "zzz", []string{}, 0, 0},
	}

	e := newEngine(t)
	catalog := scenarioCatalog()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := e.Search(tc.query, catalog)
			if diff := cmp.Diff(tc.want, entryNames(r.Entries())); diff != "" {
				t.Errorf("result mismatch (-want +got):\n%s", diff)
			}
			assert.Len(t, r.Prefix, tc.prefix)
			assert.Len(t, r.Contains, tc.contains)
		})
	}
}

func TestSearch_ContainsTierExcludesPrefixMatches(t *testing.T) {
	catalog := apps.NewCatalog("personal", []apps.Entry{
		{Package: "a", Name: "Maps", Profile: "personal"},
		{Package: "b", Name: "Google Maps", Profile: "personal"},
		{Package: "c", Name: "mapper", Profile: "personal"},
		{Package: "d", Name: "Music", Profile: "personal"},
	})

	r := newEngine(t).Search("map", catalog)
	assert.Equal(t, []string{"mapper", "Maps", "Google Maps"}, entryNames(r.Entries()))

	q := Normalize("map")
	for _, e := range r.Prefix {
		assert.True(t, strings.HasPrefix(strings.ToLower(e.Name), q))
	}
	for _, e := range r.Contains {
		name := strings.ToLower(e.Name)
		assert.True(t, strings.Contains(name, q))
		assert.False(t, strings.HasPrefix(name, q))
	}
}

func TestSearch_BlankQueryReturnsCatalog(t *testing.T) {
	catalog := scenarioCatalog()
	e := newEngine(t)

	for _, q := range []string{"", "   ", "\t"} {
		r := e.Search(q, catalog)
		assert.True(t, r.Blank)
		assert.Equal(t, catalog.Entries, r.Entries())
		assert.Nil(t, r.AutoLaunch(true))
	}
}

func TestSearch_Idempotent(t *testing.T) {
	catalog := scenarioCatalog()
	e := newEngine(t)

	first := e.Search("ca", catalog)
	second := e.Search("ca", catalog)
	assert.Equal(t, first.Entries(), second.Entries())

	stats := e.CacheStats()
	assert.Equal(t, int64(1), stats.Hits)
}

func TestSearch_CacheFollowsCatalogHash(t *testing.T) {
	e := newEngine(t)
	before := scenarioCatalog()
	require.Equal(t, 2, e.Search("cal", before).Len())

	after := apps.NewCatalog("personal", append(append([]apps.Entry(nil), before.Entries...),
		apps.Entry{Package: "com.x.calls", Name: "Calls", Profile: "personal"}))
	assert.Equal(t, 3, e.Search("cal", after).Len())
}

func TestResult_AutoLaunch(t *testing.T) {
	e := newEngine(t)
	catalog := scenarioCatalog()

	single := e.Search("camera", catalog)
	candidate := single.AutoLaunch(true)
	require.NotNil(t, candidate)
	assert.Equal(t, "com.x.camera", candidate.Package)
	assert.Nil(t, single.AutoLaunch(false))

	assert.Nil(t, e.Search("cal", catalog).AutoLaunch(true))
	assert.Nil(t, e.Search("zzz", catalog).AutoLaunch(true))
}

func TestSuggest(t *testing.T) {
	e := newEngine(t)
	catalog := scenarioCatalog()

	assert.Empty(t, e.Search("clcltr", catalog).Entries())
	suggestions := e.Suggest("clcltr", catalog, 2)
	require.NotEmpty(t, suggestions)
	assert.Equal(t, "Calculator", suggestions[0].Name)

	assert.Nil(t, e.Suggest("", catalog, 3))
	assert.Nil(t, e.Suggest("cam", catalog, 0))
}
