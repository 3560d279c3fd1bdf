package bindings

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chess10kp/vibe/internal/apps"
	"github.com/chess10kp/vibe/internal/settings"
)

func testCatalog() apps.Catalog {
	return apps.NewCatalog("personal", []apps.Entry{
		{Package: "com.x.camera", Name: "Camera", Profile: "personal"},
		{Package: "com.x.mail", Name: "Mail", Profile: "personal"},
		{Package: "com.x.mail", Name: "Mail", Profile: "work"},
	})
}

func newStore(s settings.Store) *Store {
	return NewStore(s, DefaultPreferences(), zap.NewNop())
}

func TestStore_BindingRoundTrip(t *testing.T) {
	catalog := testCatalog()
	mem := settings.NewMemory()
	st := newStore(mem)

	work, ok := catalog.Find(apps.Key{Package: "com.x.mail", Profile: "work"})
	require.True(t, ok)
	require.NoError(t, st.SetBinding(RightSwipe, &work))

	// a fresh store over the same settings sees the binding
	got, ok := newStore(mem).Binding(RightSwipe, catalog)
	require.True(t, ok)
	assert.Equal(t, work, got)
	assert.Equal(t, "com.x.mail", mem.GetString("right_swipe_package", ""))
	assert.True(t, mem.GetBool("right_swipe_is_work", false))
}

func TestStore_ClearBinding(t *testing.T) {
	catalog := testCatalog()
	st := newStore(settings.NewMemory())

	camera := catalog.Entries[0]
	require.NoError(t, st.SetBinding(LongPress, &camera))
	require.NoError(t, st.SetBinding(LongPress, nil))

	_, ok := st.Binding(LongPress, catalog)
	assert.False(t, ok)
}

func TestStore_UnresolvableBindingIsUnbound(t *testing.T) {
	mem := settings.NewMemory()
	mem.Set("up_swipe_package", "com.x.gone")

	r := newStore(mem).Load(testCatalog())
	assert.Nil(t, r.Bindings[UpSwipe])

	// the persisted reference is left alone
	ref, ok := newStore(mem).BindingRef(UpSwipe)
	require.True(t, ok)
	assert.Equal(t, Ref{Package: "com.x.gone"}, ref)
}

func TestStore_LoadResolvesAllGestures(t *testing.T) {
	catalog := testCatalog()
	st := newStore(settings.NewMemory())

	camera := catalog.Entries[0]
	require.NoError(t, st.SetBinding(LeftSwipe, &camera))

	r := st.Load(catalog)
	require.NotNil(t, r.Bindings[LeftSwipe])
	assert.Equal(t, "Camera", r.Bindings[LeftSwipe].Name)
	for _, g := range []Gesture{RightSwipe, UpSwipe, DownSwipe, LongPress} {
		assert.Nil(t, r.Bindings[g], g.String())
	}
}

func TestStore_DelayedSetIsIdempotent(t *testing.T) {
	catalog := testCatalog()
	mem := settings.NewMemory()
	st := newStore(mem)
	camera := catalog.Entries[0]

	changed, err := st.AddDelayed(camera)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = st.AddDelayed(camera)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, []string{"com.x.camera|false"}, mem.GetStringSet(KeyDelayedApps, nil))

	changed, err = st.RemoveDelayed(camera)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = st.RemoveDelayed(camera)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Empty(t, mem.GetStringSet(KeyDelayedApps, nil))
}

func TestStore_DelayedDistinguishesProfiles(t *testing.T) {
	catalog := testCatalog()
	st := newStore(settings.NewMemory())

	work, ok := catalog.Find(apps.Key{Package: "com.x.mail", Profile: "work"})
	require.True(t, ok)
	_, err := st.AddDelayed(work)
	require.NoError(t, err)

	r := st.Load(catalog)
	if diff := cmp.Diff([]apps.Entry{work}, r.Delayed); diff != "" {
		t.Errorf("delayed mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_DelayedKeepsUnresolvedRefs(t *testing.T) {
	mem := settings.NewMemory()
	require.NoError(t, mem.PutStringSet(KeyDelayedApps, []string{"com.x.gone|true", "garbage", "com.x.camera|false"}))

	st := newStore(mem)
	r := st.Load(testCatalog())
	require.Len(t, r.Delayed, 1)
	assert.Equal(t, "com.x.camera", r.Delayed[0].Package)

	// a later mutation persists the unresolved member too
	mail := testCatalog().Entries[1]
	_, err := st.AddDelayed(mail)
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"com.x.camera|false", "com.x.gone|true", "com.x.mail|false"},
		mem.GetStringSet(KeyDelayedApps, nil))
}

func TestStore_Preferences(t *testing.T) {
	mem := settings.NewMemory()
	st := newStore(mem)

	assert.True(t, st.AutoLaunchEnabled())
	assert.Equal(t, 60, st.DelayDuration())

	require.NoError(t, st.SetAutoLaunchEnabled(false))
	assert.False(t, newStore(mem).AutoLaunchEnabled())

	testCases := []struct {
		in, want int
	}{
		{30, 30},
		{1, 5},
		{500, 120},
		{5, 5},
		{120, 120},
	}
	for _, tc := range testCases {
		got, err := st.SetDelayDuration(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
		assert.Equal(t, tc.want, newStore(mem).DelayDuration())
	}
}

func TestStore_OutOfRangePersistedDelayIsClamped(t *testing.T) {
	mem := settings.NewMemory()
	require.NoError(t, mem.PutInt(KeyDelayDurationSeconds, 1000))
	assert.Equal(t, 120, newStore(mem).DelayDuration())
}

func TestRef_Parse(t *testing.T) {
	testCases := []struct {
		in      string
		want    Ref
		wantErr bool
	}{
		{"com.x.a|true", Ref{"com.x.a", true}, false},
		{"com.x.a|false", Ref{"com.x.a", false}, false},
		{"odd|name|true", Ref{"odd|name", true}, false},
		{"nopipe", Ref{}, true},
		{"|true", Ref{}, true},
		{"com.x.a|maybe", Ref{}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseRef(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.in, got.String())
		})
	}
}

func TestGesture_KeysAndParse(t *testing.T) {
	assert.Equal(t, "long_press_package", LongPress.PackageKey())
	assert.Equal(t, "left_swipe_is_work", LeftSwipe.WorkKey())

	for _, g := range Gestures() {
		parsed, err := ParseGesture(g.String())
		require.NoError(t, err)
		assert.Equal(t, g, parsed)
	}
	_, err := ParseGesture("sideways")
	assert.Error(t, err)

	target, err := ParsePickTarget("delayed")
	require.NoError(t, err)
	_, ok := target.Gesture()
	assert.False(t, ok)
}
