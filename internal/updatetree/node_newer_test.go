package updatetree

import (
	"testing"
	"time"

	"github.com/openmined/syftmirror/internal/update"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(now time.Time) func() time.Time {
	return func() time.Time { return now }
}

func TestNode_IsNewer(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	nowMillis := now.UnixMilli()

	cases := []struct {
		name        string
		local       *update.Update
		remote      *update.Update
		localNewer  bool
		remoteNewer bool
	}{
		{
			name:       "local only",
			local:      &update.Update{ModTime: 1},
			localNewer: true,
		},
		{
			name:        "remote only",
			remote:      &update.Update{ModTime: 1},
			remoteNewer: true,
		},
		{
			name:       "local later",
			local:      &update.Update{ModTime: 20},
			remote:     &update.Update{ModTime: 10},
			localNewer: true,
		},
		{
			name:        "remote later",
			local:       &update.Update{ModTime: 10},
			remote:      &update.Update{ModTime: 20},
			remoteNewer: true,
		},
		{
			name:   "same mod time",
			local:  &update.Update{ModTime: 10},
			remote: &update.Update{ModTime: 10},
		},
		{
			name:   "both deleted, local later",
			local:  &update.Update{Delete: true, ModTime: 20},
			remote: &update.Update{Delete: true, ModTime: 10},
		},
		{
			name:   "both deleted, remote later",
			local:  &update.Update{Delete: true, ModTime: 10},
			remote: &update.Update{Delete: true, ModTime: 20},
		},
		{
			name:  "local delete of unknown remote",
			local: &update.Update{Delete: true, ModTime: 20},
		},
		{
			name:       "local delete beats older remote write",
			local:      &update.Update{Delete: true, ModTime: 20},
			remote:     &update.Update{ModTime: 10},
			localNewer: true,
		},
		{
			name:   "directories on both sides",
			local:  &update.Update{Directory: true, ModTime: 20},
			remote: &update.Update{Directory: true, ModTime: 10},
		},
		{
			name:        "remote directory deleted",
			local:       &update.Update{Directory: true, ModTime: 10},
			remote:      &update.Update{Directory: true, Delete: true, ModTime: 20},
			remoteNewer: true,
		},
		{
			name:       "directory replaces file",
			local:      &update.Update{Directory: true, ModTime: 20},
			remote:     &update.Update{ModTime: 10},
			localNewer: true,
		},
		{
			name:        "far future local is demoted",
			local:       &update.Update{ModTime: now.Add(2 * time.Hour).UnixMilli()},
			remote:      &update.Update{ModTime: nowMillis},
			remoteNewer: true,
		},
		{
			name:       "slightly future local is kept",
			local:      &update.Update{ModTime: now.Add(30 * time.Minute).UnixMilli()},
			remote:     &update.Update{ModTime: nowMillis},
			localNewer: true,
		},
		{
			name:   "both far future are equal",
			local:  &update.Update{ModTime: now.Add(2 * time.Hour).UnixMilli()},
			remote: &update.Update{ModTime: now.Add(48 * time.Hour).UnixMilli()},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tree := New()
			tree.now = fixedClock(now)
			if tc.local != nil {
				require.NoError(t, tree.AddLocal(tc.local.WithPath("x")))
			}
			if tc.remote != nil {
				require.NoError(t, tree.AddRemote(tc.remote.WithPath("x")))
			}
			node, err := tree.Find("x")
			require.NoError(t, err)

			assert.Equal(t, tc.localNewer, node.IsLocalNewer(), "IsLocalNewer")
			assert.Equal(t, tc.remoteNewer, node.IsRemoteNewer(), "IsRemoteNewer")
		})
	}
}

func TestTree_SanityCheckTimestamp(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tree := New()
	tree.now = fixedClock(now)

	assert.Equal(t, now.UnixMilli(), tree.sanityCheckTimestamp(now.UnixMilli()))
	edge := now.Add(time.Hour).UnixMilli()
	assert.Equal(t, edge, tree.sanityCheckTimestamp(edge))
	assert.Equal(t, now.Add(-time.Minute).UnixMilli(), tree.sanityCheckTimestamp(edge+1))
}

func TestTree_TickedDeleteIsNewerThanRemote(t *testing.T) {
	tree := New()
	require.NoError(t, tree.AddLocal(file("a.txt", 100)))
	require.NoError(t, tree.AddRemote(file("a.txt", 100)))

	node, err := tree.Find("a.txt")
	require.NoError(t, err)
	assert.False(t, node.IsLocalNewer())

	require.NoError(t, tree.AddLocal(&update.Update{Path: "a.txt", Delete: true}))
	assert.True(t, node.IsLocalNewer())
	assert.False(t, node.IsRemoteNewer())
}
