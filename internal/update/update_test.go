package update

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdate_FunctionalEditsDoNotMutate(t *testing.T) {
	orig := &Update{Path: "a/b.txt", ModTime: 10, Data: []byte("hello")}

	noPath := orig.WithoutPath()
	assert.Equal(t, "", noPath.Path)
	assert.Equal(t, "a/b.txt", orig.Path)

	later := orig.WithModTime(20)
	assert.Equal(t, int64(20), later.ModTime)
	assert.Equal(t, int64(10), orig.ModTime)

	noData := orig.WithoutData()
	assert.Nil(t, noData.Data)
	assert.Equal(t, []byte("hello"), orig.Data)

	restored := noPath.WithPath("c.txt")
	assert.Equal(t, "c.txt", restored.Path)
	assert.Equal(t, "", noPath.Path)
}

func TestTypeOf(t *testing.T) {
	cases := []struct {
		name string
		u    *Update
		want Type
	}{
		{"nil", nil, TypeNone},
		{"file", &Update{}, TypeFile},
		{"directory", &Update{Directory: true}, TypeDirectory},
		{"symlink", &Update{Symlink: "../target"}, TypeSymlink},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TypeOf(tc.u))
		})
	}

	assert.True(t, (&Update{}).IsFile())
	assert.False(t, (&Update{Symlink: "x"}).IsFile())
	assert.Equal(t, "symlink", TypeSymlink.String())
}

func TestInitialSyncMarker(t *testing.T) {
	marker := NewInitialSyncMarker()
	assert.True(t, IsInitialSyncMarker(marker))
	assert.False(t, IsInitialSyncMarker(nil))
	assert.False(t, IsInitialSyncMarker(&Update{Path: "a"}))
	assert.False(t, IsInitialSyncMarker(marker.WithPath("a")))
}

func TestUpdate_StringTruncatesData(t *testing.T) {
	u := &Update{Path: "a.bin", ModTime: 5, Data: make([]byte, 2048)}
	s := u.String()
	assert.Contains(t, s, "a.bin")
	assert.Contains(t, s, "type=file")
	assert.Contains(t, s, "2.0 kB")
	assert.Equal(t, "<nil>", (*Update)(nil).String())
}
