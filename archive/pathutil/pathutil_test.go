package pathutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVirtualName(t *testing.T) {
	cases := []struct {
		path, want string
	}{
		{"/data/foo.txt.gz", "foo.txt"},
		{"/data/archive.bz2", "archive"},
		{"/data/archive.xz", "archive"},
		{"/data/archive.lzo", "archive"},
		{"/data/backup.tgz", "backup.tar"},
		{"/data/backup.tbz2", "backup.tar"},
		{"/data/backup.txz", "backup.tar"},
		{"/data/backup.tpxz", "backup.tar"},
		{"/data/noext", "noext"},
		{"/data/data.Z", "data"},
	}
	for _, c := range cases {
		require.Equal(t, c.want, VirtualName(c.path), c.path)
	}
}

func TestCollision(t *testing.T) {
	require.True(t, Collision("/a/foo.tar.gz", "/b/foo.tgz"))
	require.False(t, Collision("/a/foo.gz", "/b/bar.gz"))
}
