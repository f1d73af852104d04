package archive

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindBlock(t *testing.T) {
	bs := blockList{
		{UncompOffset: 0, UncompSize: 10},
		{UncompOffset: 10, UncompSize: 10},
		{UncompOffset: 20, UncompSize: 5},
	}

	require.Equal(t, 0, bs.findBlock(0))
	require.Equal(t, 0, bs.findBlock(9))
	require.Equal(t, 1, bs.findBlock(10))
	require.Equal(t, 2, bs.findBlock(24))
	require.Equal(t, -1, bs.findBlock(25))
	require.Equal(t, -1, bs.findBlock(100))
}

func TestUncompressedSize(t *testing.T) {
	require.Equal(t, int64(0), blockList(nil).uncompressedSize())

	bs := blockList{
		{UncompOffset: 0, UncompSize: 10},
		{UncompOffset: 10, UncompSize: 7},
	}
	require.Equal(t, int64(17), bs.uncompressedSize())
}
