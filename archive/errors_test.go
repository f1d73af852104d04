package archive

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapFormatPreservesSentinel(t *testing.T) {
	underlying := errors.New("bad magic")
	err := WrapFormat(underlying, "probing %s", "foo.gz")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrFormat))
	require.False(t, errors.Is(err, ErrCodec))
	require.Contains(t, err.Error(), "foo.gz")
}

func TestWrapCodecPreservesSentinel(t *testing.T) {
	err := WrapCodec(errors.New("short block"), "decoding block %d", 3)
	require.True(t, errors.Is(err, ErrCodec))
}

func TestWrapIntegrityPreservesSentinel(t *testing.T) {
	err := WrapIntegrity(errors.New("crc mismatch"), "member %d", 0)
	require.True(t, errors.Is(err, ErrIntegrity))
}

func TestWrapNilIsNil(t *testing.T) {
	require.NoError(t, WrapFormat(nil, "x"))
}

func TestCheckBlockSize(t *testing.T) {
	require.NoError(t, CheckBlockSize(100, 200))
	require.NoError(t, CheckBlockSize(100, 0), "zero max means unbounded")
	require.NoError(t, CheckBlockSize(100, -1), "negative max means unbounded")

	err := CheckBlockSize(300, 200)
	require.Error(t, err)
}
