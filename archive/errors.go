package archive

import (
	"fmt"

	"github.com/pkg/errors"
)

// Sentinel errors archive consumers can test for with errors.Is.
var (
	// ErrFormat is returned when a file's magic bytes don't match any
	// registered archive format, when a format package finds a malformed
	// header or structure, and when a block exceeds the configured
	// maximum block size.
	ErrFormat = errors.New("archive: unrecognized format")
	// ErrIO is returned when reading the underlying archive file fails.
	ErrIO = errors.New("archive: i/o error")
	// ErrCodec is returned when a block fails to decompress.
	ErrCodec = errors.New("archive: codec error")
	// ErrIntegrity is returned when a decompressed block fails a checksum
	// check.
	ErrIntegrity = errors.New("archive: integrity check failed")
	// ErrIndexStale is returned by readIndexFile when a sidecar index is
	// missing, unreadable as an index, or no longer matches the archive it
	// indexes.
	ErrIndexStale = errors.New("archive: index is stale")
)

// WrapFormat wraps err as an ErrFormat, for format packages (gzipfmt,
// bzip2fmt, xzfmt, lzopfmt) to report malformed headers or structure.
func WrapFormat(err error, format string, args ...interface{}) error {
	return wrapf(ErrFormat, err, format, args...)
}

// WrapCodec wraps err as an ErrCodec, for format packages to report a
// block that failed to decompress.
func WrapCodec(err error, format string, args ...interface{}) error {
	return wrapf(ErrCodec, err, format, args...)
}

// WrapIntegrity wraps err as an ErrIntegrity, for format packages to
// report a checksum mismatch on decoded data.
func WrapIntegrity(err error, format string, args ...interface{}) error {
	return wrapf(ErrIntegrity, err, format, args...)
}

// CheckBlockSize rejects a discovered block whose uncompressed size exceeds
// max, the format-too-coarse rejection every indexer applies when a format
// groups too much uncompressed data behind one independently-decodable
// block for random access to stay cheap. max <= 0 means no limit. Callers
// wrap the returned error with WrapFormat to attach their own offset
// context.
func CheckBlockSize(uncompSize, max int64) error {
	if max > 0 && uncompSize > max {
		return fmt.Errorf("block of %d bytes exceeds max-block-size of %d bytes", uncompSize, max)
	}
	return nil
}

// wrap attaches msg to err's chain while preserving errors.Is matching
// against the sentinel passed in as kind.
func wrap(kind error, err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(&sentinelError{kind: kind, err: err}, msg)
}

func wrapf(kind error, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(&sentinelError{kind: kind, err: err}, format, args...)
}

// sentinelError pairs an underlying error with one of the package's
// sentinel kinds so errors.Is(err, archive.ErrCodec) keeps working after
// errors.Wrap/Wrapf add context.
type sentinelError struct {
	kind error
	err  error
}

func (e *sentinelError) Error() string { return e.err.Error() }
func (e *sentinelError) Unwrap() error { return e.err }
func (e *sentinelError) Is(target error) bool {
	return target == e.kind
}
