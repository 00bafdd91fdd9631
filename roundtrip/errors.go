package roundtrip

import (
	"errors"
	"fmt"
)

var (
	// ErrSizeMismatch is returned when the decompressed size differs from the input size.
	ErrSizeMismatch = errors.New("incorrect regenerated size")

	// ErrCorruption is returned when the decompressed bytes differ from the input.
	ErrCorruption = errors.New("corruption")

	// ErrDestSizeFailed is returned when fixed destination size compression
	// produces no output for a non-empty destination.
	ErrDestSizeFailed = errors.New("fixed destination size compression failed")

	// ErrOutOfBounds is returned when a compressor reports more output than
	// the destination holds or more input than it was given.
	ErrOutOfBounds = errors.New("reported size out of bounds")

	// ErrReferenceMismatch is returned when a reference decoder disagrees.
	ErrReferenceMismatch = errors.New("reference decoder mismatch")
)

// Path identifies the compression entry point under test.
type Path uint8

const (
	// PathBounded compresses the whole payload, failing if it does not fit.
	PathBounded Path = iota
	// PathDestSize compresses the longest prefix that fits.
	PathDestSize
)

func (p Path) String() string {
	switch p {
	case PathBounded:
		return "bounded"
	case PathDestSize:
		return "dest-size"
	}
	return fmt.Sprintf("Path(%d)", uint8(p))
}

// Violation describes a broken round trip contract.
// The harness panics with a *Violation.
type Violation struct {
	Path   Path
	Params Params
	// Reference is the name of the disagreeing reference decoder, if any.
	Reference string
	// Compressed is the compressed size reported by the codec.
	Compressed int
	// Want and Got are the expected and regenerated sizes.
	Want, Got int
	Err       error
}

func (v *Violation) Error() string {
	s := fmt.Sprintf("%s path: %v (level: %d, capacity: %d, size: %d, compressed: %d, want: %d, got: %d)",
		v.Path, v.Err, v.Params.Level, v.Params.DstCapacity, v.Params.Size, v.Compressed, v.Want, v.Got)
	if v.Reference != "" {
		s = v.Reference + ": " + s
	}
	return s
}

func (v *Violation) Unwrap() error { return v.Err }
