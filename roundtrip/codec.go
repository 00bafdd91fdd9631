package roundtrip

import (
	"github.com/pierrec/lz4/v4"

	"github.com/klauspost/lz4fuzz/internal/lz4ref"
)

// Decompressor decodes a compressed block.
type Decompressor interface {
	// Decompress decompresses src into dst, writing at most len(dst) bytes.
	// It returns the decompressed size, or a negative value if src is
	// corrupt or does not fit in dst.
	Decompress(src, dst []byte) int
}

// Codec is the block compression API driven by the harness.
type Codec interface {
	Decompressor

	// CompressBound returns the maximum compressed size of n input bytes.
	CompressBound(n int) int

	// Levels returns the inclusive range of valid compression levels.
	Levels() (min, max int)

	// Compress compresses src into dst and returns the compressed size.
	// A result <= 0 means the output did not fit in dst.
	// dst must never be written beyond len(dst).
	Compress(src, dst []byte, level int) int
}

// DestSizeCompressor compresses into a fixed size destination.
type DestSizeCompressor interface {
	// CompressBlockDestSize compresses as much of src as fits in dst.
	// It returns the compressed size and the number of bytes of src consumed.
	CompressBlockDestSize(src, dst []byte, level int) (n, consumed int)
}

// DestSizeCodec is a Codec that can also compress a prefix of its input
// into a destination of fixed size.
type DestSizeCodec interface {
	Codec

	// StateSize returns the size of the working state of a compressor.
	StateSize() int

	// NewCompressor returns a compressor with its own working state.
	NewCompressor() DestSizeCompressor
}

// LZ4 is the internal LZ4 block codec. It supports both compression paths.
var LZ4 DestSizeCodec = lz4Codec{}

type lz4Codec struct{}

func (lz4Codec) CompressBound(n int) int { return lz4ref.CompressBlockBound(n) }

func (lz4Codec) Levels() (min, max int) { return lz4ref.LevelMin, lz4ref.LevelMax }

func (lz4Codec) Compress(src, dst []byte, level int) int {
	n, err := lz4ref.CompressBlock(src, dst, level)
	if err != nil {
		return 0
	}
	return n
}

func (lz4Codec) Decompress(src, dst []byte) int { return lz4ref.UncompressBlock(dst, src) }

func (lz4Codec) StateSize() int { return lz4ref.StateSize }

func (lz4Codec) NewCompressor() DestSizeCompressor { return new(lz4ref.Compressor) }

// PierrecLZ4 is the github.com/pierrec/lz4/v4 block codec.
// Level 0 selects the fast compressor, levels 1-9 the high compression one.
// It has no fixed destination size mode.
var PierrecLZ4 Codec = pierrecCodec{}

var pierrecLevels = [...]lz4.CompressionLevel{
	lz4.Fast,
	lz4.Level1, lz4.Level2, lz4.Level3,
	lz4.Level4, lz4.Level5, lz4.Level6,
	lz4.Level7, lz4.Level8, lz4.Level9,
}

type pierrecCodec struct{}

func (pierrecCodec) CompressBound(n int) int { return lz4.CompressBlockBound(n) }

func (pierrecCodec) Levels() (min, max int) { return 0, len(pierrecLevels) - 1 }

func (pierrecCodec) Compress(src, dst []byte, level int) int {
	var n int
	var err error
	switch {
	case level <= 0:
		n, err = lz4.CompressBlock(src, dst, nil)
	case level < len(pierrecLevels):
		n, err = lz4.CompressBlockHC(src, dst, pierrecLevels[level], nil, nil)
	default:
		n, err = lz4.CompressBlockHC(src, dst, lz4.Level9, nil, nil)
	}
	if err != nil {
		return 0
	}
	return n
}

func (pierrecCodec) Decompress(src, dst []byte) int {
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return -1
	}
	return n
}

// PierrecReference decodes LZ4 blocks with github.com/pierrec/lz4/v4.
var PierrecReference Decompressor = pierrecReference{}

type pierrecReference struct{}

func (pierrecReference) Decompress(src, dst []byte) int {
	return pierrecCodec{}.Decompress(src, dst)
}
