package roundtrip

import (
	"encoding/binary"

	"github.com/klauspost/compress/s2"
)

// S2Reference decodes LZ4 blocks by converting them to S2 and
// decoding the result with github.com/klauspost/compress/s2.
// It shares no decoding code with the LZ4 decoders.
var S2Reference Decompressor = s2Reference{}

type s2Reference struct{}

func (s2Reference) Decompress(src, dst []byte) int {
	maxLen := s2.MaxEncodedLen(len(dst))
	if maxLen < 0 {
		return -1
	}
	// Leave room in front for the uncompressed size.
	// The converter needs some tail room beyond the encoded size.
	const (
		hdrMax = binary.MaxVarintLen64
		slack  = 16
	)
	buf := make([]byte, hdrMax, hdrMax+maxLen+2*len(src)+slack)
	var conv s2.LZ4Converter
	buf, n, err := conv.ConvertBlock(buf, src)
	if err != nil || n > len(dst) {
		return -1
	}
	var hdr [hdrMax]byte
	h := binary.PutUvarint(hdr[:], uint64(n))
	block := buf[hdrMax-h:]
	copy(block, hdr[:h])

	got, err := s2.Decode(dst, block)
	if err != nil || len(got) != n {
		return -1
	}
	return copy(dst, got)
}
