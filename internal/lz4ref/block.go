package lz4ref

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"sync"
	"unsafe"
)

const (
	// The following constants are used to setup the compression algorithm.
	minMatch    = 4  // the minimum size of the match sequence size (4 bytes)
	winSizeLog  = 16 // LZ4 64Kb window size limit
	winSize     = 1 << winSizeLog
	maxDistance = winSize - 1 // largest offset that fits the 16 bit field

	// The last 5 bytes of a block are always literals,
	// and the last match must start at least 12 bytes before the end.
	lastLiterals = 5
	mfLimit      = 12

	// hashLog determines the size of the table holding the head of each hash chain.
	hashLog   = 15
	htSize    = 1 << hashLog
	chainSize = winSize
	chainMask = chainSize - 1

	runMask = 0xF
)

// Compression levels. Levels outside the range are clamped.
const (
	LevelMin     = 2
	LevelDefault = 9
	LevelMax     = 12
)

// StateSize is the size of the working state used by a Compressor.
const StateSize = int(unsafe.Sizeof(Compressor{}))

// blockHash hashes the lower four bytes of x into a value < htSize.
func blockHash(x uint32) uint32 {
	const prime4bytes = 2654435761
	return (x * prime4bytes) >> (32 - hashLog)
}

// CompressBlockBound returns the maximum size of a compressed block of n bytes.
// A destination of this size never fails.
func CompressBlockBound(n int) int {
	return n + n/255 + 16
}

// searchDepth returns the number of chain candidates inspected per position.
func searchDepth(level int) int {
	switch {
	case level < LevelMin:
		level = LevelMin
	case level > LevelMax:
		level = LevelMax
	}
	return 1 << (level - 1)
}

// Compressor holds the match finder state.
// A Compressor can be reused, but not concurrently.
type Compressor struct {
	// Head of the chain for each hash, stored as position+1 so zero means empty.
	table [htSize]int32

	// Distance to the previous position with the same hash, indexed by position.
	// Zero terminates the chain. Entries are only reached through positions of
	// the current block, so the chain never needs clearing.
	chain [chainSize]uint16

	// Next position to be inserted into the chains.
	next int
}

func (c *Compressor) reset() {
	c.table = [htSize]int32{}
	c.next = 0
}

// insert adds all positions up to, but not including, si to the chains.
func (c *Compressor) insert(src []byte, si int) {
	for p := c.next; p < si; p++ {
		h := blockHash(binary.LittleEndian.Uint32(src[p:]))
		delta := 0
		if prev := int(c.table[h]) - 1; prev >= 0 && p-prev <= maxDistance {
			delta = p - prev
		}
		c.chain[p&chainMask] = uint16(delta)
		c.table[h] = int32(p + 1)
	}
	c.next = si
}

// findMatch returns the longest match for src[si:] not extending beyond limit.
// A length below minMatch means no match.
func (c *Compressor) findMatch(src []byte, si, limit, attempts int) (offset, length int) {
	c.insert(src, si)
	cur := binary.LittleEndian.Uint32(src[si:])
	ref := int(c.table[blockHash(cur)]) - 1
	for ; ref >= 0 && si-ref <= maxDistance && attempts > 0; attempts-- {
		if binary.LittleEndian.Uint32(src[ref:]) == cur {
			if n := matchLen(src[ref:], src[si:limit]); n > length {
				offset, length = si-ref, n
				if si+n == limit {
					break
				}
			}
		}
		delta := int(c.chain[ref&chainMask])
		if delta == 0 {
			break
		}
		ref -= delta
	}
	return offset, length
}

// matchLen returns the number of leading bytes of b also found at the start of a.
// a must be at least as long as b.
func matchLen(a, b []byte) int {
	n := 0
	for len(b)-n >= 8 {
		x := binary.LittleEndian.Uint64(a[n:]) ^ binary.LittleEndian.Uint64(b[n:])
		if x != 0 {
			// Stop is first non-zero byte.
			return n + bits.TrailingZeros64(x)>>3
		}
		n += 8
	}
	for n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

// lenBytes returns the number of extra length bytes needed to encode n
// once the token nibble is saturated.
func lenBytes(n int) int {
	if n < runMask {
		return 0
	}
	return (n-runMask)/0xFF + 1
}

// putLen writes the extra length bytes for n at dst[di:] and returns the new position.
func putLen(dst []byte, di, n int) int {
	for n -= runMask; n >= 0xFF; n -= 0xFF {
		dst[di] = 0xFF
		di++
	}
	dst[di] = byte(n)
	return di + 1
}

var compressorPool = sync.Pool{New: func() interface{} { return new(Compressor) }}

// CompressBlock compresses src into dst using a pooled Compressor.
func CompressBlock(src, dst []byte, level int) (int, error) {
	c := compressorPool.Get().(*Compressor)
	n, err := c.CompressBlock(src, dst, level)
	compressorPool.Put(c)
	return n, err
}

// CompressBlockDestSize compresses a prefix of src into dst using a pooled Compressor.
func CompressBlockDestSize(src, dst []byte, level int) (n, consumed int) {
	c := compressorPool.Get().(*Compressor)
	n, consumed = c.CompressBlockDestSize(src, dst, level)
	compressorPool.Put(c)
	return n, consumed
}

// CompressBlock compresses all of src into dst.
// ErrDstTooSmall is returned if the output does not fit in len(dst).
// dst will never be written beyond len(dst).
func (c *Compressor) CompressBlock(src, dst []byte, level int) (int, error) {
	n, consumed := c.compress(src, dst, level, false)
	if n == 0 || consumed != len(src) {
		return 0, ErrDstTooSmall
	}
	return n, nil
}

// CompressBlockDestSize compresses as much of src as fits in dst.
// It returns the number of bytes written and the number of bytes of src consumed.
// The output decompresses to exactly src[:consumed].
// When len(dst) > 0 the returned size is always positive.
func (c *Compressor) CompressBlockDestSize(src, dst []byte, level int) (n, consumed int) {
	return c.compress(src, dst, level, true)
}

// compress runs the greedy hash chain parser.
// When fill is false, compression stops as soon as the output would not fit
// and consumed is returned as less than len(src).
func (c *Compressor) compress(src, dst []byte, level int, fill bool) (di, consumed int) {
	// Zero out reused table to avoid non-deterministic output.
	c.reset()
	dst = dst[:len(dst):len(dst)]

	const debug = false

	if debug {
		fmt.Printf("lz4 block start: len(src): %d, len(dst): %d, level: %d\n", len(src), len(dst), level)
	}
	if len(dst) == 0 {
		return 0, 0
	}

	attempts := searchDepth(level)

	// si: Current position of the search.
	// anchor: Position of the current literals.
	var si, anchor int
	sn := len(src) - mfLimit
	limit := len(src) - lastLiterals

	for si < sn {
		offset, mLen := c.findMatch(src, si, limit, attempts)
		if mLen < minMatch {
			si++
			continue
		}
		lLen := si - anchor

		// Extend backwards if we can, reducing literals.
		for lLen > 0 && si-offset > 0 && src[si-1] == src[si-offset-1] {
			si--
			lLen--
			mLen++
		}

		seq := 1 + lenBytes(lLen) + lLen + 2 + lenBytes(mLen-minMatch)
		if fill {
			// Leave room for a final token and the mandatory last literals.
			if di+seq+1+lastLiterals > len(dst) {
				break
			}
		} else if di+seq >= len(dst) {
			// The last literals token would not fit either.
			return di, anchor
		}

		if debug {
			fmt.Printf("emit %d literals, copy length: %d, offset: %d\n", lLen, mLen, offset)
		}
		token := di
		di++
		if lLen < runMask {
			dst[token] = byte(lLen << 4)
		} else {
			dst[token] = runMask << 4
			di = putLen(dst, di, lLen)
		}
		di += copy(dst[di:], src[anchor:si])
		dst[di], dst[di+1] = byte(offset), byte(offset>>8)
		di += 2
		if ml := mLen - minMatch; ml < runMask {
			dst[token] |= byte(ml)
		} else {
			dst[token] |= runMask
			di = putLen(dst, di, ml)
		}

		si += mLen
		anchor = si
	}

	// Last literals.
	lLen := len(src) - anchor
	if fill {
		room := len(dst) - di - 1
		if lLen > room {
			lLen = room
		}
		for lLen > 0 && lLen+lenBytes(lLen) > room {
			lLen--
		}
	} else if di+1+lenBytes(lLen)+lLen > len(dst) {
		return di, anchor
	}
	if debug {
		fmt.Printf("emit %d last literals\n", lLen)
	}
	if lLen < runMask {
		dst[di] = byte(lLen << 4)
		di++
	} else {
		dst[di] = runMask << 4
		di = putLen(dst, di+1, lLen)
	}
	di += copy(dst[di:], src[anchor:anchor+lLen])
	return di, anchor + lLen
}

// UncompressBlock decompresses src into dst.
// It returns the number of bytes written, or a negative value if src is
// corrupt or dst is too small. dst is never written beyond len(dst).
func UncompressBlock(dst, src []byte) (ret int) {
	// Restrict capacities so we don't read or write out of bounds.
	dst = dst[:len(dst):len(dst)]
	src = src[:len(src):len(src)]

	const debug = false

	const hasError = -2

	if len(src) == 0 {
		return hasError
	}

	defer func() {
		if r := recover(); r != nil {
			if debug {
				fmt.Println("recover:", r)
			}
			ret = hasError
		}
	}()

	var si, di uint
	for {
		if si >= uint(len(src)) {
			return hasError
		}
		// Literals and match lengths (token).
		b := uint(src[si])
		si++

		// Literals.
		if lLen := b >> 4; lLen > 0 {
			if lLen == runMask {
				for {
					x := uint(src[si])
					if lLen += x; int(lLen) < 0 {
						if debug {
							fmt.Println("int(lLen) < 0")
						}
						return hasError
					}
					si++
					if x != 0xFF {
						break
					}
				}
			}
			if di+lLen > uint(len(dst)) || si+lLen > uint(len(src)) {
				return hasError
			}
			copy(dst[di:di+lLen], src[si:si+lLen])
			si += lLen
			di += lLen
			if debug {
				fmt.Println("ll:", lLen)
			}
		}

		mLen := b & runMask
		if si == uint(len(src)) && mLen == 0 {
			break
		} else if si >= uint(len(src))-2 {
			return hasError
		}

		offset := u16(src[si:])
		if offset == 0 {
			return hasError
		}
		si += 2

		// Match.
		mLen += minMatch
		if mLen == minMatch+runMask {
			for {
				x := uint(src[si])
				if mLen += x; int(mLen) < 0 {
					return hasError
				}
				si++
				if x != 0xFF {
					break
				}
			}
		}
		if debug {
			fmt.Println("ml:", mLen, "offset:", offset)
		}

		// Copy the match.
		if di < offset || di+mLen > uint(len(dst)) {
			return hasError
		}

		expanded := dst[di-offset:]
		if mLen > offset {
			// Efficiently copy the match dst[di-offset:di] into the dst slice.
			bytesToCopy := offset * (mLen / offset)
			for n := offset; n <= bytesToCopy+offset; n *= 2 {
				copy(expanded[n:], expanded[:n])
			}
			di += bytesToCopy
			mLen -= bytesToCopy
		}
		di += uint(copy(dst[di:di+mLen], expanded[:mLen]))
	}

	return int(di)
}

func u16(p []byte) uint { return uint(binary.LittleEndian.Uint16(p)) }
