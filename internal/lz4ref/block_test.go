package lz4ref

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"
)

func testInputs() map[string][]byte {
	rng := rand.New(rand.NewSource(1))
	random := make([]byte, 70<<10)
	rng.Read(random)
	text := bytes.Repeat([]byte("The quick brown fox jumps over the lazy dog. "), 200)
	mixed := append(append([]byte{}, random[:5000]...), text...)
	mixed = append(mixed, random[:5000]...)
	return map[string][]byte{
		"empty":    {},
		"one":      {'a'},
		"short":    []byte("abcdefghijkl"),
		"min-len":  []byte("aaaaaaaaaaaaa"),
		"zeros":    make([]byte, 100<<10),
		"repeat":   bytes.Repeat([]byte{'x'}, 1000),
		"text":     text,
		"random":   random,
		"mixed":    mixed,
		"periodic": bytes.Repeat([]byte{1, 2, 3, 4, 5, 6, 7}, 3000),
	}
}

func TestCompressBlockRoundTrip(t *testing.T) {
	for name, data := range testInputs() {
		for _, level := range []int{LevelMin, 5, LevelDefault, LevelMax} {
			dst := make([]byte, CompressBlockBound(len(data)))
			n, err := CompressBlock(data, dst, level)
			if err != nil {
				t.Fatalf("%s level %d: %v", name, level, err)
			}
			if n <= 0 || n > len(dst) {
				t.Fatalf("%s level %d: invalid size %d", name, level, n)
			}
			got := make([]byte, len(data))
			rt := UncompressBlock(got, dst[:n])
			if rt != len(data) {
				t.Fatalf("%s level %d: want %d bytes, got %d", name, level, len(data), rt)
			}
			if !bytes.Equal(got, data) {
				t.Fatalf("%s level %d: output mismatch", name, level)
			}
		}
	}
}

func TestCompressBlockLastLiterals(t *testing.T) {
	data := bytes.Repeat([]byte("abcd"), 100)
	dst := make([]byte, CompressBlockBound(len(data)))
	n, err := CompressBlock(data, dst, LevelDefault)
	if err != nil {
		t.Fatal(err)
	}
	// The final sequence is literals only and holds at least five bytes.
	out := dst[:n]
	if tail := out[len(out)-lastLiterals:]; !bytes.Equal(tail, data[len(data)-lastLiterals:]) {
		t.Fatalf("last literals: got %q, want %q", tail, data[len(data)-lastLiterals:])
	}
}

func TestCompressBlockTooSmall(t *testing.T) {
	data := testInputs()["random"][:4096]
	for _, size := range []int{0, 1, 16, len(data) / 2, len(data)} {
		dst := make([]byte, size, size+64)
		guard := dst[size : size+64]
		for i := range guard {
			guard[i] = 0xAA
		}
		n, err := CompressBlock(data, dst, LevelDefault)
		if err != ErrDstTooSmall {
			t.Fatalf("size %d: want ErrDstTooSmall, got n=%d err=%v", size, n, err)
		}
		for i, b := range guard {
			if b != 0xAA {
				t.Fatalf("size %d: wrote beyond destination at %d", size, size+i)
			}
		}
	}
}

func TestCompressBlockEmpty(t *testing.T) {
	if _, err := CompressBlock(nil, nil, LevelDefault); err != ErrDstTooSmall {
		t.Fatalf("want ErrDstTooSmall, got %v", err)
	}
	dst := make([]byte, 1)
	n, err := CompressBlock(nil, dst, LevelDefault)
	if err != nil || n != 1 {
		t.Fatalf("want 1 byte, got %d, %v", n, err)
	}
	if got := UncompressBlock(nil, dst[:n]); got != 0 {
		t.Fatalf("want 0, got %d", got)
	}
}

func TestCompressBlockDestSize(t *testing.T) {
	for name, data := range testInputs() {
		bound := CompressBlockBound(len(data))
		for _, size := range []int{1, 2, 5, 6, 7, 17, 100, 270, 4096, bound} {
			for _, level := range []int{LevelMin, LevelMax} {
				dst := make([]byte, size)
				n, consumed := CompressBlockDestSize(data, dst, level)
				if n <= 0 || n > size {
					t.Fatalf("%s size %d level %d: invalid output size %d", name, size, level, n)
				}
				if consumed < 0 || consumed > len(data) {
					t.Fatalf("%s size %d level %d: invalid consumed %d", name, size, level, consumed)
				}
				if size >= bound && consumed != len(data) {
					t.Fatalf("%s size %d: want all %d bytes consumed, got %d", name, size, len(data), consumed)
				}
				got := make([]byte, len(data))
				rt := UncompressBlock(got, dst[:n])
				if rt != consumed {
					t.Fatalf("%s size %d level %d: want %d bytes, got %d", name, size, level, consumed, rt)
				}
				if !bytes.Equal(got[:rt], data[:consumed]) {
					t.Fatalf("%s size %d level %d: output mismatch", name, size, level)
				}
			}
		}
	}
}

func TestCompressBlockDestSizeZero(t *testing.T) {
	n, consumed := CompressBlockDestSize([]byte("hello"), nil, LevelDefault)
	if n != 0 || consumed != 0 {
		t.Fatalf("want 0, 0; got %d, %d", n, consumed)
	}
}

func TestCompressBlockDestSizeProgress(t *testing.T) {
	// A compressible input must make more progress than its output size.
	data := bytes.Repeat([]byte{'z'}, 1000)
	dst := make([]byte, 20)
	n, consumed := CompressBlockDestSize(data, dst, LevelDefault)
	if consumed <= n {
		t.Fatalf("consumed %d bytes for %d output bytes", consumed, n)
	}
}

func TestCompressBlockDeterministic(t *testing.T) {
	data := testInputs()["mixed"]
	var c Compressor
	a := make([]byte, CompressBlockBound(len(data)))
	b := make([]byte, len(a))
	na, err := c.CompressBlock(data, a, LevelMax)
	if err != nil {
		t.Fatal(err)
	}
	// Dirty the state with another input first.
	if _, err := c.CompressBlock(testInputs()["text"], b, LevelMin); err != nil {
		t.Fatal(err)
	}
	nb, err := c.CompressBlock(data, b, LevelMax)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a[:na], b[:nb]) {
		t.Fatal("output differs between runs")
	}
}

func TestCompressBlockLevels(t *testing.T) {
	data := testInputs()["mixed"]
	dst := make([]byte, CompressBlockBound(len(data)))
	low, err := CompressBlock(data, dst, LevelMin)
	if err != nil {
		t.Fatal(err)
	}
	high, err := CompressBlock(data, dst, LevelMax)
	if err != nil {
		t.Fatal(err)
	}
	t.Log("level", LevelMin, "size:", low, "level", LevelMax, "size:", high)
	if high > len(data)/2 {
		t.Fatalf("level %d: %d bytes, input %d bytes", LevelMax, high, len(data))
	}
}

func TestUncompressBlockCorrupt(t *testing.T) {
	for name, src := range map[string][]byte{
		"empty":          {},
		"offset-zero":    {0x10, 'a', 0, 0, 0x00},
		"offset-too-far": {0x10, 'a', 5, 0, 0x00},
		"short-literals": {0x50, 'a', 'b'},
		"truncated":      {0xF0},
		"no-offset":      {0x14, 'a'},
	} {
		dst := make([]byte, 64)
		if got := UncompressBlock(dst, src); got >= 0 {
			t.Errorf("%s: want error, got %d", name, got)
		}
	}
}

func TestUncompressBlockLimit(t *testing.T) {
	data := bytes.Repeat([]byte("limit"), 200)
	comp := make([]byte, CompressBlockBound(len(data)))
	n, err := CompressBlock(data, comp, LevelDefault)
	if err != nil {
		t.Fatal(err)
	}
	dst := make([]byte, len(data)-1, len(data)+32)
	guard := dst[len(dst):cap(dst)]
	if got := UncompressBlock(dst, comp[:n]); got >= 0 {
		t.Fatalf("want error for short destination, got %d", got)
	}
	for i, b := range guard {
		if b != 0 {
			t.Fatalf("wrote beyond destination at %d", len(dst)+i)
		}
	}
}

func BenchmarkCompressBlock(b *testing.B) {
	data := testInputs()["mixed"]
	dst := make([]byte, CompressBlockBound(len(data)))
	for _, level := range []int{LevelMin, LevelDefault, LevelMax} {
		b.Run(fmt.Sprint("level-", level), func(b *testing.B) {
			var c Compressor
			b.SetBytes(int64(len(data)))
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := c.CompressBlock(data, dst, level); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
