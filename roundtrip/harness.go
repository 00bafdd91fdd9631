// Package roundtrip implements a round trip oracle for block compressors.
//
// Each fuzz input is split into parameters, read from the end of the input,
// and a payload, the remaining front of the input. The payload is compressed
// with a bounded destination and with a fixed destination size, and each
// result must decompress to the original bytes. Any violation panics, which
// the fuzz engine reports as a crash.
package roundtrip

import (
	"bytes"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/klauspost/lz4fuzz/internal/fuzz"
)

const debug = false

// Params are the test parameters derived from a fuzz input.
type Params struct {
	// DstCapacity is the size of the compression destination.
	DstCapacity int
	// Level is the compression level.
	Level int
	// Size is the payload size. The payload is the first Size bytes of the input.
	Size int
}

// Harness runs fuzz inputs against a Codec.
// A Harness can be used concurrently.
type Harness struct {
	codec Codec
	dsc   DestSizeCodec
	o     options

	scratch sync.Pool

	// Scratch acquired and released, for tests.
	acquired, released atomic.Int64
}

// scratch is the state owned by a single invocation.
type scratch struct {
	p    fuzz.Producer
	dst  []byte
	rt   []byte
	comp DestSizeCompressor
}

// New returns a Harness for c.
func New(c Codec, opts ...Option) (*Harness, error) {
	if c == nil {
		return nil, fmt.Errorf("codec is nil")
	}
	h := Harness{codec: c}
	h.o.setDefault(c)
	for _, o := range opts {
		err := o(&h.o)
		if err != nil {
			return nil, err
		}
	}
	min, max := c.Levels()
	if h.o.levelMin < min || h.o.levelMax > max || h.o.levelMin < 0 {
		return nil, fmt.Errorf("level range [%d, %d] outside codec levels [%d, %d]", h.o.levelMin, h.o.levelMax, min, max)
	}
	if h.o.destSize {
		dsc, ok := c.(DestSizeCodec)
		if !ok {
			return nil, fmt.Errorf("codec %T has no fixed destination size mode", c)
		}
		h.dsc = dsc
	}
	h.scratch.New = func() interface{} { return new(scratch) }
	if debug {
		fmt.Printf("harness: codec %T, levels [%d, %d], dest size: %v, references: %d\n", c, h.o.levelMin, h.o.levelMax, h.o.destSize, len(h.o.refs))
		if h.dsc != nil {
			fmt.Println("harness: compressor state size:", h.dsc.StateSize())
		}
	}
	return &h, nil
}

// Run executes one fuzz invocation on data.
// It panics with a *Violation if a round trip fails.
// data is not modified. The return value is always 0.
func (h *Harness) Run(data []byte) int {
	if err := h.check(data); err != nil {
		panic(err)
	}
	return 0
}

// Params returns the parameters Run derives from data.
func (h *Harness) Params(data []byte) Params {
	var p fuzz.Producer
	p.Reset(data)
	return h.derive(&p)
}

// DeriveParams returns the parameters a Harness for c, built with opts,
// derives from data.
func DeriveParams(data []byte, c Codec, opts ...Option) (Params, error) {
	h, err := New(c, opts...)
	if err != nil {
		return Params{}, err
	}
	return h.Params(data), nil
}

// derive reads the parameters from the end of the input.
// The capacity is read first, bounded by the worst case for the whole input.
func (h *Harness) derive(p *fuzz.Producer) Params {
	bound := h.codec.CompressBound(p.Remaining())
	if bound < 0 {
		bound = 0
	}
	if uint64(bound) > math.MaxUint32 {
		bound = math.MaxUint32
	}
	dstCapacity := p.Uint32(0, uint32(bound))
	level := p.Uint32(uint32(h.o.levelMin), uint32(h.o.levelMax))
	return Params{
		DstCapacity: int(dstCapacity),
		Level:       int(level),
		Size:        p.Remaining(),
	}
}

func (h *Harness) acquire(data []byte) *scratch {
	s := h.scratch.Get().(*scratch)
	s.p.Reset(data)
	h.acquired.Add(1)
	return s
}

func (h *Harness) release(s *scratch) {
	s.p.Reset(nil)
	h.scratch.Put(s)
	h.released.Add(1)
}

// buffer returns a zeroed slice of n bytes, reusing b if possible.
func buffer(b *[]byte, n int) []byte {
	if cap(*b) < n {
		*b = make([]byte, n)
	}
	buf := (*b)[:n:n]
	clear(buf)
	return buf
}

func (h *Harness) check(data []byte) error {
	s := h.acquire(data)
	defer h.release(s)

	p := h.derive(&s.p)
	payload := s.p.Payload()
	dst := buffer(&s.dst, p.DstCapacity)
	rt := buffer(&s.rt, p.Size)
	if debug {
		fmt.Printf("params: %+v\n", p)
	}

	// If compression succeeds it must round trip correctly.
	n := h.codec.Compress(payload, dst, p.Level)
	if debug {
		fmt.Printf("%v: compressed %d -> %d\n", PathBounded, p.Size, n)
	}
	if n > 0 {
		if n > len(dst) {
			return &Violation{Path: PathBounded, Params: p, Compressed: n, Want: len(dst), Got: n, Err: ErrOutOfBounds}
		}
		if err := h.verify(PathBounded, p, dst[:n], rt, payload); err != nil {
			return err
		}
	}

	if p.DstCapacity == 0 || h.dsc == nil {
		return nil
	}

	// Compression must make progress and round trip correctly.
	if s.comp == nil {
		s.comp = h.dsc.NewCompressor()
	}
	clear(dst)
	n, consumed := s.comp.CompressBlockDestSize(payload, dst, p.Level)
	if debug {
		fmt.Printf("%v: compressed %d of %d -> %d\n", PathDestSize, consumed, p.Size, n)
	}
	if n <= 0 {
		return &Violation{Path: PathDestSize, Params: p, Compressed: n, Err: ErrDestSizeFailed}
	}
	if n > len(dst) || consumed < 0 || consumed > len(payload) {
		return &Violation{Path: PathDestSize, Params: p, Compressed: n, Want: len(payload), Got: consumed, Err: ErrOutOfBounds}
	}
	return h.verify(PathDestSize, p, dst[:n], rt, payload[:consumed])
}

// verify decompresses comp into rt with the codec and every reference
// decoder and compares the output to want.
// rt is the full round trip buffer, so decoders are limited to the payload size.
func (h *Harness) verify(path Path, p Params, comp, rt, want []byte) error {
	v := Violation{Path: path, Params: p, Compressed: len(comp), Want: len(want)}
	clear(rt)
	v.Got = h.codec.Decompress(comp, rt)
	if v.Got != len(want) {
		v.Err = ErrSizeMismatch
		return &v
	}
	if !bytes.Equal(rt[:v.Got], want) {
		v.Err = ErrCorruption
		return &v
	}
	for _, ref := range h.o.refs {
		clear(rt)
		v.Got = ref.d.Decompress(comp, rt)
		if v.Got != len(want) || !bytes.Equal(rt[:v.Got], want) {
			v.Reference = ref.name
			v.Err = ErrReferenceMismatch
			return &v
		}
	}
	return nil
}
