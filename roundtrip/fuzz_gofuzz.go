//go:build gofuzz
// +build gofuzz

package roundtrip

import (
	"github.com/klauspost/compress"
)

var lz4Harness *Harness

func init() {
	var err error
	lz4Harness, err = New(LZ4, WithReference("pierrec", PierrecReference), WithReference("s2", S2Reference))
	if err != nil {
		panic(err)
	}
}

// Fuzz is the go-fuzz entry point.
// Inputs with a compressible payload are given priority.
func Fuzz(data []byte) int {
	lz4Harness.Run(data)
	p := lz4Harness.Params(data)
	if compress.Estimate(data[:p.Size]) > 0.1 {
		return 1
	}
	return 0
}
