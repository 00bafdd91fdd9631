package roundtrip

import (
	rdebug "runtime/debug"
	"testing"

	"github.com/klauspost/lz4fuzz/internal/fuzz"
)

func addCorpus(f *testing.F) {
	fuzz.AddFromZip(f, "testdata/fuzz/roundtrip-corpus-raw.zip", fuzz.TypeRaw, testing.Short())
	fuzz.AddFromZip(f, "testdata/fuzz/roundtrip-corpus-encoded.zip", fuzz.TypeGoFuzz, testing.Short())
	fuzz.AddFromZip(f, "testdata/fuzz/roundtrip-oss.zip", fuzz.TypeOSSFuzz, false)
}

func fuzzHarness(f *testing.F, h *Harness) {
	f.Fuzz(func(t *testing.T, data []byte) {
		defer func() {
			if r := recover(); r != nil {
				rdebug.PrintStack()
				t.Fatal(r)
			}
		}()
		h.Run(data)
	})
}

func FuzzLZ4(f *testing.F) {
	addCorpus(f)
	fuzzHarness(f, newHarness(f, LZ4, WithReference("pierrec", PierrecReference), WithReference("s2", S2Reference)))
}

func FuzzPierrec(f *testing.F) {
	addCorpus(f)
	fuzzHarness(f, newHarness(f, PierrecLZ4, WithReference("lz4", LZ4), WithReference("s2", S2Reference)))
}
