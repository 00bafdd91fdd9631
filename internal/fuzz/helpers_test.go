package fuzz

import (
	"bytes"
	"testing"
)

func TestUnmarshalCorpusFile(t *testing.T) {
	b := []byte("go test fuzz v1\n[]byte(\"hello\\x00world\")\n\n[]byte(\"\")\n")
	vals, err := unmarshalCorpusFile(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(vals) != 2 {
		t.Fatalf("want 2 values, got %d", len(vals))
	}
	if !bytes.Equal(vals[0], []byte("hello\x00world")) || len(vals[1]) != 0 {
		t.Fatalf("got %q", vals)
	}

	for _, bad := range []string{
		"",
		"go test fuzz v1",
		"go test fuzz v1\nstring(\"x\")",
		"go test fuzz v1\n[4]byte(\"x\")",
		"go test fuzz v1\n[]byte(1)",
	} {
		if _, err := unmarshalCorpusFile([]byte(bad)); err == nil {
			t.Errorf("%q: want error", bad)
		}
	}
}

func TestUnmarshalSizePrefixed(t *testing.T) {
	v, err := unmarshalSizePrefixed([]byte{3, 0, 0, 0, 'a', 'b', 'c', 'd'})
	if err != nil {
		t.Fatal(err)
	}
	if string(v) != "abc" {
		t.Fatalf("got %q", v)
	}
	if _, err := unmarshalSizePrefixed([]byte{3, 0}); err == nil {
		t.Error("short entry: want error")
	}
	if _, err := unmarshalSizePrefixed([]byte{9, 0, 0, 0, 'a'}); err == nil {
		t.Error("oversized entry: want error")
	}
}
