//go:build go1.18
// +build go1.18

package flate

import (
	"bytes"
	"compress/flate"
	"io"
	"testing"
)

const fuzzBufferSize = 1 << 15

func FuzzInflate(f *testing.F) {
	f.Add(hello)
	f.Add([]byte{})
	f.Fuzz(func(t *testing.T, source []byte) {
		if len(source) > fuzzBufferSize/2 {
			t.Skip()
		}
		input := compress(source)
		r, err := NewReaderConfig(bytes.NewReader(input), Config{BufferSize: fuzzBufferSize, Raw: true})
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(r)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(data, source) {
			t.Fatal()
		}
	})
}

func FuzzRoundTrip(f *testing.F) {
	f.Add(hello, true)
	f.Add([]byte{0}, false)
	f.Fuzz(func(t *testing.T, source []byte, speed bool) {
		if len(source) > fuzzBufferSize {
			t.Skip()
		}
		level := HuffmanOnly
		if speed {
			level = BestSpeed
		}
		e, err := NewEngine(Config{BufferSize: fuzzBufferSize, Level: level, Raw: true})
		if err != nil {
			t.Fatal(err)
		}
		compressed, err := e.Compress(source)
		if err != nil {
			t.Fatal(err)
		}
		data, err := io.ReadAll(flate.NewReader(bytes.NewReader(compressed)))
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(data, source) {
			t.Fatal("stdlib mismatch")
		}
		if len(compressed) > fuzzBufferSize {
			return
		}
		data, err = e.Decompress(compressed)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(data, source) {
			t.Fatal("round trip mismatch")
		}
	})
}

// Arbitrary input must end in a result or a fault, never a panic.
func FuzzDecodeGarbage(f *testing.F) {
	f.Add([]byte{0x07})
	f.Add(compress(hello))
	f.Fuzz(func(t *testing.T, input []byte) {
		if len(input) > fuzzBufferSize {
			t.Skip()
		}
		e, err := NewEngine(Config{BufferSize: fuzzBufferSize, Raw: true})
		if err != nil {
			t.Fatal(err)
		}
		e.Decompress(input)
	})
}
