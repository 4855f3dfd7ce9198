package buffer

import (
	"math"
	"testing"

	"pgregory.net/rapid"
)

func TestWriteReadRoundTrip(t *testing.T) {
	b := New()
	in := []int16{1, 2, 3, 4, 5}
	b.Write(in)
	if b.Size() != len(in) {
		t.Fatalf("size = %d, want %d", b.Size(), len(in))
	}
	out := make([]int16, len(in))
	n := b.Read(out)
	if n != len(in) {
		t.Fatalf("read returned %d, want %d", n, len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("out[%d] = %d, want %d", i, out[i], in[i])
		}
	}
}

func TestSizeSaturatesAtCapacity(t *testing.T) {
	b := New()
	b.Write(make([]int16, Capacity+500))
	if b.Size() != Capacity {
		t.Fatalf("size = %d, want %d", b.Size(), Capacity)
	}
}

func TestWrapAroundKeepsMostRecent(t *testing.T) {
	b := New()
	total := 10000
	samples := make([]int16, total)
	for i := range samples {
		samples[i] = int16(i % 32768)
	}
	b.Write(samples)

	out := make([]int16, Capacity)
	n := b.Read(out)
	if n != Capacity {
		t.Fatalf("read returned %d, want %d", n, Capacity)
	}
	want := samples[total-Capacity:]
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("out[%d] = %d, want %d", i, out[i], want[i])
		}
	}
}

func TestReadClampsToRequestedLength(t *testing.T) {
	b := New()
	b.Write([]int16{7, 8, 9})
	out := make([]int16, 100)
	n := b.Read(out)
	if n != 3 {
		t.Fatalf("read returned %d, want 3", n)
	}
}

func TestAtAddressesMostRecentWrite(t *testing.T) {
	b := New()
	b.Write([]int16{10, 20, 30})
	// offset 1 refers to the most recently written sample (30).
	idx := b.At(1)
	if b.Raw()[idx] != 30 {
		t.Fatalf("At(1) = %d, want 30", b.Raw()[idx])
	}
	idx = b.At(3)
	if b.Raw()[idx] != 10 {
		t.Fatalf("At(3) = %d, want 10", b.Raw()[idx])
	}
}

// TestSineReadbackViaOffsets writes a deterministic sine and checks that
// offset addressing recovers every retained sample exactly — int16 storage
// is lossless, so readback is bit-identical.
func TestSineReadbackViaOffsets(t *testing.T) {
	b := New()
	total := 5000
	samples := make([]int16, total)
	for i := range samples {
		samples[i] = int16(12000 * math.Sin(2*math.Pi*200*float64(i)/16000))
	}
	b.Write(samples)

	for offset := 1; offset <= b.Size(); offset++ {
		got := b.Raw()[b.At(uint64(offset))]
		want := samples[total-offset]
		if got != want {
			t.Fatalf("At(%d) = %d, want %d", offset, got, want)
		}
	}
}

// TestPropertySizeTracksTotalWritten checks, for arbitrary sequences of
// writes, that size == min(total written, Capacity) and that a subsequent
// read returns exactly that many frames in emission order.
func TestPropertySizeTracksTotalWritten(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		b := New()
		var all []int16
		chunks := rapid.SliceOfN(rapid.SliceOfN(rapid.Int16(), 0, 500), 0, 20).Draw(t, "chunks")
		for _, c := range chunks {
			b.Write(c)
			all = append(all, c...)
		}
		wantSize := len(all)
		if wantSize > Capacity {
			wantSize = Capacity
		}
		if b.Size() != wantSize {
			t.Fatalf("size = %d, want %d", b.Size(), wantSize)
		}
		out := make([]int16, wantSize)
		n := b.Read(out)
		if n != wantSize {
			t.Fatalf("read returned %d, want %d", n, wantSize)
		}
		want := all[len(all)-wantSize:]
		for i := range want {
			if out[i] != want[i] {
				t.Fatalf("mismatch at %d: got %d want %d", i, out[i], want[i])
			}
		}
	})
}
