package inference

import (
	"os"
	"path/filepath"
	"testing"
)

var _ Adapter = (*StubAdapter)(nil)

func TestStubAdapterLoadModelRequiresRealFile(t *testing.T) {
	a := NewStubAdapter()
	if a.IsLoaded() {
		t.Fatal("expected fresh adapter to be unloaded")
	}
	if a.LoadModel(filepath.Join(t.TempDir(), "missing.bin")) {
		t.Fatal("expected LoadModel to fail for a nonexistent path")
	}
	if a.IsLoaded() {
		t.Fatal("expected adapter to remain unloaded after a failed load")
	}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "missing.bin"), []byte("not-a-real-model"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !a.LoadModel(filepath.Join(dir, "missing.bin")) {
		t.Fatal("expected LoadModel to succeed for an existing file")
	}
	if !a.IsLoaded() {
		t.Fatal("expected adapter to report loaded")
	}
}

func TestStubAdapterRunRequiresLoadedModel(t *testing.T) {
	a := NewStubAdapter()
	var out []float32
	if a.Run([]float32{1, 2, 3}, &out) {
		t.Fatal("expected Run to fail before a model is loaded")
	}
	if out != nil {
		t.Fatal("expected out to remain untouched")
	}
}

func TestStubAdapterRunProducesSinglePosterior(t *testing.T) {
	a := NewStubAdapter()
	dir := t.TempDir()
	path := filepath.Join(dir, "model.bin")
	if err := os.WriteFile(path, []byte("model"), 0o644); err != nil {
		t.Fatal(err)
	}
	a.LoadModel(path)

	var out []float32
	if !a.Run([]float32{1, -2, 3}, &out) {
		t.Fatal("expected Run to succeed once loaded")
	}
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1", len(out))
	}
	want := float32(2) // mean(|1|, |-2|, |3|) = 2
	if out[0] != want {
		t.Fatalf("out[0] = %v, want %v", out[0], want)
	}
}
