package protect

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/silenceguard/protect/internal/buffer"
	"github.com/silenceguard/protect/internal/inference"
	"github.com/silenceguard/protect/internal/mask"
)

// fixedAdapter is a test double returning a fixed posterior vector once
// loaded, used to exercise the decision cycle deterministically.
type fixedAdapter struct {
	loaded     bool
	posteriors []float32
	runOK      bool
}

func (f *fixedAdapter) LoadModel(string) bool { f.loaded = true; return true }
func (f *fixedAdapter) IsLoaded() bool        { return f.loaded }
func (f *fixedAdapter) Run(mel []float32, out *[]float32) bool {
	if !f.loaded || !f.runOK {
		return false
	}
	*out = append((*out)[:0], f.posteriors...)
	return true
}

func TestTestOverrideInterceptsExactCount(t *testing.T) {
	e := New(nil, &fixedAdapter{})
	e.SetTestInterceptEnabled(true)

	count := 0
	for i := 0; i < 2000; i++ {
		if e.ShouldIntercept() {
			count++
		}
	}
	if count != testInterceptFrames {
		t.Fatalf("intercept count = %d, want %d", count, testInterceptFrames)
	}
	if e.ShouldIntercept() {
		t.Fatal("expected false after countdown exhausted")
	}
}

func TestSetTestInterceptDisabledClearsCountdown(t *testing.T) {
	e := New(nil, &fixedAdapter{})
	e.SetTestInterceptEnabled(true)
	if !e.ShouldIntercept() {
		t.Fatal("expected intercept while override armed")
	}
	e.SetTestInterceptEnabled(false)
	if e.ShouldIntercept() {
		t.Fatal("expected no intercept after override disabled")
	}
}

func TestUpdateConfigReadback(t *testing.T) {
	e := New(nil, &fixedAdapter{})
	e.UpdateConfig(`{"global_sensitivity": 0.5, "keywords": [{},{},{}], "masking": {"attack": 20, "release": 80}}`)

	snap := e.ConfigSnapshot()
	if snap.GlobalSensitivity != 0.5 {
		t.Fatalf("GlobalSensitivity = %v, want 0.5", snap.GlobalSensitivity)
	}
	if snap.KeywordCount != 3 {
		t.Fatalf("KeywordCount = %v, want 3", snap.KeywordCount)
	}

	wantAttack := float32(1 - math.Exp(-1000/(20.0*16000)))
	wantRelease := float32(1 - math.Exp(-1000/(80.0*16000)))
	e.WithMasker(func(m *mask.Masker) {
		attack, release := m.EnvelopeCoeffs()
		if attack != wantAttack {
			t.Fatalf("attack coeff = %v, want %v", attack, wantAttack)
		}
		if release != wantRelease {
			t.Fatalf("release coeff = %v, want %v", release, wantRelease)
		}
	})
}

func TestUpdateConfigMalformedFallsBackToDefaults(t *testing.T) {
	e := New(nil, &fixedAdapter{})
	e.UpdateConfig(`total nonsense`)
	snap := e.ConfigSnapshot()
	if snap.GlobalSensitivity != 0.85 {
		t.Fatalf("GlobalSensitivity = %v, want default 0.85", snap.GlobalSensitivity)
	}
	if snap.Raw != "total nonsense" {
		t.Fatalf("Raw = %q, want verbatim text", snap.Raw)
	}
}

func TestArmingViaRisk(t *testing.T) {
	adapter := &fixedAdapter{posteriors: []float32{1.0}, runOK: true}
	e := New(nil, adapter)
	e.LoadModel("ignored-by-fixed-adapter")
	e.UpdateConfig(`{"global_sensitivity": 0.5}`)

	pcm := make([]byte, 16000*2) // one 500ms-crossing push of silence
	e.PushToBuffer(pcm)

	count := 0
	for i := 0; i < muteLengthFrames; i++ {
		if e.ShouldIntercept() {
			count++
		}
	}
	if count != muteLengthFrames {
		t.Fatalf("intercept count = %d, want %d", count, muteLengthFrames)
	}
	if e.ShouldIntercept() {
		t.Fatal("expected false once the countdown is exhausted")
	}
}

func TestReArmingReplacesCountdown(t *testing.T) {
	adapter := &fixedAdapter{posteriors: []float32{1.0}, runOK: true}
	e := New(nil, adapter)
	e.LoadModel("ignored")
	e.UpdateConfig(`{"global_sensitivity": 0.5}`)

	pcm := make([]byte, 16000*2)
	e.PushToBuffer(pcm)
	for i := 0; i < 1000; i++ {
		e.ShouldIntercept()
	}

	// A second arming while armed replaces the counter (most recent
	// decision wins): the full mute length is available again.
	e.PushToBuffer(pcm)
	count := 0
	for e.ShouldIntercept() {
		count++
	}
	if count != muteLengthFrames {
		t.Fatalf("intercept count after re-arm = %d, want %d", count, muteLengthFrames)
	}
}

func TestNoModelNoArming(t *testing.T) {
	adapter := &fixedAdapter{posteriors: []float32{1.0}, runOK: true}
	// LoadModel is never called: adapter.loaded stays false.
	e := New(nil, adapter)
	e.UpdateConfig(`{"global_sensitivity": 0.1}`)

	for i := 0; i < 4; i++ {
		e.PushToBuffer(make([]byte, 16000*2))
	}
	if e.ShouldIntercept() {
		t.Fatal("expected no arming when no model is loaded")
	}
}

func TestRiskBelowSensitivityDoesNotArm(t *testing.T) {
	adapter := &fixedAdapter{posteriors: []float32{0.2}, runOK: true}
	e := New(nil, adapter)
	e.LoadModel("ignored")
	e.UpdateConfig(`{"global_sensitivity": 0.9}`)

	e.PushToBuffer(make([]byte, 16000*2))
	if e.ShouldIntercept() {
		t.Fatal("expected no arming for risk below the threshold")
	}
}

func TestPushToBufferIgnoresOddTrailingByte(t *testing.T) {
	e := New(nil, &fixedAdapter{})
	e.PushToBuffer([]byte{0x01, 0x02, 0x03}) // 1 frame + 1 stray byte
	e.WithRingBuffer(func(b *buffer.Buffer) {
		if b.Size() != 1 {
			t.Fatalf("ring size = %d, want 1", b.Size())
		}
		out := make([]int16, 1)
		b.Read(out)
		if out[0] != 0x0201 {
			t.Fatalf("frame = %#x, want 0x0201", out[0])
		}
	})
}

func TestMarkFalsePositiveIsRecorded(t *testing.T) {
	e := New(nil, &fixedAdapter{})
	e.MarkFalsePositive("banana", 12345)
	word, ts := e.LastFalsePositive()
	if word != "banana" || ts != 12345 {
		t.Fatalf("got (%q, %d), want (%q, %d)", word, ts, "banana", 12345)
	}
}

func TestLoadModelForwardsToAdapter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.bin")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	// The real stub adapter checks file existence, so the engine's forward
	// is observable through it.
	e := New(nil, inference.NewStubAdapter())
	if e.LoadModel(filepath.Join(dir, "missing.bin")) {
		t.Fatal("expected LoadModel to fail for a missing file")
	}
	if !e.LoadModel(path) {
		t.Fatal("expected LoadModel to succeed for an existing file")
	}
}

func TestInstanceIsASingleton(t *testing.T) {
	if Instance() != Instance() {
		t.Fatal("expected Instance to return the same engine")
	}
}
