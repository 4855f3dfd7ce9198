// Package boundary is the stable exported surface consumed by the hardware
// proxy and the host-runtime bridge. It re-exposes the protection engine's
// six control operations on an opaque handle, the masker/injector helpers,
// and the confusion-matrix helpers, adding no semantics of its own beyond
// memory safety and lock discipline.
package boundary

import (
	"sync"

	"github.com/silenceguard/protect/internal/confusion"
	"github.com/silenceguard/protect/internal/mask"
	"github.com/silenceguard/protect/internal/protect"
)

// Handle is an opaque reference to the process-wide protection engine.
// External callers obtain one from GetInstance and pass it back to every
// engine operation; they cannot reach engine internals through it.
type Handle struct {
	e *protect.Engine
}

// GetInstance returns a handle to the process-wide engine singleton,
// constructing it on first call.
func GetInstance() Handle {
	return Handle{e: protect.Instance()}
}

// valid reports whether h was obtained from GetInstance. Operations on an
// invalid handle are no-ops returning neutral values, never panics — no
// error may cross the audio thread.
func (h Handle) valid() bool {
	return h.e != nil
}

// PushToBuffer delivers a captured PCM block (s16le mono 16kHz bytes) to the
// engine. An odd trailing byte is ignored.
func PushToBuffer(h Handle, data []byte) {
	if !h.valid() {
		return
	}
	h.e.PushToBuffer(data)
}

// ShouldIntercept reports, as 0 or 1, whether the current outgoing block
// must be masked, consuming one countdown tick when it returns 1.
func ShouldIntercept(h Handle) int {
	if !h.valid() {
		return 0
	}
	if h.e.ShouldIntercept() {
		return 1
	}
	return 0
}

// SetTestInterceptEnabled arms (nonzero) or disarms (zero) the test
// override countdown.
func SetTestInterceptEnabled(h Handle, enabled int) {
	if !h.valid() {
		return
	}
	h.e.SetTestInterceptEnabled(enabled != 0)
}

// UpdateConfig hands configuration text to the engine, replacing the active
// snapshot. Malformed values fall back to defaults; the call never fails.
func UpdateConfig(h Handle, text string) {
	if !h.valid() {
		return
	}
	h.e.UpdateConfig(text)
}

// MarkFalsePositive records a reported false-positive word and timestamp.
func MarkFalsePositive(h Handle, word string, timestamp int64) {
	if !h.valid() {
		return
	}
	h.e.MarkFalsePositive(word, timestamp)
}

// LoadModel loads an inference model from path. It may block on file I/O
// and must be called off the audio thread.
func LoadModel(h Handle, path string) bool {
	if !h.valid() {
		return false
	}
	return h.e.LoadModel(path)
}

// ProcessMask rewrites buf in place with envelope-modulated white noise
// using the engine's masker, under the engine lock — the high-quality
// masking path the proxy invokes when ShouldIntercept returned 1.
func ProcessMask(h Handle, buf []int16) {
	if !h.valid() {
		return
	}
	h.e.WithMasker(func(m *mask.Masker) {
		m.Process(buf)
	})
}

// ApplyBeep overwrites buf with the legacy beep tone.
func ApplyBeep(buf []int16) {
	mask.ApplyBeep(buf)
}

// ApplyCrossFade cross-fades buf into the beep over the first xfade frames.
func ApplyCrossFade(buf []int16, xfade int) {
	mask.ApplyCrossFade(buf, xfade)
}

// ProcessWithRingBuffer cross-fades the leading region of buf and beeps the
// tail, for time-machine overwrites of already-emitted audio.
func ProcessWithRingBuffer(buf []int16, xfade int) {
	mask.ProcessWithRingBuffer(buf, xfade)
}

// The confusion matrix is a process-wide table with explicit load
// boundaries. Its own mutex serialises control-thread loads against
// lookups; it is independent of the engine lock.
var (
	confMu    sync.Mutex
	confTable = confusion.New()
)

// LoadConfusionMatrix loads the variant table from path, replacing any
// prior contents. Returns 1 on success, 0 on failure (the table is left
// empty on failure).
func LoadConfusionMatrix(path string) int {
	confMu.Lock()
	defer confMu.Unlock()
	if err := confTable.Load(path); err != nil {
		return 0
	}
	return 1
}

// GetPhonemeVariants returns up to max variant strings for target, or nil
// if the target is absent. The returned strings are invalidated by the next
// LoadConfusionMatrix call.
func GetPhonemeVariants(target string, max int) []string {
	confMu.Lock()
	defer confMu.Unlock()
	return confTable.Variants(target, max)
}

// StringSimilarity returns the normalised edit-distance similarity of a
// and b in [0, 1].
func StringSimilarity(a, b string) float32 {
	return confusion.StringSimilarity(a, b)
}

// CalculatePhonemeSimilarity is the placeholder posterior-based similarity
// contract; it always returns 0.
func CalculatePhonemeSimilarity(a, b []float32) float32 {
	return confusion.PhonemeSimilarity(a, b)
}
