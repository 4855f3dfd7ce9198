// Package protect implements the protection engine: the orchestrator
// that owns the ring buffer, the inference adapter, the masker, and the
// intercept decision state machine, and exposes the six control operations
// the boundary adapter re-exports.
//
// The engine is a process-wide singleton, guarded throughout by a single
// mutex: every public method except the Masker and RingBuffer borrow
// accessors acquires the lock; PushToBuffer and
// ShouldIntercept never perform I/O; LoadModel may block on file I/O and
// must be called off the audio thread.
package protect

import (
	"log/slog"
	"sync"

	"github.com/silenceguard/protect/internal/buffer"
	"github.com/silenceguard/protect/internal/config"
	"github.com/silenceguard/protect/internal/inference"
	"github.com/silenceguard/protect/internal/mask"
	"github.com/silenceguard/protect/internal/mel"
)

const (
	// decisionWindowSamples is the number of processed samples that triggers
	// a decision cycle — 8000 samples @ 16kHz = 500ms.
	decisionWindowSamples = 8000
	// muteLengthFrames is the intercept countdown length armed by a risk
	// decision — 3200 frames @ 16kHz = 200ms.
	muteLengthFrames = 3200
	// testInterceptFrames is the countdown length armed by the test
	// override — 1600 frames @ 16kHz = 100ms.
	testInterceptFrames = 1600
)

// intercept is the mute-countdown state machine. Once the countdown reaches
// zero it stays armed until the next consume, which clears armed and
// returns false.
type intercept struct {
	armed     bool
	remaining uint32
}

func (i *intercept) arm(frames uint32) {
	i.armed = true
	i.remaining = frames
}

// consume advances the countdown by exactly one tick, returning whether it
// was (still) armed for this tick.
func (i *intercept) consume() bool {
	if !i.armed {
		return false
	}
	if i.remaining == 0 {
		i.armed = false
		return false
	}
	i.remaining--
	return true
}

// Engine is the protection engine. The zero value is not usable; construct
// with New.
type Engine struct {
	mu sync.Mutex

	log *slog.Logger

	ring      *buffer.Buffer
	infer     inference.Adapter
	masker    *mask.Masker
	snapshot  config.Snapshot
	processed uint64

	decision intercept
	test     intercept

	lastFalsePositiveWord string
	lastFalsePositiveTs   int64
}

// New constructs an Engine with the default configuration snapshot, an
// empty ring buffer, a fresh masker, and the given inference adapter. A nil
// logger falls back to slog.Default().
func New(logger *slog.Logger, infer inference.Adapter) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		log:      logger.With("component", "protect.Engine"),
		ring:     buffer.New(),
		infer:    infer,
		masker:   mask.New(),
		snapshot: config.Default(),
	}
}

var (
	instance     *Engine
	instanceOnce sync.Once
)

// Instance returns the process-wide singleton engine, lazily constructed on
// first access with the best inference backend compiled into this build.
// The engine mirrors the single hardware capture stream, so one instance is
// all there ever is.
func Instance() *Engine {
	instanceOnce.Do(func() {
		instance = New(slog.Default(), inference.NewDefaultAdapter())
	})
	return instance
}

// PushToBuffer interprets data as bytes/2 int16 frames, writes them to the
// ring buffer, and advances the processed-sample counter. When the counter
// crosses the decision window, a decision cycle runs. Must not perform I/O;
// called from the audio thread.
func (e *Engine) PushToBuffer(data []byte) {
	frames := bytesToFrames(data)
	if len(frames) == 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.ring.Write(frames)
	e.processed += uint64(len(frames))

	if e.processed >= decisionWindowSamples {
		e.runDecisionCycle(frames)
		e.processed = 0
	}
}

// runDecisionCycle computes a Mel spectrogram over the just-arrived block —
// intentionally the current window, not a ring-buffer backfill — runs
// inference if a model is loaded, and arms the intercept countdown if the
// summed posterior risk exceeds the configured sensitivity. Must be called
// with mu held.
func (e *Engine) runDecisionCycle(frames []int16) {
	mels := make([]float32, mel.MaxFrames*mel.Bins)
	validFrames := mel.ComputeFrames(frames, mels, mel.MaxFrames)
	if validFrames == 0 {
		e.log.Debug("decision cycle skipped: no valid mel frames")
		return
	}
	if e.infer == nil || !e.infer.IsLoaded() {
		return
	}

	var posteriors []float32
	if !e.infer.Run(mels[:validFrames*mel.Bins], &posteriors) {
		e.log.Debug("decision cycle skipped: inference failed")
		return
	}

	var risk float32
	for _, p := range posteriors {
		risk += p
	}

	if risk > e.snapshot.GlobalSensitivity {
		e.decision.arm(muteLengthFrames)
		e.log.Debug("armed intercept", "risk", risk, "sensitivity", e.snapshot.GlobalSensitivity)
	}
}

// ShouldIntercept is called on each outgoing block by the hardware proxy. It
// returns true and decrements whichever countdown is active — the test
// override takes priority over the decision-driven countdown — or false if
// neither is armed. Must not perform I/O; called from the audio thread.
func (e *Engine) ShouldIntercept() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.test.consume() {
		return true
	}
	return e.decision.consume()
}

// SetTestInterceptEnabled arms (or disarms) the test override. Enabling it
// sets the countdown to testInterceptFrames (~100ms).
func (e *Engine) SetTestInterceptEnabled(enabled bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.test.armed = enabled
	if enabled {
		e.test.remaining = testInterceptFrames
	} else {
		e.test.remaining = 0
	}
}

// UpdateConfig parses text leniently (see internal/config) and replaces the
// configuration snapshot. The raw text is retained verbatim for readback.
func (e *Engine) UpdateConfig(text string) {
	snapshot := config.Parse(text)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.snapshot = snapshot
	e.masker.SetEnvelopeParams(snapshot.AttackMs, snapshot.ReleaseMs)
}

// ConfigSnapshot returns the current configuration snapshot for diagnostic
// readback.
func (e *Engine) ConfigSnapshot() config.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot
}

// MarkFalsePositive records the last reported false positive word and
// timestamp. Purely informational.
func (e *Engine) MarkFalsePositive(word string, timestamp int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastFalsePositiveWord = word
	e.lastFalsePositiveTs = timestamp
}

// LastFalsePositive returns the most recently recorded false-positive word
// and timestamp.
func (e *Engine) LastFalsePositive() (word string, timestamp int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastFalsePositiveWord, e.lastFalsePositiveTs
}

// LoadModel forwards to the inference adapter under the engine lock. May
// block on file I/O; callers must invoke it off the audio thread.
func (e *Engine) LoadModel(path string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.infer == nil {
		return false
	}
	ok := e.infer.LoadModel(path)
	if ok {
		e.log.Info("model loaded", "path", path)
	}
	return ok
}

// Masker returns a borrow of the engine's noise masker, for callers (the
// boundary layer) that invoke high-quality masking directly. The borrow
// must only be used under the engine's lock — use WithMasker instead of
// calling methods on the returned value directly.
func (e *Engine) Masker() *mask.Masker {
	return e.masker
}

// WithMasker runs fn with the engine lock held and the masker passed in,
// the safe way to use the Masker() borrow from outside the engine.
func (e *Engine) WithMasker(fn func(*mask.Masker)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.masker)
}

// RingBuffer returns a borrow of the engine's ring buffer. As with Masker,
// callers must serialise access themselves; use WithRingBuffer for safety.
func (e *Engine) RingBuffer() *buffer.Buffer {
	return e.ring
}

// WithRingBuffer runs fn with the engine lock held and the ring buffer
// passed in.
func (e *Engine) WithRingBuffer(fn func(*buffer.Buffer)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.ring)
}

// bytesToFrames reinterprets a little-endian s16le byte slice as int16
// frames. An odd trailing byte is ignored.
func bytesToFrames(data []byte) []int16 {
	n := len(data) / 2
	if n == 0 {
		return nil
	}
	frames := make([]int16, n)
	for i := 0; i < n; i++ {
		frames[i] = int16(uint16(data[2*i]) | uint16(data[2*i+1])<<8)
	}
	return frames
}
