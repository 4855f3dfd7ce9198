// Package mask implements the stateful noise masker: it replaces
// intercepted speech with amplitude-envelope-modulated white noise, with a
// legacy beep and cross-fade fallback for callers that want a hard tone.
package mask

import (
	"math"
	"math/rand"
)

const (
	// SampleRate is the pipeline's only supported sample rate.
	SampleRate = 16000
	// BeepFreqHz is the default legacy beep tone frequency.
	BeepFreqHz = 440.0
	// CrossFadeFramesDefault is the default linear cross-fade length, ~5ms.
	CrossFadeFramesDefault = 80

	beepAmplitude  = 0.4
	defaultAttack  = 10.0 // ms
	defaultRelease = 50.0 // ms
	minEnvelopeMs  = 1.0
	int16Scale     = 32767.0
)

// Masker holds the envelope follower state. It is not safe for concurrent
// use; the protection engine serialises access under its own lock.
type Masker struct {
	currentEnvelope float32
	attackCoeff     float32
	releaseCoeff    float32
	makeUpGain      float32
	rng             *rand.Rand
}

// New returns a Masker configured with the default attack/release times (10ms
// / 50ms) and unity make-up gain, seeded from a non-deterministic source.
func New() *Masker {
	m := &Masker{
		makeUpGain: 1.0,
		rng:        rand.New(rand.NewSource(rand.Int63())),
	}
	m.SetEnvelopeParams(defaultAttack, defaultRelease)
	return m
}

// SetEnvelopeParams reconfigures the envelope follower's attack and release
// times, in milliseconds, clamping both to at least 1ms.
func (m *Masker) SetEnvelopeParams(attackMs, releaseMs float32) {
	if attackMs < minEnvelopeMs {
		attackMs = minEnvelopeMs
	}
	if releaseMs < minEnvelopeMs {
		releaseMs = minEnvelopeMs
	}
	m.attackCoeff = envelopeCoeff(attackMs)
	m.releaseCoeff = envelopeCoeff(releaseMs)
}

// EnvelopeCoeffs returns the attack and release smoothing coefficients in
// effect, for diagnostic readback.
func (m *Masker) EnvelopeCoeffs() (attack, release float32) {
	return m.attackCoeff, m.releaseCoeff
}

// SetMakeUpGain sets the scalar applied after amplitude modulation.
func (m *Masker) SetMakeUpGain(gain float32) {
	m.makeUpGain = gain
}

// envelopeCoeff computes the first-order IIR smoothing coefficient for a
// given time constant: a = 1 - exp(-1000 / (timeMs * fs)).
func envelopeCoeff(timeMs float32) float32 {
	return float32(1 - math.Exp(-1000/(float64(timeMs)*SampleRate)))
}

// Process rewrites buffer in place, replacing its content with
// envelope-modulated white noise. The envelope follower tracks the input's
// amplitude contour so injected noise mirrors the loudness of the masked
// speech. buffer's length is never changed and no sample's magnitude ever
// exceeds int16 range.
func (m *Masker) Process(buffer []int16) {
	for i, sample := range buffer {
		x := float32(sample) / int16Scale
		abs := x
		if abs < 0 {
			abs = -abs
		}

		coeff := m.releaseCoeff
		if abs > m.currentEnvelope {
			coeff = m.attackCoeff
		}
		m.currentEnvelope += coeff * (abs - m.currentEnvelope)

		noise := m.rng.Float32()*2 - 1 // U(-1, 1)
		y := noise * m.currentEnvelope * m.makeUpGain
		if y > 1 {
			y = 1
		} else if y < -1 {
			y = -1
		}

		buffer[i] = int16(math.Round(float64(y) * int16Scale))
	}
}

// generateSineSample produces a single beep-amplitude sine sample at the
// given frequency and frame index, with an optional phase offset.
func generateSineSample(frameIndex int, freqHz float64, phaseRad float64) float64 {
	t := float64(frameIndex) / float64(SampleRate)
	return beepAmplitude * math.Sin(2*math.Pi*freqHz*t+phaseRad)
}

// ApplyBeep overwrites buffer with a fixed-amplitude sine tone at
// BeepFreqHz, used when a hard tone is desired or the masker is unavailable.
func ApplyBeep(buffer []int16) {
	applyBeepAt(buffer, BeepFreqHz)
}

func applyBeepAt(buffer []int16, freqHz float64) {
	for i := range buffer {
		s := generateSineSample(i, freqHz, 0)
		buffer[i] = clampToInt16(s * int16Scale)
	}
}

// ApplyCrossFade linearly cross-fades from the existing signal to the beep
// over the first crossFadeFrames samples, then beep-only. A crossFadeFrames
// of 0, or one exceeding len(buffer), degrades to pure beep.
func ApplyCrossFade(buffer []int16, crossFadeFrames int) {
	if crossFadeFrames <= 0 || crossFadeFrames > len(buffer) {
		ApplyBeep(buffer)
		return
	}
	for i := range buffer {
		alpha := float64(1)
		if i < crossFadeFrames {
			alpha = float64(i) / float64(crossFadeFrames)
		}
		original := float64(buffer[i]) / int16Scale * (1 - alpha)
		beep := generateSineSample(i, BeepFreqHz, 0) * alpha
		buffer[i] = clampToInt16((original + beep) * int16Scale)
	}
}

// ProcessWithRingBuffer combines a cross-fade over the leading region with a
// beep tail, enabling "time-machine" overwrites of already-emitted audio
// pulled from the ring buffer.
func ProcessWithRingBuffer(buffer []int16, crossFadeFrames int) {
	if crossFadeFrames > 0 && crossFadeFrames <= len(buffer) {
		ApplyCrossFade(buffer[:crossFadeFrames], crossFadeFrames)
	}
	if len(buffer) > crossFadeFrames {
		ApplyBeep(buffer[crossFadeFrames:])
	} else if len(buffer) > 0 {
		ApplyBeep(buffer)
	}
}

func clampToInt16(v float64) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(math.Round(v))
}
