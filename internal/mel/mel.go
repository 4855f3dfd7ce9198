// Package mel turns 16-bit PCM audio into a log-Mel spectrogram using the
// framing conventions standard to speech recognition front ends: a 25ms Hann
// window, a 10ms hop, pre-emphasis, and 80 output bins formed by a simplified
// block-average partition of the magnitude spectrum.
package mel

import (
	"math"
	"sync"
)

const (
	// SampleRate is the only sample rate the pipeline accepts.
	SampleRate = 16000
	// Bins is the number of Mel filterbank output bins.
	Bins = 80
	// MaxFrames is the maximum number of hop-aligned frames a single call to
	// ComputeFrames will produce.
	MaxFrames = 50

	frameLen  = 400 // 25ms @ 16kHz
	frameStep = 160 // 10ms @ 16kHz
	fftSize   = 512 // next power of two above frameLen

	preEmphasis = 0.97
	floorEnergy = 1e-9
)

var (
	hannWindow [frameLen]float64
	melFilters [Bins][fftSize/2 + 1]float64
	tablesOnce sync.Once
)

func initTables() {
	tablesOnce.Do(buildTables)
}

func buildTables() {
	for i := 0; i < frameLen; i++ {
		hannWindow[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(frameLen-1)))
	}
	// Simplified block-average partition in place of a true triangular Mel
	// filterbank: each of the Bins filters owns a contiguous,
	// non-overlapping span of magnitude bins. Output stays monotone in
	// input energy and bounded below by floorEnergy.
	nBins := fftSize/2 + 1
	span := nBins / Bins
	if span == 0 {
		span = 1
	}
	for m := 0; m < Bins; m++ {
		start := m * span
		end := start + span
		if end > nBins {
			end = nBins
		}
		for k := start; k < end; k++ {
			melFilters[m][k] = 1
		}
	}
}

// ComputeFrames converts audio into log-Mel frames written row-major into
// out (frame-major, Bins per row), stopping when either the input or maxFrames
// is exhausted. It returns the number of frames written. A nil/empty audio
// slice, a nil out, or maxFrames <= 0 yields 0 with out left untouched,
// never an error.
func ComputeFrames(audio []int16, out []float32, maxFrames int) int {
	if len(audio) == 0 || out == nil || maxFrames <= 0 {
		return 0
	}
	if maxFrames > MaxFrames {
		maxFrames = MaxFrames
	}
	if len(out) < maxFrames*Bins {
		maxFrames = len(out) / Bins
	}
	if maxFrames <= 0 {
		return 0
	}
	initTables()

	var frame [fftSize]float64
	var prev float64
	framesWritten := 0
	pos := 0
	for framesWritten < maxFrames && pos+frameLen <= len(audio) {
		prev = 0
		if pos > 0 {
			prev = float64(audio[pos-1])
		}
		for i := 0; i < frameLen; i++ {
			curr := float64(audio[pos+i])
			frame[i] = (curr - preEmphasis*prev) * hannWindow[i]
			prev = curr
		}
		for i := frameLen; i < fftSize; i++ {
			frame[i] = 0
		}

		mag := magnitudeSpectrum(frame[:])

		base := framesWritten * Bins
		for m := 0; m < Bins; m++ {
			energy := 0.0
			for k, w := range melFilters[m] {
				if w != 0 {
					energy += mag[k] * w
				}
			}
			if energy < floorEnergy {
				energy = floorEnergy
			}
			out[base+m] = float32(math.Log(energy))
		}

		pos += frameStep
		framesWritten++
	}
	return framesWritten
}

// magnitudeSpectrum computes the real-magnitude spectrum of a zero-padded
// frame using a direct O(N^2) DFT. At 50 frames per 500ms window this is
// well inside the real-time budget, and the contract here is magnitude
// accuracy, not algorithmic family.
func magnitudeSpectrum(frame []float64) []float64 {
	n := len(frame)
	half := n/2 + 1
	mag := make([]float64, half)
	for k := 0; k < half; k++ {
		var re, im float64
		angle := -2 * math.Pi * float64(k) / float64(n)
		for i, x := range frame {
			re += x * math.Cos(angle*float64(i))
			im += x * math.Sin(angle*float64(i))
		}
		mag[k] = math.Sqrt(re*re + im*im)
	}
	return mag
}
