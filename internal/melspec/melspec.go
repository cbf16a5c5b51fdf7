// Package melspec extracts Whisper-style log-mel spectrogram features from
// 16kHz audio (spec §4.1). The Hann window and mel filterbank are expensive
// to build and never change for a given configuration, so both are built
// once behind sync.Once and reused across every call.
package melspec

import (
	"errors"
	"math"
	"sync"
)

const (
	NFFT       = 400
	HopLength  = 160
	NMels      = 128
	fftSize    = 512 // NFFT zero-padded up to the next power of two
	maxFrames  = 3000
	sampleRate = 16000
)

// ErrFftSetup is the error Warm reports when FFT setup fails. The radix-2
// fft computes its twiddle factors inline and needs no setup table, so with
// the built-in configuration Warm never returns it.
var ErrFftSetup = errors.New("melspec: fft setup failed")

// ErrMelNotInitialized is returned by Extract if the mel filterbank is still
// unbuilt after Extract's own call to Warm.
var ErrMelNotInitialized = errors.New("melspec: mel filterbank not initialized")

var (
	hannOnce   sync.Once
	hannWindow [NFFT]float64

	melOnce   sync.Once
	melFilter [][]float64 // [NMels][fftSize/2+1]

	fftOnce sync.Once
	fftErr  error
)

func buildHann() {
	for i := 0; i < NFFT; i++ {
		hannWindow[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(NFFT-1))
	}
}

// melBreakFreq is the Slaney (Auditory Toolbox) scale's linear/log boundary:
// linear below 1000Hz, logarithmic above, matching librosa's htk=False mode.
const melBreakFreq = 1000.0

func buildMelFilterbank() {
	numFFTBins := fftSize/2 + 1
	melFilter = make([][]float64, NMels)
	for i := range melFilter {
		melFilter[i] = make([]float64, numFFTBins)
	}

	minMel := slaneyHzToMel(0)
	maxMel := slaneyHzToMel(float64(sampleRate) / 2)
	melPoints := make([]float64, NMels+2)
	for i := range melPoints {
		melPoints[i] = minMel + (maxMel-minMel)*float64(i)/float64(NMels+1)
	}

	hzPoints := make([]float64, NMels+2)
	for i, m := range melPoints {
		hzPoints[i] = slaneyMelToHz(m)
	}

	binFreqs := make([]float64, numFFTBins)
	for i := range binFreqs {
		binFreqs[i] = float64(i) * float64(sampleRate) / float64(fftSize)
	}

	for m := 0; m < NMels; m++ {
		lower := hzPoints[m]
		center := hzPoints[m+1]
		upper := hzPoints[m+2]
		// Slaney-style normalization: area-normalize each triangular filter
		// by 2/(upper-lower) so energy is preserved across varying bandwidths.
		enorm := 2.0 / (upper - lower)
		for k, f := range binFreqs {
			var w float64
			switch {
			case f >= lower && f <= center && center > lower:
				w = (f - lower) / (center - lower)
			case f > center && f <= upper && upper > center:
				w = (upper - f) / (upper - center)
			}
			melFilter[m][k] = w * enorm
		}
	}
}

func slaneyHzToMel(hz float64) float64 {
	const fMin = 0.0
	const fSp = 200.0 / 3.0
	if hz < melBreakFreq {
		return (hz - fMin) / fSp
	}
	minLogHz := melBreakFreq
	minLogMel := (minLogHz - fMin) / fSp
	logstepLocal := math.Log(6.4) / 27.0
	return minLogMel + math.Log(hz/float64(minLogHz))/logstepLocal
}

func slaneyMelToHz(mel float64) float64 {
	const fMin = 0.0
	const fSp = 200.0 / 3.0
	minLogHz := melBreakFreq
	minLogMel := (minLogHz - fMin) / fSp
	logstepLocal := math.Log(6.4) / 27.0
	if mel < minLogMel {
		return fMin + fSp*mel
	}
	return minLogHz * math.Exp(logstepLocal*(mel-minLogMel))
}

// Warm primes the Hann window and mel filterbank caches. Extract calls this
// itself, but callers that want to pay the one-time cost outside a hot path
// (e.g. at engine warmup) can call it directly.
func Warm() error {
	hannOnce.Do(buildHann)
	melOnce.Do(buildMelFilterbank)
	fftOnce.Do(func() { fftErr = nil })
	return fftErr
}

// Extract computes log-mel features for 16kHz float32 samples, returning a
// [NMels][T] matrix with T capped at maxFrames (spec §4.1: "truncate to
// 3000 frames").
func Extract(samples []float32) ([][]float32, error) {
	if err := Warm(); err != nil {
		return nil, err
	}
	if melFilter == nil {
		return nil, ErrMelNotInitialized
	}

	padded := reflectPad(samples, NFFT/2)
	numFrames := 1 + (len(padded)-NFFT)/HopLength
	if numFrames < 1 {
		numFrames = 0
	}

	power := make([][]float64, numFrames)
	for i := 0; i < numFrames; i++ {
		start := i * HopLength
		frame := make([]float64, fftSize)
		for j := 0; j < NFFT; j++ {
			frame[j] = float64(padded[start+j]) * hannWindow[j]
		}
		re, im := fft(frame)
		numBins := fftSize/2 + 1
		mag := make([]float64, numBins)
		for k := 0; k < numBins; k++ {
			mag[k] = re[k]*re[k] + im[k]*im[k]
		}
		power[i] = mag
	}

	// Drop the last frame (spec §4.1): the STFT's final frame overruns the
	// reflect-padded signal and is not part of the feature window.
	if len(power) > 0 {
		power = power[:len(power)-1]
	}
	if len(power) > maxFrames {
		power = power[:maxFrames]
	}

	melSpec := make([][]float64, len(power))
	for i, frame := range power {
		row := make([]float64, NMels)
		for m := 0; m < NMels; m++ {
			var sum float64
			filt := melFilter[m]
			for k, v := range frame {
				sum += filt[k] * v
			}
			row[m] = sum
		}
		melSpec[i] = row
	}

	logMel := make([][]float64, len(melSpec))
	maxVal := math.Inf(-1)
	for i, row := range melSpec {
		logRow := make([]float64, NMels)
		for m, v := range row {
			if v < 1e-10 {
				v = 1e-10
			}
			logRow[m] = math.Log10(v)
			if logRow[m] > maxVal {
				maxVal = logRow[m]
			}
		}
		logMel[i] = logRow
	}

	out := make([][]float32, NMels)
	for m := range out {
		out[m] = make([]float32, len(logMel))
	}
	for t, row := range logMel {
		for m, v := range row {
			if v < maxVal-8 {
				v = maxVal - 8
			}
			v = 0.25*v + 1.0
			out[m][t] = float32(v)
		}
	}
	return out, nil
}

func reflectPad(samples []float32, pad int) []float32 {
	n := len(samples)
	if n == 0 {
		return make([]float32, 2*pad)
	}
	out := make([]float32, n+2*pad)
	for i := 0; i < pad; i++ {
		srcLeft := pad - i
		if srcLeft >= n {
			srcLeft = n - 1
		}
		out[i] = samples[srcLeft]
	}
	copy(out[pad:pad+n], samples)
	for i := 0; i < pad; i++ {
		srcRight := n - 2 - i
		if srcRight < 0 {
			srcRight = 0
		}
		out[pad+n+i] = samples[srcRight]
	}
	return out
}

// fft computes the real-input DFT of a power-of-two length signal using an
// iterative radix-2 Cooley-Tukey algorithm, returning the real and
// imaginary parts.
func fft(signal []float64) (re, im []float64) {
	n := len(signal)
	re = make([]float64, n)
	im = make([]float64, n)
	copy(re, signal)

	// bit-reversal permutation
	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			re[i], re[j] = re[j], re[i]
			im[i], im[j] = im[j], im[i]
		}
	}

	for length := 2; length <= n; length <<= 1 {
		ang := -2 * math.Pi / float64(length)
		wlenRe, wlenIm := math.Cos(ang), math.Sin(ang)
		for i := 0; i < n; i += length {
			wRe, wIm := 1.0, 0.0
			for j := 0; j < length/2; j++ {
				uRe, uIm := re[i+j], im[i+j]
				vRe := re[i+j+length/2]*wRe - im[i+j+length/2]*wIm
				vIm := re[i+j+length/2]*wIm + im[i+j+length/2]*wRe
				re[i+j] = uRe + vRe
				im[i+j] = uIm + vIm
				re[i+j+length/2] = uRe - vRe
				im[i+j+length/2] = uIm - vIm
				nextWRe := wRe*wlenRe - wIm*wlenIm
				nextWIm := wRe*wlenIm + wIm*wlenRe
				wRe, wIm = nextWRe, nextWIm
			}
		}
	}
	return re, im
}
