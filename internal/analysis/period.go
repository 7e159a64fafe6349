package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// Peaks returns the indices of strict local maxima of series.
func Peaks(series []float64) []int {
	var peaks []int
	for i := 1; i+1 < len(series); i++ {
		if series[i] > series[i-1] && series[i] >= series[i+1] {
			peaks = append(peaks, i)
		}
	}
	return peaks
}

// PeriodFromPeaks returns the mean spacing between consecutive peaks and
// the largest relative deviation of any single spacing from that mean.
// ok is false with fewer than two peaks.
func PeriodFromPeaks(times []float64, peaks []int) (period, spread float64, ok bool) {
	if len(peaks) < 2 {
		return 0, 0, false
	}
	gaps := make([]float64, 0, len(peaks)-1)
	sum := 0.0
	for i := 1; i < len(peaks); i++ {
		g := times[peaks[i]] - times[peaks[i-1]]
		gaps = append(gaps, g)
		sum += g
	}
	period = sum / float64(len(gaps))
	for _, g := range gaps {
		spread = math.Max(spread, math.Abs(g-period)/period)
	}
	return period, spread, true
}

// Crossings counts upward crossings of level.
func Crossings(series []float64, level float64) int {
	n := 0
	for i := 1; i < len(series); i++ {
		if series[i-1] < level && series[i] >= level {
			n++
		}
	}
	return n
}

// PowerSpectrum returns |FFT| of the mean-removed series zero-padded to a
// power of two. Bin k corresponds to frequency k/(n*dt).
func PowerSpectrum(series []float64) []float64 {
	if len(series) == 0 {
		return nil
	}
	n := 1
	for n < len(series) {
		n *= 2
	}

	mean := 0.0
	for _, v := range series {
		mean += v
	}
	mean /= float64(len(series))

	padded := make([]float64, n)
	for i, v := range series {
		padded[i] = v - mean
	}

	spectrum := fft.FFTReal(padded)
	ps := make([]float64, n/2)
	for i := range ps {
		ps[i] = cmplx.Abs(spectrum[i])
	}
	return ps
}

// DominantPeriod estimates the period of series sampled every dt from the
// strongest non-zero frequency bin. It returns 0 if there is none.
func DominantPeriod(series []float64, dt float64) float64 {
	ps := PowerSpectrum(series)
	if len(ps) < 2 {
		return 0
	}
	n := len(ps) * 2

	maxIdx := 0
	maxPower := 0.0
	for i := 1; i < len(ps); i++ {
		if ps[i] > maxPower {
			maxPower = ps[i]
			maxIdx = i
		}
	}
	if maxIdx == 0 {
		return 0
	}
	return float64(n) * dt / float64(maxIdx)
}
