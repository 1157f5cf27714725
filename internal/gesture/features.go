package gesture

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
	"time"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ErrInsufficientData signals that a window snapshot has too few samples for
// feature extraction. The arbitrator treats this as "no ML opinion this
// cycle", never as a failure to propagate.
var ErrInsufficientData = errors.New("insufficient samples in window")

// DefaultMinSamples is the minimum per-channel sample count for a feature
// window.
const DefaultMinSamples = 20

// Spectral bands (Hz). Human gesture energy sits almost entirely below 8 Hz;
// the high band captures impact transients.
const (
	bandLowHz  = 0.5
	bandMidHz  = 3.0
	bandHighHz = 8.0
	bandMaxHz  = 25.0
)

var timeStatNames = []string{
	"mean", "std", "min", "max", "range", "rms", "zero_crossings", "peak_count",
}

var freqStatNames = []string{
	"dom_freq", "spectral_centroid", "band_energy_low", "band_energy_mid", "band_energy_high",
}

var timeChannels = []string{
	"accel_x", "accel_y", "accel_z", "accel_mag",
	"gyro_x", "gyro_y", "gyro_z", "gyro_mag",
}

var freqChannels = []string{"accel_mag", "gyro_mag"}

// featureNames is the frozen feature ordering shared with the classifier.
// The classifier artifacts embed the same list and loading fails on any
// mismatch, so adding or reordering entries here requires retraining.
var featureNames = buildFeatureNames()

func buildFeatureNames() []string {
	names := make([]string, 0, len(timeChannels)*len(timeStatNames)+len(freqChannels)*len(freqStatNames))
	for _, ch := range timeChannels {
		for _, s := range timeStatNames {
			names = append(names, ch+"_"+s)
		}
	}
	for _, ch := range freqChannels {
		for _, s := range freqStatNames {
			names = append(names, ch+"_"+s)
		}
	}
	return names
}

// FeatureNames returns the frozen name ordering of extracted features.
func FeatureNames() []string {
	out := make([]string, len(featureNames))
	copy(out, featureNames)
	return out
}

// FeatureCount is the length of every extracted feature vector.
func FeatureCount() int { return len(featureNames) }

// FeatureVector is a fixed-order vector of scalar descriptors over one window
// snapshot. Index i corresponds to FeatureNames()[i].
type FeatureVector struct {
	Values []float64
}

// Series is one windowed 3-axis channel with per-sample timestamps.
type Series struct {
	Times   []time.Time
	X, Y, Z []float64
}

// Append adds one timed sample to the series.
func (s *Series) Append(t time.Time, x, y, z float64) {
	s.Times = append(s.Times, t)
	s.X = append(s.X, x)
	s.Y = append(s.Y, y)
	s.Z = append(s.Z, z)
}

// Len returns the number of samples in the series.
func (s *Series) Len() int { return len(s.Times) }

// sampleRate estimates the rate in Hz from the first and last timestamps.
func (s *Series) sampleRate() float64 {
	n := len(s.Times)
	if n < 2 {
		return 0
	}
	span := s.Times[n-1].Sub(s.Times[0]).Seconds()
	if span <= 0 {
		return 0
	}
	return float64(n-1) / span
}

// WindowSnapshot is the point-in-time input to feature extraction: the
// world-frame acceleration and raw gyroscope series over one buffer window.
type WindowSnapshot struct {
	Accel Series
	Gyro  Series
}

// FeatureExtractor computes time- and frequency-domain descriptors over a
// window snapshot. Extraction is deterministic: identical snapshots always
// produce identical vectors.
type FeatureExtractor struct {
	minSamples int
}

// NewFeatureExtractor creates an extractor requiring at least minSamples per
// channel; values below 2 fall back to DefaultMinSamples.
func NewFeatureExtractor(minSamples int) *FeatureExtractor {
	if minSamples < 2 {
		minSamples = DefaultMinSamples
	}
	return &FeatureExtractor{minSamples: minSamples}
}

// Extract computes the feature vector for one snapshot. It returns
// ErrInsufficientData when either channel is shorter than the configured
// minimum, which callers must treat as a skipped cycle.
func (e *FeatureExtractor) Extract(ws WindowSnapshot) (FeatureVector, error) {
	if ws.Accel.Len() < e.minSamples || ws.Gyro.Len() < e.minSamples {
		return FeatureVector{}, fmt.Errorf("accel=%d gyro=%d (need %d): %w",
			ws.Accel.Len(), ws.Gyro.Len(), e.minSamples, ErrInsufficientData)
	}

	accelMag := magnitudes(ws.Accel.X, ws.Accel.Y, ws.Accel.Z)
	gyroMag := magnitudes(ws.Gyro.X, ws.Gyro.Y, ws.Gyro.Z)

	values := make([]float64, 0, len(featureNames))
	for _, series := range [][]float64{
		ws.Accel.X, ws.Accel.Y, ws.Accel.Z, accelMag,
		ws.Gyro.X, ws.Gyro.Y, ws.Gyro.Z, gyroMag,
	} {
		values = append(values, timeStats(series)...)
	}
	values = append(values, freqStats(accelMag, ws.Accel.sampleRate())...)
	values = append(values, freqStats(gyroMag, ws.Gyro.sampleRate())...)

	return FeatureVector{Values: values}, nil
}

// MinSamples returns the configured per-channel minimum.
func (e *FeatureExtractor) MinSamples() int { return e.minSamples }

func magnitudes(x, y, z []float64) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = math.Sqrt(x[i]*x[i] + y[i]*y[i] + z[i]*z[i])
	}
	return out
}

// timeStats computes the eight time-domain descriptors in frozen order:
// mean, std, min, max, range, rms, zero_crossings, peak_count.
func timeStats(x []float64) []float64 {
	mean := stat.Mean(x, nil)
	std := 0.0
	if len(x) > 1 {
		std = stat.StdDev(x, nil)
	}
	min := floats.Min(x)
	max := floats.Max(x)

	var sumSq float64
	for _, v := range x {
		sumSq += v * v
	}
	rms := math.Sqrt(sumSq / float64(len(x)))

	return []float64{
		mean, std, min, max, max - min, rms,
		float64(zeroCrossings(x, mean)),
		float64(peakCount(x, mean, std)),
	}
}

// zeroCrossings counts sign changes of the mean-centered series.
func zeroCrossings(x []float64, mean float64) int {
	count := 0
	prev := 0.0
	for _, v := range x {
		c := v - mean
		if c == 0 {
			continue
		}
		if prev != 0 && (c > 0) != (prev > 0) {
			count++
		}
		prev = c
	}
	return count
}

// peakCount counts local maxima rising more than half a standard deviation
// above the mean.
func peakCount(x []float64, mean, std float64) int {
	threshold := mean + 0.5*std
	count := 0
	for i := 1; i < len(x)-1; i++ {
		if x[i] > threshold && x[i] > x[i-1] && x[i] >= x[i+1] {
			count++
		}
	}
	return count
}

// freqStats computes the five frequency-domain descriptors in frozen order:
// dom_freq, spectral_centroid, band_energy_low, band_energy_mid,
// band_energy_high. The series is mean-detrended before the transform so the
// DC component does not dominate.
func freqStats(x []float64, rate float64) []float64 {
	n := len(x)
	if n < 4 || rate <= 0 {
		return []float64{0, 0, 0, 0, 0}
	}

	mean := stat.Mean(x, nil)
	detrended := make([]float64, n)
	for i, v := range x {
		detrended[i] = v - mean
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, detrended)

	var (
		domFreq  float64
		domAmp   float64
		ampSum   float64
		weighted float64
		bandLow  float64
		bandMid  float64
		bandHigh float64
	)
	for i := 1; i < len(coeffs); i++ {
		hz := fft.Freq(i) * rate
		amp := cmplx.Abs(coeffs[i]) * 2.0 / float64(n)

		if amp > domAmp {
			domAmp = amp
			domFreq = hz
		}
		ampSum += amp
		weighted += hz * amp

		energy := amp * amp
		switch {
		case hz >= bandLowHz && hz < bandMidHz:
			bandLow += energy
		case hz >= bandMidHz && hz < bandHighHz:
			bandMid += energy
		case hz >= bandHighHz && hz < bandMaxHz:
			bandHigh += energy
		}
	}

	centroid := 0.0
	if ampSum > 0 {
		centroid = weighted / ampSum
	}
	return []float64{domFreq, centroid, bandLow, bandMid, bandHigh}
}
