package analysis

import (
	"fmt"
	"math/cmplx"

	"github.com/mjibson/go-dsp/spectral"
	"github.com/mjibson/go-dsp/window"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/chaoslab/internal/dynamo"
)

// Spectrum is a one-sided spectrum of a uniformly sampled signal: amplitude
// for PowerSpectrum, density for WelchSpectrum.
type Spectrum struct {
	Freq  []float64
	Power []float64
}

// PowerSpectrum transforms data sampled every dt. The mean is removed first
// so the zero-frequency bin does not dominate.
func PowerSpectrum(data []float64, dt float64) (Spectrum, error) {
	n := len(data)
	if n < 4 {
		return Spectrum{}, fmt.Errorf("%w: spectrum needs at least 4 points, got %d", dynamo.ErrInsufficientSamples, n)
	}
	if dt <= 0 {
		return Spectrum{}, fmt.Errorf("sample interval must be positive, got %g", dt)
	}

	centered := demean(data)
	fft := fourier.NewFFT(n)
	coeff := fft.Coefficients(nil, centered)

	s := Spectrum{
		Freq:  make([]float64, len(coeff)),
		Power: make([]float64, len(coeff)),
	}
	for i, c := range coeff {
		s.Freq[i] = fft.Freq(i) / dt
		s.Power[i] = cmplx.Abs(c) / float64(n)
	}
	return s, nil
}

// WelchSpectrum estimates the power spectral density by averaging
// Hann-windowed segments of the given length with half overlap. It trades
// frequency resolution for a much smoother estimate than PowerSpectrum.
func WelchSpectrum(data []float64, dt float64, segment int) (Spectrum, error) {
	if dt <= 0 {
		return Spectrum{}, fmt.Errorf("sample interval must be positive, got %g", dt)
	}
	if segment < 4 || segment%2 != 0 {
		return Spectrum{}, fmt.Errorf("welch segment must be even and at least 4, got %d", segment)
	}
	if len(data) < segment {
		return Spectrum{}, fmt.Errorf("%w: welch needs at least %d points, got %d",
			dynamo.ErrInsufficientSamples, segment, len(data))
	}

	pxx, freqs := spectral.Pwelch(demean(data), 1/dt, &spectral.PwelchOptions{
		NFFT:     segment,
		Noverlap: segment / 2,
		Window:   window.Hann,
	})
	return Spectrum{Freq: freqs, Power: pxx}, nil
}

func demean(data []float64) []float64 {
	mean := stat.Mean(data, nil)
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = v - mean
	}
	return out
}

// Dominant returns the frequency with the most power, skipping DC.
func (s Spectrum) Dominant() float64 {
	best, at := -1.0, 0.0
	for i := 1; i < len(s.Power); i++ {
		if s.Power[i] > best {
			best, at = s.Power[i], s.Freq[i]
		}
	}
	return at
}
