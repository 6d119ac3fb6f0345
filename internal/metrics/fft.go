package metrics

import (
	"math"
	"math/cmplx"

	"github.com/san-kum/modsim/internal/dynamo"
)

// FFT is a radix-2 transform; len(data) must be a power of two.
func FFT(data []float64) []complex128 {
	n := len(data)
	if n <= 1 {
		result := make([]complex128, n)
		for i := range data {
			result[i] = complex(data[i], 0)
		}
		return result
	}

	if n%2 != 0 {
		panic("fft requires power of 2 length")
	}

	even := make([]float64, n/2)
	odd := make([]float64, n/2)
	for i := 0; i < n/2; i++ {
		even[i] = data[2*i]
		odd[i] = data[2*i+1]
	}

	feven := FFT(even)
	fodd := FFT(odd)

	result := make([]complex128, n)
	for k := 0; k < n/2; k++ {
		w := cmplx.Exp(complex(0, -2*math.Pi*float64(k)/float64(n)))
		result[k] = feven[k] + w*fodd[k]
		result[k+n/2] = feven[k] - w*fodd[k]
	}
	return result
}

// PowerSpectrum zero-pads data to a power of two and returns the magnitude
// of the non-negative frequency bins together with the padded length.
func PowerSpectrum(data []float64) ([]float64, int) {
	n := 1
	for n < len(data) {
		n <<= 1
	}
	padded := make([]float64, n)
	copy(padded, data)

	fft := FFT(padded)
	ps := make([]float64, len(fft)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(fft[i])
	}
	return ps, n
}

// Frequency is the dominant frequency of a column in cycles per row,
// resolved to the spectral bin width.
type Frequency struct {
	column  string
	samples []float64
}

func NewFrequency(column string) *Frequency {
	return &Frequency{column: column}
}

func (f *Frequency) Name() string      { return "frequency(" + f.column + ")" }
func (f *Frequency) Columns() []string { return []string{f.column} }

func (f *Frequency) Observe(row dynamo.Quantities, t float64) {
	f.samples = append(f.samples, row[f.column])
}

func (f *Frequency) Value() float64 {
	if len(f.samples) < 2 {
		return 0
	}

	mean := 0.0
	for _, v := range f.samples {
		mean += v
	}
	mean /= float64(len(f.samples))
	centred := make([]float64, len(f.samples))
	for i, v := range f.samples {
		centred[i] = v - mean
	}

	ps, n := PowerSpectrum(centred)
	peak := 0
	for k := 1; k < len(ps); k++ {
		if ps[k] > ps[peak] || peak == 0 {
			peak = k
		}
	}
	return float64(peak) / float64(n)
}

func (f *Frequency) Reset() {
	f.samples = f.samples[:0]
}
