// Package vsa implements the vector-symbolic algebra used by the query
// engine: circular-convolution binding, superposition bundling, permutation,
// and analogy arithmetic over high-dimensional vectors.
//
// All functions are pure and perform no I/O. Binding and unbinding run
// through cached per-dimension FFT plans, so repeated operations at the
// store's dimension avoid replanning.
package vsa

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/hyperdim/hdql/distance"
)

// ErrDimensionMismatch is returned when operand dimensions differ.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrZeroVector is returned when an operation would produce or consume a
// vector with zero norm, which has no direction and cannot be normalized.
type ErrZeroVector struct {
	Op string
}

func (e *ErrZeroVector) Error() string {
	return fmt.Sprintf("%s: zero-norm vector", e.Op)
}

// planCache holds per-dimension FFT plans. Plans carry scratch buffers, so
// they are pooled rather than shared between goroutines.
var planCache sync.Map // map[int]*sync.Pool

func fftPool(n int) *sync.Pool {
	if p, ok := planCache.Load(n); ok {
		return p.(*sync.Pool)
	}
	pool := &sync.Pool{New: func() any { return fourier.NewFFT(n) }}
	actual, _ := planCache.LoadOrStore(n, pool)
	return actual.(*sync.Pool)
}

func toFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

// Bind associates two vectors via circular convolution:
// IFFT(FFT(a) ⊙ FFT(b)). The result is approximately dissimilar to both
// inputs, which is what makes it usable as a reversible association.
func Bind(a, b []float32) ([]float32, error) {
	if len(a) != len(b) {
		return nil, &ErrDimensionMismatch{Expected: len(a), Actual: len(b)}
	}
	return spectralProduct(a, b, false), nil
}

// Unbind inverts Bind via spectral division:
// IFFT(FFT(bound) ⊙ conj(FFT(key)) / |FFT(key)|²). Near-zero key
// frequencies are floored, so the inverse is exact wherever the key
// spectrum is nonzero and merely approximate elsewhere.
func Unbind(bound, key []float32) ([]float32, error) {
	if len(bound) != len(key) {
		return nil, &ErrDimensionMismatch{Expected: len(bound), Actual: len(key)}
	}
	return spectralProduct(bound, key, true), nil
}

func spectralProduct(a, b []float32, conjugate bool) []float32 {
	n := len(a)
	pool := fftPool(n)
	fft := pool.Get().(*fourier.FFT)
	defer pool.Put(fft)

	// Floor for |FFT(key)|² when dividing; keeps unbind finite for keys
	// with (near-)zero frequency components.
	const minPower = 1e-12

	ca := fft.Coefficients(nil, toFloat64(a))
	cb := fft.Coefficients(nil, toFloat64(b))
	for i := range ca {
		if conjugate {
			power := real(cb[i])*real(cb[i]) + imag(cb[i])*imag(cb[i])
			if power < minPower {
				power = minPower
			}
			ca[i] *= complex(real(cb[i])/power, -imag(cb[i])/power)
		} else {
			ca[i] *= cb[i]
		}
	}
	seq := fft.Sequence(nil, ca)
	// Sequence(Coefficients(x)) scales by n; undo it.
	inv := 1 / float64(n)
	for i := range seq {
		seq[i] *= inv
	}
	return toFloat32(seq)
}

// Bundle superposes vectors: normalize(sum(vectors)).
// It fails if the inputs are empty, mismatched, or sum to a zero vector.
func Bundle(vectors ...[]float32) ([]float32, error) {
	return BundleWeighted(vectors, nil)
}

// BundleWeighted superposes vectors with optional per-vector weights.
// A nil weights slice bundles with uniform weight 1.
func BundleWeighted(vectors [][]float32, weights []float64) ([]float32, error) {
	if len(vectors) == 0 {
		return nil, &ErrZeroVector{Op: "bundle"}
	}
	if weights != nil && len(weights) != len(vectors) {
		return nil, fmt.Errorf("bundle: %d weights for %d vectors", len(weights), len(vectors))
	}

	dim := len(vectors[0])
	sum := make([]float32, dim)
	for i, v := range vectors {
		if len(v) != dim {
			return nil, &ErrDimensionMismatch{Expected: dim, Actual: len(v)}
		}
		w := float32(1)
		if weights != nil {
			w = float32(weights[i])
		}
		for j, x := range v {
			sum[j] += w * x
		}
	}

	if !distance.NormalizeL2InPlace(sum) {
		return nil, &ErrZeroVector{Op: "bundle"}
	}
	return sum, nil
}

// Negate returns -v, the bundling representation of logical NOT.
func Negate(v []float32) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = -x
	}
	return out
}

// Permute circularly shifts v by the given number of positions.
// Negative shifts rotate in the opposite direction. Binding with a unit
// impulse at position k produces the same rotation, so Permute doubles as
// the cheap path for applying shift-encoded relations.
func Permute(v []float32, shift int) []float32 {
	n := len(v)
	out := make([]float32, n)
	if n == 0 {
		return out
	}
	shift = ((shift % n) + n) % n
	for i, x := range v {
		out[(i+shift)%n] = x
	}
	return out
}

// ShiftVector returns the unit impulse whose binding rotates a vector by
// the given shift. Used where the spectral form of a relation is needed.
func ShiftVector(dim, shift int) []float32 {
	v := make([]float32, dim)
	if dim == 0 {
		return v
	}
	shift = ((shift % dim) + dim) % dim
	v[shift] = 1
	return v
}

// AnalogyTarget computes the vector-arithmetic analogy target c + (b - a)
// for queries of the form "a is to b as c is to ?".
func AnalogyTarget(a, b, c []float32) ([]float32, error) {
	if len(b) != len(a) {
		return nil, &ErrDimensionMismatch{Expected: len(a), Actual: len(b)}
	}
	if len(c) != len(a) {
		return nil, &ErrDimensionMismatch{Expected: len(a), Actual: len(c)}
	}
	out := make([]float32, len(a))
	for i := range a {
		out[i] = c[i] + b[i] - a[i]
	}
	return out, nil
}
