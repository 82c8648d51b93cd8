// Package floatx has helpers for float64 slices used by the estimators and
// the decoder.
package floatx

import (
	"math"

	"golang.org/x/exp/constraints"
)

type Error string

func (err Error) Error() string { return string(err) }

const (
	ErrZeroLength = Error("floatx: zero length in slice definition")
	ErrLength     = Error("floatx: length mismatch")
)

var Log2 = func(r int, v float64) float64 { return math.Log2(v) }

// DivFunc divides by d.
func DivFunc(d float64) ApplyFunc {
	return func(r int, v float64) float64 { return v / d }
}

// FloorFunc replaces exact zeros with f.
func FloorFunc(f float64) ApplyFunc {
	return func(r int, v float64) float64 {
		if v == 0 {
			return f
		}
		return v
	}
}

type ApplyFunc func(n int, v float64) float64

// Apply function to 1D slice. If out slice is empty, the function is applied in place.
func Apply(fn ApplyFunc, in, out []float64) []float64 {

	n := len(in)
	if n == 0 {
		panic(ErrZeroLength)
	}
	if len(out) == 0 {
		out = in
	}
	if len(out) != n {
		panic(ErrLength)
	}
	for i := 0; i < n; i++ {
		out[i] = fn(i, in[i])
	}

	return out
}

// LogSlice writes log2(in) to out and returns the index of the first value
// whose log is not finite, or -1.
func LogSlice(in, out []float64) int {

	Apply(Log2, in, out)
	for i, v := range out {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return i
		}
	}
	return -1
}

// Argmax returns the index and value of the largest element. Ties resolve
// to the lowest index. Panics on empty input.
func Argmax[T constraints.Integer | constraints.Float](s []T) (int, T) {

	if len(s) == 0 {
		panic(ErrZeroLength)
	}
	idx, max := 0, s[0]
	for i := 1; i < len(s); i++ {
		if s[i] > max {
			idx, max = i, s[i]
		}
	}
	return idx, max
}

// Fill sets all values to v.
func Fill[T constraints.Integer | constraints.Float](s []T, v T) {
	for i := range s {
		s[i] = v
	}
}

// A simple []float64 slice pool object.
// Use it to avoid allocating unecessary resources in
// concurrent code.
type Pool struct {
	n   int
	buf chan []float64
}

func NewPool(n, size int) *Pool {

	return &Pool{n, make(chan []float64, size)}
}

func (pool *Pool) Get() []float64 {
	select {
	case b := <-pool.buf:
		return b
	default:
	}
	return make([]float64, pool.n)
}

func (pool *Pool) Put(p []float64) {
	if len(p) != pool.n {
		return
	}
	select {
	case pool.buf <- p:
	default:
	}
}
