package floatx

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestArgmaxFirstWins(t *testing.T) {

	s := []float64{-3, 7, 1, 7, 7}
	idx, v := Argmax(s)
	if idx != 1 || v != 7 {
		t.Fatalf("Argmax = (%d, %f), expected (1, 7)", idx, v)
	}
	if j := floats.MaxIdx(s); j != idx {
		t.Fatalf("Argmax disagrees with floats.MaxIdx: %d != %d", idx, j)
	}

	ii, iv := Argmax([]int{2, 2, 2})
	if ii != 0 || iv != 2 {
		t.Fatalf("Argmax ints = (%d, %d), expected (0, 2)", ii, iv)
	}
}

func TestArgmaxInf(t *testing.T) {
	idx, _ := Argmax([]float64{math.Inf(-1), math.Inf(-1), -1e300})
	if idx != 2 {
		t.Fatalf("Argmax = %d, expected 2", idx)
	}
}

func TestLogSlice(t *testing.T) {

	in := []float64{1, 0.5, 0.25}
	out := make([]float64, 3)
	if i := LogSlice(in, out); i != -1 {
		t.Fatalf("unexpected non-finite at %d", i)
	}
	if !floats.Equal(out, []float64{0, -1, -2}) {
		t.Fatalf("LogSlice = %v", out)
	}

	in[1] = 0
	if i := LogSlice(in, out); i != 1 {
		t.Fatalf("LogSlice reported %d, expected 1", i)
	}
}

func TestFloorFunc(t *testing.T) {
	s := []float64{0, 0.5, 0}
	Apply(FloorFunc(1e-3), s, nil)
	if !floats.Equal(s, []float64{1e-3, 0.5, 1e-3}) {
		t.Fatalf("FloorFunc = %v", s)
	}
}

func TestDivFunc(t *testing.T) {
	out := make([]float64, 3)
	Apply(DivFunc(4), []float64{0, 1, 2}, out)
	if !floats.Equal(out, []float64{0, 0.25, 0.5}) {
		t.Fatalf("DivFunc = %v", out)
	}
}

func TestFill(t *testing.T) {
	s := make([]float64, 3)
	Fill(s, 0.5)
	if !floats.Equal(s, []float64{0.5, 0.5, 0.5}) {
		t.Fatalf("Fill = %v", s)
	}
}

func TestApplyLength(t *testing.T) {
	defer func() {
		if r := recover(); r != ErrLength {
			t.Fatalf("expected ErrLength panic, got %v", r)
		}
	}()
	Apply(Log2, []float64{1, 2}, make([]float64, 3))
}

func TestPool(t *testing.T) {
	p := NewPool(4, 1)
	a := p.Get()
	if len(a) != 4 {
		t.Fatalf("len = %d", len(a))
	}
	a[0] = 9
	p.Put(a)
	b := p.Get()
	if b[0] != 9 {
		t.Fatal("pool did not reuse slice")
	}
	p.Put(make([]float64, 2)) // wrong size is dropped
	if c := p.Get(); len(c) != 4 {
		t.Fatalf("len = %d", len(c))
	}
}
