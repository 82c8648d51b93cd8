package hmm

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/akualab/chorale/model"
	"github.com/akualab/chorale/model/chord"
)

// randomState draws an index from a discrete distribution.
// Not optimal but fine for testing.
func randomState(dist []float64, r *rand.Rand) int {
	ran := r.Float64()
	cum := 0.0
	for i, p := range dist {
		cum += p
		if ran < cum {
			return i
		}
	}
	return len(dist) - 1
}

// progression is a small cyclic chord progression used to build
// synthetic corpora.
var progression = []string{"C_M", "F_M", "G_M7", "C_M", "A_m", "D_m7", "G_M", "C_M"}

// randomCorpus builds pieces that walk the progression from random
// starting points. Each event holds the chord tones plus, with
// probability 0.2, one passing tone.
func randomCorpus(t testing.TB, r *rand.Rand, numPieces, length int) *model.Corpus {
	t.Helper()
	labels, err := chord.ParseAll(progression)
	if err != nil {
		t.Fatal(err)
	}
	c := new(model.Corpus)
	for k := 0; k < numPieces; k++ {
		y := make([]chord.Label, length)
		x := make([]model.Chroma, length)
		pos := r.Intn(len(labels))
		for i := range y {
			y[i] = labels[(pos+i)%len(labels)]
			x[i] = model.Chroma(y[i].PitchMask())
			if randomState([]float64{0.8, 0.2}, r) == 1 {
				x[i] |= 1 << uint(r.Intn(chord.NumPitchClasses))
			}
		}
		p, err := model.NewPiece(fmt.Sprintf("piece-%03d", k), y, x)
		if err != nil {
			t.Fatal(err)
		}
		if err := c.Add(p); err != nil {
			t.Fatal(err)
		}
	}
	return c
}

func TestRandomState(t *testing.T) {
	dist := []float64{0.5, 0.5}
	freq := []int{0, 0}
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 5000; i++ {
		freq[randomState(dist, r)]++
	}
	ratio := float64(freq[0]) / 5000.0
	if ratio < 0.45 || ratio > 0.55 {
		t.Fatalf("bad ratio %f", ratio)
	}
}

func mustPiece(t testing.TB, id string, labels []string, events []model.Chroma) *model.Piece {
	t.Helper()
	y, err := chord.ParseAll(labels)
	if err != nil {
		t.Fatal(err)
	}
	p, err := model.NewPiece(id, y, events)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func ids(labels ...int) []chord.Label {
	y := make([]chord.Label, len(labels))
	for i, l := range labels {
		y[i] = chord.Label(l)
	}
	return y
}
