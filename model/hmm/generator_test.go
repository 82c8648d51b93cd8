// Copyright (c) 2014 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hmm

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/akualab/chorale"
	"github.com/akualab/chorale/model"
)

func TestGenerator(t *testing.T) {

	m := trainedModel(t)
	gen, err := NewGenerator(m, 7)
	chorale.CheckError(t, err)

	for k := 0; k < 10; k++ {
		p, err := gen.Next(20)
		chorale.CheckError(t, err)
		if p.Len() != 20 || !p.Labeled() {
			t.Fatalf("bad piece shape, len: %d, labeled: %t", p.Len(), p.Labeled())
		}
		for i, l := range p.Labels {

			// Chord tones were always observed in training.
			mask := model.Chroma(l.PitchMask())
			if p.Events[i]&mask != mask {
				t.Fatalf("event %d: chroma %s is missing chord tones of %s", i, p.Events[i], l)
			}
			if i > 0 && m.Trans[p.Labels[i-1]][l] < 1e-3 {
				t.Fatalf("event %d: unlikely transition %s -> %s", i, p.Labels[i-1], l)
			}
		}
	}
}

func TestGeneratorDeterministic(t *testing.T) {

	m := trainedModel(t)
	g1, err := NewGenerator(m, 0)
	chorale.CheckError(t, err)
	g2, err := NewGenerator(m, 0)
	chorale.CheckError(t, err)

	c1, err := g1.Corpus(3, 15)
	chorale.CheckError(t, err)
	c2, err := g2.Corpus(3, 15)
	chorale.CheckError(t, err)
	if c1.Len() != 45 || c2.Len() != 45 {
		t.Fatalf("corpus sizes %d and %d, expected 45", c1.Len(), c2.Len())
	}
	y1, x1 := c1.Concat()
	y2, x2 := c2.Concat()
	for i := range y1 {
		if y1[i] != y2[i] || x1[i] != x2[i] {
			t.Fatalf("generators diverge at %d", i)
		}
	}
	if c1.Pieces[0].ID == c1.Pieces[1].ID {
		t.Fatalf("duplicate piece id %s", c1.Pieces[0].ID)
	}
}

// Decoding data sampled from a model recovers most of its labels.
func TestGeneratorDecode(t *testing.T) {

	m := trainedModel(t)
	gen, err := NewGenerator(m, 11)
	chorale.CheckError(t, err)
	c, err := gen.Corpus(10, 30)
	chorale.CheckError(t, err)

	d, err := NewDecoder(m)
	chorale.CheckError(t, err)
	var correct, total int
	for _, p := range c.Pieces {
		labels, _, err := d.Decode(context.Background(), p.Events)
		chorale.CheckError(t, err)
		for i := range labels {
			if labels[i] == p.Labels[i] {
				correct++
			}
			total++
		}
	}
	acc := float64(correct) / float64(total)
	t.Logf("accuracy: %.3f", acc)
	if acc < 0.8 {
		t.Fatalf("accuracy too low: %.3f", acc)
	}
}

func TestGeneratorErrors(t *testing.T) {

	if _, err := NewGenerator(NewModel(), 0); !errors.Is(err, ErrMissingTable) {
		t.Fatalf("expected ErrMissingTable, got %v", err)
	}
	gen, err := NewGenerator(trainedModel(t), 0)
	chorale.CheckError(t, err)
	if _, err := gen.Next(0); !errors.Is(err, ErrEmptySequence) {
		t.Fatalf("expected ErrEmptySequence, got %v", err)
	}
}

func TestSampleFloorRow(t *testing.T) {

	row := make([]float64, NumStates)
	for i := range row {
		row[i] = DefaultFloor
	}
	r := rand.New(rand.NewSource(5))
	freq := make([]int, NumStates)
	for i := 0; i < 2000; i++ {
		freq[sample(row, r)]++
	}
	var distinct int
	for _, n := range freq {
		if n > 0 {
			distinct++
		}
	}
	if distinct < 100 || freq[NumStates-1] > 100 {
		t.Fatalf("floor row not sampled uniformly, distinct: %d, last state: %d", distinct, freq[NumStates-1])
	}
}

// A model trained with default options has floor-filled rows for every
// state not seen in training. Sampled labels must keep moving.
func TestGeneratorUnseenRows(t *testing.T) {

	y := ids(3, 50, 3, 50, 3)
	x := make([]model.Chroma, len(y))
	for i, l := range y {
		x[i] = model.Chroma(l.PitchMask())
	}
	p, err := model.NewPiece("p", y, x)
	chorale.CheckError(t, err)
	c := new(model.Corpus)
	chorale.CheckError(t, c.Add(p))
	m := NewModel()
	chorale.CheckError(t, m.Train(context.Background(), c))
	if m.UnseenRows != NumStates-2 {
		t.Fatalf("expected %d unseen rows, got %d", NumStates-2, m.UnseenRows)
	}

	gen, err := NewGenerator(m, 0)
	chorale.CheckError(t, err)
	for k := 0; k < 5; k++ {
		g, err := gen.Next(40)
		chorale.CheckError(t, err)
		for i := 3; i < g.Len(); i++ {
			if l := g.Labels[i]; l == g.Labels[i-1] && l == g.Labels[i-2] && l == g.Labels[i-3] {
				t.Fatalf("piece %d stuck on %s at event %d: %v", k, g.Labels[i], i, g.Labels)
			}
		}
	}
}
