// Copyright (c) 2014 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hmm

import (
	"fmt"
	"math/rand"

	"github.com/akualab/chorale/model"
	"github.com/akualab/chorale/model/chord"
	"gonum.org/v1/gonum/floats"
)

const seed = 33

// Generator samples labeled pieces from a trained model.
// Not safe for concurrent use.
type Generator struct {
	hmm *Model
	r   *rand.Rand
	n   int
}

// NewGenerator returns a piece generator. A zero seed uses the default seed.
func NewGenerator(m *Model, s int64) (*Generator, error) {
	if !m.Trained() {
		return nil, ErrMissingTable
	}
	if s == 0 {
		s = seed
	}
	return &Generator{
		hmm: m,
		r:   rand.New(rand.NewSource(s)),
	}, nil
}

// Next returns a piece with the given number of events. Labels follow
// the start and transition tables, each pitch class of an event is
// present with the emission probability of its label. A transition row
// of an unseen state is sampled uniformly.
func (gen *Generator) Next(length int) (*model.Piece, error) {
	if length < 1 {
		return nil, ErrEmptySequence
	}
	labels := make([]chord.Label, length)
	events := make([]model.Chroma, length)

	s := sample(gen.hmm.Start[:], gen.r)
	for t := range labels {
		labels[t] = chord.Label(s)
		events[t] = gen.emit(s)
		s = sample(gen.hmm.Trans[s][:], gen.r)
	}
	gen.n++
	return model.NewPiece(fmt.Sprintf("%s-gen-%04d", gen.hmm.ModelName, gen.n), labels, events)
}

// Corpus returns numPieces generated pieces of the given length.
func (gen *Generator) Corpus(numPieces, length int) (*model.Corpus, error) {
	c := new(model.Corpus)
	for i := 0; i < numPieces; i++ {
		p, err := gen.Next(length)
		if err != nil {
			return nil, err
		}
		if err := c.Add(p); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (gen *Generator) emit(s int) model.Chroma {
	var c model.Chroma
	for pc, p := range gen.hmm.Emit[s] {
		if gen.r.Float64() < p {
			c |= 1 << uint(pc)
		}
	}
	return c
}

// sample draws an index with probability proportional to dist. Rows that
// do not sum to one, such as floor-filled rows of unseen states, are
// sampled as if normalized. Falls back to the last index when rounding
// leaves the cumulative sum short.
func sample(dist []float64, r *rand.Rand) int {
	ran := r.Float64() * floats.Sum(dist)
	cum := 0.0
	for i, p := range dist {
		cum += p
		if ran < cum {
			return i
		}
	}
	return len(dist) - 1
}
