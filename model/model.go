// Copyright (c) 2014 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package model has the data types shared by estimators, decoders and
// corpus readers: note-presence events, pieces and corpora.
package model

import (
	"fmt"
	"strings"

	"github.com/akualab/chorale/model/chord"
)

type Error string

func (err Error) Error() string { return string(err) }

const (
	ErrShapeMismatch = Error("model: label and event sequences differ in length")
	ErrPitchClass    = Error("model: pitch class out of range")
)

// Chroma is a 12-bit presence vector. Bit pc is set when pitch class pc
// sounds in the event.
type Chroma uint16

const chromaMask = 1<<chord.NumPitchClasses - 1

// NewChroma returns the chroma with the given pitch classes present.
func NewChroma(pcs ...int) (Chroma, error) {
	var c Chroma
	for _, pc := range pcs {
		if pc < 0 || pc >= chord.NumPitchClasses {
			return 0, fmt.Errorf("%w: %d", ErrPitchClass, pc)
		}
		c |= 1 << uint(pc)
	}
	return c, nil
}

// ChromaFromBits builds a chroma from 12 indicator values, each 0 or 1.
func ChromaFromBits(bits []int) (Chroma, error) {
	if len(bits) != chord.NumPitchClasses {
		return 0, fmt.Errorf("%w: chroma has %d values, expected %d", ErrShapeMismatch, len(bits), chord.NumPitchClasses)
	}
	var c Chroma
	for pc, b := range bits {
		switch b {
		case 0:
		case 1:
			c |= 1 << uint(pc)
		default:
			return 0, fmt.Errorf("%w: pitch class %d has indicator %d, expected 0 or 1", ErrPitchClass, pc, b)
		}
	}
	return c, nil
}

// Has reports whether pitch class pc is present.
func (c Chroma) Has(pc int) bool { return c&(1<<uint(pc)) != 0 }

// Empty reports whether no pitch class is present.
func (c Chroma) Empty() bool { return c&chromaMask == 0 }

// Valid reports whether only the low 12 bits are used.
func (c Chroma) Valid() bool { return c&^chromaMask == 0 }

// Bits returns the 12 indicator values.
func (c Chroma) Bits() []int {
	bits := make([]int, chord.NumPitchClasses)
	for pc := range bits {
		if c.Has(pc) {
			bits[pc] = 1
		}
	}
	return bits
}

// String formats the chroma as twelve 0/1 digits, pitch class C first.
func (c Chroma) String() string {
	var sb strings.Builder
	for pc := 0; pc < chord.NumPitchClasses; pc++ {
		if c.Has(pc) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// Piece is a sequence of events and, for training data, the aligned
// harmonic labels. Labels is nil for unlabeled pieces.
type Piece struct {
	ID     string
	Labels []chord.Label
	Events []Chroma
}

// NewPiece creates a piece. Returns ErrShapeMismatch when labels are given
// and their length differs from the events.
func NewPiece(id string, labels []chord.Label, events []Chroma) (*Piece, error) {
	p := &Piece{ID: id, Labels: labels, Events: events}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Len returns the number of events.
func (p *Piece) Len() int { return len(p.Events) }

// Labeled reports whether the piece has reference labels.
func (p *Piece) Labeled() bool { return p.Labels != nil }

// Validate checks shapes and label range.
func (p *Piece) Validate() error {
	if p.Labels != nil && len(p.Labels) != len(p.Events) {
		return fmt.Errorf("piece %q: %w: %d labels, %d events", p.ID, ErrShapeMismatch, len(p.Labels), len(p.Events))
	}
	for i, l := range p.Labels {
		if !l.Valid() {
			return fmt.Errorf("piece %q event %d: %w: id %d", p.ID, i, chord.ErrUnknownLabel, int(l))
		}
	}
	for i, c := range p.Events {
		if !c.Valid() {
			return fmt.Errorf("piece %q event %d: %w: chroma %#x", p.ID, i, ErrPitchClass, uint16(c))
		}
	}
	return nil
}

// Corpus is an ordered list of pieces. Concatenated, piece k starts at
// index Boundaries()[k].
type Corpus struct {
	Pieces []*Piece
}

// Add validates and appends a labeled piece.
func (c *Corpus) Add(p *Piece) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if !p.Labeled() {
		return fmt.Errorf("piece %q: %w: training piece has no labels", p.ID, ErrShapeMismatch)
	}
	c.Pieces = append(c.Pieces, p)
	return nil
}

// Len returns the total number of events.
func (c *Corpus) Len() int {
	var n int
	for _, p := range c.Pieces {
		n += p.Len()
	}
	return n
}

// Boundaries returns the start index of every piece in the concatenated
// sequence.
func (c *Corpus) Boundaries() []int {
	b := make([]int, 0, len(c.Pieces))
	var n int
	for _, p := range c.Pieces {
		b = append(b, n)
		n += p.Len()
	}
	return b
}

// Concat returns the concatenated labels and events.
func (c *Corpus) Concat() ([]chord.Label, []Chroma) {
	n := c.Len()
	labels := make([]chord.Label, 0, n)
	events := make([]Chroma, 0, n)
	for _, p := range c.Pieces {
		labels = append(labels, p.Labels...)
		events = append(events, p.Events...)
	}
	return labels, events
}

// Piece returns the piece with the given id, or nil.
func (c *Corpus) Piece(id string) *Piece {
	for _, p := range c.Pieces {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// Split partitions pieces into shards of consecutive pieces, at most n
// shards. Used to count in parallel.
func (c *Corpus) Split(n int) [][]*Piece {
	if n < 1 {
		n = 1
	}
	if n > len(c.Pieces) {
		n = len(c.Pieces)
	}
	shards := make([][]*Piece, 0, n)
	for k := 0; k < n; k++ {
		lo := k * len(c.Pieces) / n
		hi := (k + 1) * len(c.Pieces) / n
		shards = append(shards, c.Pieces[lo:hi])
	}
	return shards
}
