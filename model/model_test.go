// Copyright (c) 2014 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package model

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/akualab/chorale/model/chord"
)

func TestChroma(t *testing.T) {
	c, err := NewChroma(0, 4, 7)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Has(0) || !c.Has(4) || !c.Has(7) || c.Has(1) {
		t.Fatalf("chroma %s has wrong pitch classes", c)
	}
	if c.String() != "100010010000" {
		t.Fatalf("String = %s", c)
	}
	if uint16(c) != chord.MustParse("C_M").PitchMask() {
		t.Fatalf("C major chroma %012b != mask %012b", c, chord.MustParse("C_M").PitchMask())
	}
	c2, err := ChromaFromBits(c.Bits())
	if err != nil || c2 != c {
		t.Fatalf("ChromaFromBits = %s, %v", c2, err)
	}
	if _, err := NewChroma(12); !errors.Is(err, ErrPitchClass) {
		t.Fatalf("err = %v", err)
	}
	for _, v := range []int{2, -1} {
		bits := make([]int, chord.NumPitchClasses)
		bits[3] = v
		if _, err := ChromaFromBits(bits); !errors.Is(err, ErrPitchClass) {
			t.Fatalf("indicator %d: expected ErrPitchClass, got %v", v, err)
		}
	}
	if _, err := ChromaFromBits([]int{1, 0}); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("err = %v", err)
	}
	if !Chroma(0).Empty() || Chroma(1<<12).Valid() {
		t.Fatal("Empty/Valid wrong")
	}
}

func TestPieceShapeMismatch(t *testing.T) {
	_, err := NewPiece("p", []chord.Label{1, 2}, []Chroma{1})
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("err = %v, expected ErrShapeMismatch", err)
	}
	_, err = NewPiece("p", []chord.Label{144}, []Chroma{1})
	if !errors.Is(err, chord.ErrUnknownLabel) {
		t.Fatalf("err = %v, expected ErrUnknownLabel", err)
	}
	p, err := NewPiece("p", nil, []Chroma{1, 2})
	if err != nil || p.Labeled() {
		t.Fatalf("unlabeled piece: %v", err)
	}
	var c Corpus
	if err := c.Add(p); !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("adding unlabeled piece: %v", err)
	}
}

func TestCorpusConcat(t *testing.T) {
	var c Corpus
	a, _ := NewPiece("a", []chord.Label{1, 5}, []Chroma{1, 2})
	b, _ := NewPiece("b", []chord.Label{2, 3, 4}, []Chroma{3, 4, 5})
	for _, p := range []*Piece{a, b} {
		if err := c.Add(p); err != nil {
			t.Fatal(err)
		}
	}
	if c.Len() != 5 {
		t.Fatalf("Len = %d", c.Len())
	}
	bd := c.Boundaries()
	if len(bd) != 2 || bd[0] != 0 || bd[1] != 2 {
		t.Fatalf("Boundaries = %v", bd)
	}
	labels, events := c.Concat()
	if len(labels) != 5 || labels[2] != 2 || events[4] != 5 {
		t.Fatalf("Concat = %v %v", labels, events)
	}
	if c.Piece("b") != b || c.Piece("x") != nil {
		t.Fatal("Piece lookup failed")
	}
}

func TestCorpusSplit(t *testing.T) {
	var c Corpus
	for i := 0; i < 5; i++ {
		p, _ := NewPiece(string(rune('a'+i)), []chord.Label{0}, []Chroma{1})
		c.Pieces = append(c.Pieces, p)
	}
	shards := c.Split(3)
	if len(shards) != 3 {
		t.Fatalf("%d shards", len(shards))
	}
	var n int
	for _, s := range shards {
		n += len(s)
	}
	if n != 5 {
		t.Fatalf("shards hold %d pieces", n)
	}
	if len(c.Split(10)) != 5 || len(c.Split(0)) != 1 {
		t.Fatal("shard count not clamped")
	}
}

func TestSeqObserver(t *testing.T) {

	data := `{"id":"a","labels":["C_M","G_M7"],"events":[[1,0,0,0,1,0,0,1,0,0,0,0],[0,0,1,0,0,1,0,1,0,0,0,1]]}
{"id":"b","events":[[1,0,0,0,0,0,0,0,0,0,0,0]]}
`
	pieces, err := ReadPieces(strings.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if len(pieces) != 2 {
		t.Fatalf("read %d pieces", len(pieces))
	}
	if pieces[0].Labels[1] != chord.MustParse("G_M7") || pieces[0].Events[0].String() != "100010010000" {
		t.Fatalf("piece a = %+v", pieces[0])
	}
	if pieces[1].Labeled() {
		t.Fatal("piece b should be unlabeled")
	}

	var buf bytes.Buffer
	if err := WritePieces(&buf, pieces); err != nil {
		t.Fatal(err)
	}
	again, err := ReadPieces(&buf)
	if err != nil || len(again) != 2 || again[0].Events[1] != pieces[0].Events[1] {
		t.Fatalf("round trip: %v", err)
	}
}

func TestSeqObserverErrors(t *testing.T) {
	_, err := ReadPieces(strings.NewReader(`{"id":"a","labels":["X_M"],"events":[[1,0,0,0,0,0,0,0,0,0,0,0]]}`))
	if !errors.Is(err, chord.ErrUnknownLabel) {
		t.Fatalf("err = %v, expected ErrUnknownLabel", err)
	}
	_, err = ReadPieces(strings.NewReader(`{"id":"a","labels":["C_M"],"events":[]}`))
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("err = %v, expected ErrShapeMismatch", err)
	}
	_, err = ReadPieces(strings.NewReader(`{"id":`))
	if err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSegments(t *testing.T) {
	labels, err := chord.ParseAll([]string{"C_M", "C_M", "F_M", "G_M7", "G_M7", "G_M7", "C_M"})
	if err != nil {
		t.Fatal(err)
	}
	segs := Segments(labels)
	if len(segs) != 4 {
		t.Fatalf("got %d segments, expected 4: %v", len(segs), segs)
	}
	expected := []struct {
		start, end int
		name       string
	}{{0, 2, "C_M"}, {2, 3, "F_M"}, {3, 6, "G_M7"}, {6, 7, "C_M"}}
	total := 0
	for i, e := range expected {
		s := segs[i]
		if s.Start != e.start || s.End != e.end || s.Name != e.name || s.Label != chord.MustParse(e.name) {
			t.Fatalf("segment %d is %v, expected [%d,%d) %s", i, s, e.start, e.end, e.name)
		}
		total += s.Len()
	}
	if total != len(labels) {
		t.Fatalf("segments cover %d events, expected %d", total, len(labels))
	}
	if Segments(nil) != nil {
		t.Fatal("expected nil segments for empty input")
	}
}
