// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hmm

import (
	"fmt"

	"github.com/akualab/chorale/floatx"
	"github.com/akualab/chorale/model"
	"github.com/akualab/chorale/model/chord"
	"github.com/golang/glog"
	"gonum.org/v1/gonum/floats"
)

// TransitionCounts accumulates label to label transition counts.
// Counts from disjoint shards of a corpus can be combined with Add.
type TransitionCounts [NumStates][NumStates]float64

// Count adds the transitions of the concatenated label sequence y. A
// transition into index i is skipped when i is in boundaries, so the last
// label of a piece never counts toward the first label of the next one.
func (tc *TransitionCounts) Count(y []chord.Label, boundaries []int) error {
	isBoundary := make(map[int]bool, len(boundaries))
	for _, b := range boundaries {
		isBoundary[b] = true
	}
	for i := 1; i < len(y); i++ {
		if isBoundary[i] {
			continue
		}
		if !y[i-1].Valid() || !y[i].Valid() {
			return fmt.Errorf("index %d: %w", i, chord.ErrUnknownLabel)
		}
		tc[y[i-1]][y[i]]++
	}
	return nil
}

// CountPiece adds the interior transitions of a single piece.
func (tc *TransitionCounts) CountPiece(p *model.Piece) error {
	if err := tc.Count(p.Labels, nil); err != nil {
		return fmt.Errorf("piece %q: %w", p.ID, err)
	}
	return nil
}

// Add adds the counts of other.
func (tc *TransitionCounts) Add(other *TransitionCounts) {
	for i := range tc {
		floats.Add(tc[i][:], other[i][:])
	}
}

// Estimate normalizes the counts into a transition table. Zero cells of
// observed rows are set to floor and the row is not renormalized. Rows with
// no outgoing transitions are filled according to policy. Returns the
// table and the number of unseen rows.
func (tc *TransitionCounts) Estimate(floor float64, policy UnseenPolicy) (*TransitionTable, int) {
	t := new(TransitionTable)
	var unseen int
	for i := range tc {
		sum := floats.Sum(tc[i][:])
		if sum == 0 {
			unseen++
			v := floor
			if policy == UniformUnseen {
				v = 1.0 / NumStates
			}
			floatx.Fill(t[i][:], v)
			continue
		}
		floatx.Apply(floatx.DivFunc(sum), tc[i][:], t[i][:])
		floatx.Apply(floatx.FloorFunc(floor), t[i][:], nil)
	}
	if unseen > 0 && glog.V(2) {
		glog.Infof("%d of %d states have no outgoing transitions, rows set to %s", unseen, NumStates, policy)
	}
	return t, unseen
}

// EstimateTransitions counts the concatenated labels y, excluding
// transitions into the boundary indices, and returns the normalized table.
func EstimateTransitions(y []chord.Label, boundaries []int, floor float64, policy UnseenPolicy) (*TransitionTable, error) {
	var tc TransitionCounts
	if err := tc.Count(y, boundaries); err != nil {
		return nil, err
	}
	t, _ := tc.Estimate(floor, policy)
	return t, nil
}

// EmissionCounts accumulates, per state, the number of events N and the
// number of events in which each pitch class is present.
type EmissionCounts struct {
	N       [NumStates]float64
	Present [NumStates][NumFeatures]float64
}

// Count adds aligned labels and events.
func (ec *EmissionCounts) Count(y []chord.Label, x []model.Chroma) error {
	if len(y) != len(x) {
		return fmt.Errorf("%w: %d labels, %d events", model.ErrShapeMismatch, len(y), len(x))
	}
	for i, s := range y {
		if !s.Valid() {
			return fmt.Errorf("index %d: %w", i, chord.ErrUnknownLabel)
		}
		ec.N[s]++
		for f := 0; f < NumFeatures; f++ {
			if x[i].Has(f) {
				ec.Present[s][f]++
			}
		}
	}
	return nil
}

// CountPiece adds the events of a single piece.
func (ec *EmissionCounts) CountPiece(p *model.Piece) error {
	if err := ec.Count(p.Labels, p.Events); err != nil {
		return fmt.Errorf("piece %q: %w", p.ID, err)
	}
	return nil
}

// Add adds the counts of other.
func (ec *EmissionCounts) Add(other *EmissionCounts) {
	floats.Add(ec.N[:], other.N[:])
	for s := range ec.Present {
		floats.Add(ec.Present[s][:], other.Present[s][:])
	}
}

// Estimate returns the presence fraction of every pitch class per state.
// Zero estimates and states never observed are set to floor.
func (ec *EmissionCounts) Estimate(floor float64) *EmissionTable {
	e := new(EmissionTable)
	for s := range ec.Present {
		if ec.N[s] == 0 {
			floatx.Fill(e[s][:], floor)
			continue
		}
		floatx.Apply(floatx.DivFunc(ec.N[s]), ec.Present[s][:], e[s][:])
		floatx.Apply(floatx.FloorFunc(floor), e[s][:], nil)
	}
	return e
}

// EstimateEmissions counts aligned labels and events and returns the
// emission table.
func EstimateEmissions(y []chord.Label, x []model.Chroma, floor float64) (*EmissionTable, error) {
	var ec EmissionCounts
	if err := ec.Count(y, x); err != nil {
		return nil, err
	}
	return ec.Estimate(floor), nil
}

// StartCounts counts the first label of every piece.
type StartCounts [NumStates]float64

// CountPiece adds the first label of p.
func (sc *StartCounts) CountPiece(p *model.Piece) error {
	if len(p.Labels) == 0 {
		return nil
	}
	s := p.Labels[0]
	if !s.Valid() {
		return fmt.Errorf("piece %q: %w", p.ID, chord.ErrUnknownLabel)
	}
	sc[s]++
	return nil
}

// Add adds the counts of other.
func (sc *StartCounts) Add(other *StartCounts) {
	floats.Add(sc[:], other[:])
}

// Estimate returns the relative frequency of each start label, floored.
// With no counts it returns the uniform distribution.
func (sc *StartCounts) Estimate(floor float64) *StartDist {
	sum := floats.Sum(sc[:])
	if sum == 0 {
		return UniformStart()
	}
	d := new(StartDist)
	floatx.Apply(floatx.DivFunc(sum), sc[:], d[:])
	floatx.Apply(floatx.FloorFunc(floor), d[:], nil)
	return d
}
