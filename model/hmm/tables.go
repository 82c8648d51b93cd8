// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hmm

import (
	"fmt"
	"math"

	"github.com/akualab/chorale/floatx"
	"github.com/akualab/chorale/model/chord"
	"gonum.org/v1/gonum/floats"
)

type Error string

func (err Error) Error() string { return string(err) }

const (
	ErrEmptySequence         = Error("hmm: empty observation sequence")
	ErrDegenerateProbability = Error("hmm: probability is zero or not finite")
	ErrMissingTable          = Error("hmm: model has no trained tables")
	ErrEmptyCorpus           = Error("hmm: empty training corpus")
	ErrTableFormat           = Error("hmm: bad table format")
)

const (
	// NumStates is the number of hidden states.
	NumStates = chord.NumLabels
	// NumFeatures is the number of observed features per event.
	NumFeatures = chord.NumPitchClasses
)

const (
	// DefaultFloor replaces zero probability estimates. It is the smallest
	// positive float64.
	DefaultFloor = math.SmallestNonzeroFloat64

	// MachineEpsilon is float64 machine epsilon, the floor used by the
	// published chorale tables. Use it with the Floor option to reproduce
	// them.
	MachineEpsilon = 2.220446049250313e-16
)

// UnseenPolicy selects how to fill the transition row of a state that was
// never observed transitioning out.
type UnseenPolicy int

const (
	// FloorUnseen sets every entry of the row to the floor. The row does
	// not sum to one.
	FloorUnseen UnseenPolicy = iota
	// UniformUnseen sets every entry to 1/NumStates.
	UniformUnseen
)

func (p UnseenPolicy) String() string {
	switch p {
	case FloorUnseen:
		return "floor"
	case UniformUnseen:
		return "uniform"
	}
	return fmt.Sprintf("UnseenPolicy(%d)", int(p))
}

// ParseUnseenPolicy parses "floor" (or "") and "uniform".
func ParseUnseenPolicy(s string) (UnseenPolicy, error) {
	switch s {
	case "", "floor":
		return FloorUnseen, nil
	case "uniform":
		return UniformUnseen, nil
	}
	return 0, fmt.Errorf("hmm: unknown unseen row policy %q", s)
}

// StartPolicy selects the start distribution of a trained model.
type StartPolicy int

const (
	// StartUniform assigns 1/NumStates to every state.
	StartUniform StartPolicy = iota
	// StartFromCorpus uses the frequency of piece-initial labels, floored.
	StartFromCorpus
)

func (p StartPolicy) String() string {
	switch p {
	case StartUniform:
		return "uniform"
	case StartFromCorpus:
		return "corpus"
	}
	return fmt.Sprintf("StartPolicy(%d)", int(p))
}

// ParseStartPolicy parses "uniform" (or "") and "corpus".
func ParseStartPolicy(s string) (StartPolicy, error) {
	switch s {
	case "", "uniform":
		return StartUniform, nil
	case "corpus":
		return StartFromCorpus, nil
	}
	return 0, fmt.Errorf("hmm: unknown start policy %q", s)
}

// TransitionTable holds P(next=j | current=i) at [i][j].
type TransitionTable [NumStates][NumStates]float64

// EmissionTable holds, at [s][f], the probability that pitch class f is
// present in an event labeled s. Each entry is an independent marginal;
// rows do not sum to one.
type EmissionTable [NumStates][NumFeatures]float64

// StartDist is the distribution of the first hidden state.
type StartDist [NumStates]float64

// UniformStart returns the uniform start distribution.
func UniformStart() *StartDist {
	s := new(StartDist)
	floatx.Fill(s[:], 1.0/NumStates)
	return s
}

// RowSums returns the sum of every row.
func (t *TransitionTable) RowSums() []float64 {
	sums := make([]float64, NumStates)
	for i := range t {
		sums[i] = floats.Sum(t[i][:])
	}
	return sums
}

// Validate checks that every entry is a finite probability in (0,1].
func (t *TransitionTable) Validate() error {
	for i := range t {
		for j, v := range t[i] {
			if !validProb(v) {
				return fmt.Errorf("%w: transition [%d][%d] = %g", ErrDegenerateProbability, i, j, v)
			}
		}
	}
	return nil
}

// Validate checks that every entry is a finite probability in (0,1].
func (e *EmissionTable) Validate() error {
	for s := range e {
		for f, v := range e[s] {
			if !validProb(v) {
				return fmt.Errorf("%w: emission [%d][%d] = %g", ErrDegenerateProbability, s, f, v)
			}
		}
	}
	return nil
}

// Validate checks that every entry is a finite probability in (0,1].
func (d *StartDist) Validate() error {
	for s, v := range d {
		if !validProb(v) {
			return fmt.Errorf("%w: start [%d] = %g", ErrDegenerateProbability, s, v)
		}
	}
	return nil
}

func validProb(v float64) bool {
	return v > 0 && v <= 1 && !math.IsNaN(v)
}
