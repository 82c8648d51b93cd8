// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chorale

import (
	"fmt"
	"strings"
)

// Score is a label accuracy count.
type Score struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Accuracy returns the fraction of correct labels. Zero when empty.
func (s Score) Accuracy() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Total)
}

// Text formats the score for reports.
func (s Score) Text() string {
	return fmt.Sprintf("%6.2f%% (%d/%d)", 100*s.Accuracy(), s.Correct, s.Total)
}

// Scorer accumulates label accuracy over sessions.
type Scorer struct {
	splitDash bool
	total     Score
}

// NewScorer creates a scorer. When splitDash is set, hypothesis tokens are
// mapped to the substring before the first dash.
func NewScorer(splitDash bool) *Scorer {
	return &Scorer{splitDash: splitDash}
}

// Session scores one aligned ref/hyp pair and adds it to the total.
func (sc *Scorer) Session(id string, ref, hyp []string) (Score, error) {

	if len(ref) != len(hyp) {
		return Score{}, fmt.Errorf("session %s: ref has %d labels, hyp has %d", id, len(ref), len(hyp))
	}
	var s Score
	for k, r := range ref {
		h := hyp[k]
		if sc.splitDash {
			h = strings.SplitN(h, "-", 2)[0]
		}
		if h == r {
			s.Correct++
		}
		s.Total++
	}
	sc.total.Correct += s.Correct
	sc.total.Total += s.Total
	return s, nil
}

// Total returns the accumulated score.
func (sc *Scorer) Total() Score {
	return sc.total
}
