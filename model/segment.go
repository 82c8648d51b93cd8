// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package model

import (
	"fmt"

	"github.com/akualab/chorale/model/chord"
)

// Segment is a run of consecutive events that share a label.
// Events in the half-open interval [Start, End) belong to the segment.
type Segment struct {
	Start int         `json:"start"`
	End   int         `json:"end"`
	Label chord.Label `json:"label"`
	Name  string      `json:"name"`
}

// Len returns the number of events in the segment.
func (s Segment) Len() int { return s.End - s.Start }

func (s Segment) String() string {
	return fmt.Sprintf("[%d,%d) %s", s.Start, s.End, s.Name)
}

// Segments merges consecutive events with the same label.
// Returns nil for an empty sequence.
func Segments(labels []chord.Label) []Segment {
	if len(labels) == 0 {
		return nil
	}
	segs := []Segment{}
	seg := Segment{Start: 0, Label: labels[0]}
	for idx, v := range labels {
		if v != seg.Label {
			seg.End = idx
			seg.Name = seg.Label.String()
			segs = append(segs, seg)
			seg = Segment{Start: idx, Label: v}
		}
	}
	seg.End = len(labels)
	seg.Name = seg.Label.String()
	return append(segs, seg)
}
