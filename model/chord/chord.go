// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package chord enumerates the closed space of harmonic labels used as hidden
states: 12 roots × 3 qualities × 4 extensions = 144 labels.

Label ids are assigned in iteration order root, quality, extension:

	id = root*12 + quality*4 + extension

Label strings use a two-character root token ("C_", "Db", ...), a quality
token ("M", "m", "d") and an optional extension token ("4", "6", "7"),
for example "C_M", "DbM7" or "Ebd4".
*/
package chord

import (
	"fmt"
	"strings"
)

type Error string

func (err Error) Error() string { return string(err) }

const (
	ErrUnknownLabel = Error("chord: unknown label")
)

const (
	NumPitchClasses = 12
	NumRoots        = 12
	NumQualities    = 3
	NumExtensions   = 4

	// NumLabels is the size of the label space.
	NumLabels = NumRoots * NumQualities * NumExtensions
)

// Quality of a triad.
type Quality int

const (
	Major Quality = iota
	Minor
	Diminished
)

// Extension is the optional added note.
type Extension int

const (
	Fourth Extension = iota
	Sixth
	Seventh
	None
)

var (
	rootTokens = [NumRoots]string{"C_", "Db", "D_", "Eb", "E_", "F_", "Gb", "G_", "Ab", "A_", "Bb", "B_"}

	qualityTokens = [NumQualities]string{"M", "m", "d"}
	qualityNames  = [NumQualities]string{"major", "minor", "diminished"}
	// Semitones above the root for the third and the fifth.
	qualityIntervals = [NumQualities][2]int{{4, 7}, {3, 7}, {3, 6}}

	extensionTokens    = [NumExtensions]string{"4", "6", "7", ""}
	extensionNames     = [NumExtensions]string{"fourth", "sixth", "seventh", "none"}
	extensionIntervals = [NumExtensions]int{5, 9, 10, 0}

	sharps = strings.NewReplacer("C#", "Db", "D#", "Eb", "F#", "Gb", "G#", "Ab", "A#", "Bb")
)

func (q Quality) String() string {
	if q < 0 || int(q) >= NumQualities {
		return fmt.Sprintf("Quality(%d)", int(q))
	}
	return qualityNames[q]
}

func (x Extension) String() string {
	if x < 0 || int(x) >= NumExtensions {
		return fmt.Sprintf("Extension(%d)", int(x))
	}
	return extensionNames[x]
}

// Label is a harmonic label id in [0, NumLabels).
type Label int

// The label space is computed once and never modified.
var (
	labels  [NumLabels]entry
	byToken = make(map[string]Label, NumLabels)
)

type entry struct {
	token string
	pcs   []int
	mask  uint16
}

func init() {
	var id Label
	for r := 0; r < NumRoots; r++ {
		for q := 0; q < NumQualities; q++ {
			for x := 0; x < NumExtensions; x++ {
				tok := rootTokens[r] + qualityTokens[q] + extensionTokens[x]
				pcs := []int{r, (r + qualityIntervals[q][0]) % 12, (r + qualityIntervals[q][1]) % 12}
				if extensionIntervals[x] != 0 {
					pcs = append(pcs, (r+extensionIntervals[x])%12)
				}
				var mask uint16
				for _, pc := range pcs {
					mask |= 1 << uint(pc)
				}
				labels[id] = entry{token: tok, pcs: pcs, mask: mask}
				byToken[tok] = id
				id++
			}
		}
	}
}

// New returns the label for a root pitch class, quality and extension.
func New(root int, q Quality, x Extension) (Label, error) {
	if root < 0 || root >= NumRoots || q < 0 || int(q) >= NumQualities || x < 0 || int(x) >= NumExtensions {
		return 0, fmt.Errorf("%w: root=%d quality=%d extension=%d", ErrUnknownLabel, root, q, x)
	}
	return Label(root*NumQualities*NumExtensions + int(q)*NumExtensions + int(x)), nil
}

// Parse looks up a label string. Sharp roots are respelled as their flat
// equivalents and surrounding space is ignored.
func Parse(s string) (Label, error) {
	tok := sharps.Replace(strings.TrimSpace(s))
	l, ok := byToken[tok]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLabel, s)
	}
	return l, nil
}

// MustParse is like Parse but panics on error. For tests and tables.
func MustParse(s string) Label {
	l, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return l
}

// All returns every label in id order.
func All() []Label {
	all := make([]Label, NumLabels)
	for i := range all {
		all[i] = Label(i)
	}
	return all
}

// Valid reports whether the id is inside the label space.
func (l Label) Valid() bool { return l >= 0 && l < NumLabels }

func (l Label) Root() int            { return int(l) / (NumQualities * NumExtensions) }
func (l Label) Quality() Quality     { return Quality(int(l) % (NumQualities * NumExtensions) / NumExtensions) }
func (l Label) Extension() Extension { return Extension(int(l) % NumExtensions) }

// String returns the label token, for example "DbM7".
func (l Label) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Label(%d)", int(l))
	}
	return labels[l].token
}

// PitchClasses returns root, third, fifth and the added note if any.
// The returned slice must not be modified.
func (l Label) PitchClasses() []int {
	if !l.Valid() {
		return nil
	}
	return labels[l].pcs
}

// PitchMask returns the pitch classes as a 12-bit mask, bit pc set when
// pitch class pc belongs to the chord.
func (l Label) PitchMask() uint16 {
	if !l.Valid() {
		return 0
	}
	return labels[l].mask
}

// Strings converts labels to their tokens.
func Strings(ls []Label) []string {
	out := make([]string, len(ls))
	for i, l := range ls {
		out[i] = l.String()
	}
	return out
}

// ParseAll converts label strings to labels. Fails on the first unknown label.
func ParseAll(ss []string) ([]Label, error) {
	out := make([]Label, len(ss))
	for i, s := range ss {
		l, err := Parse(s)
		if err != nil {
			return nil, fmt.Errorf("label %d: %w", i, err)
		}
		out[i] = l
	}
	return out, nil
}
