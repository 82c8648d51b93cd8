package corpus

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/akualab/chorale/model"
	"github.com/akualab/chorale/model/chord"
)

// Record layout: piece id, event number, 12 presence flags, label.
const numRecordFields = 2 + chord.NumPitchClasses + 1

// ReadRecords reads rows of the form
//
//	piece,event,c0,...,c11,label
//
// where ci is 0 or 1 and label is either a label id or a label token such
// as "DbM7". Consecutive rows with the same piece id form a piece. Pieces
// with an empty label column are returned unlabeled. An optional header
// row starting with "piece" is skipped.
func ReadRecords(r io.Reader) ([]*model.Piece, error) {

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numRecordFields
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	var b pieceBuilder
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		if line == 1 && rec[0] == "piece" {
			continue
		}
		bits := make([]int, chord.NumPitchClasses)
		for i := range bits {
			v, err := strconv.Atoi(rec[2+i])
			if err != nil || v < 0 || v > 1 {
				return nil, fmt.Errorf("%w: line %d: presence flag %q", ErrFormat, line, rec[2+i])
			}
			bits[i] = v
		}
		c, err := model.ChromaFromBits(bits)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if err := b.add(strings.TrimSpace(rec[0]), c, strings.TrimSpace(rec[numRecordFields-1])); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	return b.done()
}

// WriteRecords writes pieces in the format read by ReadRecords, with a
// header row. Labels are written as tokens.
func WriteRecords(w io.Writer, pieces []*model.Piece) error {

	cw := csv.NewWriter(w)
	rec := make([]string, numRecordFields)
	rec[0], rec[1], rec[numRecordFields-1] = "piece", "event", "label"
	for i := 0; i < chord.NumPitchClasses; i++ {
		rec[2+i] = strconv.Itoa(i)
	}
	if err := cw.Write(rec); err != nil {
		return err
	}
	for _, p := range pieces {
		if err := p.Validate(); err != nil {
			return err
		}
		for t, c := range p.Events {
			rec[0] = p.ID
			rec[1] = strconv.Itoa(t + 1)
			for i, bit := range c.Bits() {
				rec[2+i] = strconv.Itoa(bit)
			}
			rec[numRecordFields-1] = ""
			if p.Labeled() {
				rec[numRecordFields-1] = p.Labels[t].String()
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// parseLabel accepts a label id or a label token.
func parseLabel(s string) (chord.Label, error) {
	if id, err := strconv.Atoi(s); err == nil {
		l := chord.Label(id)
		if !l.Valid() {
			return 0, fmt.Errorf("%w: id %d", chord.ErrUnknownLabel, id)
		}
		return l, nil
	}
	return chord.Parse(s)
}

func parseLabels(ss []string) ([]chord.Label, error) {
	labels := make([]chord.Label, len(ss))
	for i, s := range ss {
		l, err := parseLabel(s)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		labels[i] = l
	}
	return labels, nil
}
