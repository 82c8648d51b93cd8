package corpus

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/akualab/chorale/model"
	"github.com/akualab/chorale/model/chord"
	"github.com/golang/glog"
)

// Columns of the UCI Bach chorale harmony data set.
const (
	uciPiece   = 0
	uciEvent   = 1
	uciPitch   = 2 // 12 columns, C to B
	uciBass    = 14
	uciMeter   = 15
	uciLabel   = 16
	uciNumCols = 17
)

// ReadUCI reads the Bach chorale harmony data set. Each row is an event:
//
//	000106b_, 1,YES,NO,NO,NO,YES,NO,NO,YES,NO,NO,NO,NO,C,3,C_M
//
// Presence flags are YES or NO. Bass and meter are ignored. Sharp labels
// are normalized to their flat spelling.
func ReadUCI(r io.Reader) ([]*model.Piece, error) {

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = uciNumCols
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
		var c model.Chroma
		for pc := 0; pc < chord.NumPitchClasses; pc++ {
			switch strings.ToUpper(strings.TrimSpace(rec[uciPitch+pc])) {
			case "YES":
				c |= 1 << uint(pc)
			case "NO":
			default:
				return nil, fmt.Errorf("%w: line %d: presence flag %q", ErrFormat, line, rec[uciPitch+pc])
			}
		}
		label := strings.TrimSpace(rec[uciLabel])
		if label == "" {
			return nil, fmt.Errorf("%w: line %d: missing label", ErrFormat, line)
		}
		if err := b.add(strings.TrimSpace(rec[uciPiece]), c, label); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}
	pieces, err := b.done()
	if err != nil {
		return nil, err
	}
	glog.V(2).Infof("uci: %d pieces", len(pieces))
	return pieces, nil
}
