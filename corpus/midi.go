package corpus

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/akualab/chorale/model"
	"github.com/akualab/chorale/model/chord"
	"github.com/golang/glog"
	"gitlab.com/gomidi/midi/v2/smf"
)

type noteEvent struct {
	tick uint64
	pc   int
	on   bool
}

// ReadMIDI extracts the chroma sequence of a standard MIDI file. Note
// events of all tracks are merged by absolute tick. After applying all the
// note events of a tick, the pitch classes that are still sounding form
// an event. Ticks with nothing sounding are dropped. The piece is
// unlabeled.
func ReadMIDI(r io.Reader, id string) (p *model.Piece, err error) {

	// smf may panic on malformed input.
	defer func() {
		if v := recover(); v != nil {
			p, err = nil, fmt.Errorf("%w: midi %q: %v", ErrFormat, id, v)
		}
	}()

	s, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("%w: midi %q: %v", ErrFormat, id, err)
	}

	var notes []noteEvent
	for _, track := range s.Tracks {
		var ticks uint64
		for _, ev := range track {
			ticks += uint64(ev.Delta)
			var ch, key, vel uint8
			switch {
			case ev.Message.GetNoteStart(&ch, &key, &vel):
				notes = append(notes, noteEvent{ticks, int(key) % chord.NumPitchClasses, true})
			case ev.Message.GetNoteEnd(&ch, &key):
				notes = append(notes, noteEvent{ticks, int(key) % chord.NumPitchClasses, false})
			}
		}
	}
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].tick < notes[j].tick })

	var (
		sounding [chord.NumPitchClasses]int
		events   []model.Chroma
		dropped  int
	)
	for i := 0; i < len(notes); {
		tick := notes[i].tick
		for ; i < len(notes) && notes[i].tick == tick; i++ {
			n := notes[i]
			if n.on {
				sounding[n.pc]++
			} else if sounding[n.pc] > 0 {
				sounding[n.pc]--
			}
		}
		var c model.Chroma
		for pc, k := range sounding {
			if k > 0 {
				c |= 1 << uint(pc)
			}
		}
		if c.Empty() {
			dropped++
			continue
		}
		events = append(events, c)
	}
	glog.V(3).Infof("midi %q: %d note events, %d chroma events, %d silent ticks dropped", id, len(notes), len(events), dropped)
	return model.NewPiece(id, nil, events)
}

// ReadMIDIFile reads a MIDI file. The piece id is the file name without
// extension.
func ReadMIDIFile(fn string) (*model.Piece, error) {
	data, err := os.ReadFile(fn)
	if err != nil {
		return nil, err
	}
	id := strings.TrimSuffix(filepath.Base(fn), filepath.Ext(fn))
	return ReadMIDI(bytes.NewReader(data), id)
}
