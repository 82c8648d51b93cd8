// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package corpus reads chorale data sets and converts them to pieces.

Supported formats:

	uci      the comma separated Bach chorale harmony data set, one event per row
	records  piece,event,c0,...,c11,label rows
	json     one JSON piece per line (model.Seq)
	midi     a standard MIDI file or a directory of them, unlabeled
*/
package corpus

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/akualab/chorale/model"
	"github.com/golang/glog"
)

type Error string

func (err Error) Error() string { return string(err) }

const (
	ErrFormat        = Error("corpus: bad record")
	ErrUnknownFormat = Error("corpus: unknown format")
)

// Format names a corpus file format.
type Format string

const (
	FormatUCI     Format = "uci"
	FormatRecords Format = "records"
	FormatJSON    Format = "json"
	FormatMIDI    Format = "midi"
)

// Load reads the pieces in fn. For FormatMIDI, fn may be a directory, in
// which case every .mid and .midi file in it is read in name order.
func Load(fn string, format Format) ([]*model.Piece, error) {

	if format == FormatMIDI {
		return loadMIDI(fn)
	}
	f, err := os.Open(fn)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var pieces []*model.Piece
	switch format {
	case FormatUCI:
		pieces, err = ReadUCI(f)
	case FormatRecords:
		pieces, err = ReadRecords(f)
	case FormatJSON:
		pieces, err = model.ReadPieces(f)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fn, err)
	}
	glog.V(1).Infof("read %d pieces from %s", len(pieces), fn)
	return pieces, nil
}

func loadMIDI(fn string) ([]*model.Piece, error) {

	fi, err := os.Stat(fn)
	if err != nil {
		return nil, err
	}
	files := []string{fn}
	if fi.IsDir() {
		entries, err := os.ReadDir(fn)
		if err != nil {
			return nil, err
		}
		files = files[:0]
		for _, e := range entries {
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if e.IsDir() || (ext != ".mid" && ext != ".midi") {
				continue
			}
			files = append(files, filepath.Join(fn, e.Name()))
		}
		sort.Strings(files)
	}

	pieces := make([]*model.Piece, 0, len(files))
	for _, name := range files {
		p, err := ReadMIDIFile(name)
		if err != nil {
			return nil, err
		}
		pieces = append(pieces, p)
	}
	glog.V(1).Infof("read %d midi files from %s", len(pieces), fn)
	return pieces, nil
}

// NewCorpus builds a training corpus. Every piece must be labeled.
func NewCorpus(pieces []*model.Piece) (*model.Corpus, error) {
	c := new(model.Corpus)
	for _, p := range pieces {
		if err := c.Add(p); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// pieceBuilder groups consecutive rows that share a piece id.
type pieceBuilder struct {
	pieces  []*model.Piece
	id      string
	labels  []string
	events  []model.Chroma
	labeled bool
}

func (b *pieceBuilder) add(id string, c model.Chroma, label string) error {
	if b.events == nil || id != b.id {
		if err := b.flush(); err != nil {
			return err
		}
		b.id = id
		b.labeled = label != ""
	}
	if b.labeled != (label != "") {
		return fmt.Errorf("%w: piece %q mixes labeled and unlabeled events", ErrFormat, id)
	}
	b.events = append(b.events, c)
	b.labels = append(b.labels, label)
	return nil
}

func (b *pieceBuilder) flush() error {
	if b.events == nil {
		return nil
	}
	p := &model.Piece{ID: b.id, Events: b.events}
	if b.labeled {
		labels, err := parseLabels(b.labels)
		if err != nil {
			return fmt.Errorf("piece %q: %w", b.id, err)
		}
		p.Labels = labels
	}
	b.pieces = append(b.pieces, p)
	b.events, b.labels = nil, nil
	return nil
}

func (b *pieceBuilder) done() ([]*model.Piece, error) {
	if err := b.flush(); err != nil {
		return nil, err
	}
	return b.pieces, nil
}
