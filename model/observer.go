package model

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/akualab/chorale/model/chord"
	"github.com/golang/glog"
)

// Seq is the JSON format of a piece: one object per line.
//
//	{"id":"000106b_","labels":["F_M","F_M"],"events":[[1,0,0,0,0,1,0,0,0,1,0,0],...]}
//
// Labels may be omitted for pieces to be decoded.
type Seq struct {
	ID     string   `json:"id"`
	Labels []string `json:"labels,omitempty"`
	Events [][]int  `json:"events"`
}

// NewSeq converts a piece to its JSON format.
func NewSeq(p *Piece) Seq {
	s := Seq{ID: p.ID, Events: make([][]int, len(p.Events))}
	if p.Labeled() {
		s.Labels = chord.Strings(p.Labels)
	}
	for i, c := range p.Events {
		s.Events[i] = c.Bits()
	}
	return s
}

// Piece converts the JSON format to a piece.
func (s Seq) Piece() (*Piece, error) {
	events := make([]Chroma, len(s.Events))
	for i, bits := range s.Events {
		c, err := ChromaFromBits(bits)
		if err != nil {
			return nil, fmt.Errorf("piece %q event %d: %w", s.ID, i, err)
		}
		events[i] = c
	}
	var labels []chord.Label
	if s.Labels != nil {
		var err error
		if labels, err = chord.ParseAll(s.Labels); err != nil {
			return nil, fmt.Errorf("piece %q: %w", s.ID, err)
		}
	}
	return NewPiece(s.ID, labels, events)
}

// SeqObserver streams pieces from a reader of newline separated JSON
// objects of type Seq.
type SeqObserver struct {
	reader io.Reader
	err    error
}

// NewSeqObserver creates a new SeqObserver.
//
// Example to read a file (error handling ignored for brevity):
//
//	r, _ = os.Open(fn)
//	obs := NewSeqObserver(r)
//	c, _ := obs.ObsChan()
//	for p := range c { ... }
//	err := obs.Err()       // Stream error, if any.
//	_ = obs.Close()        // Closes the underlying file reader.
func NewSeqObserver(reader io.Reader) *SeqObserver {
	return &SeqObserver{reader: reader}
}

// ObsChan returns a channel of pieces. The channel closes at the end of the
// stream or on the first error, which is then returned by Err.
func (so *SeqObserver) ObsChan() (<-chan *Piece, error) {
	if so.reader == nil {
		return nil, fmt.Errorf("model: observer has no reader")
	}
	obsChan := make(chan *Piece, 100)
	go func() {
		defer close(obsChan)
		dec := json.NewDecoder(so.reader)
		for {
			var v Seq
			err := dec.Decode(&v)
			if err == io.EOF {
				return
			}
			if err != nil {
				glog.Warning(err)
				so.err = err
				return
			}
			p, err := v.Piece()
			if err != nil {
				glog.Warning(err)
				so.err = err
				return
			}
			obsChan <- p
		}
	}()
	return obsChan, nil
}

// Err returns the error that ended the stream. Only valid after the
// channel returned by ObsChan is closed.
func (so *SeqObserver) Err() error { return so.err }

// Close underlying reader if reader implements the io.Closer interface.
func (so *SeqObserver) Close() error {

	c, ok := so.reader.(io.Closer)
	if ok {
		return c.Close()
	}
	return nil
}

// ReadPieces reads all pieces from a JSON stream.
func ReadPieces(r io.Reader) ([]*Piece, error) {
	obs := NewSeqObserver(r)
	c, err := obs.ObsChan()
	if err != nil {
		return nil, err
	}
	var pieces []*Piece
	for p := range c {
		pieces = append(pieces, p)
	}
	return pieces, obs.Err()
}

// WritePieces writes pieces as a JSON stream, one object per line.
func WritePieces(w io.Writer, pieces []*Piece) error {
	enc := json.NewEncoder(w)
	for _, p := range pieces {
		if err := enc.Encode(NewSeq(p)); err != nil {
			return err
		}
	}
	return nil
}
