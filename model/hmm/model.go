// Copyright (c) 2014 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package hmm implements a discrete hidden Markov model of harmonic
progressions.

The hidden states are the 144 chord labels of package chord. Each state
emits a 12-bit chroma vector, scored as independent pitch class presence
probabilities. Tables are estimated by counting over a labeled corpus and
decoded with the Viterbi algorithm in the log2 domain.

	m := hmm.NewModel(hmm.Name("bach"), hmm.Workers(4))
	if err := m.Train(ctx, corpus); err != nil {
		return err
	}
	labels, logProb, err := hmm.Decode(ctx, m, events)
*/
package hmm

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/akualab/chorale/model"
	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"
)

// Model is a trained harmonic HMM. Tables are read-only once trained or
// loaded, so a model can be shared by concurrent decoders.
type Model struct {

	// Model name.
	ModelName string `json:"name" msgpack:"name"`

	// Probability assigned to zero estimates.
	Floor float64 `json:"floor" msgpack:"floor"`

	Start *StartDist       `json:"start" msgpack:"start"`
	Trans *TransitionTable `json:"trans" msgpack:"trans"`
	Emit  *EmissionTable   `json:"emit" msgpack:"emit"`

	// Training stats.
	NumPieces  int `json:"num_pieces,omitempty" msgpack:"num_pieces,omitempty"`
	NumEvents  int `json:"num_events,omitempty" msgpack:"num_events,omitempty"`
	UnseenRows int `json:"unseen_rows,omitempty" msgpack:"unseen_rows,omitempty"`

	unseen      UnseenPolicy
	startPolicy StartPolicy
	workers     int
}

// Option type is used to pass options to NewModel().
type Option func(*Model)

// NewModel creates a new untrained model.
func NewModel(options ...Option) *Model {

	m := &Model{
		ModelName: "chorale",
		Floor:     DefaultFloor,
		workers:   runtime.NumCPU(),
	}

	// Set options.
	for _, option := range options {
		option(m)
	}
	return m
}

// Name is an option to set the model name.
func Name(name string) Option {
	return func(m *Model) { m.ModelName = name }
}

// Floor sets the value of zero probability estimates.
// Default is DefaultFloor.
func Floor(floor float64) Option {
	return func(m *Model) { m.Floor = floor }
}

// Unseen sets the policy for transition rows with no counts.
// Default is FloorUnseen.
func Unseen(p UnseenPolicy) Option {
	return func(m *Model) { m.unseen = p }
}

// Start sets the start distribution policy used by Train.
// Default is StartUniform.
func Start(p StartPolicy) Option {
	return func(m *Model) { m.startPolicy = p }
}

// Workers sets the max number of goroutines used to count the corpus.
// Default is the number of CPUs.
func Workers(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.workers = n
		}
	}
}

// Tables is an option to set already estimated tables. A nil start
// distribution is replaced by the uniform distribution.
func Tables(start *StartDist, trans *TransitionTable, emit *EmissionTable) Option {
	return func(m *Model) {
		if start == nil {
			start = UniformStart()
		}
		m.Start = start
		m.Trans = trans
		m.Emit = emit
	}
}

// Name returns the name of the model.
func (m *Model) Name() string { return m.ModelName }

// Trained returns true when all the tables are set.
func (m *Model) Trained() bool {
	return m.Start != nil && m.Trans != nil && m.Emit != nil
}

// Validate checks that the model is trained and that every probability
// is in (0,1].
func (m *Model) Validate() error {
	if !m.Trained() {
		return fmt.Errorf("model %q: %w", m.ModelName, ErrMissingTable)
	}
	if err := m.Start.Validate(); err != nil {
		return fmt.Errorf("model %q: %w", m.ModelName, err)
	}
	if err := m.Trans.Validate(); err != nil {
		return fmt.Errorf("model %q: %w", m.ModelName, err)
	}
	if err := m.Emit.Validate(); err != nil {
		return fmt.Errorf("model %q: %w", m.ModelName, err)
	}
	return nil
}

type counts struct {
	trans TransitionCounts
	emit  EmissionCounts
	start StartCounts
}

func (c *counts) add(other *counts) {
	c.trans.Add(&other.trans)
	c.emit.Add(&other.emit)
	c.start.Add(&other.start)
}

func (c *counts) countPiece(p *model.Piece) error {
	if err := c.trans.CountPiece(p); err != nil {
		return err
	}
	if err := c.emit.CountPiece(p); err != nil {
		return err
	}
	return c.start.CountPiece(p)
}

// Train estimates the tables from a labeled corpus. Pieces are counted
// in parallel, transitions never cross piece boundaries.
func (m *Model) Train(ctx context.Context, c *model.Corpus) error {

	if len(c.Pieces) == 0 {
		return fmt.Errorf("model %q: %w", m.ModelName, ErrEmptyCorpus)
	}
	var (
		total counts
		mu    sync.Mutex
	)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.workers)
	for k, shard := range c.Split(m.workers) {
		k, shard := k, shard
		g.Go(func() error {
			local := new(counts)
			for _, p := range shard {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := local.countPiece(p); err != nil {
					return err
				}
			}
			glog.V(3).Infof("shard %d: counted %d pieces", k, len(shard))
			mu.Lock()
			total.add(local)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("model %q: training: %w", m.ModelName, err)
	}

	m.Trans, m.UnseenRows = total.trans.Estimate(m.Floor, m.unseen)
	m.Emit = total.emit.Estimate(m.Floor)
	switch m.startPolicy {
	case StartFromCorpus:
		m.Start = total.start.Estimate(m.Floor)
	default:
		m.Start = UniformStart()
	}
	m.NumPieces = len(c.Pieces)
	m.NumEvents = c.Len()

	glog.Infof("trained model %q: %d pieces, %d events", m.ModelName, m.NumPieces, m.NumEvents)
	if m.UnseenRows > 0 {
		glog.Warningf("model %q: %d states never transition out, rows filled using %s policy",
			m.ModelName, m.UnseenRows, m.unseen)
	}
	return nil
}
