// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hmm

import (
	"context"
	"fmt"
	"runtime"

	"github.com/akualab/chorale/cache"
	"github.com/akualab/chorale/floatx"
	"github.com/akualab/chorale/model"
	"github.com/akualab/chorale/model/chord"
	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"
)

// DefaultCacheSize is the number of distinct chroma values.
const DefaultCacheSize = 1 << NumFeatures

// Decoder finds the most likely label sequence for a chroma sequence.
// It holds log2 copies of the model tables and is safe for concurrent use.
type Decoder struct {
	name     string
	logStart [NumStates]float64
	// logTrans[j][i] = log2 P(j|i), stored by destination so the inner
	// loop of the recursion reads contiguous memory.
	logTrans [NumStates][NumStates]float64
	logEmit  [NumStates][NumFeatures]float64
	cache    *cache.Cache
	rows     *floatx.Pool
}

// DecoderOption is used to pass options to NewDecoder().
type DecoderOption func(*Decoder)

// CacheSize sets the capacity of the emission log-likelihood cache.
// Default is DefaultCacheSize.
func CacheSize(n int) DecoderOption {
	return func(d *Decoder) {
		if n > 0 {
			d.cache = cache.NewCache(uint64(n))
		}
	}
}

// NewDecoder returns a decoder for a trained model. Fails with
// ErrDegenerateProbability if the log of any table entry is not finite.
func NewDecoder(m *Model, options ...DecoderOption) (*Decoder, error) {

	if !m.Trained() {
		return nil, fmt.Errorf("model %q: %w", m.ModelName, ErrMissingTable)
	}
	d := &Decoder{
		name: m.ModelName,
		rows: floatx.NewPool(NumStates, 2*runtime.NumCPU()),
	}
	for _, option := range options {
		option(d)
	}
	if d.cache == nil {
		d.cache = cache.NewCache(DefaultCacheSize)
	}

	if k := floatx.LogSlice(m.Start[:], d.logStart[:]); k >= 0 {
		return nil, fmt.Errorf("model %q: start [%d] = %g: %w", m.ModelName, k, m.Start[k], ErrDegenerateProbability)
	}
	var row [NumStates]float64
	for i := range m.Trans {
		if k := floatx.LogSlice(m.Trans[i][:], row[:]); k >= 0 {
			return nil, fmt.Errorf("model %q: transition [%d][%d] = %g: %w", m.ModelName, i, k, m.Trans[i][k], ErrDegenerateProbability)
		}
		for j, v := range row {
			d.logTrans[j][i] = v
		}
	}
	for s := range m.Emit {
		if k := floatx.LogSlice(m.Emit[s][:], d.logEmit[s][:]); k >= 0 {
			return nil, fmt.Errorf("model %q: emission [%d][%d] = %g: %w", m.ModelName, s, k, m.Emit[s][k], ErrDegenerateProbability)
		}
	}
	glog.V(2).Infof("decoder ready for model %q", d.name)
	return d, nil
}

// EmissionLogProbs returns log2 P(c|s) for every state s. Only the pitch
// classes present in c contribute; an absent pitch class is a factor of 1.
// The returned slice is shared and must not be modified.
func (d *Decoder) EmissionLogProbs(c model.Chroma) []float64 {
	return d.cache.GetOrCompute(uint64(c), func() []float64 {
		b := make([]float64, NumStates)
		for f := 0; f < NumFeatures; f++ {
			if !c.Has(f) {
				continue
			}
			for s := range b {
				b[s] += d.logEmit[s][f]
			}
		}
		return b
	})
}

// CacheStats returns the size, capacity, hits and misses of the emission
// cache.
func (d *Decoder) CacheStats() (size, capacity, hits, misses uint64) {
	return d.cache.Stats()
}

// Viterbi recursion in log2 scale.
//
//	delta(j, 0) = start(j) + b(j, o_0)
//	delta(j, t) = max_i [ delta(i, t-1) + a(i, j) ] + b(j, o_t)
//	index(j, t) = argmax_i [ delta(i, t-1) + a(i, j) ]
//
// Ties go to the lowest i. Backtracking from the lowest j that maximizes
// delta(j, T-1) gives the decoded sequence.

// Decode returns the most likely label sequence for obs and its log2
// probability. The context is checked at every time step.
func (d *Decoder) Decode(ctx context.Context, obs []model.Chroma) ([]chord.Label, float64, error) {

	T := len(obs)
	if T == 0 {
		return nil, 0, ErrEmptySequence
	}
	for t, c := range obs {
		if !c.Valid() {
			return nil, 0, fmt.Errorf("event %d: %w", t, model.ErrPitchClass)
		}
	}

	prev, cur := d.rows.Get(), d.rows.Get()
	defer d.rows.Put(prev)
	defer d.rows.Put(cur)

	// Backpointers fit in a byte since NumStates <= 256.
	index := make([]uint8, T*NumStates)

	b := d.EmissionLogProbs(obs[0])
	for j := range prev {
		prev[j] = d.logStart[j] + b[j]
	}

	for t := 1; t < T; t++ {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		b = d.EmissionLogProbs(obs[t])
		bp := index[t*NumStates : (t+1)*NumStates]
		for j := 0; j < NumStates; j++ {
			a := &d.logTrans[j]
			max := prev[0] + a[0]
			argmax := 0
			for i := 1; i < NumStates; i++ {
				if v := prev[i] + a[i]; v > max {
					max = v
					argmax = i
				}
			}
			cur[j] = max + b[j]
			bp[j] = uint8(argmax)
		}
		prev, cur = cur, prev
	}

	last, logProb := floatx.Argmax(prev)
	labels := make([]chord.Label, T)
	labels[T-1] = chord.Label(last)
	for t := T - 2; t >= 0; t-- {
		labels[t] = chord.Label(index[(t+1)*NumStates+int(labels[t+1])])
	}
	return labels, logProb, nil
}

// DecodeAll decodes the events of every piece using at most workers
// goroutines. Results are in the order of pieces.
func (d *Decoder) DecodeAll(ctx context.Context, pieces []*model.Piece, workers int) ([][]chord.Label, error) {

	if workers < 1 {
		workers = runtime.NumCPU()
	}
	out := make([][]chord.Label, len(pieces))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for k, p := range pieces {
		k, p := k, p
		g.Go(func() error {
			labels, lp, err := d.Decode(ctx, p.Events)
			if err != nil {
				return fmt.Errorf("piece %q: %w", p.ID, err)
			}
			glog.V(3).Infof("decoded piece %q: %d events, log2 prob %.3f", p.ID, len(labels), lp)
			out[k] = labels
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Decode is a convenience function to decode a single sequence. Use a
// Decoder to decode many sequences with the same model.
func Decode(ctx context.Context, m *Model, obs []model.Chroma) ([]chord.Label, float64, error) {
	d, err := NewDecoder(m)
	if err != nil {
		return nil, 0, err
	}
	return d.Decode(ctx, obs)
}
