// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hmm

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/akualab/chorale"
	"github.com/golang/glog"
	"github.com/vmihailenco/msgpack/v5"
)

// File names used by WriteTables and ReadTables.
const (
	TransFile = "trans_mat.csv"
	EmitFile  = "emission_mat.csv"
	StartFile = "start_p.csv"
)

// Tables are written one row per state. The header row holds the column
// ids and the first column holds the state id:
//
//	state,0,1,...
//	0,p00,p01,...
//
// The reader also accepts the transposed layout with no state column
// written by pandas DataFrame.from_dict, where column i holds row i of
// the table.

func writeCSV(w io.Writer, nrows, ncols int, get func(i, j int) float64) error {
	cw := csv.NewWriter(w)
	rec := make([]string, ncols+1)
	rec[0] = "state"
	for j := 0; j < ncols; j++ {
		rec[j+1] = strconv.Itoa(j)
	}
	if err := cw.Write(rec); err != nil {
		return err
	}
	for i := 0; i < nrows; i++ {
		rec[0] = strconv.Itoa(i)
		for j := 0; j < ncols; j++ {
			rec[j+1] = strconv.FormatFloat(get(i, j), 'g', -1, 64)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func readCSV(r io.Reader, nrows, ncols int, set func(i, j int, v float64)) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	recs, err := cr.ReadAll()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTableFormat, err)
	}
	if len(recs) == 0 {
		return fmt.Errorf("%w: missing header", ErrTableFormat)
	}
	body := recs[1:]

	switch len(recs[0]) {
	case ncols + 1:
		if len(body) != nrows {
			return fmt.Errorf("%w: got %d rows, expected %d", ErrTableFormat, len(body), nrows)
		}
		for i, rec := range body {
			if len(rec) != ncols+1 {
				return fmt.Errorf("%w: row %d has %d fields, expected %d", ErrTableFormat, i, len(rec), ncols+1)
			}
			id, err := strconv.Atoi(rec[0])
			if err != nil || id != i {
				return fmt.Errorf("%w: row %d has state id %q", ErrTableFormat, i, rec[0])
			}
			for j := 0; j < ncols; j++ {
				v, err := strconv.ParseFloat(rec[j+1], 64)
				if err != nil {
					return fmt.Errorf("%w: [%d][%d]: %v", ErrTableFormat, i, j, err)
				}
				set(i, j, v)
			}
		}
	case nrows:
		// Transposed, no state column.
		if len(body) != ncols {
			return fmt.Errorf("%w: got %d rows, expected %d", ErrTableFormat, len(body), ncols)
		}
		for j, rec := range body {
			if len(rec) != nrows {
				return fmt.Errorf("%w: row %d has %d fields, expected %d", ErrTableFormat, j, len(rec), nrows)
			}
			for i := 0; i < nrows; i++ {
				v, err := strconv.ParseFloat(rec[i], 64)
				if err != nil {
					return fmt.Errorf("%w: [%d][%d]: %v", ErrTableFormat, i, j, err)
				}
				set(i, j, v)
			}
		}
	default:
		return fmt.Errorf("%w: header has %d fields", ErrTableFormat, len(recs[0]))
	}
	return nil
}

// WriteCSV writes the table, one row per source state.
func (t *TransitionTable) WriteCSV(w io.Writer) error {
	return writeCSV(w, NumStates, NumStates, func(i, j int) float64 { return t[i][j] })
}

// ReadTransitionsCSV reads a table written by TransitionTable.WriteCSV.
func ReadTransitionsCSV(r io.Reader) (*TransitionTable, error) {
	t := new(TransitionTable)
	if err := readCSV(r, NumStates, NumStates, func(i, j int, v float64) { t[i][j] = v }); err != nil {
		return nil, err
	}
	return t, nil
}

// WriteCSV writes the table, one row per state, one column per pitch class.
func (e *EmissionTable) WriteCSV(w io.Writer) error {
	return writeCSV(w, NumStates, NumFeatures, func(s, f int) float64 { return e[s][f] })
}

// ReadEmissionsCSV reads a table written by EmissionTable.WriteCSV.
func ReadEmissionsCSV(r io.Reader) (*EmissionTable, error) {
	e := new(EmissionTable)
	if err := readCSV(r, NumStates, NumFeatures, func(s, f int, v float64) { e[s][f] = v }); err != nil {
		return nil, err
	}
	return e, nil
}

// WriteCSV writes the distribution as a single column table.
func (d *StartDist) WriteCSV(w io.Writer) error {
	return writeCSV(w, NumStates, 1, func(s, _ int) float64 { return d[s] })
}

// ReadStartCSV reads a distribution written by StartDist.WriteCSV.
func ReadStartCSV(r io.Reader) (*StartDist, error) {
	d := new(StartDist)
	if err := readCSV(r, NumStates, 1, func(s, _ int, v float64) { d[s] = v }); err != nil {
		return nil, err
	}
	return d, nil
}

func writeCSVFile(fn string, write func(io.Writer) error) error {
	f, err := os.Create(fn)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", fn, err)
	}
	glog.V(2).Infof("wrote table %s", fn)
	return f.Close()
}

func readCSVFile(fn string, read func(io.Reader) error) error {
	f, err := os.Open(fn)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := read(f); err != nil {
		return fmt.Errorf("reading %s: %w", fn, err)
	}
	return nil
}

// WriteTables writes the start, transition and emission tables of a
// trained model to dir.
func (m *Model) WriteTables(dir string) error {
	if !m.Trained() {
		return fmt.Errorf("model %q: %w", m.ModelName, ErrMissingTable)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := writeCSVFile(filepath.Join(dir, TransFile), m.Trans.WriteCSV); err != nil {
		return err
	}
	if err := writeCSVFile(filepath.Join(dir, EmitFile), m.Emit.WriteCSV); err != nil {
		return err
	}
	return writeCSVFile(filepath.Join(dir, StartFile), m.Start.WriteCSV)
}

// ReadTables reads the tables in dir and returns a model. The start file
// is optional; the uniform distribution is used when it is missing.
func ReadTables(dir string, options ...Option) (*Model, error) {

	var (
		trans *TransitionTable
		emit  *EmissionTable
		start *StartDist
	)
	err := readCSVFile(filepath.Join(dir, TransFile), func(r io.Reader) (err error) {
		trans, err = ReadTransitionsCSV(r)
		return
	})
	if err != nil {
		return nil, err
	}
	err = readCSVFile(filepath.Join(dir, EmitFile), func(r io.Reader) (err error) {
		emit, err = ReadEmissionsCSV(r)
		return
	})
	if err != nil {
		return nil, err
	}
	fn := filepath.Join(dir, StartFile)
	if _, err := os.Stat(fn); err == nil {
		err = readCSVFile(fn, func(r io.Reader) (err error) {
			start, err = ReadStartCSV(r)
			return
		})
		if err != nil {
			return nil, err
		}
	}
	options = append(options, Tables(start, trans, emit))
	return NewModel(options...), nil
}

// WriteFile writes the model to file fn using JSON encoding.
func (m *Model) WriteFile(fn string) error {
	return chorale.WriteJSONFile(fn, m)
}

// ReadFile reads a JSON model from file fn.
func ReadFile(fn string) (*Model, error) {
	m := NewModel()
	if err := chorale.ReadJSONFile(fn, m); err != nil {
		return nil, err
	}
	if !m.Trained() {
		return nil, fmt.Errorf("model file %s: %w", fn, ErrMissingTable)
	}
	return m, nil
}

// plain has the fields of Model without its methods so that msgpack does
// not call back into MarshalBinary.
type plain Model

// MarshalBinary encodes the model using msgpack.
func (m *Model) MarshalBinary() ([]byte, error) {
	return msgpack.Marshal((*plain)(m))
}

// UnmarshalBinary decodes a model encoded by MarshalBinary.
func (m *Model) UnmarshalBinary(data []byte) error {
	if err := msgpack.Unmarshal(data, (*plain)(m)); err != nil {
		return fmt.Errorf("%w: %v", ErrTableFormat, err)
	}
	return nil
}
