// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

/*
Package chorale estimates harmonic hidden Markov models from chorale corpora
and decodes chord label sequences from note-presence observations.

The statistical core lives in model/hmm. This package holds the pieces shared
by the command-line tool and the decode service: configuration, result
records and helpers to read and write JSON files.
*/
package chorale

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/golang/glog"
)

// Result is the outcome of decoding one piece. Ref is empty when the
// piece had no reference labels.
type Result struct {
	BatchID string   `json:"batchid"`
	Ref     []string `json:"ref,omitempty"`
	Hyp     []string `json:"hyp"`
}

// Fatal logs the error and exits if err is not nil.
func Fatal(err error) {
	if err != nil {
		glog.Fatal(err)
	}
}

// WriteJSONFile writes v to file fn using JSON encoding. Parent dirs are
// created as needed.
func WriteJSONFile(fn string, v interface{}) error {

	e := os.MkdirAll(filepath.Dir(fn), 0755)
	if e != nil {
		return e
	}
	f, e := os.Create(fn)
	if e != nil {
		return e
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	if e = enc.Encode(v); e != nil {
		return e
	}
	glog.V(2).Infof("wrote json file %s", fn)
	return nil
}

// ReadJSONFile reads a JSON-encoded value from file fn into v.
func ReadJSONFile(fn string, v interface{}) error {

	f, e := os.Open(fn)
	if e != nil {
		return e
	}
	defer f.Close()
	return json.NewDecoder(f).Decode(v)
}
