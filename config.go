// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chorale

import (
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the parameters of a training or decoding run. Values are
// read from a YAML file; command flags may overwrite them.
type Config struct {
	Model        string `yaml:"model" json:"model"`
	Corpus       string `yaml:"corpus,omitempty" json:"corpus,omitempty"`
	CorpusFormat string `yaml:"corpus_format,omitempty" json:"corpus_format,omitempty"`
	ModelIn      string `yaml:"model_in,omitempty" json:"model_in,omitempty"`
	ModelOut     string `yaml:"model_out,omitempty" json:"model_out,omitempty"`
	TablesDir    string `yaml:"tables_dir,omitempty" json:"tables_dir,omitempty"`
	ResultsFile  string `yaml:"results_file,omitempty" json:"results_file,omitempty"`
	ScoreFile    string `yaml:"score_file,omitempty" json:"score_file,omitempty"`

	HMM HMM `yaml:"hmm" json:"hmm"`

	Store Store `yaml:"store" json:"store"`

	Server Server `yaml:"server" json:"server"`
}

// HMM holds estimation and decoding parameters.
type HMM struct {
	// Probability floor. Zero means use the package default.
	Floor float64 `yaml:"floor,omitempty" json:"floor,omitempty"`
	// Policy for states never seen transitioning out: "floor" or "uniform".
	UnseenRows string `yaml:"unseen_rows,omitempty" json:"unseen_rows,omitempty"`
	// Start distribution: "uniform" or "corpus".
	Start     string `yaml:"start,omitempty" json:"start,omitempty"`
	Workers   int    `yaml:"workers,omitempty" json:"workers,omitempty"`
	CacheSize int    `yaml:"cache_size,omitempty" json:"cache_size,omitempty"`
}

// Store configures the model registry.
type Store struct {
	Dir string `yaml:"dir,omitempty" json:"dir,omitempty"`
}

// Server configures the decode service.
type Server struct {
	Addr        string   `yaml:"addr,omitempty" json:"addr,omitempty"`
	CORSOrigins []string `yaml:"cors_origins,omitempty" json:"cors_origins,omitempty"`
}

// ReadConfig reads a YAML config file.
func ReadConfig(fn string) (*Config, error) {

	f, e := os.Open(fn)
	if e != nil {
		return nil, e
	}
	defer f.Close()
	return ReadConfigReader(f)
}

// ReadConfigReader reads a YAML config from an io.Reader.
func ReadConfigReader(r io.Reader) (*Config, error) {

	b, e := io.ReadAll(r)
	if e != nil {
		return nil, e
	}
	config := new(Config)
	if e = yaml.Unmarshal(b, config); e != nil {
		return nil, e
	}
	return config, nil
}
