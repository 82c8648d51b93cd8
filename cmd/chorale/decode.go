// Searches the most likely label sequence given the model.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/akualab/chorale"
	"github.com/akualab/chorale/corpus"
	"github.com/akualab/chorale/model"
	"github.com/akualab/chorale/model/chord"
	"github.com/akualab/chorale/model/hmm"
	"github.com/akualab/chorale/store"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/urfave/cli"
)

var decodeCommand = cli.Command{
	Name:      "decode",
	ShortName: "d",
	Usage:     "Searches the most likely chord labels given the model.",
	Description: `
runs decoder.

The model is read from the model file (model-in), from a tables dir or
from the model store, in that order. Results are written as json lines,
one per piece.

ex:
$ chorale decode -d test.csv -i bach.json -r results.json
$ chorale decode -f midi -d bwv253.mid --store-dir models -m bach
`,
	Action: decodeAction,
	Flags: []cli.Flag{
		cli.StringFlag{Name: "corpus, d", Usage: "the file with the pieces to decode"},
		cli.StringFlag{Name: "corpus-format, f", Usage: "corpus format {uci, records, json, midi}"},
		cli.StringFlag{Name: "model-in, i", Usage: "input model file (json)"},
		cli.StringFlag{Name: "tables-dir", Usage: "read csv tables from this dir"},
		cli.StringFlag{Name: "store-dir", Usage: "model store dir"},
		cli.StringFlag{Name: "model, m", Usage: "model name in the store"},
		cli.StringFlag{Name: "results-file, r", Usage: "results file"},
		cli.IntFlag{Name: "workers, w", Usage: "max number of pieces decoded in parallel"},
	},
}

func decodeAction(c *cli.Context) error {

	initApp(c)

	// Validate parameters. Command flags overwrite config file params.
	requiredStringParam(c, "corpus", &config.Corpus)
	if stringParam(c, "corpus-format", &config.CorpusFormat) == ErrNoConfigValue {
		config.CorpusFormat = string(corpus.FormatUCI)
	}
	stringParam(c, "model-in", &config.ModelIn)
	stringParam(c, "tables-dir", &config.TablesDir)
	stringParam(c, "store-dir", &config.Store.Dir)
	stringParam(c, "model", &config.Model)
	intParam(c, "workers", &config.HMM.Workers)

	var resultsFile *os.File
	if e := stringParam(c, "results-file", &config.ResultsFile); e == ErrNoConfigValue {
		glog.Infof("no results file specified, writing to stdout")
		resultsFile = os.Stdout
	} else {
		var err error
		resultsFile, err = os.Create(config.ResultsFile)
		chorale.Fatal(err)
		defer resultsFile.Close()
	}

	ctx, cancel := signalContext()
	defer cancel()

	m, e := loadModel(config)
	chorale.Fatal(e)
	glog.Infof("decoding with model %s", m.Name())

	pieces, e := corpus.Load(config.Corpus, corpus.Format(config.CorpusFormat))
	chorale.Fatal(e)

	var opts []hmm.DecoderOption
	if config.HMM.CacheSize > 0 {
		opts = append(opts, hmm.CacheSize(config.HMM.CacheSize))
	}
	d, e := hmm.NewDecoder(m, opts...)
	chorale.Fatal(e)

	hyps, e := d.DecodeAll(ctx, pieces, config.HMM.Workers)
	chorale.Fatal(e)
	chorale.Fatal(writeResults(resultsFile, pieces, hyps))

	size, capacity, hits, misses := d.CacheStats()
	glog.V(1).Infof("emission cache: size %d/%d, hits %d, misses %d", size, capacity, hits, misses)
	glog.Infof("decoded %d pieces", len(pieces))
	return nil
}

// loadModel reads the model from a file, a tables dir or the store.
func loadModel(cfg *chorale.Config) (*hmm.Model, error) {
	switch {
	case cfg.ModelIn != "":
		return hmm.ReadFile(cfg.ModelIn)
	case cfg.TablesDir != "":
		name := cfg.Model
		if name == "" {
			name = "chorale"
		}
		return hmm.ReadTables(cfg.TablesDir, hmm.Name(name))
	case cfg.Store.Dir != "":
		if cfg.Model == "" {
			return nil, fmt.Errorf("missing model name for store %s", cfg.Store.Dir)
		}
		st, err := store.Open(store.Options{Dir: cfg.Store.Dir})
		if err != nil {
			return nil, err
		}
		defer st.Close()
		ctx, cancel := signalContext()
		defer cancel()
		return st.Get(ctx, cfg.Model)
	}
	return nil, fmt.Errorf("no model source, set model-in, tables-dir or store-dir")
}

// writeResults writes one json result per piece. Pieces with no id get
// a random batch id.
func writeResults(w io.Writer, pieces []*model.Piece, hyps [][]chord.Label) error {

	enc := json.NewEncoder(w)
	for k, p := range pieces {
		id := p.ID
		if id == "" {
			id = uuid.NewString()
		}
		result := chorale.Result{BatchID: id, Hyp: chord.Strings(hyps[k])}
		if p.Labeled() {
			result.Ref = chord.Strings(p.Labels)
		}
		if glog.V(2) {
			glog.Infof("id: %s, ref: %v", id, strings.Join(result.Ref, " "))
			glog.Infof("id: %s, hyp: %v", id, strings.Join(result.Hyp, " "))
		}
		if err := enc.Encode(result); err != nil {
			return err
		}
	}
	return nil
}
