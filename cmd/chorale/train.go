package main

import (
	"github.com/akualab/chorale"
	"github.com/akualab/chorale/corpus"
	"github.com/akualab/chorale/model/hmm"
	"github.com/akualab/chorale/store"
	"github.com/golang/glog"
	"github.com/urfave/cli"
)

var trainCommand = cli.Command{
	Name:      "train",
	ShortName: "t",
	Usage:     "Estimates transition and emission tables from a labeled corpus.",
	Description: `runs trainer.

Flags overwrite values in the config file. A sample config file:

model: bach
corpus: jsbach_chorals_harmony.csv
corpus_format: uci
model_out: models/bach.json
tables_dir: models/bach
hmm:
  floor: 2.220446049250313e-16
  unseen_rows: floor
  start: uniform
  workers: 4

ex:
 $ chorale train -d jsbach_chorals_harmony.csv -o bach.json
`,
	Action: trainAction,
	Flags: []cli.Flag{
		cli.StringFlag{Name: "corpus, d", Usage: "the corpus file"},
		cli.StringFlag{Name: "corpus-format, f", Usage: "corpus format {uci, records, json}"},
		cli.StringFlag{Name: "model, m", Usage: "model name"},
		cli.StringFlag{Name: "model-out, o", Usage: "output model filename (json)"},
		cli.StringFlag{Name: "tables-dir", Usage: "write csv tables to this dir"},
		cli.StringFlag{Name: "store-dir", Usage: "also put the model in the model store at this dir"},
		cli.Float64Flag{Name: "floor", Usage: "probability of zero estimates"},
		cli.StringFlag{Name: "unseen-rows", Usage: "transition rows with no counts {floor, uniform}"},
		cli.StringFlag{Name: "start", Usage: "start distribution {uniform, corpus}"},
		cli.IntFlag{Name: "workers, w", Usage: "max number of goroutines used for counting"},
	},
}

func trainAction(c *cli.Context) error {

	initApp(c)

	// Validate parameters. Command flags overwrite config file params.
	requiredStringParam(c, "corpus", &config.Corpus)
	requiredStringParam(c, "model", &config.Model)
	if stringParam(c, "corpus-format", &config.CorpusFormat) == ErrNoConfigValue {
		config.CorpusFormat = string(corpus.FormatUCI)
	}
	stringParam(c, "model-out", &config.ModelOut)
	stringParam(c, "tables-dir", &config.TablesDir)
	stringParam(c, "store-dir", &config.Store.Dir)
	stringParam(c, "unseen-rows", &config.HMM.UnseenRows)
	stringParam(c, "start", &config.HMM.Start)
	floatParam(c, "floor", &config.HMM.Floor)
	intParam(c, "workers", &config.HMM.Workers)
	if config.ModelOut == "" && config.TablesDir == "" && config.Store.Dir == "" {
		glog.Fatal("nowhere to write the model, set model-out, tables-dir or store-dir")
	}

	pieces, e := corpus.Load(config.Corpus, corpus.Format(config.CorpusFormat))
	chorale.Fatal(e)
	cp, e := corpus.NewCorpus(pieces)
	chorale.Fatal(e)
	glog.Infof("training model %s with %d pieces, %d events", config.Model, len(cp.Pieces), cp.Len())

	ctx, cancel := signalContext()
	defer cancel()
	opts := append(hmmOptions(config.HMM), hmm.Name(config.Model))
	m := hmm.NewModel(opts...)
	chorale.Fatal(m.Train(ctx, cp))

	if config.ModelOut != "" {
		chorale.Fatal(m.WriteFile(config.ModelOut))
		glog.Infof("wrote model file %s", config.ModelOut)
	}
	if config.TablesDir != "" {
		chorale.Fatal(m.WriteTables(config.TablesDir))
		glog.Infof("wrote tables to %s", config.TablesDir)
	}
	if config.Store.Dir != "" {
		st, e := store.Open(store.Options{Dir: config.Store.Dir})
		chorale.Fatal(e)
		defer st.Close()
		info, e := st.Put(ctx, m)
		chorale.Fatal(e)
		glog.Infof("stored model %s, id: %s", info.Name, info.ID)
	}
	return nil
}
