package main

import (
	"io"
	"os"

	"github.com/akualab/chorale"
	"github.com/akualab/chorale/corpus"
	"github.com/akualab/chorale/model/hmm"
	"github.com/golang/glog"
	"github.com/urfave/cli"
)

var generateCommand = cli.Command{
	Name:      "generate",
	ShortName: "g",
	Usage:     "Samples labeled pieces from a trained model.",
	Description: `
writes a synthetic corpus in records format.

ex:
$ chorale generate -i bach.json -n 20 -t 40 -o synth.csv
`,
	Action: generateAction,
	Flags: []cli.Flag{
		cli.StringFlag{Name: "model-in, i", Usage: "input model file (json)"},
		cli.StringFlag{Name: "tables-dir", Usage: "read csv tables from this dir"},
		cli.StringFlag{Name: "store-dir", Usage: "model store dir"},
		cli.StringFlag{Name: "model, m", Usage: "model name in the store"},
		cli.IntFlag{Name: "num-pieces, n", Value: 10, Usage: "number of pieces"},
		cli.IntFlag{Name: "length, t", Value: 32, Usage: "events per piece"},
		cli.Int64Flag{Name: "seed", Usage: "random seed"},
		cli.StringFlag{Name: "out, o", Usage: "output file, stdout if empty"},
	},
}

func generateAction(c *cli.Context) error {

	initApp(c)

	stringParam(c, "model-in", &config.ModelIn)
	stringParam(c, "tables-dir", &config.TablesDir)
	stringParam(c, "store-dir", &config.Store.Dir)
	stringParam(c, "model", &config.Model)

	m, e := loadModel(config)
	chorale.Fatal(e)

	var w io.Writer = os.Stdout
	if fn := c.String("out"); fn != "" {
		f, err := os.Create(fn)
		chorale.Fatal(err)
		defer f.Close()
		w = f
	}
	n, e := generate(w, m, c.Int("num-pieces"), c.Int("length"), c.Int64("seed"))
	chorale.Fatal(e)
	glog.Infof("generated %d events with model %s", n, m.Name())
	return nil
}

// generate writes sampled pieces as records and returns the number of
// events written.
func generate(w io.Writer, m *hmm.Model, numPieces, length int, seed int64) (int, error) {
	gen, err := hmm.NewGenerator(m, seed)
	if err != nil {
		return 0, err
	}
	cp, err := gen.Corpus(numPieces, length)
	if err != nil {
		return 0, err
	}
	if err := corpus.WriteRecords(w, cp.Pieces); err != nil {
		return 0, err
	}
	return cp.Len(), nil
}
