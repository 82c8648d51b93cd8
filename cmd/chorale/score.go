// Computes label accuracy of decode results.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/akualab/chorale"
	"github.com/golang/glog"
	"github.com/urfave/cli"
)

var scoreCommand = cli.Command{
	Name:      "score",
	ShortName: "s",
	Usage:     "Computes label accuracy for a results file.",
	Description: `
runs scorer.

ex:
$ chorale score -r results.json
`,
	Action: scoreAction,
	Flags: []cli.Flag{
		cli.StringFlag{Name: "results-file, r", Usage: "the input file with results to be analyzed"},
		cli.StringFlag{Name: "score-file, t", Usage: "output score file"},
		cli.BoolFlag{Name: "split-dash", Usage: "maps the hyp token using strings.Split(token, \"-\")[0]"},
	},
}

func scoreAction(c *cli.Context) error {

	initApp(c)

	// Validate parameters. Command flags overwrite config file params.
	requiredStringParam(c, "results-file", &config.ResultsFile)

	var scoreFile *os.File
	if e := stringParam(c, "score-file", &config.ScoreFile); e == ErrNoConfigValue {
		glog.Infof("no score file specified, writing to stdout")
		scoreFile = os.Stdout
	} else {
		var err error
		scoreFile, err = os.Create(config.ScoreFile)
		chorale.Fatal(err)
		defer scoreFile.Close()
	}

	resultsFile, e := os.Open(config.ResultsFile)
	chorale.Fatal(e)
	defer resultsFile.Close()

	total, e := score(resultsFile, scoreFile, chorale.NewScorer(c.Bool("split-dash")))
	chorale.Fatal(e)
	glog.Infof("accuracy: %s", total.Text())
	return nil
}

// score reads json results, writes the score of each one and the total.
func score(r io.Reader, w io.Writer, sc *chorale.Scorer) (chorale.Score, error) {

	reader := bufio.NewReader(r)
	for {
		b, eb := reader.ReadBytes('\n')
		if eb == io.EOF && len(b) == 0 {
			break
		}
		if eb != nil && eb != io.EOF {
			return chorale.Score{}, eb
		}

		result := new(chorale.Result)
		if e := json.Unmarshal(b, result); e != nil {
			return chorale.Score{}, e
		}
		if result.Ref == nil {
			glog.Warningf("result %s has no reference labels, skipping", result.BatchID)
			continue
		}
		s, e := sc.Session(result.BatchID, result.Ref, result.Hyp)
		if e != nil {
			return chorale.Score{}, e
		}
		fmt.Fprintf(w, "ID: %s, acc: %s\n", result.BatchID, s.Text())
		glog.V(3).Infof("\nREF: %v", result.Ref)
		glog.V(3).Infof("\nHYP: %v", result.Hyp)
	}

	total := sc.Total()
	fmt.Fprintf(w, "\nAVG: acc: %s\n", total.Text())
	return total, nil
}
