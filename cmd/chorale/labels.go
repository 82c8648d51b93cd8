package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/akualab/chorale/model/chord"
	"github.com/urfave/cli"
)

var labelsCommand = cli.Command{
	Name:  "labels",
	Usage: "Prints the label space, or looks up labels.",
	Description: `
Without arguments prints all labels with their id and pitch classes.
Arguments are parsed as labels, sharps are mapped to flats.

ex:
$ chorale labels
$ chorale labels C#m7 G_M
`,
	Action: labelsAction,
}

func labelsAction(c *cli.Context) error {
	return printLabels(os.Stdout, c.Args())
}

func printLabels(w io.Writer, args []string) error {
	labels := chord.All()
	if len(args) > 0 {
		var err error
		if labels, err = chord.ParseAll(args); err != nil {
			return err
		}
	}
	for _, l := range labels {
		pcs := make([]string, 0, 4)
		for _, pc := range l.PitchClasses() {
			pcs = append(pcs, fmt.Sprint(pc))
		}
		fmt.Fprintf(w, "%3d %-5s %-10s %-8s %s\n", int(l), l, l.Quality(), l.Extension(), strings.Join(pcs, " "))
	}
	return nil
}
