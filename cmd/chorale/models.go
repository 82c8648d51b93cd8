package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/akualab/chorale"
	"github.com/akualab/chorale/store"
	"github.com/urfave/cli"
)

var modelsCommand = cli.Command{
	Name:  "models",
	Usage: "Lists or deletes models in the model store.",
	Description: `
ex:
$ chorale models --store-dir models
$ chorale models --store-dir models --delete bach
`,
	Action: modelsAction,
	Flags: []cli.Flag{
		cli.StringFlag{Name: "store-dir", Usage: "model store dir"},
		cli.StringFlag{Name: "delete", Usage: "delete the named model"},
	},
}

func modelsAction(c *cli.Context) error {

	initApp(c)
	requiredStringParam(c, "store-dir", &config.Store.Dir)

	st, e := store.Open(store.Options{Dir: config.Store.Dir})
	chorale.Fatal(e)
	defer st.Close()

	ctx, cancel := signalContext()
	defer cancel()

	if name := c.String("delete"); name != "" {
		if e := st.Delete(ctx, name); e != nil {
			return e
		}
		fmt.Printf("deleted model %s\n", name)
		return nil
	}
	infos, e := st.List(ctx)
	if e != nil {
		return e
	}
	printInfos(os.Stdout, infos)
	return nil
}

func printInfos(w io.Writer, infos []store.Info) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tID\tCREATED\tPIECES\tEVENTS\tUNSEEN")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n", info.Name, info.ID,
			info.Created.Format(time.RFC3339), info.NumPieces, info.NumEvents, info.UnseenRows)
	}
	tw.Flush()
}
