package main

import (
	"github.com/akualab/chorale"
	"github.com/akualab/chorale/server"
	"github.com/akualab/chorale/store"
	"github.com/golang/glog"
	"github.com/urfave/cli"
)

var serveCommand = cli.Command{
	Name:  "serve",
	Usage: "Serves decode requests over HTTP using models in the store.",
	Description: `
ex:
$ chorale serve --store-dir models -m bach --addr :8080
$ curl -d '{"masks":[145,545,1156]}' localhost:8080/decode
`,
	Action: serveAction,
	Flags: []cli.Flag{
		cli.StringFlag{Name: "store-dir", Usage: "model store dir"},
		cli.StringFlag{Name: "model, m", Usage: "default model name"},
		cli.StringFlag{Name: "addr", Usage: "listen address (default :8080)"},
		cli.StringSliceFlag{Name: "cors-origin", Usage: "allowed CORS origin, may be repeated"},
	},
}

func serveAction(c *cli.Context) error {

	initApp(c)
	requiredStringParam(c, "store-dir", &config.Store.Dir)
	stringParam(c, "model", &config.Model)
	if stringParam(c, "addr", &config.Server.Addr) == ErrNoConfigValue {
		config.Server.Addr = ":8080"
	}
	if origins := c.StringSlice("cors-origin"); len(origins) > 0 {
		config.Server.CORSOrigins = origins
	}

	st, e := store.Open(store.Options{Dir: config.Store.Dir})
	chorale.Fatal(e)
	defer st.Close()

	srv := server.New(st, server.Options{
		DefaultModel: config.Model,
		CORSOrigins:  config.Server.CORSOrigins,
		CacheSize:    config.HMM.CacheSize,
	})

	ctx, cancel := signalContext()
	defer cancel()
	e = srv.ListenAndServe(ctx, config.Server.Addr)
	glog.Infof("server stopped: %v", e)
	return e
}
