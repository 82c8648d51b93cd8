// Copyright (c) 2015 AKUALAB INC., All rights reserved.
//
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command chorale trains harmonic HMMs from chorale corpora and decodes
// chord labels.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	osuser "os/user"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/BurntSushi/toml"
	"github.com/akualab/chorale"
	"github.com/akualab/chorale/model/hmm"
	"github.com/golang/glog"
	"github.com/urfave/cli"
)

const (
	appName    = "chorale"
	appVersion = "0.1"
)

// ErrNoConfigValue is returned when a param is set neither by a flag nor
// by the config file.
var ErrNoConfigValue = errors.New("no config value")

var (
	config *chorale.Config
	props  *Properties
)

// Properties of the chorale tool.
type Properties struct {
	Workspace string `toml:"workspace_dir"`
	LogDir    string `toml:"log_dir"`
}

func main() {

	currDir, e := os.Getwd()
	chorale.Fatal(e)
	props = readProperties()
	defaultLogDir := filepath.Join(currDir, "log")
	if len(props.LogDir) > 0 {
		defaultLogDir = props.LogDir
	}

	app := cli.NewApp()
	app.Name = appName
	app.Usage = "harmonic HMM training and chord decoding for chorale corpora."
	app.Version = appVersion
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config-file, c", Value: "config.yaml", Usage: "yaml configuration file"},
		cli.StringFlag{Name: "log-dir", Value: defaultLogDir, Usage: "log output dir"},
		cli.BoolTFlag{Name: "log-stderr", Usage: "logs are also written to standard error"},
		cli.StringFlag{Name: "log-level, l", Value: "0", Usage: "enable V-leveled logging at the specified level"},
	}
	app.Commands = []cli.Command{
		trainCommand,
		decodeCommand,
		scoreCommand,
		labelsCommand,
		modelsCommand,
		serveCommand,
		generateCommand,
	}

	err := app.Run(os.Args)
	glog.Flush()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// readProperties reads the tool properties from
// ~/.config/chorale/properties.toml or from the file named by
// CHORALE_PROPERTIES.
func readProperties() *Properties {

	p := new(Properties)
	propPath := ""
	if u, e := osuser.Current(); e == nil {
		propPath = filepath.Join(u.HomeDir, ".config", appName, "properties.toml")
	}
	if env := os.Getenv("CHORALE_PROPERTIES"); len(env) > 0 {
		propPath = env
	}
	if propPath == "" {
		return p
	}
	if _, e := toml.DecodeFile(propPath, p); e != nil {
		if !os.IsNotExist(e) {
			fmt.Fprintf(os.Stderr, "unable to read properties file %s: %v\n", propPath, e)
		}
		return new(Properties)
	}
	return p
}

// initApp sets up logging and reads the config file. A missing config
// file is only an error when the file was named explicitly.
func initApp(c *cli.Context) {

	initGlog(c)
	checkDir(props.Workspace)

	fn := c.GlobalString("config-file")
	var e error
	config, e = chorale.ReadConfig(fn)
	switch {
	case e == nil:
		glog.V(1).Infof("read config file %s", fn)
	case os.IsNotExist(e) && !c.GlobalIsSet("config-file"):
		glog.V(1).Infof("no config file %s, using flags only", fn)
		config = new(chorale.Config)
	default:
		chorale.Fatal(fmt.Errorf("config file [%s]: %w", fn, e))
	}
	printAppValues(c)
}

// Creates dir if it doesn't exist.
func checkDir(path string) {

	if len(path) == 0 {
		return
	}
	e := os.MkdirAll(path, 0755)
	if e != nil {
		glog.Fatal(e)
	}
}

func initGlog(c *cli.Context) {

	logDir := c.GlobalString("log-dir")
	checkDir(logDir)
	if c.GlobalBool("log-stderr") {
		flag.Set("alsologtostderr", "true")
	}
	flag.Set("v", c.GlobalString("log-level"))
	flag.Set("log_dir", logDir)
}

func printAppValues(c *cli.Context) {
	glog.V(1).Info("app properties: ", *props)
	glog.V(1).Info("app version: ", appVersion)
	glog.V(1).Info("app log level: ", c.GlobalString("log-level"))
	glog.V(1).Info("app log dir: ", c.GlobalString("log-dir"))
	glog.V(2).Infof("config: %+v", *config)
}

// Command flags overwrite config values.
func stringParam(c *cli.Context, name string, v *string) error {
	if s := c.String(name); len(s) > 0 {
		*v = s
	}
	if len(*v) == 0 {
		return ErrNoConfigValue
	}
	return nil
}

func requiredStringParam(c *cli.Context, name string, v *string) {
	if e := stringParam(c, name, v); e == ErrNoConfigValue {
		chorale.Fatal(fmt.Errorf("missing value for param [%s], use the command flag or the config file", name))
	}
}

func intParam(c *cli.Context, name string, v *int) {
	if c.IsSet(name) {
		*v = c.Int(name)
	}
}

func floatParam(c *cli.Context, name string, v *float64) {
	if c.IsSet(name) {
		*v = c.Float64(name)
	}
}

// hmmOptions converts the hmm config section to model options.
func hmmOptions(cfg chorale.HMM) []hmm.Option {
	opts := []hmm.Option{}
	if cfg.Floor > 0 {
		opts = append(opts, hmm.Floor(cfg.Floor))
	}
	unseen, e := hmm.ParseUnseenPolicy(cfg.UnseenRows)
	chorale.Fatal(e)
	start, e := hmm.ParseStartPolicy(cfg.Start)
	chorale.Fatal(e)
	opts = append(opts, hmm.Unseen(unseen), hmm.Start(start))
	if cfg.Workers > 0 {
		opts = append(opts, hmm.Workers(cfg.Workers))
	}
	return opts
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
