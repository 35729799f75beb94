// Command bitasync is the CLI front end: compress a file into a
// content-defined archive, clone a local archive file back into a file
// using local seeds and/or the output itself as a self-seed, inspect or diff
// archives, and list superseded archives for removal.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/xiaoz/bitasync/internal/logging"
	"github.com/xiaoz/bitasync/internal/xerrors"
)

var log = logging.Get("bitasync")

func main() {
	cli.VersionFlag = &cli.BoolFlag{
		Name: "version", Aliases: []string{"V"},
		Usage: "print version only",
	}
	app := &cli.App{
		Name:                 "bitasync",
		Usage:                "content-defined chunking archive and clone tool",
		Version:              "0.1.0",
		HideHelpCommand:      true,
		EnableBashCompletion: true,
		Flags:                globalFlags(),
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				logging.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
		Commands: []*cli.Command{
			cmdCompress(),
			cmdClone(),
			cmdDiff(),
			cmdInspect(),
			cmdGC(),
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bitasync:", err)
	}
	os.Exit(xerrors.ExitCode(err))
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable debug logging",
		},
	}
}
