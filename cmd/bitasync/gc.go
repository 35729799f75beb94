package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/xiaoz/bitasync/gc"
	"github.com/xiaoz/bitasync/internal/xerrors"
)

func cmdGC() *cli.Command {
	return &cli.Command{
		Name:      "gc",
		Usage:     "list archives superseded by a newer compress run, for later removal",
		ArgsUsage: "<archive...>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "retain", Usage: "archive path to keep (repeatable)"},
			&cli.BoolFlag{Name: "delete", Usage: "actually remove the reported archives instead of just listing them"},
		},
		Action: runGC,
	}
}

func runGC(c *cli.Context) error {
	if c.NArg() == 0 {
		return xerrors.New(xerrors.ConfigError, "gc requires at least one archive path")
	}
	freed, err := gc.Sweep(c.Args().Slice(), c.StringSlice("retain"))
	if err != nil {
		return err
	}
	for _, path := range freed {
		if c.Bool("delete") {
			if err := os.Remove(path); err != nil {
				log.Warnf("gc: failed to remove %s: %v", path, err)
				continue
			}
			log.Infof("gc: removed %s", path)
		} else {
			fmt.Println(path)
		}
	}
	return nil
}
