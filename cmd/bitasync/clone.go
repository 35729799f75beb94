package main

import (
	"context"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/xiaoz/bitasync/archive"
	"github.com/xiaoz/bitasync/clone"
	"github.com/xiaoz/bitasync/dictionary"
	"github.com/xiaoz/bitasync/internal/config"
	"github.com/xiaoz/bitasync/internal/xerrors"
	"github.com/xiaoz/bitasync/transport/file"
)

func cmdClone() *cli.Command {
	return &cli.Command{
		Name:      "clone",
		Usage:     "reconstruct a file from an archive, local seeds, and/or a self-seed",
		ArgsUsage: "<archive.bita> <output>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "seed", Usage: "path to a local file to scan for reusable chunks (repeatable)"},
			&cli.BoolFlag{Name: "seed-output", Usage: "scan the output file's existing contents as a self-seed before writing"},
			&cli.IntFlag{Name: "workers", Usage: "bound concurrent range fetches (0 = one per CPU)"},
			&cli.IntFlag{Name: "retries", Usage: "transport retry attempts"},
		},
		Action: runClone,
	}
}

func runClone(c *cli.Context) error {
	if c.NArg() != 2 {
		return xerrors.New(xerrors.ConfigError, "clone requires <archive.bita> <output>")
	}
	archivePath, outPath := c.Args().Get(0), c.Args().Get(1)

	cfg := config.FromEnvironment()
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("retries") {
		cfg.Retries = c.Int("retries")
	}

	ar, err := os.Open(archivePath)
	if err != nil {
		return xerrors.Wrap(xerrors.Transport, "open archive", err)
	}
	defer ar.Close()

	reader, err := archive.OpenReader(ar)
	if err != nil {
		return err
	}
	idx := dictionary.Build(&reader.Dictionary)

	rangeReader, err := file.OpenRangeReader(archivePath)
	if err != nil {
		return err
	}
	defer rangeReader.Close()

	seedOutput := c.Bool("seed-output")
	writer, err := file.CreateRandomWriter(outPath, reader.Dictionary.SourceTotalSize)
	if err != nil {
		return err
	}

	asm := clone.New(idx, rangeReader, uint64(reader.ChunkDataStart()), writer, clone.Config{
		Workers:       cfg.Workers,
		MaxGapBytes:   cfg.MaxGapBytes,
		RetryAttempts: cfg.Retries,
	})

	var selfSeed *clone.SelfSeed
	if seedOutput {
		preexisting, err := os.Open(outPath)
		if err == nil {
			defer preexisting.Close()
			selfSeed = &clone.SelfSeed{Sequential: preexisting, Random: writer.ReaderAt()}
		}
	}

	seeds, closeSeeds, err := openSeeds(c.StringSlice("seed"))
	if err != nil {
		return err
	}
	defer closeSeeds()

	if err := asm.Clone(context.Background(), seeds, selfSeed); err != nil {
		return err
	}
	log.Infof("cloned %s into %s", archivePath, outPath)
	return nil
}

func openSeeds(paths []string) ([]io.Reader, func(), error) {
	var seeds []io.Reader
	var files []*os.File
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			for _, open := range files {
				open.Close()
			}
			return nil, nil, xerrors.Wrap(xerrors.Transport, "open seed", err)
		}
		files = append(files, f)
		seeds = append(seeds, f)
	}
	return seeds, func() {
		for _, f := range files {
			f.Close()
		}
	}, nil
}
