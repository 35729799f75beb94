package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/xiaoz/bitasync/archive"
	"github.com/xiaoz/bitasync/internal/xerrors"
)

func cmdDiff() *cli.Command {
	return &cli.Command{
		Name:      "diff",
		Usage:     "compare two archives' dictionaries and report the byte delta",
		ArgsUsage: "<a.bita> <b.bita>",
		Action:    runDiff,
	}
}

func runDiff(c *cli.Context) error {
	if c.NArg() != 2 {
		return xerrors.New(xerrors.ConfigError, "diff requires <a.bita> <b.bita>")
	}
	a, err := openDictionary(c.Args().Get(0))
	if err != nil {
		return err
	}
	b, err := openDictionary(c.Args().Get(1))
	if err != nil {
		return err
	}

	inA := make(map[string]uint32, len(a.Descriptors))
	for _, d := range a.Descriptors {
		inA[d.StrongHash.String()] = d.UncompressedSize
	}
	inB := make(map[string]uint32, len(b.Descriptors))
	for _, d := range b.Descriptors {
		inB[d.StrongHash.String()] = d.UncompressedSize
	}

	var onlyInA, onlyInB int
	var bytesOnlyInA, bytesOnlyInB uint64
	for h, size := range inA {
		if _, ok := inB[h]; !ok {
			onlyInA++
			bytesOnlyInA += uint64(size)
		}
	}
	for h, size := range inB {
		if _, ok := inA[h]; !ok {
			onlyInB++
			bytesOnlyInB += uint64(size)
		}
	}

	fmt.Printf("chunks only in a: %d (%d bytes)\n", onlyInA, bytesOnlyInA)
	fmt.Printf("chunks only in b: %d (%d bytes)\n", onlyInB, bytesOnlyInB)
	fmt.Printf("source size delta: %d bytes\n", int64(b.SourceTotalSize)-int64(a.SourceTotalSize))
	return nil
}

func openDictionary(path string) (*archive.Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.Transport, "open archive", err)
	}
	defer f.Close()
	r, err := archive.OpenReader(f)
	if err != nil {
		return nil, err
	}
	return &r.Dictionary, nil
}
