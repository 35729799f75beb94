package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/xiaoz/bitasync/codec"
	"github.com/xiaoz/bitasync/internal/xerrors"
)

func cmdInspect() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "print summary statistics for an archive",
		ArgsUsage: "<archive.bita>",
		Action:    runInspect,
	}
}

func runInspect(c *cli.Context) error {
	if c.NArg() != 1 {
		return xerrors.New(xerrors.ConfigError, "inspect requires <archive.bita>")
	}
	dict, err := openDictionary(c.Args().Get(0))
	if err != nil {
		return err
	}

	codecCounts := make(map[string]int)
	var chunkDataBytes uint64
	for _, d := range dict.Descriptors {
		c, err := codec.ByTag(d.Codec)
		name := "unknown"
		if err == nil {
			name = c.Tag().String()
		}
		codecCounts[name]++
		chunkDataBytes += uint64(d.CompressedSize)
	}

	totalChunks := len(dict.RebuildSequence)
	uniqueChunks := len(dict.Descriptors)
	var dedupRatio float64
	if totalChunks > 0 {
		dedupRatio = 1 - float64(uniqueChunks)/float64(totalChunks)
	}

	fmt.Printf("source size:       %d bytes\n", dict.SourceTotalSize)
	fmt.Printf("chunk-data size:   %d bytes\n", chunkDataBytes)
	fmt.Printf("total chunks:      %d\n", totalChunks)
	fmt.Printf("unique chunks:     %d\n", uniqueChunks)
	fmt.Printf("dedup ratio:       %.1f%%\n", dedupRatio*100)
	fmt.Printf("chunker config:    family=%v window=%d min=%d avg=%d max=%d\n",
		dict.Config.HashFamily, dict.Config.HashWindowSize, dict.Config.MinChunkSize, dict.Config.AvgChunkSize, dict.Config.MaxChunkSize)
	fmt.Println("codec histogram:")
	for name, count := range codecCounts {
		fmt.Printf("  %-8s %d\n", name, count)
	}
	return nil
}
