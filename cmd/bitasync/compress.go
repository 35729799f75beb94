package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/xiaoz/bitasync/chunker"
	"github.com/xiaoz/bitasync/codec"
	"github.com/xiaoz/bitasync/compress"
	"github.com/xiaoz/bitasync/internal/config"
	"github.com/xiaoz/bitasync/internal/xerrors"
)

func cmdCompress() *cli.Command {
	return &cli.Command{
		Name:      "compress",
		Usage:     "chunk a file and write a content-defined archive",
		ArgsUsage: "<input> <output.bita>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "compression", Value: "zstd", Usage: "none/brotli/lzma/zstd"},
			&cli.Uint64Flag{Name: "min-chunk-size", Usage: "override the minimum chunk size in bytes"},
			&cli.Uint64Flag{Name: "avg-chunk-size", Usage: "override the average chunk size in bytes (power of two)"},
			&cli.Uint64Flag{Name: "max-chunk-size", Usage: "override the maximum chunk size in bytes"},
		},
		Action: runCompress,
	}
}

func runCompress(c *cli.Context) error {
	if c.NArg() != 2 {
		return xerrors.New(xerrors.ConfigError, "compress requires <input> <output.bita>")
	}
	inPath, outPath := c.Args().Get(0), c.Args().Get(1)

	cfg := config.FromEnvironment()
	if c.IsSet("compression") {
		cfg.Codec = c.String("compression")
	}
	applyChunkerFlags(c, &cfg.Chunker)

	codecImpl, err := codec.ByName(cfg.Codec)
	if err != nil {
		return xerrors.Wrap(xerrors.ConfigError, "resolve compression codec", err)
	}

	in, err := os.Open(inPath)
	if err != nil {
		return xerrors.Wrap(xerrors.Transport, "open input", err)
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return xerrors.Wrap(xerrors.Transport, "create output archive", err)
	}
	defer out.Close()

	stats, err := compress.ToArchive(context.Background(), out, in, compress.Config{
		Chunker: cfg.Chunker,
		Codec:   codecImpl,
	})
	if err != nil {
		return err
	}
	log.Infof("wrote %s: %d bytes in %d chunks (%d unique, %.1f%% deduped)",
		outPath, stats.SourceBytes, stats.ChunkCount, stats.UniqueChunks, stats.DedupRatio*100)
	return nil
}

func applyChunkerFlags(c *cli.Context, cfg *chunker.Config) {
	if c.IsSet("min-chunk-size") {
		cfg.MinChunkSize = uint32(c.Uint64("min-chunk-size"))
	}
	if c.IsSet("avg-chunk-size") {
		cfg.AvgChunkSize = uint32(c.Uint64("avg-chunk-size"))
	}
	if c.IsSet("max-chunk-size") {
		cfg.MaxChunkSize = uint32(c.Uint64("max-chunk-size"))
	}
}
