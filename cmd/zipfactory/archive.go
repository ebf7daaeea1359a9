package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/infracollect/zipfactory/internal/engine/archivers"
	"github.com/infracollect/zipfactory/internal/engine/sinks"
	"github.com/infracollect/zipfactory/pkg/zipfactory"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// factoryOptions maps global flags to factory options.
func factoryOptions(command *cli.Command) []zipfactory.Option {
	var opts []zipfactory.Option
	if command.Root().Bool("no-native") {
		opts = append(opts, zipfactory.WithProbe(func() bool { return false }))
	}
	return opts
}

func newFactory(ctx context.Context, command *cli.Command, extra ...zipfactory.Option) *zipfactory.Factory {
	opts := append([]zipfactory.Option{zipfactory.WithLogger(getLogger(ctx).Named("factory"))}, factoryOptions(command)...)
	return zipfactory.New(append(opts, extra...)...)
}

// parseSource splits "path=name" into the source path and its local name.
// Without "=", the local name is the base name of path.
func parseSource(arg string) (string, string) {
	if path, name, ok := strings.Cut(arg, "="); ok {
		return path, name
	}
	return arg, filepath.Base(filepath.Clean(arg))
}

var createCommand = &cli.Command{
	Name:      "create",
	Usage:     "Create an archive from files and directories",
	ArgsUsage: "ARCHIVE SOURCE[=NAME]...",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "compression",
			Aliases: []string{"c"},
			Value:   "deflate",
			Usage:   "Compression for file entries (deflate, store, zstd)",
		},
		&cli.BoolFlag{
			Name:  "stdout",
			Usage: "Also stream the finished archive to stdout",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		args := command.Args().Slice()
		if len(args) < 2 {
			return errors.New("an archive path and at least one source are required")
		}

		compression, err := zipfactory.ParseCompression(command.String("compression"))
		if err != nil {
			return err
		}

		archivePath := args[0]
		archiver, err := newFactory(ctx, command, zipfactory.WithCompression(compression)).Create(archivePath)
		if err != nil {
			return err
		}

		var errs error
		for _, arg := range args[1:] {
			path, name := parseSource(arg)
			info, err := os.Stat(path)
			if err != nil {
				errs = errors.Join(errs, fmt.Errorf("source %s: %w", path, err))
				continue
			}

			logger.Debug("adding source", zap.String("path", path), zap.String("name", name), zap.Bool("dir", info.IsDir()))
			if info.IsDir() {
				archiver.AddDir(path, name)
				continue
			}
			if !archiver.AddFile(path, name, 0, 0) {
				errs = errors.Join(errs, fmt.Errorf("failed to add %s", path))
			}
		}

		if command.Bool("stdout") {
			sink := sinks.NewArchiveSink(sinks.NewStreamSink(bufio.NewWriter(os.Stdout)), archiver, archivePath, filepath.Base(archivePath))
			return errors.Join(errs, sink.Close(ctx))
		}

		if !archiver.Close() {
			errs = errors.Join(errs, fmt.Errorf("failed to write archive %s", archivePath))
		}
		return errs
	},
}

var extractCommand = &cli.Command{
	Name:      "extract",
	Usage:     "Extract an archive, or only the named entries",
	ArgsUsage: "ARCHIVE DESTINATION [ENTRY...]",
	Action: func(ctx context.Context, command *cli.Command) error {
		args := command.Args().Slice()
		if len(args) < 2 {
			return errors.New("an archive path and a destination are required")
		}

		archiver, err := newFactory(ctx, command).Open(args[0])
		if err != nil {
			return err
		}

		ok := archiver.ExtractTo(args[1], args[2:]...)
		closed := archiver.Close()
		if !ok {
			return fmt.Errorf("failed to extract %s to %s", args[0], args[1])
		}
		if !closed {
			return fmt.Errorf("failed to close %s", args[0])
		}
		return nil
	},
}

var listCommand = &cli.Command{
	Name:      "list",
	Usage:     "List the entries of an archive",
	ArgsUsage: "ARCHIVE",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Print entries as JSON",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		if command.Args().Len() != 1 {
			return errors.New("exactly one archive path is required")
		}

		entries, err := archivers.List(afero.NewOsFs(), command.Args().First())
		if err != nil {
			return fmt.Errorf("failed to list archive: %w", err)
		}

		if command.Bool("json") {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		for _, e := range entries {
			fmt.Fprintf(w, "%d\t%s\t%s\n", e.Size, methodName(e.Method), e.Name)
		}
		fmt.Fprintf(w, "%d\t\t%d entries\n", lo.SumBy(entries, func(e archivers.EntryInfo) uint64 { return e.Size }), len(entries))
		return w.Flush()
	},
}

func methodName(method uint16) string {
	for _, c := range []zipfactory.Compression{zipfactory.CompressionStore, zipfactory.CompressionDeflate, zipfactory.CompressionZstd} {
		if c.Method() == method {
			return string(c)
		}
	}
	return fmt.Sprintf("method(%d)", method)
}
