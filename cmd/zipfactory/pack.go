package main

import (
	"context"
	"fmt"

	"github.com/infracollect/zipfactory/internal/runner"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var packCommand = &cli.Command{
	Name:  "pack",
	Usage: "Build an archive from a pack manifest",
	Flags: []cli.Flag{
		allowedEnvFlag,
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "manifest",
			UsageText: "The manifest file to pack, or - for stdin",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		data, name, err := readManifest(ctx, command.StringArg("manifest"))
		if err != nil {
			return err
		}

		manifest, err := runner.ParsePackManifest(data)
		if err != nil {
			return fmt.Errorf("failed to parse manifest '%s': %w", name, formatValidationError(err))
		}

		variables, err := runner.BuildVariables(manifest, command.StringSlice("allowed-env"))
		if err != nil {
			return fmt.Errorf("failed to build variables: %w", err)
		}

		r, err := runner.New(ctx, logger.Named("runner"), manifest, variables, factoryOptions(command)...)
		if err != nil {
			return fmt.Errorf("failed to create runner: %w", err)
		}

		if err := r.Run(ctx); err != nil {
			return fmt.Errorf("failed to pack '%s': %w", name, err)
		}

		logger.Info("pack complete", zap.String("archive", r.Manifest().Spec.Archive))
		return nil
	},
}
