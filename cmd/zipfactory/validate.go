package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/infracollect/zipfactory/internal/runner"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var allowedEnvFlag = &cli.StringSliceFlag{
	Name:  "allowed-env",
	Usage: "Environment variables allowed in manifest templates (can be repeated)",
}

var validateCommand = &cli.Command{
	Name:  "validate",
	Usage: "Validate a pack manifest",
	Flags: []cli.Flag{
		allowedEnvFlag,
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "manifest",
			UsageText: "The manifest file to validate, or - for stdin",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		data, name, err := readManifest(ctx, command.StringArg("manifest"))
		if err != nil {
			return err
		}

		logger = logger.With(zap.String("manifest", name))
		logger.Debug("validating manifest")

		manifest, err := runner.ParsePackManifest(data)
		if err != nil {
			fmt.Println(formatValidationError(err))
			return fmt.Errorf("manifest '%s' is invalid", name)
		}

		variables, err := runner.BuildVariables(manifest, command.StringSlice("allowed-env"))
		if err != nil {
			return fmt.Errorf("failed to build variables: %w", err)
		}

		if err := runner.ExpandTemplates(&manifest.Spec, variables); err != nil {
			return fmt.Errorf("failed to expand templates: %w", err)
		}

		fmt.Printf("✓ Manifest '%s' is valid (%d entries -> %s)\n", name, len(manifest.Spec.Entries), manifest.Spec.Archive)
		return nil
	},
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("manifest has %d validation error(s):", len(validationErrs)))
		for _, fe := range validationErrs {
			sb.WriteString(fmt.Sprintf("\n  • %s: failed '%s' validation", fe.Namespace(), fe.Tag()))
			if fe.Param() != "" {
				sb.WriteString(fmt.Sprintf(" (param: %s)", fe.Param()))
			}
		}
		return errors.New(sb.String())
	}
	return err
}
