package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// stdinName is the manifest argument that reads from standard input.
const stdinName = "-"

type interactiveCtxKeyType struct{}

var interactiveCtxKey = interactiveCtxKeyType{}

func isInteractiveEnvironment() bool {
	if os.Getenv("CI") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdin.Fd()))
}

func withInteractive(ctx context.Context, interactive bool) context.Context {
	return context.WithValue(ctx, interactiveCtxKey, interactive)
}

func isInteractive(ctx context.Context) bool {
	interactive, ok := ctx.Value(interactiveCtxKey).(bool)
	if !ok {
		return false
	}
	return interactive
}

// readManifest reads a manifest file, or standard input for "-". It returns
// the data and a display name. Reading a terminal is refused since nothing
// would ever be piped in.
func readManifest(ctx context.Context, name string) ([]byte, string, error) {
	if name == "" {
		return nil, "", errors.New("no manifest file provided")
	}

	if name != stdinName {
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, name, fmt.Errorf("failed to read manifest file '%s': %w", name, err)
		}
		return data, name, nil
	}

	if isInteractive(ctx) {
		return nil, "stdin", errors.New("refusing to read manifest from an interactive terminal; pipe it in or pass a file")
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, "stdin", fmt.Errorf("failed to read manifest from stdin: %w", err)
	}
	return data, "stdin", nil
}
