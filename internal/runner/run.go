package runner

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	v1 "github.com/infracollect/zipfactory/apis/v1"
	"github.com/infracollect/zipfactory/internal/engine"
	"github.com/infracollect/zipfactory/internal/engine/sinks"
	"github.com/infracollect/zipfactory/pkg/zipfactory"
	"go.uber.org/zap"
)

type Runner struct {
	logger   *zap.Logger
	manifest v1.PackManifest
	factory  *zipfactory.Factory
	publish  engine.Sink
}

var (
	defaultValidator = validator.New(validator.WithRequiredStructEnabled())
)

// ParsePackManifest parses a YAML or JSON pack manifest and validates it.
func ParsePackManifest(data []byte) (v1.PackManifest, error) {
	var manifest v1.PackManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return v1.PackManifest{}, fmt.Errorf("failed to unmarshal manifest data: %w", err)
	}

	if err := defaultValidator.Struct(manifest); err != nil {
		return v1.PackManifest{}, fmt.Errorf("failed to validate manifest: %w", err)
	}

	for i, entry := range manifest.Spec.Entries {
		if _, err := ResolveEntrySpec(entry); err != nil {
			return v1.PackManifest{}, fmt.Errorf("entry %d: %w", i, err)
		}
	}

	return manifest, nil
}

// New expands the manifest against variables and prepares the factory and the
// publish sink. Extra factory options are applied after the manifest's
// compression.
func New(ctx context.Context, logger *zap.Logger, manifest v1.PackManifest, variables map[string]string, opts ...zipfactory.Option) (*Runner, error) {
	logger.Info("creating runner", zap.String("manifest_name", manifest.Metadata.Name))

	expanded, err := expandManifest(manifest, variables)
	if err != nil {
		return nil, fmt.Errorf("failed to expand manifest: %w", err)
	}

	compression, err := zipfactory.ParseCompression(expanded.Spec.Compression)
	if err != nil {
		return nil, err
	}

	factoryOpts := append([]zipfactory.Option{
		zipfactory.WithLogger(logger.Named("factory")),
		zipfactory.WithCompression(compression),
	}, opts...)

	registry := engine.NewRegistry(logger.Named("sinks"))
	sinks.Register(registry)

	publish, err := buildPublishSink(ctx, registry, expanded.Spec.Publish)
	if err != nil {
		return nil, fmt.Errorf("failed to build publish sink: %w", err)
	}

	return &Runner{
		logger:   logger,
		manifest: expanded,
		factory:  zipfactory.New(factoryOpts...),
		publish:  publish,
	}, nil
}

// Manifest returns the manifest after variable expansion.
func (r *Runner) Manifest() v1.PackManifest {
	return r.manifest
}

// Run builds the archive, applying entries in order, then publishes it.
func (r *Runner) Run(ctx context.Context) error {
	spec := r.manifest.Spec

	archiver, err := r.factory.Create(spec.Archive)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	sink := sinks.NewArchiveSink(r.publish, archiver, spec.Archive, publishName(spec))

	for i, entry := range spec.Entries {
		if err := ctx.Err(); err != nil {
			r.abandon(archiver)
			return err
		}
		if err := r.applyEntry(ctx, sink, archiver, entry); err != nil {
			r.abandon(archiver)
			return fmt.Errorf("failed to add entry %d: %w", i, err)
		}
	}

	if err := sink.Close(ctx); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}

	r.logger.Info("archive written",
		zap.String("archive", spec.Archive),
		zap.Int("entries", len(spec.Entries)),
		zap.String("sink", sink.Name()),
	)
	return nil
}

func (r *Runner) applyEntry(ctx context.Context, sink *sinks.ArchiveSink, archiver engine.Archiver, entry v1.EntrySpec) error {
	resolved, err := ResolveEntrySpec(entry)
	if err != nil {
		return err
	}

	logger := r.logger.With(zap.String("kind", resolved.Kind), zap.String("name", entry.Name))
	logger.Debug("adding entry")

	switch resolved.Kind {
	case EntryKindFile:
		if !archiver.AddFile(resolved.Source, entry.Name, 0, 0) {
			return fmt.Errorf("failed to add file %s", resolved.Source)
		}
	case EntryKindDir:
		archiver.AddDir(resolved.Source, entry.Name)
	case EntryKindContent:
		return sink.Write(ctx, entry.Name, strings.NewReader(resolved.Source))
	}
	return nil
}

// abandon releases the archiver after a failed run. Entries added so far may
// be left in the file.
func (r *Runner) abandon(archiver engine.Archiver) {
	if !archiver.Close() {
		r.logger.Warn("failed to close archive after error", zap.String("archive", r.manifest.Spec.Archive))
	}
}

func publishName(spec v1.PackSpec) string {
	if spec.Publish != nil && spec.Publish.Name != "" {
		return spec.Publish.Name
	}
	return filepath.Base(spec.Archive)
}
