package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	v1 "github.com/infracollect/zipfactory/apis/v1"
	"github.com/infracollect/zipfactory/internal/engine"
	"github.com/infracollect/zipfactory/internal/engine/sinks"
)

// BuildVariables creates the variables map for expansion: the built-in PACK_*
// variables plus every allowed environment variable. An allowed variable that
// is not set is an error.
func BuildVariables(manifest v1.PackManifest, allowedEnv []string) (map[string]string, error) {
	date := time.Now().UTC()
	variables := map[string]string{
		"PACK_NAME":         manifest.Metadata.Name,
		"PACK_DATE_ISO8601": date.Format(engine.ISO8601Basic),
		"PACK_DATE_RFC3339": date.Format(time.RFC3339),
	}

	var errs error
	for _, envName := range allowedEnv {
		val, ok := os.LookupEnv(envName)
		if !ok {
			errs = errors.Join(errs, fmt.Errorf("environment variable %q is not set", envName))
			continue
		}
		variables[envName] = val
	}

	if errs != nil {
		return nil, errs
	}

	return variables, nil
}

// expandManifest returns a copy of manifest with template fields expanded.
// The input is left untouched.
func expandManifest(manifest v1.PackManifest, variables map[string]string) (v1.PackManifest, error) {
	out := manifest
	out.Spec.Entries = slices.Clone(manifest.Spec.Entries)
	if p := manifest.Spec.Publish; p != nil {
		publish := *p
		if p.Folder != nil {
			folder := *p.Folder
			publish.Folder = &folder
		}
		if p.S3 != nil {
			s3 := *p.S3
			if p.S3.Credentials != nil {
				creds := *p.S3.Credentials
				s3.Credentials = &creds
			}
			publish.S3 = &s3
		}
		out.Spec.Publish = &publish
	}

	if err := ExpandTemplates(&out.Spec, variables); err != nil {
		return v1.PackManifest{}, err
	}
	return out, nil
}

// ResolvePublishSpec extracts the destination kind and its spec. A nil
// publish spec resolves to an empty kind.
func ResolvePublishSpec(p *v1.PublishSpec) (kind string, spec any, err error) {
	switch {
	case p == nil:
		return "", nil, nil
	case p.Folder != nil:
		return sinks.FolderSinkKind, p.Folder, nil
	case p.S3 != nil:
		return sinks.S3SinkKind, p.S3, nil
	default:
		return "", nil, fmt.Errorf("invalid publish configuration: no destination specified")
	}
}

// buildPublishSink returns nil when the archive stays where it was written.
func buildPublishSink(ctx context.Context, registry *engine.Registry, publish *v1.PublishSpec) (engine.Sink, error) {
	kind, spec, err := ResolvePublishSpec(publish)
	if err != nil || kind == "" {
		return nil, err
	}
	return registry.CreateSink(ctx, kind, spec)
}
