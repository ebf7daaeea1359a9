package sinks

import (
	"context"

	v1 "github.com/infracollect/zipfactory/apis/v1"
	"github.com/infracollect/zipfactory/internal/engine"
	"go.uber.org/zap"
)

const (
	FolderSinkKind = "folder"
	S3SinkKind     = "s3"
)

// Register adds the publish destinations to registry.
func Register(registry *engine.Registry) {
	registry.RegisterSink(FolderSinkKind, engine.NewSinkFactory(FolderSinkKind, newFolderSink))
	registry.RegisterSink(S3SinkKind, engine.NewSinkFactory(S3SinkKind, newS3Sink))
}

func newFolderSink(_ context.Context, logger *zap.Logger, spec *v1.FolderPublishSpec) (engine.Sink, error) {
	logger.Debug("creating folder sink", zap.String("path", spec.Path))
	return NewFilesystemSinkFromPath(spec.Path)
}

func newS3Sink(ctx context.Context, logger *zap.Logger, spec *v1.S3PublishSpec) (engine.Sink, error) {
	logger.Debug("creating s3 sink",
		zap.String("bucket", spec.Bucket),
		zap.String("prefix", spec.Prefix),
		zap.Bool("static_credentials", spec.Credentials != nil),
	)

	cfg := S3Config{
		Bucket:         spec.Bucket,
		Region:         spec.Region,
		Endpoint:       spec.Endpoint,
		Prefix:         spec.Prefix,
		ForcePathStyle: spec.ForcePathStyle,
		Metadata:       spec.Metadata,
	}
	if spec.Credentials != nil {
		cfg.AccessKeyID = spec.Credentials.AccessKeyID
		cfg.SecretAccessKey = spec.Credentials.SecretAccessKey
	}
	return NewS3Sink(ctx, cfg)
}
