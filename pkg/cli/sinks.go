package cli

import (
	"context"
	"io"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/packweld/pkg/cli/config"
	"github.com/m-mizutani/packweld/pkg/domain/interfaces"
	"github.com/m-mizutani/packweld/pkg/infra/firestore"
	"github.com/m-mizutani/packweld/pkg/infra/gcs"
	"github.com/m-mizutani/packweld/pkg/infra/slack"
	"github.com/m-mizutani/packweld/pkg/usecase"
	"github.com/m-mizutani/packweld/pkg/utils/async"
	"github.com/m-mizutani/packweld/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// weldFlags groups the configuration shared by the weld and serve commands
type weldFlags struct {
	workspace config.Workspace
	weld      config.Weld
	gcp       config.GCP
	slack     config.Slack
}

func (f *weldFlags) Flags() []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, f.workspace.Flags()...)
	flags = append(flags, f.weld.Flags()...)
	flags = append(flags, f.gcp.Flags()...)
	flags = append(flags, f.slack.Flags()...)
	return flags
}

// newWeldUseCase builds the weld use case with every configured result sink.
// Results are published in the background of pending when --async-sinks is
// set and pending is not nil. The returned func releases the sink clients
// and must be called once publishing is over.
func (f *weldFlags) newWeldUseCase(ctx context.Context, pending *async.Group) (interfaces.WeldUseCase, func(), error) {
	opts, err := f.weld.Options()
	if err != nil {
		return nil, nil, err
	}

	sinks, err := f.sinks(ctx)
	if err != nil {
		return nil, nil, err
	}

	if !f.weld.AsyncSinks {
		pending = nil
	}

	return usecase.NewWeld(f.workspace.TempRoot,
		usecase.WithWeldOptions(opts),
		usecase.WithAllowUnknownMode(f.weld.AllowUnknownMode),
		usecase.WithResultSinks(sinks...),
		usecase.WithAsyncSinks(pending),
	), func() { closeSinks(ctx, sinks) }, nil
}

func (f *weldFlags) sinks(ctx context.Context) ([]interfaces.ResultSink, error) {
	logger := logging.From(ctx)
	var sinks []interfaces.ResultSink

	if f.gcp.Bucket != "" {
		sink, err := gcs.NewClient(ctx, f.gcp.Bucket, f.gcp.Prefix, f.gcp.ClientOptions()...)
		if err != nil {
			closeSinks(ctx, sinks)
			return nil, goerr.Wrap(err, "failed to set up GCS sink")
		}
		sinks = append(sinks, sink)
	}

	if f.gcp.FirestoreProject != "" {
		sink, err := firestore.NewClient(ctx, f.gcp.FirestoreProject, f.gcp.FirestoreDatabaseID, f.gcp.ClientOptions()...)
		if err != nil {
			closeSinks(ctx, sinks)
			return nil, goerr.Wrap(err, "failed to set up Firestore sink")
		}
		sinks = append(sinks, sink)
	}

	if f.slack.WebhookURL != "" {
		sink, err := slack.NewClient(f.slack.WebhookURL)
		if err != nil {
			closeSinks(ctx, sinks)
			return nil, goerr.Wrap(err, "failed to set up Slack sink")
		}
		sinks = append(sinks, sink)
	}

	for _, s := range sinks {
		logger.Debug("Result sink enabled", slog.String("sink", s.Name()))
	}
	return sinks, nil
}

// closeSinks closes every sink holding a client connection
func closeSinks(ctx context.Context, sinks []interfaces.ResultSink) {
	for _, s := range sinks {
		c, ok := s.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			logging.From(ctx).Warn("Failed to close result sink",
				slog.String("sink", s.Name()),
				slog.Any("error", err),
			)
		}
	}
}
