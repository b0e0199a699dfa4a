package interfaces

import (
	"context"

	"github.com/m-mizutani/packweld/pkg/domain/model"
	"github.com/m-mizutani/packweld/pkg/weld"
)

// Welder merges opened pack archives
type Welder interface {
	Run(ctx context.Context, archives []weld.Archive, opts weld.Options) (*weld.Context, error)
}

// ResultSink receives the result of every weld that wrote output
type ResultSink interface {
	// Name identifies the sink in logs
	Name() string

	Publish(ctx context.Context, result *model.WeldResult) error
}
