package interfaces

import (
	"context"
	"time"

	"github.com/m-mizutani/packweld/pkg/domain/model"
)

// WeldUseCase merges the packs of a job directory
type WeldUseCase interface {
	// Weld runs one merge over the archives found in the job directory
	Weld(ctx context.Context, req *model.WeldRequest) (*model.WeldResult, error)
}

// JobUseCase manages job directories below the temp root
type JobUseCase interface {
	// CreateJob stores uploads in a new job directory and returns its id
	CreateJob(ctx context.Context, uploads []*model.Upload) (string, error)

	// ResultPath returns the path of the file handed back for mode
	ResultPath(ctx context.Context, jobID string, mode model.Mode) (string, error)

	// Expire removes job directories not modified within maxAge and returns
	// how many were removed
	Expire(ctx context.Context, maxAge time.Duration) (int, error)
}
