package usecase

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/packweld/pkg/domain/interfaces"
	"github.com/m-mizutani/packweld/pkg/domain/model"
	"github.com/m-mizutani/packweld/pkg/utils/logging"
)

var (
	ErrInvalidUpload  = goerr.New("invalid upload")
	ErrResultNotFound = goerr.New("weld result not found")
)

type jobUseCase struct {
	tempRoot string
	newID    func() string
	now      func() time.Time
}

// NewJob creates a JobUseCase storing job directories below tempRoot
func NewJob(tempRoot string) interfaces.JobUseCase {
	return &jobUseCase{
		tempRoot: tempRoot,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// CreateJob stores uploads in a fresh job directory
func (uc *jobUseCase) CreateJob(ctx context.Context, uploads []*model.Upload) (string, error) {
	logger := logging.From(ctx)

	if len(uploads) == 0 {
		return "", goerr.Wrap(ErrInvalidUpload, "at least one pack archive is required")
	}

	jobID := uc.newID()
	workDir := filepath.Join(uc.tempRoot, jobID)

	if err := os.MkdirAll(uc.tempRoot, 0755); err != nil {
		return "", goerr.Wrap(err, "failed to create temp root", goerr.V("temp_root", uc.tempRoot))
	}
	if err := os.Mkdir(workDir, 0700); err != nil {
		return "", goerr.Wrap(err, "failed to create job directory", goerr.V("work_dir", workDir))
	}

	logger.Debug("Created job directory", "job_id", jobID, "work_dir", workDir)

	var size int64
	for _, up := range uploads {
		n, err := storeUpload(workDir, up)
		if err != nil {
			if rmErr := os.RemoveAll(workDir); rmErr != nil {
				logger.Warn("Failed to remove job directory", "error", rmErr, "work_dir", workDir)
			}
			return "", err
		}
		size += n
	}

	logger.Info("Job created",
		"job_id", jobID,
		"archives", len(uploads),
		"total_size_bytes", size,
	)

	return jobID, nil
}

func storeUpload(workDir string, up *model.Upload) (int64, error) {
	name := filepath.Base(filepath.Clean("/" + up.Name))
	if name == "/" || name == "." || model.IsOutputFile(name) {
		return 0, goerr.Wrap(ErrInvalidUpload, "invalid archive file name", goerr.V("name", up.Name))
	}

	destPath := filepath.Join(workDir, name)
	if _, err := os.Stat(destPath); err == nil {
		return 0, goerr.Wrap(ErrInvalidUpload, "duplicate archive file name", goerr.V("name", name))
	}

	destFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to create archive file", goerr.V("path", destPath))
	}
	defer destFile.Close()

	n, err := io.Copy(destFile, up.Body)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to store archive", goerr.V("path", destPath))
	}
	return n, nil
}

// ResultPath returns the primary output of mode, failing when the weld has not
// produced it yet.
func (uc *jobUseCase) ResultPath(ctx context.Context, jobID string, mode model.Mode) (string, error) {
	if err := model.ValidateJobID(jobID); err != nil {
		return "", err
	}
	if !mode.IsValid() {
		return "", goerr.Wrap(model.ErrUnknownMode, "cannot resolve result", goerr.V("mode", mode))
	}

	path := filepath.Join(uc.tempRoot, jobID, mode.ResultFile())
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", goerr.Wrap(ErrResultNotFound, "result file does not exist",
				goerr.V("job_id", jobID),
				goerr.V("mode", mode),
			)
		}
		return "", goerr.Wrap(err, "failed to stat result", goerr.V("path", path))
	}

	return path, nil
}

// Expire removes every entry of the temp root whose modification time is
// older than maxAge. A missing temp root has nothing to expire.
func (uc *jobUseCase) Expire(ctx context.Context, maxAge time.Duration) (int, error) {
	logger := logging.From(ctx)

	entries, err := os.ReadDir(uc.tempRoot)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, goerr.Wrap(err, "failed to read temp root", goerr.V("temp_root", uc.tempRoot))
	}

	deadline := uc.now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return removed, goerr.Wrap(err, "failed to stat job entry", goerr.V("name", entry.Name()))
		}
		if !info.ModTime().Before(deadline) {
			continue
		}

		path := filepath.Join(uc.tempRoot, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return removed, goerr.Wrap(err, "failed to remove expired job", goerr.V("path", path))
		}
		removed++
		logger.Debug("Removed expired job", "path", path, "modified_at", info.ModTime())
	}

	if removed > 0 {
		logger.Info("Expired jobs removed", "count", removed, "max_age", maxAge.String())
	}
	return removed, nil
}
