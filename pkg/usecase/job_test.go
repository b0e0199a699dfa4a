package usecase_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/packweld/pkg/domain/model"
	"github.com/m-mizutani/packweld/pkg/usecase"
)

func TestJobUseCase_CreateJob(t *testing.T) {
	ctx := context.Background()

	t.Run("stores uploads in a new job directory", func(t *testing.T) {
		root := t.TempDir()
		uc := usecase.NewJob(root)

		jobID, err := uc.CreateJob(ctx, []*model.Upload{
			{Name: "tools-datapack.zip", Body: strings.NewReader("dp")},
			{Name: "../../tools-resourcepack.zip", Body: strings.NewReader("rp")},
		})
		gt.NoError(t, err)
		gt.NoError(t, model.ValidateJobID(jobID))

		dir := filepath.Join(root, jobID)
		gt.Value(t, listDir(t, dir)).Equal([]string{"tools-datapack.zip", "tools-resourcepack.zip"})

		content, err := os.ReadFile(filepath.Join(dir, "tools-resourcepack.zip"))
		gt.NoError(t, err)
		gt.Value(t, string(content)).Equal("rp")
	})

	t.Run("creates the temp root when missing", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "temp")
		uc := usecase.NewJob(root)

		jobID, err := uc.CreateJob(ctx, []*model.Upload{{Name: "a.zip", Body: strings.NewReader("a")}})
		gt.NoError(t, err)
		_, err = os.Stat(filepath.Join(root, jobID, "a.zip"))
		gt.NoError(t, err)
	})

	t.Run("requires at least one upload", func(t *testing.T) {
		uc := usecase.NewJob(t.TempDir())

		_, err := uc.CreateJob(ctx, nil)
		gt.True(t, errors.Is(err, usecase.ErrInvalidUpload))
	})

	t.Run("rejects output names and cleans up", func(t *testing.T) {
		root := t.TempDir()
		uc := usecase.NewJob(root)

		_, err := uc.CreateJob(ctx, []*model.Upload{
			{Name: "a.zip", Body: strings.NewReader("a")},
			{Name: "welded-dp.zip", Body: strings.NewReader("x")},
		})
		gt.True(t, errors.Is(err, usecase.ErrInvalidUpload))
		gt.A(t, listDir(t, root)).Length(0)
	})

	t.Run("rejects duplicate names", func(t *testing.T) {
		uc := usecase.NewJob(t.TempDir())

		_, err := uc.CreateJob(ctx, []*model.Upload{
			{Name: "a.zip", Body: strings.NewReader("a")},
			{Name: "dir/a.zip", Body: strings.NewReader("b")},
		})
		gt.True(t, errors.Is(err, usecase.ErrInvalidUpload))
	})
}

func TestJobUseCase_ResultPath(t *testing.T) {
	ctx := context.Background()
	root := setupJob(t, "job1")
	jobs := usecase.NewJob(root)

	_, err := jobs.ResultPath(ctx, "job1", model.ModeBoth)
	gt.True(t, errors.Is(err, usecase.ErrResultNotFound))

	_, err = usecase.NewWeld(root).Weld(ctx, &model.WeldRequest{JobID: "job1", Mode: model.ModeDataPack, Version: "1.21"})
	gt.NoError(t, err)

	path, err := jobs.ResultPath(ctx, "job1", model.ModeDataPack)
	gt.NoError(t, err)
	gt.Value(t, path).Equal(filepath.Join(root, "job1", "welded-dp.zip"))

	_, err = jobs.ResultPath(ctx, "job1", model.ModeBoth)
	gt.True(t, errors.Is(err, usecase.ErrResultNotFound))

	_, err = jobs.ResultPath(ctx, "job1", model.Mode("banana"))
	gt.True(t, errors.Is(err, model.ErrUnknownMode))

	_, err = jobs.ResultPath(ctx, "..", model.ModeDataPack)
	gt.True(t, errors.Is(err, model.ErrInvalidJobID))
}

func TestJobUseCase_Expire(t *testing.T) {
	ctx := context.Background()

	t.Run("removes only entries older than max age", func(t *testing.T) {
		root := t.TempDir()
		uc := usecase.NewJob(root)

		oldID, err := uc.CreateJob(ctx, []*model.Upload{{Name: "a.zip", Body: strings.NewReader("a")}})
		gt.NoError(t, err)
		freshID, err := uc.CreateJob(ctx, []*model.Upload{{Name: "b.zip", Body: strings.NewReader("b")}})
		gt.NoError(t, err)

		past := time.Now().Add(-2 * time.Hour)
		gt.NoError(t, os.Chtimes(filepath.Join(root, oldID), past, past))

		removed, err := uc.Expire(ctx, time.Hour)
		gt.NoError(t, err)
		gt.Value(t, removed).Equal(1)
		gt.Value(t, listDir(t, root)).Equal([]string{freshID})
	})

	t.Run("missing temp root", func(t *testing.T) {
		uc := usecase.NewJob(filepath.Join(t.TempDir(), "none"))

		removed, err := uc.Expire(ctx, time.Hour)
		gt.NoError(t, err)
		gt.Value(t, removed).Equal(0)
	})

	t.Run("expired job has no result anymore", func(t *testing.T) {
		root := t.TempDir()
		uc := usecase.NewJob(root)

		jobID, err := uc.CreateJob(ctx, []*model.Upload{{Name: "a.zip", Body: strings.NewReader("a")}})
		gt.NoError(t, err)
		gt.NoError(t, os.WriteFile(filepath.Join(root, jobID, model.DataPackFile), []byte("dp"), 0644))

		past := time.Now().Add(-2 * time.Hour)
		gt.NoError(t, os.Chtimes(filepath.Join(root, jobID), past, past))

		_, err = uc.Expire(ctx, time.Hour)
		gt.NoError(t, err)

		_, err = uc.ResultPath(ctx, jobID, model.ModeDataPack)
		gt.True(t, errors.Is(err, usecase.ErrResultNotFound))
	})
}
