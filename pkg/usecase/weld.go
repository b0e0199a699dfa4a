package usecase

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/packweld/pkg/domain/interfaces"
	"github.com/m-mizutani/packweld/pkg/domain/model"
	"github.com/m-mizutani/packweld/pkg/utils/async"
	"github.com/m-mizutani/packweld/pkg/utils/logging"
	"github.com/m-mizutani/packweld/pkg/weld"
)

type weldUseCase struct {
	tempRoot         string
	welder           interfaces.Welder
	options          weld.Options
	allowUnknownMode bool
	sinks            []interfaces.ResultSink
	pending          *async.Group
	now              func() time.Time

	locksMu sync.Mutex
	locks   map[string]*jobLock
}

// jobLock serializes welds of one job directory
type jobLock struct {
	mu   sync.Mutex
	refs int
}

// lockJob blocks until the caller owns jobID and returns the unlock func
func (uc *weldUseCase) lockJob(jobID string) func() {
	uc.locksMu.Lock()
	l, ok := uc.locks[jobID]
	if !ok {
		l = &jobLock{}
		uc.locks[jobID] = l
	}
	l.refs++
	uc.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		uc.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(uc.locks, jobID)
		}
		uc.locksMu.Unlock()
	}
}

// WeldOption configures the weld use case
type WeldOption func(*weldUseCase)

// WithWelder replaces the weld engine
func WithWelder(welder interfaces.Welder) WeldOption {
	return func(uc *weldUseCase) {
		uc.welder = welder
	}
}

// WithWeldOptions sets the options passed to every weld run. The
// unknown_files plugin is always required in addition to opts.Require.
func WithWeldOptions(opts weld.Options) WeldOption {
	return func(uc *weldUseCase) {
		uc.options = opts
	}
}

// WithAllowUnknownMode makes an unrecognized mode a logged no-op instead of an error
func WithAllowUnknownMode(allow bool) WeldOption {
	return func(uc *weldUseCase) {
		uc.allowUnknownMode = allow
	}
}

// WithResultSinks registers sinks notified after a weld wrote output
func WithResultSinks(sinks ...interfaces.ResultSink) WeldOption {
	return func(uc *weldUseCase) {
		uc.sinks = append(uc.sinks, sinks...)
	}
}

// WithAsyncSinks publishes results in the background of group instead of
// before Weld returns. A nil group keeps publishing synchronous.
func WithAsyncSinks(group *async.Group) WeldOption {
	return func(uc *weldUseCase) {
		uc.pending = group
	}
}

// NewWeld creates a WeldUseCase working on job directories below tempRoot
func NewWeld(tempRoot string, opts ...WeldOption) interfaces.WeldUseCase {
	uc := &weldUseCase{
		tempRoot: tempRoot,
		welder:   weld.Engine{},
		now:      time.Now,
		locks:    map[string]*jobLock{},
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Weld merges every archive of the job directory and writes the outputs
// selected by the mode back into it.
func (uc *weldUseCase) Weld(ctx context.Context, req *model.WeldRequest) (*model.WeldResult, error) {
	logger := logging.From(ctx)

	if !req.Mode.IsValid() && !uc.allowUnknownMode {
		return nil, goerr.Wrap(model.ErrUnknownMode, "refusing to weld",
			goerr.V("job_id", req.JobID),
			goerr.V("mode", req.Mode),
		)
	}
	if err := model.ValidateJobID(req.JobID); err != nil {
		return nil, err
	}

	unlock := uc.lockJob(req.JobID)
	defer unlock()

	workDir := filepath.Join(uc.tempRoot, req.JobID)
	result := &model.WeldResult{
		JobID:     req.JobID,
		Mode:      req.Mode,
		Version:   req.Version,
		WorkDir:   workDir,
		Files:     []string{},
		StartedAt: uc.now(),
	}

	logger.Info("Starting weld",
		"job_id", req.JobID,
		"mode", req.Mode,
		"version", req.Version,
		"work_dir", workDir,
	)

	paths, err := listArchives(workDir)
	if err != nil {
		return nil, err
	}
	result.ArchiveCount = len(paths)

	if len(paths) == 0 {
		logger.Info("No archives found, nothing to weld", "job_id", req.JobID)
		result.FinishedAt = uc.now()
		return result, nil
	}

	archives, closeArchives, err := openArchives(paths)
	if err != nil {
		return nil, err
	}
	defer closeArchives()

	if !req.Mode.IsValid() {
		logger.Warn("Unknown mode, no output written", "job_id", req.JobID, "mode", req.Mode)
		result.FinishedAt = uc.now()
		return result, nil
	}

	if err := uc.weld(ctx, req, archives, result); err != nil {
		return nil, err
	}
	result.FinishedAt = uc.now()

	logger.Info("Weld completed",
		"job_id", req.JobID,
		"archives", result.ArchiveCount,
		"files", result.Files,
		"duration_ms", result.FinishedAt.Sub(result.StartedAt).Milliseconds(),
	)

	if err := uc.publish(ctx, result); err != nil {
		return nil, err
	}

	return result, nil
}

func (uc *weldUseCase) weld(ctx context.Context, req *model.WeldRequest, archives []weld.Archive, result *model.WeldResult) error {
	opts := uc.options
	opts.Require = append([]string{weld.PluginUnknownFiles}, uc.options.Require...)

	wctx, err := uc.welder.Run(ctx, archives, opts)
	if err != nil {
		return goerr.Wrap(err, "failed to weld packs", goerr.V("job_id", req.JobID))
	}
	defer func() {
		if err := wctx.Close(); err != nil {
			logging.From(ctx).Warn("Failed to close weld context", "error", err)
		}
	}()

	wctx.Assets.Name = model.ResourcePackName
	wctx.Data.Name = model.DataPackName
	result.Version = wctx.Meta.SetDefault(weld.MetaMinecraft, req.Version)

	saveOpts := weld.SaveOptions{Zipped: true, Overwrite: true}

	if req.Mode.IncludesResourcePack() {
		if _, err := wctx.Assets.Save(result.WorkDir, saveOpts); err != nil {
			return goerr.Wrap(err, "failed to save resource pack", goerr.V("job_id", req.JobID))
		}
		result.Files = append(result.Files, model.ResourcePackFile)
	}

	if req.Mode.IncludesDataPack() {
		if _, err := wctx.Data.Save(result.WorkDir, saveOpts); err != nil {
			return goerr.Wrap(err, "failed to save data pack", goerr.V("job_id", req.JobID))
		}
		result.Files = append(result.Files, model.DataPackFile)
	}

	if req.Mode == model.ModeBoth {
		if err := writeBundle(result.WorkDir); err != nil {
			return err
		}
		result.Files = append(result.Files, model.BothFile)
	}

	result.ResultPath = filepath.Join(result.WorkDir, req.Mode.ResultFile())
	return nil
}

func (uc *weldUseCase) publish(ctx context.Context, result *model.WeldResult) error {
	if len(uc.sinks) == 0 || result.Skipped() {
		return nil
	}

	run := func(ctx context.Context) error {
		for _, sink := range uc.sinks {
			if err := sink.Publish(ctx, result); err != nil {
				return goerr.Wrap(err, "failed to publish weld result",
					goerr.V("sink", sink.Name()),
					goerr.V("job_id", result.JobID),
				)
			}
			logging.From(ctx).Debug("Published weld result", "sink", sink.Name(), "job_id", result.JobID)
		}
		return nil
	}

	if uc.pending != nil {
		uc.pending.Dispatch(ctx, run)
		return nil
	}
	return run(ctx)
}

// listArchives returns the input archives of workDir in name order
func listArchives(workDir string) ([]string, error) {
	entries, err := os.ReadDir(workDir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read job directory", goerr.V("work_dir", workDir))
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || model.IsOutputFile(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(workDir, entry.Name()))
	}
	return paths, nil
}

// openArchives opens every path as a zip archive. Either all archives are
// opened or none is left open.
func openArchives(paths []string) ([]weld.Archive, func(), error) {
	var opened []*weld.ArchiveFile
	closeAll := func() {
		for _, a := range opened {
			_ = a.Close()
		}
	}

	archives := make([]weld.Archive, 0, len(paths))
	for _, path := range paths {
		a, err := weld.OpenArchive(path)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		opened = append(opened, a)
		archives = append(archives, a.Archive)
	}

	return archives, closeAll, nil
}

// writeBundle packs welded-dp.zip and welded-rp.zip into welded-both.zip
func writeBundle(workDir string) (err error) {
	target := filepath.Join(workDir, model.BothFile)
	f, err := os.Create(target)
	if err != nil {
		return goerr.Wrap(err, "failed to create bundle", goerr.V("path", target))
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = goerr.Wrap(cerr, "failed to close bundle", goerr.V("path", target))
		}
	}()

	zw := zip.NewWriter(f)
	entries := []struct{ src, name string }{
		{src: model.DataPackFile, name: model.BothDataPackEntry},
		{src: model.ResourcePackFile, name: model.BothResourcePackEntry},
	}
	for _, e := range entries {
		if err := addStoredFile(zw, filepath.Join(workDir, e.src), e.name); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return goerr.Wrap(err, "failed to finalize bundle", goerr.V("path", target))
	}
	return nil
}

func addStoredFile(zw *zip.Writer, src, name string) error {
	in, err := os.Open(src)
	if err != nil {
		return goerr.Wrap(err, "failed to open bundle entry", goerr.V("path", src))
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return goerr.Wrap(err, "failed to stat bundle entry", goerr.V("path", src))
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return goerr.Wrap(err, "failed to build zip header", goerr.V("path", src))
	}
	header.Name = name
	header.Method = zip.Store

	w, err := zw.CreateHeader(header)
	if err != nil {
		return goerr.Wrap(err, "failed to create bundle entry", goerr.V("entry", name))
	}
	if _, err := io.Copy(w, in); err != nil {
		return goerr.Wrap(err, "failed to copy bundle entry", goerr.V("entry", name))
	}
	return nil
}
