package http

import (
	"errors"
	"io/fs"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/packweld/pkg/domain/interfaces"
	"github.com/m-mizutani/packweld/pkg/domain/model"
	"github.com/m-mizutani/packweld/pkg/usecase"
	"github.com/m-mizutani/packweld/pkg/utils/logging"
	"github.com/m-mizutani/packweld/pkg/weld"
)

const (
	defaultMaxUploadSize = 256 << 20
	multipartMemory      = 32 << 20

	// uploadField is the multipart field carrying pack archives
	uploadField = "pack"
)

// JobHandler serves job creation, weld and result download
type JobHandler struct {
	weldUC        interfaces.WeldUseCase
	jobUC         interfaces.JobUseCase
	maxUploadSize int64
}

// NewJobHandler creates a new JobHandler
func NewJobHandler(weldUC interfaces.WeldUseCase, jobUC interfaces.JobUseCase, maxUploadSize int64) *JobHandler {
	return &JobHandler{
		weldUC:        weldUC,
		jobUC:         jobUC,
		maxUploadSize: maxUploadSize,
	}
}

type createJobResponse struct {
	JobID string `json:"job_id"`
}

// Create stores the uploaded archives in a new job directory
func (h *JobHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.From(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		logger.Warn("Failed to parse upload", "error", err)
		writeError(w, r, goerr.Wrap(err, "invalid multipart form"), http.StatusBadRequest)
		return
	}
	defer func() {
		if err := r.MultipartForm.RemoveAll(); err != nil {
			logger.Warn("Failed to remove multipart temp files", "error", err)
		}
	}()

	headers := r.MultipartForm.File[uploadField]
	uploads := make([]*model.Upload, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			writeError(w, r, goerr.Wrap(err, "failed to open upload", goerr.V("name", fh.Filename)), http.StatusBadRequest)
			return
		}
		defer func(f multipart.File) { _ = f.Close() }(f)

		uploads = append(uploads, &model.Upload{Name: fh.Filename, Body: f})
	}

	jobID, err := h.jobUC.CreateJob(ctx, uploads)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, &createJobResponse{JobID: jobID})
}

// Weld runs the weld of the job named in the path
func (h *JobHandler) Weld(w http.ResponseWriter, r *http.Request) {
	req := &model.WeldRequest{
		JobID:   chi.URLParam(r, "jobID"),
		Mode:    model.Mode(r.URL.Query().Get("mode")),
		Version: r.URL.Query().Get("version"),
	}

	result, err := h.weldUC.Weld(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

// Result downloads the primary output of a finished weld
func (h *JobHandler) Result(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	mode, err := model.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	path, err := h.jobUC.ResultPath(r.Context(), jobID, mode)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		h.fail(w, r, goerr.Wrap(err, "failed to open result", goerr.V("path", path)))
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		h.fail(w, r, goerr.Wrap(err, "failed to stat result", goerr.V("path", path)))
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	http.ServeContent(w, r, filepath.Base(path), info.ModTime(), f)
}

func (h *JobHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	logger := logging.From(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("Job request failed", "error", err)
	} else {
		logger.Warn("Job request rejected", "error", err, "status", status)
	}
	writeError(w, r, err, status)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, model.ErrUnknownMode),
		errors.Is(err, model.ErrInvalidJobID),
		errors.Is(err, usecase.ErrInvalidUpload):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrResultNotFound),
		errors.Is(err, fs.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, weld.ErrInvalidArchive),
		errors.Is(err, weld.ErrInvalidJSON):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
