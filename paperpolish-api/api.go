package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/paperpolish/paperpolish-go/internal/domain"
	"github.com/paperpolish/paperpolish-go/internal/pipeline"
	"github.com/paperpolish/paperpolish-go/internal/platform/eventlog"
	"github.com/paperpolish/paperpolish-go/internal/platform/httpserver"
	"github.com/paperpolish/paperpolish-go/internal/repo"
	jobsvc "github.com/paperpolish/paperpolish-go/internal/service/jobs"
)

const (
	maxFieldBytes = 4 << 10
	maxEventBytes = 64 << 10
)

type jobService interface {
	Submit(ctx context.Context, input jobsvc.SubmitInput) (jobsvc.SubmitResult, error)
	Open(ctx context.Context, id string) (io.ReadCloser, domain.Job, error)
}

type eventAppender interface {
	Append(ctx context.Context, event eventlog.Event) error
}

// dbStatusFunc reports the /health "db" field: "ok", "not_present" or an error.
type dbStatusFunc func(ctx context.Context) string

type paperPolishAPI struct {
	logger         *slog.Logger
	jobs           jobService
	events         eventAppender
	openAPI        []byte
	version        string
	uploadMaxBytes int64
	spoolDir       string
	dbStatus       dbStatusFunc
	now            func() time.Time
}

type apiDeps struct {
	Logger         *slog.Logger
	Jobs           jobService
	Events         eventAppender
	OpenAPI        []byte
	Version        string
	UploadMaxBytes int64
	SpoolDir       string
	DBStatus       dbStatusFunc
}

func newPaperPolishAPI(deps apiDeps) *paperPolishAPI {
	api := &paperPolishAPI{
		logger:         deps.Logger,
		jobs:           deps.Jobs,
		events:         deps.Events,
		openAPI:        deps.OpenAPI,
		version:        deps.Version,
		uploadMaxBytes: deps.UploadMaxBytes,
		spoolDir:       deps.SpoolDir,
		dbStatus:       deps.DBStatus,
		now:            time.Now,
	}
	if api.logger == nil {
		api.logger = slog.Default()
	}
	if api.uploadMaxBytes <= 0 {
		api.uploadMaxBytes = 25 << 20
	}
	if api.version == "" {
		api.version = "unknown"
	}
	if api.dbStatus == nil {
		api.dbStatus = func(context.Context) string { return "not_present" }
	}
	return api
}

func (api *paperPolishAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", api.handleRoot)
	mux.HandleFunc("POST /format", api.handleFormat)
	mux.HandleFunc("GET /download/{job_id}", api.handleDownload)
	mux.HandleFunc("GET /health", api.handleHealth)
	mux.HandleFunc("POST /_events", api.handleEvent)
	mux.HandleFunc("GET /openapi.json", api.handleOpenAPI)
}

type formatResponse struct {
	OK          bool     `json:"ok"`
	JobID       string   `json:"job_id"`
	Template    string   `json:"template"`
	Options     []string `json:"options"`
	Warnings    []string `json:"warnings"`
	DownloadURL string   `json:"download_url"`
	Message     string   `json:"message"`
}

func (api *paperPolishAPI) handleRoot(w http.ResponseWriter, r *http.Request) {
	api.writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"version": api.version,
	})
}

func (api *paperPolishAPI) handleFormat(w http.ResponseWriter, r *http.Request) {
	if api.jobs == nil {
		api.writeError(w, r, http.StatusInternalServerError, "service_unavailable")
		return
	}
	if r.ContentLength > 0 && r.ContentLength > api.uploadMaxBytes {
		api.writeTooLarge(w, r)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, api.uploadMaxBytes)

	mr, err := r.MultipartReader()
	if err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_multipart")
		return
	}

	var (
		templateRaw string
		optionRaws  []string
		filename    string
		spool       *os.File
	)
	defer func() {
		if spool != nil {
			_ = spool.Close()
			_ = os.Remove(spool.Name())
		}
	}()

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if isMaxBytes(err) {
				api.writeTooLarge(w, r)
				return
			}
			api.writeError(w, r, http.StatusBadRequest, "invalid_multipart")
			return
		}

		switch part.FormName() {
		case "template":
			raw, err := readField(part)
			_ = part.Close()
			if err != nil {
				api.writeFieldError(w, r, err)
				return
			}
			templateRaw = raw
		case "options", "options[]":
			raw, err := readField(part)
			_ = part.Close()
			if err != nil {
				api.writeFieldError(w, r, err)
				return
			}
			optionRaws = append(optionRaws, raw)
		case "archive":
			if spool != nil {
				_ = part.Close()
				api.writeError(w, r, http.StatusBadRequest, "invalid_multipart")
				return
			}
			filename = sanitizeFilename(part.FileName())
			spool, err = os.CreateTemp(api.spoolDir, "upload-*")
			if err != nil {
				_ = part.Close()
				api.logger.Error("spool upload failed", "error", err)
				api.writeError(w, r, http.StatusInternalServerError, "storage_failed")
				return
			}
			_, err = io.Copy(spool, part)
			_ = part.Close()
			if err != nil {
				if isMaxBytes(err) {
					api.writeTooLarge(w, r)
					return
				}
				api.writeError(w, r, http.StatusBadRequest, "invalid_multipart")
				return
			}
		default:
			_, _ = io.Copy(io.Discard, part)
			_ = part.Close()
		}
	}

	if spool == nil || filename == "" {
		api.writeError(w, r, http.StatusBadRequest, "archive_required")
		return
	}
	tpl, err := domain.ParseTemplate(templateRaw)
	if err != nil {
		api.writeErrorWithMessage(w, r, http.StatusBadRequest, "unsupported_template", err.Error())
		return
	}
	if !pipeline.SupportedUpload(filename) {
		api.writeErrorWithMessage(w, r, http.StatusUnsupportedMediaType, "unsupported_file_type", "upload a .zip or .tex file")
		return
	}
	if _, err := spool.Seek(0, io.SeekStart); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "storage_failed")
		return
	}

	options := domain.ParseOptions(optionRaws...)
	res, err := api.jobs.Submit(r.Context(), jobsvc.SubmitInput{
		Filename: filename,
		Body:     spool,
		Template: tpl,
		Options:  options,
	})
	if err != nil {
		api.writeSubmitError(w, r, err)
		return
	}

	api.writeJSON(w, http.StatusOK, formatResponse{
		OK:          true,
		JobID:       res.Job.ID,
		Template:    string(tpl),
		Options:     options.Strings(),
		Warnings:    res.Warnings,
		DownloadURL: "/download/" + res.Job.ID,
		Message:     fmt.Sprintf("Formatting successful with %s", tpl),
	})
}

func (api *paperPolishAPI) writeSubmitError(w http.ResponseWriter, r *http.Request, err error) {
	var perr *pipeline.Error
	if errors.As(err, &perr) {
		status := http.StatusInternalServerError
		switch perr.Kind {
		case pipeline.KindUnsupportedInput:
			status = http.StatusUnsupportedMediaType
		case pipeline.KindInvalidArchive:
			status = http.StatusUnprocessableEntity
		}
		if status == http.StatusInternalServerError {
			api.logger.Error("format failed", "error", err)
		}
		api.writeErrorWithMessage(w, r, status, string(perr.Kind), perr.Message)
		return
	}
	api.logger.Error("format failed", "error", err)
	api.writeError(w, r, http.StatusInternalServerError, "storage_failed")
}

func (api *paperPolishAPI) handleDownload(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimSpace(r.PathValue("job_id"))
	if jobID == "" || api.jobs == nil {
		api.writeError(w, r, http.StatusNotFound, "not_found")
		return
	}
	body, job, err := api.jobs.Open(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.logger.Error("download failed", "job_id", jobID, "error", err)
		api.writeError(w, r, http.StatusInternalServerError, "storage_failed")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", jobsvc.ArtifactContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", job.ID+".zip"))
	if job.SizeBytes > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(job.SizeBytes, 10))
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, body)
}

func (api *paperPolishAPI) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), time.Second)
	defer cancel()
	api.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": api.now().Unix(),
		"db":        api.dbStatus(ctx),
		"version":   api.version,
	})
}

func (api *paperPolishAPI) handleEvent(w http.ResponseWriter, r *http.Request) {
	fields := map[string]any{}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes))
	if err == nil && len(strings.TrimSpace(string(raw))) > 0 {
		if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
			fields = map[string]any{}
		}
	}
	event := eventlog.Event{
		OccurredAt: api.now(),
		IP:         httpserver.ClientIP(r),
		UserAgent:  r.UserAgent(),
		Fields:     fields,
	}
	if api.events != nil {
		if err := api.events.Append(r.Context(), event); err != nil {
			api.logger.Error("event append failed", "error", err)
			api.writeError(w, r, http.StatusInternalServerError, "storage_failed")
			return
		}
	}
	api.logger.Info("event", "kind", event.Kind(), "label", event.Label())
	api.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (api *paperPolishAPI) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	if len(api.openAPI) == 0 {
		api.writeError(w, r, http.StatusNotFound, "not_found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(api.openAPI)
}

func (api *paperPolishAPI) writeJSON(w http.ResponseWriter, status int, body any) {
	httpserver.WriteJSON(w, status, body)
}

func (api *paperPolishAPI) writeError(w http.ResponseWriter, r *http.Request, status int, code string) {
	api.writeJSON(w, status, map[string]any{
		"error":      code,
		"request_id": r.Header.Get("X-Request-Id"),
	})
}

func (api *paperPolishAPI) writeErrorWithMessage(w http.ResponseWriter, r *http.Request, status int, code string, message string) {
	api.writeJSON(w, status, map[string]any{
		"error":      code,
		"message":    message,
		"request_id": r.Header.Get("X-Request-Id"),
	})
}

func (api *paperPolishAPI) writeTooLarge(w http.ResponseWriter, r *http.Request) {
	api.writeErrorWithMessage(w, r, http.StatusRequestEntityTooLarge, "file_too_large",
		fmt.Sprintf("uploads are limited to %d MiB", api.uploadMaxBytes>>20))
}

func (api *paperPolishAPI) writeFieldError(w http.ResponseWriter, r *http.Request, err error) {
	if isMaxBytes(err) {
		api.writeTooLarge(w, r)
		return
	}
	api.writeError(w, r, http.StatusBadRequest, "invalid_multipart")
}

var errFieldTooLong = errors.New("form field too long")

func readField(part io.Reader) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
	if err != nil {
		return "", err
	}
	if len(raw) > maxFieldBytes {
		return "", errFieldTooLong
	}
	return strings.TrimSpace(string(raw)), nil
}

func isMaxBytes(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(strings.TrimSpace(name), `\`, "/")
	base := path.Base(name)
	if base == "" || base == "." || base == "/" {
		return ""
	}
	return base
}
