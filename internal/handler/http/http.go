package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/jgivc/archives/internal/common"
	"github.com/jgivc/archives/internal/entity"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeHTML = "text/html; charset=utf-8"

	queryDownload = "download"

	rangeFirstByte = "bytes=0-"
)

type ListService interface {
	List(ctx context.Context) ([]*entity.ArchiveSummary, error)
}

type ArchiveService interface {
	Get(ctx context.Context, id string) (*entity.Archive, error)
}

type ReadmeService interface {
	Readme(ctx context.Context, id string) (*entity.Readme, error)
}

type FileService interface {
	OpenFile(ctx context.Context, relativePath string) (*entity.FileContent, error)
	CountDownload(ctx context.Context, relativePath string)
}

type CounterService interface {
	Counters(ctx context.Context, id string) (*entity.DownloadCounters, error)
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewListHandler(srv ListService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "ListHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		archives, err := srv.List(r.Context())
		if err != nil {
			log.Error("Cannot list archives", slog.Any("error", err))
			writeError(w, http.StatusInternalServerError, "Failed to fetch archives")

			return
		}

		writeJSON(w, http.StatusOK, archives)
	}
}

func NewArchiveHandler(srv ArchiveService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "ArchiveHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		archive, err := srv.Get(r.Context(), id)
		if err != nil {
			switch {
			case errors.Is(err, common.ErrArchiveNotFound):
				writeError(w, http.StatusNotFound, "Archive not found")
			default:
				log.Error("Cannot get archive", slog.String("id", id), slog.Any("error", err))
				writeError(w, http.StatusInternalServerError, "Failed to fetch archive")
			}

			return
		}

		writeJSON(w, http.StatusOK, archive)
	}
}

func NewReadmeHandler(srv ReadmeService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "ReadmeHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		readme, err := srv.Readme(r.Context(), id)
		if err != nil {
			switch {
			case errors.Is(err, common.ErrArchiveNotFound):
				writeError(w, http.StatusNotFound, "Archive not found")
			case errors.Is(err, common.ErrReadmeNotFound):
				writeError(w, http.StatusNotFound, "Readme not found")
			default:
				log.Error("Cannot render readme", slog.String("id", id), slog.Any("error", err))
				writeError(w, http.StatusInternalServerError, "Failed to render readme")
			}

			return
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(readme.PageContent))
	}
}

// NewFileHandler streams a file addressed relative to the data path.
// With ?download=true the file is sent as an attachment.
func NewFileHandler(srv FileService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "FileHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		relativePath := r.PathValue("path")

		content, err := srv.OpenFile(r.Context(), relativePath)
		if err != nil {
			switch {
			case errors.Is(err, common.ErrFileNotFound):
				writeError(w, http.StatusNotFound, "File not found")
			default:
				log.Error("Cannot open file", slog.String("path", relativePath), slog.Any("error", err))
				writeError(w, http.StatusInternalServerError, "Failed to serve file")
			}

			return
		}
		defer content.Content.Close()

		download := r.URL.Query().Get(queryDownload) == "true"

		disposition := "inline"
		if download {
			disposition = "attachment"
		}

		if value := mime.FormatMediaType(disposition, map[string]string{"filename": content.Name}); value != "" {
			disposition = value
		}

		w.Header().Set("Content-Disposition", disposition)
		if content.MIMEType != "" {
			w.Header().Set("Content-Type", content.MIMEType)
		}

		if download && isDownloadStart(r) {
			srv.CountDownload(r.Context(), relativePath)
		}

		http.ServeContent(w, r, content.Name, content.ModTime, content.Content)
	}
}

// isDownloadStart reports whether the request begins a download: a GET for
// the whole file or for a range starting at the first byte. HEAD requests
// and resumed chunks are not counted.
func isDownloadStart(r *http.Request) bool {
	if r.Method != http.MethodGet {
		return false
	}

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		return true
	}

	return strings.HasPrefix(strings.TrimSpace(rangeHeader), rangeFirstByte)
}

func NewCounterHandler(srv CounterService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "CounterHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")

		counters, err := srv.Counters(r.Context(), id)
		if err != nil {
			switch {
			case errors.Is(err, common.ErrCountersDisabled):
				writeError(w, http.StatusNotFound, "Counters disabled")
			case errors.Is(err, common.ErrArchiveNotFound):
				writeError(w, http.StatusNotFound, "Archive not found")
			default:
				log.Error("Cannot get counters", slog.String("id", id), slog.Any("error", err))
				writeError(w, http.StatusInternalServerError, "Failed to fetch counters")
			}

			return
		}

		writeJSON(w, http.StatusOK, counters)
	}
}

func NewHealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func NewNotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(v)
}
