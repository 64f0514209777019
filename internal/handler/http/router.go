package httphandler

import (
	"log/slog"
	"net/http"
	"strings"
)

type Service interface {
	ListService
	ArchiveService
	ReadmeService
	FileService
	CounterService
}

// NewRouter mounts the archive routes under prefix and wraps them with
// the middleware chain.
func NewRouter(srv Service, prefix string, log *slog.Logger) http.Handler {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix != "" && !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}

	mux := http.NewServeMux()
	mux.Handle("GET "+prefix+"/{$}", NewListHandler(srv, log))
	mux.Handle("GET "+prefix+"/health", NewHealthHandler())
	mux.Handle("GET "+prefix+"/file/{path...}", NewFileHandler(srv, log))
	mux.Handle("GET "+prefix+"/readme/{id}", NewReadmeHandler(srv, log))
	mux.Handle("GET "+prefix+"/stats/{id}", NewCounterHandler(srv, log))
	mux.Handle("GET "+prefix+"/{id}", NewArchiveHandler(srv, log))
	mux.Handle("/", NewNotFoundHandler())

	var h http.Handler = mux
	h = WithRecover(h, log)
	h = WithAccessLog(h, log)
	h = WithRequestID(h)
	h = WithCORS(h)

	return h
}
