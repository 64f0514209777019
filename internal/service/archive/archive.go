package archive

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/jgivc/archives/internal/common"
	"github.com/jgivc/archives/internal/entity"
	"github.com/jgivc/archives/internal/util"
	"github.com/spf13/afero"
)

const (
	serviceName = "archive"
)

type ArchiveScanner interface {
	ListArchives() ([]*entity.ArchiveSummary, error)
	GetArchiveByID(id string) (*entity.Archive, error)
	OpenFile(relativePath string) (afero.File, os.FileInfo, error)
	MimeType(relativePath string) (string, error)
}

type ReadmeRenderer interface {
	Render(archive *entity.Archive) (*entity.Readme, error)
}

type CounterRepository interface {
	IncFileCounter(ctx context.Context, archiveID, filePath string) (int64, error)
	GetDownloadCounters(ctx context.Context, archiveID string) (map[string]int64, error)
}

type archiveService struct {
	scanner  ArchiveScanner
	renderer ReadmeRenderer
	repo     CounterRepository // nil when counters are disabled
	log      *slog.Logger
}

func NewArchiveService(scanner ArchiveScanner, renderer ReadmeRenderer, repo CounterRepository, log *slog.Logger) *archiveService {
	return &archiveService{
		scanner:  scanner,
		renderer: renderer,
		repo:     repo,
		log:      log.With(slog.String("service", serviceName)),
	}
}

func (s *archiveService) List(ctx context.Context) ([]*entity.ArchiveSummary, error) {
	archives, err := s.scanner.ListArchives()
	if err != nil {
		s.log.Error("Cannot list archives", slog.Any("error", err))

		return nil, fmt.Errorf("cannot list archives: %w", err)
	}

	return archives, nil
}

func (s *archiveService) Get(ctx context.Context, id string) (*entity.Archive, error) {
	archive, err := s.scanner.GetArchiveByID(id)
	if err != nil {
		s.logError("Cannot get archive", err, slog.String("id", id))

		return nil, fmt.Errorf("cannot get archive %s: %w", id, err)
	}

	return archive, nil
}

func (s *archiveService) Readme(ctx context.Context, id string) (*entity.Readme, error) {
	archive, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	readme, err := s.renderer.Render(archive)
	if err != nil {
		s.logError("Cannot render readme", err, slog.String("id", id))

		return nil, fmt.Errorf("cannot render archive %s readme: %w", id, err)
	}

	return readme, nil
}

func (s *archiveService) OpenFile(ctx context.Context, relativePath string) (*entity.FileContent, error) {
	file, stat, err := s.scanner.OpenFile(relativePath)
	if err != nil {
		s.logError("Cannot open file", err, slog.String("path", relativePath))

		return nil, fmt.Errorf("cannot open file %s: %w", relativePath, err)
	}

	mimeType, err := s.scanner.MimeType(relativePath)
	if err != nil {
		s.log.Warn("Cannot get file mimeType", slog.String("path", relativePath), slog.Any("error", err))
	}

	return &entity.FileContent{
		Name:     stat.Name(),
		Path:     relativePath,
		MIMEType: mimeType,
		Size:     stat.Size(),
		ModTime:  stat.ModTime(),
		Content:  file,
	}, nil
}

// CountDownload increments the counter of a downloaded file. The counter is
// keyed by the file path inside its archive. Failures are only logged, a
// download never fails because of its counter.
func (s *archiveService) CountDownload(ctx context.Context, relativePath string) {
	if s.repo == nil {
		return
	}

	archiveName, filePath, found := strings.Cut(path.Clean(relativePath), "/")
	if !found || filePath == "" {
		return
	}

	archiveID := util.EncodeID(archiveName)

	counter, err := s.repo.IncFileCounter(ctx, archiveID, filePath)
	if err != nil {
		s.log.Error("Cannot increment download counter", slog.String("path", relativePath), slog.Any("error", err))

		return
	}

	s.log.Info("Download file", slog.String("id", archiveID), slog.String("path", relativePath), slog.Int64("counter", counter))
}

func (s *archiveService) Counters(ctx context.Context, id string) (*entity.DownloadCounters, error) {
	if s.repo == nil {
		return nil, common.ErrCountersDisabled
	}

	archive, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	counters, err := s.repo.GetDownloadCounters(ctx, archive.ID)
	if err != nil {
		s.log.Error("Cannot get download counters", slog.String("id", id), slog.Any("error", err))

		return nil, fmt.Errorf("cannot get archive %s counters: %w", id, err)
	}

	return &entity.DownloadCounters{
		ArchiveID: archive.ID,
		Files:     counters,
	}, nil
}

// logError keeps not found noise out of the error level.
func (s *archiveService) logError(msg string, err error, attrs ...any) {
	attrs = append(attrs, slog.Any("error", err))

	if errors.Is(err, common.ErrArchiveNotFound) ||
		errors.Is(err, common.ErrFileNotFound) ||
		errors.Is(err, common.ErrReadmeNotFound) {
		s.log.Debug(msg, attrs...)

		return
	}

	s.log.Error(msg, attrs...)
}
