package fsadapter

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/jgivc/archives/internal/common"
	"github.com/jgivc/archives/internal/config"
	"github.com/jgivc/archives/internal/entity"
	"github.com/jgivc/archives/internal/util"
	"github.com/spf13/afero"
)

const (
	rootDir               = "/"
	mimeTypeUnknown       = "application/octet-stream"
	mimeTypeCheckPartSize = 512
)

type scanner struct {
	fs       afero.Fs // Rooted at the data path
	root     string   // Absolute data path
	cfg      *config.ScannerConfig
	ignored  map[string]struct{}
	images   map[string]struct{}
	symlinks bool

	log *slog.Logger
}

// NewScanner returns a scanner over the real filesystem.
func NewScanner(cfg *config.ScannerConfig, log *slog.Logger) (*scanner, error) {
	s, err := NewScannerWithFS(afero.NewOsFs(), cfg, log)
	if err != nil {
		return nil, err
	}

	s.symlinks = true

	return s, nil
}

func NewScannerWithFS(fs afero.Fs, cfg *config.ScannerConfig, log *slog.Logger) (*scanner, error) {
	root, err := filepath.Abs(cfg.DataPath)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve data path %s: %w", cfg.DataPath, err)
	}

	if err := fs.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("cannot create data path %s: %w", root, err)
	}

	ignored := make(map[string]struct{}, len(cfg.IgnoredFiles))
	for _, name := range cfg.IgnoredFiles {
		ignored[name] = struct{}{}
	}

	images := make(map[string]struct{}, len(cfg.ImageExtensions))
	for _, ext := range cfg.ImageExtensions {
		images[strings.ToLower(ext)] = struct{}{}
	}

	return &scanner{
		fs:      afero.NewBasePathFs(fs, root),
		root:    root,
		cfg:     cfg,
		ignored: ignored,
		images:  images,
		log:     log.With(slog.String("item", "Scanner")),
	}, nil
}

// Root returns the absolute data path.
func (s *scanner) Root() string {
	return s.root
}

func (s *scanner) ListArchives() ([]*entity.ArchiveSummary, error) {
	entries, err := afero.ReadDir(s.fs, rootDir)
	if err != nil {
		return nil, fmt.Errorf("cannot read data path %s: %w", s.root, err)
	}

	archives := make([]*entity.ArchiveSummary, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !s.isArchive(name) {
			continue
		}

		archives = append(archives, &entity.ArchiveSummary{
			ID:   util.EncodeID(name),
			Name: name,
		})
	}

	return archives, nil
}

func (s *scanner) GetArchiveByID(id string) (*entity.Archive, error) {
	name, err := util.DecodeID(id)
	if err != nil {
		s.log.Debug("Cannot decode archive id", slog.String("id", id), slog.Any("error", err))

		return nil, common.ErrArchiveNotFound
	}

	return s.GetArchiveByName(name)
}

func (s *scanner) GetArchiveByName(name string) (*entity.Archive, error) {
	if !s.isArchive(name) {
		return nil, common.ErrArchiveNotFound
	}

	archive := &entity.Archive{
		ID:          util.EncodeID(name),
		Name:        name,
		Readme:      s.readReadme(name),
		Screenshots: make([]*entity.ArchiveScreenshot, 0),
		Files:       make([]*entity.ArchiveFile, 0),
	}

	for _, fileName := range s.readFiles(name, s.cfg.ScreenshotsDir) {
		if !s.isImage(fileName) {
			continue
		}

		archive.Screenshots = append(archive.Screenshots, &entity.ArchiveScreenshot{
			Name: fileName,
			Path: path.Join(name, s.cfg.ScreenshotsDir, fileName),
		})
	}

	for _, fileName := range s.readFiles(name, s.cfg.FilesDir) {
		archive.Files = append(archive.Files, &entity.ArchiveFile{
			Name: fileName,
			Path: path.Join(name, s.cfg.FilesDir, fileName),
		})
	}

	return archive, nil
}

// ResolveFilePath returns the absolute path of a regular file addressed
// relative to the data path.
func (s *scanner) ResolveFilePath(relativePath string) (string, error) {
	rel, err := s.checkFile(relativePath)
	if err != nil {
		return "", err
	}

	return filepath.Join(s.root, filepath.FromSlash(rel)), nil
}

// OpenFile opens a regular file addressed relative to the data path.
// The caller must close the returned file.
func (s *scanner) OpenFile(relativePath string) (afero.File, os.FileInfo, error) {
	rel, err := s.checkFile(relativePath)
	if err != nil {
		return nil, nil, err
	}

	file, err := s.fs.Open(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, common.ErrFileNotFound
		}

		return nil, nil, fmt.Errorf("cannot open file %s: %w", rel, err)
	}

	stat, err := file.Stat()
	if err != nil {
		file.Close()

		return nil, nil, fmt.Errorf("cannot stat file %s: %w", rel, err)
	}

	if !stat.Mode().IsRegular() {
		file.Close()

		return nil, nil, common.ErrFileNotFound
	}

	return file, stat, nil
}

// MimeType detects the content type by extension, then by content.
func (s *scanner) MimeType(relativePath string) (string, error) {
	if ext := path.Ext(relativePath); ext != "" {
		if mimeType := mime.TypeByExtension(ext); mimeType != "" {
			return mimeType, nil
		}
	}

	rel, err := s.checkFile(relativePath)
	if err != nil {
		return mimeTypeUnknown, err
	}

	file, err := s.fs.Open(rel)
	if err != nil {
		return mimeTypeUnknown, err
	}
	defer file.Close()

	buffer := make([]byte, mimeTypeCheckPartSize)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return mimeTypeUnknown, err
	}

	return http.DetectContentType(buffer[:n]), nil
}

func (s *scanner) checkFile(relativePath string) (string, error) {
	rel, ok := cleanRelativePath(relativePath)
	if !ok {
		s.log.Warn("Rejected file path", slog.String("path", relativePath))

		return "", common.ErrFileNotFound
	}

	// Hidden archives are not listed, so their files are not served either.
	archiveName, _, _ := strings.Cut(rel, "/")
	if !validArchiveName(archiveName) {
		return "", common.ErrFileNotFound
	}

	stat, err := s.fs.Stat(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", common.ErrFileNotFound
		}

		return "", fmt.Errorf("cannot stat file %s: %w", rel, err)
	}

	if !stat.Mode().IsRegular() {
		return "", common.ErrFileNotFound
	}

	if s.symlinks && !s.insideRoot(rel) {
		s.log.Warn("File resolves outside of data path", slog.String("path", rel))

		return "", common.ErrFileNotFound
	}

	return rel, nil
}

// insideRoot follows symlinks on the real filesystem and checks that the
// target is still under the data path.
func (s *scanner) insideRoot(rel string) bool {
	root, err := filepath.EvalSymlinks(s.root)
	if err != nil {
		return false
	}

	target, err := filepath.EvalSymlinks(filepath.Join(s.root, filepath.FromSlash(rel)))
	if err != nil {
		return false
	}

	return within(root, target)
}

func (s *scanner) readReadme(name string) *string {
	fileName := path.Join(name, s.cfg.ReadmeFileName)
	if !s.isFile(fileName) {
		return nil
	}

	data, err := afero.ReadFile(s.fs, fileName)
	if err != nil {
		s.log.Debug("Cannot read readme", slog.String("path", fileName), slog.Any("error", err))

		return nil
	}

	readme := string(data)

	return &readme
}

// readFiles returns names of regular, not ignored files of an archive
// subdirectory. Any failure yields an empty result.
func (s *scanner) readFiles(name, subDir string) []string {
	dirName := path.Join(name, subDir)
	if !s.isDir(dirName) {
		return nil
	}

	entries, err := afero.ReadDir(s.fs, dirName)
	if err != nil {
		s.log.Debug("Cannot read archive folder", slog.String("path", dirName), slog.Any("error", err))

		return nil
	}

	var files []string
	for _, entry := range entries {
		fileName := entry.Name()
		if s.isIgnored(fileName) {
			continue
		}

		if !s.isFile(path.Join(dirName, fileName)) {
			continue
		}

		files = append(files, fileName)
	}

	return files
}

func (s *scanner) isIgnored(fileName string) bool {
	if strings.HasPrefix(fileName, ".") {
		return true
	}

	_, exists := s.ignored[fileName]

	return exists
}

func (s *scanner) isImage(fileName string) bool {
	_, exists := s.images[strings.ToLower(path.Ext(fileName))]

	return exists
}

// isArchive reports whether name is a visible archive directory. On the
// real filesystem the directory must resolve inside the data path.
func (s *scanner) isArchive(name string) bool {
	if !validArchiveName(name) || !s.isDir(name) {
		return false
	}

	return !s.symlinks || s.insideRoot(name)
}

func (s *scanner) isDir(name string) bool {
	stat, err := s.fs.Stat(name)
	if err != nil {
		return false
	}

	return stat.IsDir()
}

func (s *scanner) isFile(name string) bool {
	stat, err := s.fs.Stat(name)
	if err != nil {
		return false
	}

	return stat.Mode().IsRegular()
}

func validArchiveName(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}

	return !strings.ContainsAny(name, "/\\\x00")
}

// cleanRelativePath rejects absolute paths and any ".." segment instead of
// cleaning them away, so a traversal attempt never addresses another file.
func cleanRelativePath(relativePath string) (string, bool) {
	if relativePath == "" || strings.ContainsRune(relativePath, 0) {
		return "", false
	}

	p := strings.ReplaceAll(relativePath, "\\", "/")
	if strings.HasPrefix(p, "/") || filepath.IsAbs(relativePath) || filepath.VolumeName(relativePath) != "" {
		return "", false
	}

	for _, segment := range strings.Split(p, "/") {
		if segment == ".." {
			return "", false
		}
	}

	p = path.Clean(p)
	if p == "." {
		return "", false
	}

	return p, true
}

func within(root, target string) bool {
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return false
	}

	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
