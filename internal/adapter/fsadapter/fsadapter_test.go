package fsadapter

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/jgivc/archives/internal/common"
	"github.com/jgivc/archives/internal/config"
	"github.com/jgivc/archives/internal/entity"
	"github.com/jgivc/archives/internal/util"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const testRoot = "/data"

func newTestScanner(t *testing.T, files map[string]string, dirs ...string) (*scanner, afero.Fs) {
	t.Helper()

	appCFG := &config.Config{}
	appCFG.ScannerConfig.DataPath = testRoot
	appCFG.SetDefaults()

	fs := afero.NewMemMapFs()
	for _, dir := range dirs {
		require.NoError(t, fs.MkdirAll(filepath.Join(testRoot, dir), 0755))
	}

	for name, content := range files {
		fileName := filepath.Join(testRoot, name)
		require.NoError(t, fs.MkdirAll(filepath.Dir(fileName), 0755))
		require.NoError(t, afero.WriteFile(fs, fileName, []byte(content), 0644))
	}

	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	s, err := NewScannerWithFS(fs, &appCFG.ScannerConfig, log)
	require.NoError(t, err)

	return s, fs
}

func TestListArchives(t *testing.T) {
	testCases := []struct {
		name     string
		files    map[string]string
		dirs     []string
		expected []*entity.ArchiveSummary
	}{
		{
			name:     "empty root",
			expected: []*entity.ArchiveSummary{},
		},
		{
			name: "dirs only, sorted, hidden skipped",
			files: map[string]string{
				"loose.txt":         "not an archive",
				".hidden/README.md": "hidden",
			},
			dirs: []string{"zeta", "alpha", "Mid Name"},
			expected: []*entity.ArchiveSummary{
				{ID: util.EncodeID("Mid Name"), Name: "Mid Name"},
				{ID: util.EncodeID("alpha"), Name: "alpha"},
				{ID: util.EncodeID("zeta"), Name: "zeta"},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, _ := newTestScanner(t, tc.files, tc.dirs...)

			archives, err := s.ListArchives()
			require.NoError(t, err)
			require.NotNil(t, archives)
			require.Equal(t, tc.expected, archives)
		})
	}
}

func TestNewScannerCreatesRoot(t *testing.T) {
	fs := afero.NewMemMapFs()
	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	_, err := NewScannerWithFS(fs, &config.ScannerConfig{DataPath: "/not/yet"}, log)
	require.NoError(t, err)

	exists, err := afero.DirExists(fs, "/not/yet")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestGetArchiveEmpty(t *testing.T) {
	s, _ := newTestScanner(t, nil, "bare")

	archive, err := s.GetArchiveByName("bare")
	require.NoError(t, err)
	require.Equal(t, util.EncodeID("bare"), archive.ID)
	require.Equal(t, "bare", archive.Name)
	require.Nil(t, archive.Readme)
	require.NotNil(t, archive.Screenshots)
	require.Empty(t, archive.Screenshots)
	require.NotNil(t, archive.Files)
	require.Empty(t, archive.Files)
}

func TestGetArchiveFull(t *testing.T) {
	s, _ := newTestScanner(t, map[string]string{
		"game/README.md":              "# Game\n",
		"game/screenshots/b.png":      "png",
		"game/screenshots/a.PNG":      "png",
		"game/screenshots/photo.TXT":  "txt",
		"game/screenshots/.DS_Store":  "",
		"game/screenshots/Thumbs.db":  "",
		"game/screenshots/vector.svg": "<svg/>",
		"game/files/setup.exe":        "exe",
		"game/files/.DS_Store":        "",
		"game/files/.gitkeep":         "",
		"game/files/manual.pdf":       "pdf",
		"game/files/nested/deep.txt":  "ignored, not immediate",
		"game/other/unrelated.txt":    "",
	})

	archive, err := s.GetArchiveByID(util.EncodeID("game"))
	require.NoError(t, err)

	require.NotNil(t, archive.Readme)
	require.Equal(t, "# Game\n", *archive.Readme)

	require.Equal(t, []*entity.ArchiveScreenshot{
		{Name: "a.PNG", Path: "game/screenshots/a.PNG"},
		{Name: "b.png", Path: "game/screenshots/b.png"},
		{Name: "vector.svg", Path: "game/screenshots/vector.svg"},
	}, archive.Screenshots)

	require.Equal(t, []*entity.ArchiveFile{
		{Name: "manual.pdf", Path: "game/files/manual.pdf"},
		{Name: "setup.exe", Path: "game/files/setup.exe"},
	}, archive.Files)
}

func TestGetArchiveSubdirsAreFiles(t *testing.T) {
	s, _ := newTestScanner(t, map[string]string{
		"odd/screenshots": "a file, not a directory",
		"odd/files":       "a file, not a directory",
	})

	archive, err := s.GetArchiveByName("odd")
	require.NoError(t, err)
	require.Empty(t, archive.Screenshots)
	require.Empty(t, archive.Files)
}

func TestGetArchiveNotFound(t *testing.T) {
	s, _ := newTestScanner(t, map[string]string{
		"file.txt": "",
	}, "present", ".hidden")

	for _, id := range []string{
		util.EncodeID("missing"),
		util.EncodeID("file.txt"),
		util.EncodeID(".hidden"),
		util.EncodeID(".."),
		"not base64!",
		"",
	} {
		_, err := s.GetArchiveByID(id)
		require.ErrorIs(t, err, common.ErrArchiveNotFound, "id %q", id)
	}

	_, err := s.GetArchiveByName("present/../present")
	require.ErrorIs(t, err, common.ErrArchiveNotFound)
}

func TestResolveFilePath(t *testing.T) {
	s, _ := newTestScanner(t, map[string]string{
		"game/files/setup.exe": "exe",
		"secret.txt":           "root level file",
		".hidden/files/x.txt":  "hidden archive",
		".git/config":          "hidden dir",
	})

	p, err := s.ResolveFilePath("game/files/setup.exe")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(testRoot, "game", "files", "setup.exe"), p)

	p, err = s.ResolveFilePath("game/./files//setup.exe")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(testRoot, "game", "files", "setup.exe"), p)

	for _, rel := range []string{
		"",
		"game",
		"game/files",
		"game/files/missing.exe",
		"../etc/passwd",
		"../../etc/passwd",
		"game/../../etc/passwd",
		"game/../secret.txt",
		"/etc/passwd",
		"..\\..\\etc\\passwd",
		"game/files/setup.exe\x00.png",
		".",
		".hidden/files/x.txt",
		".git/config",
	} {
		_, err := s.ResolveFilePath(rel)
		require.ErrorIs(t, err, common.ErrFileNotFound, "path %q", rel)
	}
}

func TestOpenFile(t *testing.T) {
	s, _ := newTestScanner(t, map[string]string{
		"game/files/notes.txt": "hello",
	})

	file, stat, err := s.OpenFile("game/files/notes.txt")
	require.NoError(t, err)
	defer file.Close()

	require.Equal(t, "notes.txt", stat.Name())
	require.EqualValues(t, 5, stat.Size())

	data, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))

	_, _, err = s.OpenFile("game/files")
	require.ErrorIs(t, err, common.ErrFileNotFound)

	_, _, err = s.OpenFile("../data/game/files/notes.txt")
	require.ErrorIs(t, err, common.ErrFileNotFound)
}

func TestMimeType(t *testing.T) {
	s, _ := newTestScanner(t, map[string]string{
		"game/files/readme.txt": "plain",
		"game/files/page":       "<html><body>hi</body></html>",
		"game/files/blob":       "\x00\x01\x02\x03",
	})

	mimeType, err := s.MimeType("game/files/readme.txt")
	require.NoError(t, err)
	require.Equal(t, "text/plain; charset=utf-8", mimeType)

	mimeType, err = s.MimeType("game/files/page")
	require.NoError(t, err)
	require.Equal(t, "text/html; charset=utf-8", mimeType)

	mimeType, err = s.MimeType("game/files/blob")
	require.NoError(t, err)
	require.Equal(t, "application/octet-stream", mimeType)
}

func TestScannerFollowsSymlinksOnlyInsideRoot(t *testing.T) {
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("secret"), 0644))

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "game", "files"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "game", "files", "real.txt"), []byte("real"), 0644))

	if err := os.Symlink(filepath.Join(outside, "secret.txt"), filepath.Join(root, "game", "files", "link.txt")); err != nil {
		t.Skipf("symlinks are not supported: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	s, err := NewScanner(&config.ScannerConfig{DataPath: root}, log)
	require.NoError(t, err)

	_, err = s.ResolveFilePath("game/files/real.txt")
	require.NoError(t, err)

	_, err = s.ResolveFilePath("game/files/link.txt")
	require.ErrorIs(t, err, common.ErrFileNotFound)
}

func TestScannerSkipsArchivesOutsideRoot(t *testing.T) {
	outside := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(outside, "files"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "files", "x.txt"), []byte("outside"), 0644))

	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "game"), 0755))

	if err := os.Symlink(outside, filepath.Join(root, "linked")); err != nil {
		t.Skipf("symlinks are not supported: %v", err)
	}

	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	s, err := NewScanner(&config.ScannerConfig{DataPath: root}, log)
	require.NoError(t, err)

	archives, err := s.ListArchives()
	require.NoError(t, err)
	require.Equal(t, []*entity.ArchiveSummary{{ID: util.EncodeID("game"), Name: "game"}}, archives)

	_, err = s.GetArchiveByName("linked")
	require.ErrorIs(t, err, common.ErrArchiveNotFound)

	_, err = s.ResolveFilePath("linked/files/x.txt")
	require.ErrorIs(t, err, common.ErrFileNotFound)
}
