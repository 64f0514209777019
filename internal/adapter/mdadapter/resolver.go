package mdadapter

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/jgivc/archives/internal/entity"
)

const (
	buildIndexThreshold = 5
)

// FileLink is what the FILE and FILES templates receive.
type FileLink struct {
	Name  string
	Label string
	URL   string
}

type FileResolver interface {
	GetFile(fileName string) (*FileLink, error)
	GetFiles() []*FileLink
}

type fileResolver struct {
	files []*FileLink // Archive files, the [[FILES]] list
	all   []*FileLink // Files, then screenshots
	index map[string]int
}

func newFileResolver(archive *entity.Archive, urlPrefix string) *fileResolver {
	r := &fileResolver{
		files: make([]*FileLink, 0, len(archive.Files)),
		all:   make([]*FileLink, 0, len(archive.Files)+len(archive.Screenshots)),
	}

	for _, file := range archive.Files {
		link := newFileLink(file.Name, file.Path, urlPrefix)
		r.files = append(r.files, link)
		r.all = append(r.all, link)
	}

	for _, screenshot := range archive.Screenshots {
		r.all = append(r.all, newFileLink(screenshot.Name, screenshot.Path, urlPrefix))
	}

	return r
}

func newFileLink(name, path, urlPrefix string) *FileLink {
	return &FileLink{
		Name:  name,
		Label: name,
		URL:   FileURL(urlPrefix, path),
	}
}

// FileURL returns the download URL of a root-relative file path.
func FileURL(urlPrefix, path string) string {
	segments := strings.Split(path, "/")
	for i := range segments {
		segments[i] = url.PathEscape(segments[i])
	}

	return strings.TrimSuffix(urlPrefix, "/") + "/file/" + strings.Join(segments, "/")
}

// GetFile returns a copy, so callers may change the label.
func (r *fileResolver) GetFile(fileName string) (*FileLink, error) {
	if r.index == nil && len(r.all) > buildIndexThreshold {
		r.buildIndex()
	}

	if r.index != nil {
		if idx, ok := r.index[fileName]; ok {
			link := *r.all[idx]

			return &link, nil
		}

		return nil, fmt.Errorf("cannot find file: %s", fileName)
	}

	for i := range r.all {
		if r.all[i].Name == fileName {
			link := *r.all[i]

			return &link, nil
		}
	}

	return nil, fmt.Errorf("cannot find file: %s", fileName)
}

func (r *fileResolver) buildIndex() {
	index := make(map[string]int, len(r.all))
	for i := len(r.all) - 1; i >= 0; i-- {
		index[r.all[i].Name] = i
	}

	r.index = index
}

func (r *fileResolver) GetFiles() []*FileLink {
	return r.files
}
