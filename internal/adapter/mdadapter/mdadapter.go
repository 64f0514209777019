package mdadapter

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"

	_ "embed"

	"github.com/jgivc/archives/internal/common"
	"github.com/jgivc/archives/internal/entity"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"go.abhg.dev/goldmark/frontmatter"
)

const (
	tmplNamePage = "page"
)

//go:embed templates/readme.html
var defaultTemplateContent string

type Frontmatter struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Author      string `yaml:"author"`
}

type PageContext struct {
	Title       string
	Description string
	Author      string
	Content     template.HTML
	Screenshots []*FileLink
}

type readmeRenderer struct {
	md        goldmark.Markdown
	tmpl      *template.Template
	urlPrefix string

	log *slog.Logger
}

func NewReadmeRenderer(urlPrefix string, log *slog.Logger) (*readmeRenderer, error) {
	tmpl, err := template.New("").Parse(defaultTemplateContent)
	if err != nil {
		return nil, fmt.Errorf("cannot parse template content: %w", err)
	}

	for _, name := range []string{tmplNamePage, tmplNameFile, tmplNameFiles} {
		if tmpl.Lookup(name) == nil {
			return nil, fmt.Errorf("template with name %s must be defined", name)
		}
	}

	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Linkify,
			extension.TaskList,
			&frontmatter.Extender{},
			NewFilesExtension(tmpl),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	return &readmeRenderer{
		md:        md,
		tmpl:      tmpl,
		urlPrefix: urlPrefix,
		log:       log.With(slog.String("item", "ReadmeRenderer")),
	}, nil
}

// Render builds the HTML page of the archive readme.
func (r *readmeRenderer) Render(archive *entity.Archive) (*entity.Readme, error) {
	if archive.Readme == nil {
		return nil, common.ErrReadmeNotFound
	}

	resolver := newFileResolver(archive, r.urlPrefix)

	pc := parser.NewContext()
	pc.Set(FileResolverKey, resolver)

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(*archive.Readme), &buf, parser.WithContext(pc)); err != nil {
		return nil, fmt.Errorf("cannot convert markdown: %w", err)
	}

	var fm Frontmatter
	if data := frontmatter.Get(pc); data != nil {
		if err := data.Decode(&fm); err != nil {
			// Broken frontmatter must not hide the readme.
			r.log.Warn("Cannot decode frontmatter", slog.String("archive", archive.Name), slog.Any("error", err))
		}
	}

	if fm.Title == "" {
		fm.Title = archive.Name
	}

	screenshots := make([]*FileLink, 0, len(archive.Screenshots))
	for _, screenshot := range archive.Screenshots {
		screenshots = append(screenshots, newFileLink(screenshot.Name, screenshot.Path, r.urlPrefix))
	}

	page := bytes.Buffer{}
	err := r.tmpl.ExecuteTemplate(&page, tmplNamePage, &PageContext{
		Title:       fm.Title,
		Description: fm.Description,
		Author:      fm.Author,
		Content:     template.HTML(buf.String()),
		Screenshots: screenshots,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot build page: %w", err)
	}

	return &entity.Readme{
		ArchiveID:   archive.ID,
		Title:       fm.Title,
		Description: fm.Description,
		Author:      fm.Author,
		PageContent: page.String(),
	}, nil
}
