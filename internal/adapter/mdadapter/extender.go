package mdadapter

import (
	"html/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// Runs before the link parser, which also triggers on '['.
const directivePriority = 199

type FilesExtension struct {
	tmpl *template.Template
}

// NewFilesExtension renders file directives with the FILE and FILES
// templates of tmpl. Files are resolved through the FileResolver stored
// in the parser context under FileResolverKey.
func NewFilesExtension(tmpl *template.Template) goldmark.Extender {
	return &FilesExtension{tmpl: tmpl}
}

func (e *FilesExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(
		parser.WithInlineParsers(
			util.Prioritized(NewFileDirectiveParser(), directivePriority),
		),
	)
	m.Renderer().AddOptions(
		renderer.WithNodeRenderers(
			util.Prioritized(NewFileDirectiveRenderer(e.tmpl), directivePriority),
		),
	)
}
