package mdadapter

import (
	"fmt"
	"html/template"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

const (
	tmplNameFile  = "FILE"
	tmplNameFiles = "FILES"
)

type FileDirectiveRenderer struct {
	tmpl *template.Template
}

func NewFileDirectiveRenderer(tmpl *template.Template) renderer.NodeRenderer {
	return &FileDirectiveRenderer{tmpl: tmpl}
}

func (r *FileDirectiveRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindFileDirective, r.renderFileDirective)
}

func (r *FileDirectiveRenderer) renderFileDirective(w util.BufWriter, source []byte, n ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	directive, ok := n.(*FileDirective)
	if !ok {
		return ast.WalkStop, fmt.Errorf("unexpected node %T, expected *FileDirective", n)
	}

	if directive.AllFiles {
		if err := r.renderTemplate(w, tmplNameFiles, directive.Links); err != nil {
			return ast.WalkStop, err
		}

		return ast.WalkContinue, nil
	}

	if directive.Link == nil {
		// Unknown file, keep the text.
		text := directive.Filename
		if directive.Label != "" {
			text = directive.Label
		}

		_, _ = w.Write(util.EscapeHTML([]byte(text)))

		return ast.WalkContinue, nil
	}

	link := *directive.Link
	if directive.Label != "" {
		link.Label = directive.Label
	}

	if err := r.renderTemplate(w, tmplNameFile, &link); err != nil {
		return ast.WalkStop, err
	}

	return ast.WalkContinue, nil
}

func (r *FileDirectiveRenderer) renderTemplate(w util.BufWriter, tmplName string, data any) error {
	tmpl := r.tmpl.Lookup(tmplName)
	if tmpl == nil {
		return fmt.Errorf("template with name %s must be defined", tmplName)
	}

	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("cannot execute template: %w", err)
	}

	return nil
}
