package mdadapter

import (
	"github.com/yuin/goldmark/ast"
)

var KindFileDirective = ast.NewNodeKind("FileDirective")

// FileDirective is a wiki style reference to archive files:
// [[name]], [[name|label]] or [[FILES]].
type FileDirective struct {
	ast.BaseInline
	Filename string
	Label    string
	AllFiles bool

	Link  *FileLink   // Resolved [[name]], nil if the archive has no such file
	Links []*FileLink // Resolved [[FILES]]
}

func (n *FileDirective) Kind() ast.NodeKind {
	return KindFileDirective
}

func (n *FileDirective) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"Filename": n.Filename,
		"Label":    n.Label,
	}, nil)
}
