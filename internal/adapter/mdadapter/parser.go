package mdadapter

import (
	"bytes"

	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

var (
	startSeq = []byte{'[', '['}
	endSeq   = []byte{']', ']'}
	descSeq  = []byte{'|'}
	allFiles = []byte("FILES")

	FileResolverKey = parser.NewContextKey()
)

/*
 * Wiki link
 * [[filename.txt]]
 * [[filename.txt|Description]]
 * [[FILES]] - all files
 */
type FileDirectiveParser struct{}

func NewFileDirectiveParser() parser.InlineParser {
	return &FileDirectiveParser{}
}

func (s *FileDirectiveParser) Trigger() []byte {
	return startSeq
}

func (s *FileDirectiveParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()
	if !bytes.HasPrefix(line, startSeq) {
		return nil
	}

	end := bytes.Index(line[len(startSeq):], endSeq)
	if end < 0 {
		return nil
	}

	body := bytes.TrimSpace(line[len(startSeq) : len(startSeq)+end])
	if len(body) == 0 {
		return nil
	}

	block.Advance(len(startSeq) + end + len(endSeq))

	directive := &FileDirective{}
	if bytes.Equal(body, allFiles) {
		directive.AllFiles = true
	} else {
		name, label, _ := bytes.Cut(body, descSeq)
		directive.Filename = string(bytes.TrimSpace(name))
		directive.Label = string(bytes.TrimSpace(label))
	}

	resolver, ok := pc.Get(FileResolverKey).(FileResolver)
	if !ok {
		return directive
	}

	if directive.AllFiles {
		directive.Links = resolver.GetFiles()

		return directive
	}

	if link, err := resolver.GetFile(directive.Filename); err == nil {
		directive.Link = link
	}

	return directive
}
