package entity

import (
	"io"
	"time"
)

// ArchiveSummary is the listing projection of an archive.
type ArchiveSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Archive is one directory under the data root.
type Archive struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	Readme      *string              `json:"readme"` // nil when README.md is missing or unreadable
	Screenshots []*ArchiveScreenshot `json:"screenshots"`
	Files       []*ArchiveFile       `json:"files"`
}

type ArchiveScreenshot struct {
	Name string `json:"name"`
	Path string `json:"path"` // Root-relative, usable with /file/
}

type ArchiveFile struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// FileContent is an opened archive file. Content must be closed.
type FileContent struct {
	Name     string
	Path     string
	MIMEType string
	Size     int64
	ModTime  time.Time
	Content  io.ReadSeekCloser
}
