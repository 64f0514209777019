package entity

// Readme is a rendered README page of an archive.
type Readme struct {
	ArchiveID   string
	Title       string
	Description string
	Author      string
	PageContent string // Full HTML page
}

// DownloadCounters maps file names of an archive to their download count.
type DownloadCounters struct {
	ArchiveID string           `json:"id"`
	Files     map[string]int64 `json:"files"`
}
