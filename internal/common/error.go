package common

import "fmt"

var (
	ErrArchiveNotFound  = fmt.Errorf("archive not found")
	ErrFileNotFound     = fmt.Errorf("file not found")
	ErrInvalidID        = fmt.Errorf("invalid archive id")
	ErrReadmeNotFound   = fmt.Errorf("readme not found")
	ErrCountersDisabled = fmt.Errorf("download counters are disabled")
)
