package publisher

import "codeberg.org/mutker/hostwatch/internal/errors"

const (
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrMissingDep    = errors.ErrorCode("publisher_missing_dependency")
	ErrLiveWrite     = errors.ErrWriteLive
	ErrArchiveWrite  = errors.ErrWriteArchive
	ErrArchiveName   = errors.ErrorCode("publisher_archive_name_failed")
)
