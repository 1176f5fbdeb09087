package media

import "errors"

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrFileTooLarge    = errors.New("file exceeds maximum allowed size")
	ErrInvalidMimeType = errors.New("file type is not allowed")
	ErrMissingFile     = errors.New("file not found")
)

// IsRejected reports whether err means the file itself was unacceptable, as
// opposed to the store failing.
func IsRejected(err error) bool {
	return errors.Is(err, ErrEmptyFile) ||
		errors.Is(err, ErrInvalidMimeType) ||
		errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrMissingFile)
}
