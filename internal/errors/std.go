package errors

import stderrors "errors"

// FileError builds a file I/O error; the path itself is not recorded
func FileError(err error, filePath string, fileSize int64) *EnhancedError {
	return New(err).
		Category(CategoryFileIO).
		FileContext(filePath, fileSize).
		Build()
}

// IsCategory reports whether err wraps an EnhancedError of category
func IsCategory(err error, category ErrorCategory) bool {
	var ee *EnhancedError
	return As(err, &ee) && ee.Category == category
}

// NewStd creates a plain error
func NewStd(text string) error { return stderrors.New(text) }

// Is reports whether any error in err's tree matches target
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's tree that matches target
func As(err error, target any) bool { return stderrors.As(err, target) }

// Unwrap returns the result of calling the Unwrap method on err
func Unwrap(err error) error { return stderrors.Unwrap(err) }

// Join returns an error that wraps the given errors
func Join(errs ...error) error { return stderrors.Join(errs...) }
