package storagekit

import (
	"errors"
	"fmt"
	"io/fs"
)

// Common storage errors
var (
	ErrInvalidPath          = errors.New("invalid path")
	ErrNotExist             = errors.New("file does not exist")
	ErrExist                = errors.New("file already exists")
	ErrPermission           = errors.New("permission denied")
	ErrNoInteractiveContext = errors.New("no interactive context to request permission from")
	ErrNotSupported         = errors.New("operation not supported")
	ErrIO                   = errors.New("i/o error")
	ErrNotDir               = errors.New("not a directory")
	ErrIsDir                = errors.New("is a directory")
	ErrNotEmpty             = errors.New("directory not empty")
)

// PathError records an error and the operation and file path that caused it
type PathError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface
func (e *PathError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *PathError) Unwrap() error {
	return e.Err
}

// IsInvalidPath reports whether a path could not be turned into a handle
func IsInvalidPath(err error) bool {
	return errors.Is(err, ErrInvalidPath)
}

// IsNotExist reports whether an error indicates that a file or directory
// does not exist
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}

// IsExist reports whether an error indicates that a file or directory
// already exists
func IsExist(err error) bool {
	return errors.Is(err, ErrExist)
}

// IsPermission reports whether an error indicates that permission is denied
func IsPermission(err error) bool {
	return errors.Is(err, ErrPermission)
}

// IsNotSupported reports whether the backend does not implement the operation
func IsNotSupported(err error) bool {
	return errors.Is(err, ErrNotSupported)
}

// IsNoInteractiveContext reports whether a permission request was refused
// because the acting host cannot show a consent flow
func IsNoInteractiveContext(err error) bool {
	return errors.Is(err, ErrNoInteractiveContext)
}

// storageError wraps a failure coming from a storage primitive. Failures that
// match a known class are mapped onto our sentinels; anything else is tagged
// as ErrIO while keeping the original cause reachable.
func storageError(op, path string, err error) error {
	if err == nil {
		return nil
	}

	var pe *PathError
	if errors.As(err, &pe) {
		return err
	}

	switch {
	case errors.Is(err, ErrNotExist), errors.Is(err, ErrExist), errors.Is(err, ErrPermission),
		errors.Is(err, ErrNotSupported), errors.Is(err, ErrInvalidPath), errors.Is(err, ErrIO),
		errors.Is(err, ErrNotDir), errors.Is(err, ErrIsDir), errors.Is(err, ErrNotEmpty):
		return &PathError{Op: op, Path: path, Err: err}
	case errors.Is(err, fs.ErrNotExist):
		return &PathError{Op: op, Path: path, Err: fmt.Errorf("%w: %w", ErrNotExist, err)}
	case errors.Is(err, fs.ErrExist):
		return &PathError{Op: op, Path: path, Err: fmt.Errorf("%w: %w", ErrExist, err)}
	case errors.Is(err, fs.ErrPermission):
		return &PathError{Op: op, Path: path, Err: fmt.Errorf("%w: %w", ErrPermission, err)}
	case errors.Is(err, errors.ErrUnsupported):
		return &PathError{Op: op, Path: path, Err: fmt.Errorf("%w: %w", ErrNotSupported, err)}
	}

	return &PathError{Op: op, Path: path, Err: fmt.Errorf("%w: %w", ErrIO, err)}
}
