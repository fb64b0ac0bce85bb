package storagekit

import (
	"context"
	"fmt"
	"io"
	"time"
)

// FileInfo represents file/directory metadata
type FileInfo struct {
	Name        string
	DisplayName string
	Path        string
	Size        int64
	ModTime     time.Time
	IsDir       bool
	ContentType string
}

// IsFile reports whether the entry is not a directory.
func (fi *FileInfo) IsFile() bool {
	return !fi.IsDir
}

// Mode selects how a stream is opened.
type Mode int

const (
	// ModeRead opens for reading.
	ModeRead Mode = iota
	// ModeOverwrite writes from the start without truncating.
	ModeOverwrite
	// ModeAppend writes after the existing content.
	ModeAppend
	// ModeTruncate empties the file before writing.
	ModeTruncate
)

// String returns the one-letter form of the mode.
func (m Mode) String() string {
	switch m {
	case ModeRead:
		return "r"
	case ModeOverwrite:
		return "w"
	case ModeAppend:
		return "a"
	case ModeTruncate:
		return "t"
	default:
		return "?"
	}
}

// Writable reports whether the mode opens for writing.
func (m Mode) Writable() bool {
	return m != ModeRead
}

// ParseMode parses the one-letter form of a mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "r":
		return ModeRead, nil
	case "w":
		return ModeOverwrite, nil
	case "a":
		return ModeAppend, nil
	case "t":
		return ModeTruncate, nil
	default:
		return 0, fmt.Errorf("%w: unknown open mode %q", ErrNotSupported, s)
	}
}

// Stream is an open byte stream. Read-only streams fail on Write and
// write-only streams fail on Read.
type Stream interface {
	io.Reader
	io.Writer
	io.Closer
}

// File is the capability set shared by every backend. Values are cheap to
// construct and carry no resources; only streams returned by Open need to be
// closed.
//
// Query-style methods (Exists, CheckPermission) never fail: any fault
// collapses to false. CreateFile, Mkdir and ReleasePermission report success
// as a boolean.
type File interface {
	// Backend returns the storage mechanism the file is bound to.
	Backend() Backend

	// Path returns the path the file was opened with, normalized for the
	// backend. Opaque files return their handle.
	Path() string

	// AbsolutePath returns the path under the storage root.
	AbsolutePath() string

	// Name returns the last path segment.
	Name() string

	// ParentPath returns the parent's path without touching storage.
	ParentPath() (string, error)

	// Parent opens the parent directory.
	Parent() (File, error)

	// Child opens name below this file, re-classifying the joined path.
	Child(name string) (File, error)

	// Stat queries metadata. Nothing is cached between calls.
	Stat(ctx context.Context) (*FileInfo, error)

	// Open opens a byte stream. It never requests permission implicitly.
	Open(ctx context.Context, mode Mode) (Stream, error)

	// List returns the names of the immediate children.
	List(ctx context.Context) ([]string, error)

	// CreateFile creates the file if it is absent.
	CreateFile(ctx context.Context) bool

	// Mkdir creates the directory if it is absent.
	Mkdir(ctx context.Context) bool

	// Rename renames the file and returns a File bound to the new name. The
	// receiver is stale afterwards.
	Rename(ctx context.Context, name string) (File, error)

	// Delete removes the file.
	Delete(ctx context.Context) error

	// Exists reports whether the file is present.
	Exists(ctx context.Context) bool

	// CheckPermission reports whether the grant covering this file is held.
	CheckPermission(ctx context.Context) bool

	// RequestPermission asks the host to show a consent flow. fn runs later,
	// once, on the goroutine that delivers the outcome.
	RequestPermission(ctx context.Context, host *Host, fn func(granted bool)) error

	// ReleasePermission gives the grant back. Failures report false.
	ReleasePermission(ctx context.Context) bool
}

// Handled is implemented by files addressed through the document tree.
type Handled interface {
	Handle() NodeHandle
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
