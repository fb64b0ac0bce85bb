package storagekit

import (
	"context"
	"errors"
)

// ErrReadOnly is returned when a write operation is attempted on a read-only file.
var ErrReadOnly = errors.New("file is read-only")

// ReadOnlyFile wraps a File to prevent every write operation. Navigation
// returns read-only files too, so a read-only view of a directory stays
// read-only all the way down.
//
// Example:
//
//	dir, _ := kio.Open("/sdcard/Android/data/com.example/files")
//	view := storagekit.ReadOnly(dir)
//
//	// Reads work normally
//	names, _ := view.List(ctx)
//
//	// Writes fail with ErrReadOnly
//	_, err := view.Open(ctx, storagekit.ModeTruncate)
type ReadOnlyFile struct {
	File
	opts ReadOnlyOptions
}

// ReadOnlyOptions configures the ReadOnlyFile behavior.
type ReadOnlyOptions struct {
	// AllowCreateDir permits directory creation even in read-only mode.
	// Default: false
	AllowCreateDir bool

	// AllowDelete permits deletion in read-only mode.
	// Default: false
	AllowDelete bool

	// OnWriteAttempt is called when a write operation is attempted.
	// If this function returns nil, the write is allowed (use carefully).
	OnWriteAttempt func(op, path string) error
}

// ReadOnlyOption is a functional option for configuring ReadOnlyFile.
type ReadOnlyOption func(*ReadOnlyOptions)

// WithAllowCreateDir allows directory creation in read-only mode.
func WithAllowCreateDir(allow bool) ReadOnlyOption {
	return func(o *ReadOnlyOptions) {
		o.AllowCreateDir = allow
	}
}

// WithAllowDelete allows deletion in read-only mode.
func WithAllowDelete(allow bool) ReadOnlyOption {
	return func(o *ReadOnlyOptions) {
		o.AllowDelete = allow
	}
}

// WithOnWriteAttempt sets a callback invoked on write attempts.
func WithOnWriteAttempt(fn func(op, path string) error) ReadOnlyOption {
	return func(o *ReadOnlyOptions) {
		o.OnWriteAttempt = fn
	}
}

// ReadOnly wraps f. Wrapping a ReadOnlyFile again replaces its options.
func ReadOnly(f File, opts ...ReadOnlyOption) *ReadOnlyFile {
	if ro, ok := f.(*ReadOnlyFile); ok {
		f = ro.File
	}
	options := ReadOnlyOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	return &ReadOnlyFile{File: f, opts: options}
}

// Unwrap returns the underlying File.
func (r *ReadOnlyFile) Unwrap() File {
	return r.File
}

func (r *ReadOnlyFile) deny(op string) error {
	if r.opts.OnWriteAttempt != nil {
		return r.opts.OnWriteAttempt(op, r.Path())
	}
	return &PathError{Op: op, Path: r.Path(), Err: ErrReadOnly}
}

// Open allows ModeRead only.
func (r *ReadOnlyFile) Open(ctx context.Context, mode Mode) (Stream, error) {
	if mode.Writable() {
		if err := r.deny("open"); err != nil {
			return nil, err
		}
	}
	return r.File.Open(ctx, mode)
}

// CreateFile always fails unless OnWriteAttempt allows it.
func (r *ReadOnlyFile) CreateFile(ctx context.Context) bool {
	if r.deny("create") != nil {
		return false
	}
	return r.File.CreateFile(ctx)
}

// Mkdir fails unless AllowCreateDir is set.
func (r *ReadOnlyFile) Mkdir(ctx context.Context) bool {
	if !r.opts.AllowCreateDir && r.deny("mkdir") != nil {
		return false
	}
	return r.File.Mkdir(ctx)
}

// Rename implements File
func (r *ReadOnlyFile) Rename(ctx context.Context, name string) (File, error) {
	if err := r.deny("rename"); err != nil {
		return nil, err
	}
	f, err := r.File.Rename(ctx, name)
	if err != nil {
		return nil, err
	}
	return r.wrap(f), nil
}

// Delete fails unless AllowDelete is set.
func (r *ReadOnlyFile) Delete(ctx context.Context) error {
	if !r.opts.AllowDelete {
		if err := r.deny("delete"); err != nil {
			return err
		}
	}
	return r.File.Delete(ctx)
}

// Parent implements File
func (r *ReadOnlyFile) Parent() (File, error) {
	f, err := r.File.Parent()
	if err != nil {
		return nil, err
	}
	return r.wrap(f), nil
}

// Child implements File
func (r *ReadOnlyFile) Child(name string) (File, error) {
	f, err := r.File.Child(name)
	if err != nil {
		return nil, err
	}
	return r.wrap(f), nil
}

func (r *ReadOnlyFile) wrap(f File) File {
	return &ReadOnlyFile{File: f, opts: r.opts}
}

var _ File = (*ReadOnlyFile)(nil)
