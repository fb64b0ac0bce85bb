package storagekit

import (
	"context"
	"errors"
	"io"
)

// CheckOrRequestPermission runs fn(true) at once when f's grant is held and
// otherwise starts a request from host. It never blocks on the user.
func CheckOrRequestPermission(ctx context.Context, f File, host *Host, fn func(granted bool)) error {
	if f.CheckPermission(ctx) {
		if fn != nil {
			fn(true)
		}
		return nil
	}
	return f.RequestPermission(ctx, host, fn)
}

// CreateChild creates the file name below dir.
func CreateChild(ctx context.Context, dir File, name string) bool {
	child, err := dir.Child(name)
	if err != nil {
		return false
	}
	return child.CreateFile(ctx)
}

// ListFiles resolves every child of dir. Children are re-classified, so the
// backend of a child may differ from the backend of dir.
func ListFiles(ctx context.Context, dir File) ([]File, error) {
	names, err := dir.List(ctx)
	if err != nil {
		return nil, err
	}
	files := make([]File, 0, len(names))
	for _, name := range names {
		child, err := dir.Child(name)
		if err != nil {
			return nil, err
		}
		files = append(files, child)
	}
	return files, nil
}

// IsDir reports whether f exists and is a directory.
func IsDir(ctx context.Context, f File) bool {
	info, err := f.Stat(ctx)
	return err == nil && info.IsDir
}

// Equal reports whether a and b address the same location.
func Equal(a, b File) bool {
	if a == nil || b == nil {
		return a == b
	}
	return NormalizePath(a.AbsolutePath()) == NormalizePath(b.AbsolutePath())
}

// CopyTo copies src onto dst. A file is created on dst if absent and its
// content replaced; a directory is created and each child is copied in
// turn. The copy is not atomic: a failure leaves whatever was copied so far.
func CopyTo(ctx context.Context, src, dst File) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	info, err := src.Stat(ctx)
	if err != nil {
		return err
	}
	if info.IsDir {
		return copyDir(ctx, src, dst)
	}
	return copyFile(ctx, src, dst)
}

func copyFile(ctx context.Context, src, dst File) error {
	dst.CreateFile(ctx)

	in, err := src.Open(ctx, ModeRead)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := dst.Open(ctx, ModeTruncate)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return storageError("copy", dst.Path(), err)
	}
	if err := out.Close(); err != nil {
		return storageError("copy", dst.Path(), err)
	}
	return nil
}

func copyDir(ctx context.Context, src, dst File) error {
	if !dst.Mkdir(ctx) && !IsDir(ctx, dst) {
		return &PathError{Op: "copy", Path: dst.Path(), Err: ErrIO}
	}

	names, err := src.List(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		from, err := src.Child(name)
		if err != nil {
			return err
		}
		to, err := dst.Child(name)
		if err != nil {
			return err
		}
		if err := CopyTo(ctx, from, to); err != nil {
			return err
		}
	}
	return nil
}

// MoveTo copies src onto dst and then deletes src with everything below it.
// The source is kept when the copy fails.
func MoveTo(ctx context.Context, src, dst File) error {
	if err := CopyTo(ctx, src, dst); err != nil {
		return err
	}
	return DeleteAll(ctx, src)
}

// DeleteAll removes f and, for a directory, everything below it. Document
// providers delete recursively on their own; the direct backend is walked.
func DeleteAll(ctx context.Context, f File) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if f.Backend() != BackendDirect {
		return f.Delete(ctx)
	}

	info, err := f.Stat(ctx)
	if err != nil {
		return err
	}
	if info.IsDir {
		children, err := ListFiles(ctx, f)
		if err != nil {
			return err
		}
		for _, child := range children {
			if err := DeleteAll(ctx, child); err != nil && !errors.Is(err, ErrNotExist) {
				return err
			}
		}
	}
	return f.Delete(ctx)
}

// Clear empties f by opening it in truncate mode.
func Clear(ctx context.Context, f File) error {
	stream, err := f.Open(ctx, ModeTruncate)
	if err != nil {
		return err
	}
	return stream.Close()
}
