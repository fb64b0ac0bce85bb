package storagekit

import (
	"context"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

const (
	filePerm = 0o666
	dirPerm  = 0o755
)

// DirectFile is a file reached through ordinary hierarchical filesystem
// access. Its permission methods act on the process-wide storage grant and
// do not depend on the path.
type DirectFile struct {
	r    *Resolver
	path string
}

func newDirectFile(r *Resolver, p string) *DirectFile {
	return &DirectFile{r: r, path: Separator + NormalizePath(p)}
}

// Backend implements File
func (f *DirectFile) Backend() Backend { return BackendDirect }

// Path implements File
func (f *DirectFile) Path() string { return f.path }

// AbsolutePath implements File
func (f *DirectFile) AbsolutePath() string { return f.path }

// Name implements File
func (f *DirectFile) Name() string { return baseName(f.path) }

// ParentPath implements File. The last segment is dropped literally.
func (f *DirectFile) ParentPath() (string, error) {
	if f.path == Separator {
		return "", &PathError{Op: "parent", Path: f.path, Err: ErrInvalidPath}
	}
	i := strings.LastIndex(f.path, Separator)
	if i <= 0 {
		return Separator, nil
	}
	return f.path[:i], nil
}

// Parent implements File
func (f *DirectFile) Parent() (File, error) {
	parent, err := f.ParentPath()
	if err != nil {
		return nil, err
	}
	return f.r.Open(parent)
}

// Child implements File
func (f *DirectFile) Child(name string) (File, error) {
	if NormalizePath(name) == "" {
		return nil, &PathError{Op: "child", Path: f.path, Err: ErrInvalidPath}
	}
	return f.r.Open(ResolvePath(f.path, name))
}

// Stat implements File
func (f *DirectFile) Stat(ctx context.Context) (*FileInfo, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	info, err := f.r.fs.Stat(f.fsPath())
	if err != nil {
		return nil, storageError("stat", f.path, err)
	}

	fi := &FileInfo{
		Name:        f.Name(),
		DisplayName: info.Name(),
		Path:        f.path,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		IsDir:       info.IsDir(),
	}
	if !fi.IsDir {
		fi.ContentType = GuessContentType(fi.Name, nil)
	} else {
		fi.Size = 0
	}
	return fi, nil
}

// Open implements File
func (f *DirectFile) Open(ctx context.Context, mode Mode) (Stream, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	if info, err := f.r.fs.Stat(f.fsPath()); err == nil && info.IsDir() {
		return nil, &PathError{Op: "open", Path: f.path, Err: ErrIsDir}
	}

	var flag int
	switch mode {
	case ModeRead:
		flag = os.O_RDONLY
	case ModeOverwrite:
		flag = os.O_WRONLY | os.O_CREATE
	case ModeAppend:
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	case ModeTruncate:
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	default:
		return nil, &PathError{Op: "open", Path: f.path, Err: ErrNotSupported}
	}

	file, err := f.r.fs.OpenFile(f.fsPath(), flag, filePerm)
	if err != nil {
		return nil, storageError("open", f.path, err)
	}
	return file, nil
}

// List implements File
func (f *DirectFile) List(ctx context.Context) ([]string, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	info, err := f.r.fs.Stat(f.fsPath())
	if err != nil {
		return nil, storageError("list", f.path, err)
	}
	if !info.IsDir() {
		return nil, &PathError{Op: "list", Path: f.path, Err: ErrNotDir}
	}

	entries, err := afero.ReadDir(f.r.fs, f.fsPath())
	if err != nil {
		return nil, storageError("list", f.path, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

// CreateFile implements File
func (f *DirectFile) CreateFile(ctx context.Context) bool {
	if checkContext(ctx) != nil {
		return false
	}
	file, err := f.r.fs.OpenFile(f.fsPath(), os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		f.r.log.Debug("create failed", "path", f.path, "error", err)
		return false
	}
	return file.Close() == nil
}

// Mkdir implements File
func (f *DirectFile) Mkdir(ctx context.Context) bool {
	if checkContext(ctx) != nil {
		return false
	}
	if err := f.r.fs.Mkdir(f.fsPath(), dirPerm); err != nil {
		f.r.log.Debug("mkdir failed", "path", f.path, "error", err)
		return false
	}
	return true
}

// Rename implements File
func (f *DirectFile) Rename(ctx context.Context, name string) (File, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if err := validName(name); err != nil {
		return nil, &PathError{Op: "rename", Path: f.path, Err: err}
	}

	parent, err := f.ParentPath()
	if err != nil {
		return nil, err
	}
	target := newDirectFile(f.r, ResolvePath(parent, name))
	if err := f.r.fs.Rename(f.fsPath(), target.fsPath()); err != nil {
		return nil, storageError("rename", f.path, err)
	}
	return target, nil
}

// Delete implements File. Directories must be empty.
func (f *DirectFile) Delete(ctx context.Context) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	info, err := f.r.fs.Stat(f.fsPath())
	if err != nil {
		return storageError("delete", f.path, err)
	}
	if info.IsDir() {
		entries, err := afero.ReadDir(f.r.fs, f.fsPath())
		if err != nil {
			return storageError("delete", f.path, err)
		}
		if len(entries) > 0 {
			return &PathError{Op: "delete", Path: f.path, Err: ErrNotEmpty}
		}
	}

	if err := f.r.fs.Remove(f.fsPath()); err != nil {
		return storageError("delete", f.path, err)
	}
	return nil
}

// Exists implements File
func (f *DirectFile) Exists(ctx context.Context) bool {
	if checkContext(ctx) != nil {
		return false
	}
	_, err := f.r.fs.Stat(f.fsPath())
	return err == nil
}

// CheckPermission implements File
func (f *DirectFile) CheckPermission(ctx context.Context) bool {
	return f.r.broker.CheckStorageAccess(ctx)
}

// RequestPermission implements File
func (f *DirectFile) RequestPermission(ctx context.Context, host *Host, fn func(granted bool)) error {
	return f.r.broker.RequestStorageAccess(ctx, host, fn)
}

// ReleasePermission implements File
func (f *DirectFile) ReleasePermission(ctx context.Context) bool {
	return f.r.broker.ReleaseStorageAccess(ctx)
}

func (f *DirectFile) fsPath() string {
	return path.Clean(f.path)
}

// validName rejects names that are empty or would escape the parent.
func validName(name string) error {
	if name == "" || name == "." || name == ".." || strings.Contains(name, Separator) {
		return ErrInvalidPath
	}
	return nil
}

var _ File = (*DirectFile)(nil)
