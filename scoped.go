package storagekit

import (
	"context"
	"strings"
)

// ScopedFile is a node of the permission-scoped document tree. Every
// operation that touches storage first asks the broker whether the grant on
// the file's RootHandle is held.
//
// Paths are kept literal: the parent of "Android/data/x/a.txt" is
// "/Android/data/x/a.txt/..", and the provider resolves the ".." segment.
type ScopedFile struct {
	r    *Resolver
	path string
	root RootHandle
	node NodeHandle
}

func newScopedFile(r *Resolver, documentPath string) (*ScopedFile, error) {
	documentPath = NormalizePath(documentPath)
	root, node, err := r.builder.Handles(documentPath)
	if err != nil {
		return nil, err
	}
	return &ScopedFile{r: r, path: documentPath, root: root, node: node}, nil
}

// Backend implements File
func (f *ScopedFile) Backend() Backend { return BackendScoped }

// Path implements File. It is the document path, e.g. "Android/data/x/a.txt".
func (f *ScopedFile) Path() string { return f.path }

// AbsolutePath implements File
func (f *ScopedFile) AbsolutePath() string { return f.r.platform.AbsolutePath(f.path) }

// Name implements File
func (f *ScopedFile) Name() string { return baseName(f.path) }

// Root returns the tree the file's grant is keyed by.
func (f *ScopedFile) Root() RootHandle { return f.root }

// Handle implements Handled
func (f *ScopedFile) Handle() NodeHandle { return f.node }

// ParentPath implements File
func (f *ScopedFile) ParentPath() (string, error) {
	return Separator + f.path + Separator + "..", nil
}

// Parent implements File
func (f *ScopedFile) Parent() (File, error) {
	parent, _ := f.ParentPath()
	return f.r.Open(f.r.platform.AbsolutePath(parent))
}

// Child implements File
func (f *ScopedFile) Child(name string) (File, error) {
	if NormalizePath(name) == "" {
		return nil, &PathError{Op: "child", Path: f.path, Err: ErrInvalidPath}
	}
	return f.r.Open(f.AbsolutePath() + Separator + NormalizePath(name))
}

// Stat implements File
func (f *ScopedFile) Stat(ctx context.Context) (*FileInfo, error) {
	if err := f.requireGrant(ctx, "stat"); err != nil {
		return nil, err
	}
	doc, err := f.r.docs.Query(ctx, f.node)
	if err != nil {
		return nil, storageError("stat", f.path, err)
	}
	return documentInfo(f.Name(), f.path, doc), nil
}

// Open implements File
func (f *ScopedFile) Open(ctx context.Context, mode Mode) (Stream, error) {
	if err := f.requireGrant(ctx, "open"); err != nil {
		return nil, err
	}
	stream, err := f.r.docs.Open(ctx, f.node, mode)
	if err != nil {
		return nil, storageError("open", f.path, err)
	}
	return stream, nil
}

// List implements File
func (f *ScopedFile) List(ctx context.Context) ([]string, error) {
	if err := f.requireGrant(ctx, "list"); err != nil {
		return nil, err
	}
	ids, err := f.r.docs.ListChildren(ctx, f.node)
	if err != nil {
		return nil, storageError("list", f.path, err)
	}
	return childNames(ids), nil
}

// CreateFile implements File
func (f *ScopedFile) CreateFile(ctx context.Context) bool {
	return f.createNode(ctx, GuessContentType(f.Name(), nil))
}

// Mkdir implements File
func (f *ScopedFile) Mkdir(ctx context.Context) bool {
	return f.createNode(ctx, MimeTypeDir)
}

// createNode creates the file under the node built from the literal parent
// path. Existence is re-queried first.
func (f *ScopedFile) createNode(ctx context.Context, mimeType string) bool {
	if !f.CheckPermission(ctx) || f.Exists(ctx) {
		return false
	}

	parentPath, _ := f.ParentPath()
	parent, err := f.r.builder.Node(parentPath)
	if err != nil {
		f.r.log.Debug("create failed", "path", f.path, "error", err)
		return false
	}
	if _, err := f.r.docs.CreateDocument(ctx, parent, mimeType, f.Name()); err != nil {
		f.r.log.Debug("create failed", "path", f.path, "error", err)
		return false
	}
	return true
}

// Rename implements File
func (f *ScopedFile) Rename(ctx context.Context, name string) (File, error) {
	if err := f.requireGrant(ctx, "rename"); err != nil {
		return nil, err
	}
	if err := validName(name); err != nil {
		return nil, &PathError{Op: "rename", Path: f.path, Err: err}
	}
	if _, err := f.r.docs.RenameDocument(ctx, f.node, name); err != nil {
		return nil, storageError("rename", f.path, err)
	}

	parent, _ := f.ParentPath()
	return newScopedFile(f.r, ResolvePath(parent, name))
}

// Delete implements File
func (f *ScopedFile) Delete(ctx context.Context) error {
	if err := f.requireGrant(ctx, "delete"); err != nil {
		return err
	}
	if err := f.r.docs.DeleteDocument(ctx, f.node); err != nil {
		return storageError("delete", f.path, err)
	}
	return nil
}

// Exists implements File
func (f *ScopedFile) Exists(ctx context.Context) bool {
	if !f.CheckPermission(ctx) {
		return false
	}
	_, err := f.r.docs.Query(ctx, f.node)
	return err == nil
}

// CheckPermission implements File
func (f *ScopedFile) CheckPermission(ctx context.Context) bool {
	return f.r.broker.CheckPermission(ctx, f.root)
}

// RequestPermission implements File
func (f *ScopedFile) RequestPermission(ctx context.Context, host *Host, fn func(granted bool)) error {
	return f.r.broker.RequestPermission(ctx, host, f.root, fn)
}

// ReleasePermission implements File
func (f *ScopedFile) ReleasePermission(ctx context.Context) bool {
	return f.r.broker.ReleasePermission(ctx, f.root)
}

func (f *ScopedFile) requireGrant(ctx context.Context, op string) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if !f.CheckPermission(ctx) {
		return &PathError{Op: op, Path: f.path, Err: ErrPermission}
	}
	return nil
}

// documentInfo maps a provider row onto FileInfo.
func documentInfo(name, p string, doc *Document) *FileInfo {
	fi := &FileInfo{
		Name:        name,
		DisplayName: doc.DisplayName,
		Path:        p,
		Size:        doc.Size,
		ModTime:     doc.LastModified,
		IsDir:       doc.IsDir(),
	}
	if !fi.IsDir {
		fi.ContentType = doc.MimeType
	}
	return fi
}

// childNames keeps the last segment of each document ID.
func childNames(ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if i := strings.LastIndex(id, Separator); i >= 0 {
			id = id[i+1:]
		}
		names = append(names, id)
	}
	return names
}

var (
	_ File    = (*ScopedFile)(nil)
	_ Handled = (*ScopedFile)(nil)
)
