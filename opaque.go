package storagekit

import (
	"context"
	"strings"
)

// OpaqueFile wraps a handle the caller obtained elsewhere, such as a result
// of a document picker. Its path cannot be derived, so navigation is not
// supported. Access rides on whatever grant came with the handle; the
// provider enforces it.
type OpaqueFile struct {
	r    *Resolver
	node NodeHandle
}

func newOpaqueFile(r *Resolver, node NodeHandle) *OpaqueFile {
	return &OpaqueFile{r: r, node: node}
}

// Backend implements File
func (f *OpaqueFile) Backend() Backend { return BackendOpaque }

// Path implements File. It is the handle itself.
func (f *OpaqueFile) Path() string { return f.node.String() }

// AbsolutePath implements File. An opaque file has no location outside its
// handle, so the handle is returned.
func (f *OpaqueFile) AbsolutePath() string { return f.node.String() }

// Handle implements Handled
func (f *OpaqueFile) Handle() NodeHandle { return f.node }

// Name implements File. It is the last segment of the decoded document ID
// when the handle carries one, and the provider's display name otherwise.
func (f *OpaqueFile) Name() string {
	if documentPath, err := f.node.DocumentPath(); err == nil {
		return baseName(documentPath)
	}
	if doc, err := f.r.docs.Query(context.Background(), f.node); err == nil {
		return f.nameOf(doc)
	}
	return f.lastSegment()
}

func (f *OpaqueFile) nameOf(doc *Document) string {
	if documentPath, err := f.node.DocumentPath(); err == nil {
		return baseName(documentPath)
	}
	if doc.DisplayName != "" {
		return doc.DisplayName
	}
	return f.lastSegment()
}

func (f *OpaqueFile) lastSegment() string {
	s := f.node.String()
	if i := strings.LastIndex(s, Separator); i >= 0 {
		return s[i+1:]
	}
	return s
}

// ParentPath implements File
func (f *OpaqueFile) ParentPath() (string, error) {
	return "", &PathError{Op: "parent", Path: f.node.String(), Err: ErrNotSupported}
}

// Parent implements File
func (f *OpaqueFile) Parent() (File, error) {
	return nil, &PathError{Op: "parent", Path: f.node.String(), Err: ErrNotSupported}
}

// Child implements File
func (f *OpaqueFile) Child(string) (File, error) {
	return nil, &PathError{Op: "child", Path: f.node.String(), Err: ErrNotSupported}
}

// Stat implements File
func (f *OpaqueFile) Stat(ctx context.Context) (*FileInfo, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	doc, err := f.r.docs.Query(ctx, f.node)
	if err != nil {
		return nil, storageError("stat", f.node.String(), err)
	}
	return documentInfo(f.nameOf(doc), f.node.String(), doc), nil
}

// Open implements File
func (f *OpaqueFile) Open(ctx context.Context, mode Mode) (Stream, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	stream, err := f.r.docs.Open(ctx, f.node, mode)
	if err != nil {
		return nil, storageError("open", f.node.String(), err)
	}
	return stream, nil
}

// List implements File
func (f *OpaqueFile) List(ctx context.Context) ([]string, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	ids, err := f.r.docs.ListChildren(ctx, f.node)
	if err != nil {
		return nil, storageError("list", f.node.String(), err)
	}
	return childNames(ids), nil
}

// CreateFile implements File. Without a derivable parent nothing can be
// created.
func (f *OpaqueFile) CreateFile(context.Context) bool { return false }

// Mkdir implements File
func (f *OpaqueFile) Mkdir(context.Context) bool { return false }

// Rename implements File. The returned file wraps the handle the provider
// issued for the new name.
func (f *OpaqueFile) Rename(ctx context.Context, name string) (File, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if err := validName(name); err != nil {
		return nil, &PathError{Op: "rename", Path: f.node.String(), Err: err}
	}
	node, err := f.r.docs.RenameDocument(ctx, f.node, name)
	if err != nil {
		return nil, storageError("rename", f.node.String(), err)
	}
	return newOpaqueFile(f.r, node), nil
}

// Delete implements File
func (f *OpaqueFile) Delete(ctx context.Context) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if err := f.r.docs.DeleteDocument(ctx, f.node); err != nil {
		return storageError("delete", f.node.String(), err)
	}
	return nil
}

// Exists implements File
func (f *OpaqueFile) Exists(ctx context.Context) bool {
	if checkContext(ctx) != nil {
		return false
	}
	_, err := f.r.docs.Query(ctx, f.node)
	return err == nil
}

// CheckPermission implements File. It checks the tree the handle was issued
// under; handles that do not name a tree report false.
func (f *OpaqueFile) CheckPermission(ctx context.Context) bool {
	root, ok := f.node.Root()
	return ok && f.r.broker.CheckPermission(ctx, root)
}

// RequestPermission implements File
func (f *OpaqueFile) RequestPermission(ctx context.Context, host *Host, fn func(granted bool)) error {
	root, ok := f.node.Root()
	if !ok {
		return &PathError{Op: "request", Path: f.node.String(), Err: ErrNotSupported}
	}
	return f.r.broker.RequestPermission(ctx, host, root, fn)
}

// ReleasePermission implements File
func (f *OpaqueFile) ReleasePermission(ctx context.Context) bool {
	root, ok := f.node.Root()
	return ok && f.r.broker.ReleasePermission(ctx, root)
}

var (
	_ File    = (*OpaqueFile)(nil)
	_ Handled = (*OpaqueFile)(nil)
)
