package storagekit

import (
	"context"
	"time"
)

// MimeTypeDir marks a document that is a directory.
const MimeTypeDir = "vnd.android.document/directory"

// Document is the metadata row a DocumentProvider returns for a node.
type Document struct {
	ID           string
	DisplayName  string
	MimeType     string
	Size         int64
	LastModified time.Time
}

// IsDir reports whether the document is a directory.
func (d *Document) IsDir() bool {
	return d.MimeType == MimeTypeDir
}

// DocumentProvider is the storage primitive behind the scoped and opaque
// backends. Every call is a live round trip; implementations must be safe
// for concurrent use.
type DocumentProvider interface {
	// Query returns the metadata of node or an error wrapping ErrNotExist.
	Query(ctx context.Context, node NodeHandle) (*Document, error)

	// Open returns a byte stream for node in the given mode.
	Open(ctx context.Context, node NodeHandle, mode Mode) (Stream, error)

	// ListChildren returns the document IDs of node's immediate children.
	ListChildren(ctx context.Context, node NodeHandle) ([]string, error)

	// CreateDocument creates name inside parent and returns its handle.
	CreateDocument(ctx context.Context, parent NodeHandle, mimeType, name string) (NodeHandle, error)

	// RenameDocument renames node in place and returns the new handle.
	RenameDocument(ctx context.Context, node NodeHandle, name string) (NodeHandle, error)

	// DeleteDocument removes node and, for directories, everything below it.
	DeleteDocument(ctx context.Context, node NodeHandle) error
}

// unavailableProvider backs the scoped backend when no provider is wired.
type unavailableProvider struct{}

func (unavailableProvider) Query(_ context.Context, node NodeHandle) (*Document, error) {
	return nil, &PathError{Op: "query", Path: node.String(), Err: ErrNotSupported}
}

func (unavailableProvider) Open(_ context.Context, node NodeHandle, _ Mode) (Stream, error) {
	return nil, &PathError{Op: "open", Path: node.String(), Err: ErrNotSupported}
}

func (unavailableProvider) ListChildren(_ context.Context, node NodeHandle) ([]string, error) {
	return nil, &PathError{Op: "list", Path: node.String(), Err: ErrNotSupported}
}

func (unavailableProvider) CreateDocument(_ context.Context, parent NodeHandle, _, _ string) (NodeHandle, error) {
	return NodeHandle{}, &PathError{Op: "create", Path: parent.String(), Err: ErrNotSupported}
}

func (unavailableProvider) RenameDocument(_ context.Context, node NodeHandle, _ string) (NodeHandle, error) {
	return NodeHandle{}, &PathError{Op: "rename", Path: node.String(), Err: ErrNotSupported}
}

func (unavailableProvider) DeleteDocument(_ context.Context, node NodeHandle) error {
	return &PathError{Op: "delete", Path: node.String(), Err: ErrNotSupported}
}
