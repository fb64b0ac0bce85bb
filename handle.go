package storagekit

import (
	"strings"
)

const (
	// TreeURIHeader prefixes every tree (root) handle.
	TreeURIHeader = "content://com.android.externalstorage.documents/tree/primary%3A"

	// DocumentURIInfix separates the tree part of a node handle from its
	// document part.
	DocumentURIInfix = "/document/primary%3A"

	// HandleSeparator joins path segments inside a handle.
	HandleSeparator = "%2F"

	// documentVolume prefixes every document ID on the primary volume.
	documentVolume = "primary:"

	// documentMarker is where Root truncates a node handle.
	documentMarker = "/document/"
)

// A literal '%' in a document path is escaped as "%25" so that names holding
// "%2F" or "%3A" decode back to themselves.
var (
	segmentEncoder = strings.NewReplacer("%", "%25")
	handleEncoder  = strings.NewReplacer("%", "%25", "/", HandleSeparator)
	handleDecoder  = strings.NewReplacer(HandleSeparator, "/", "%3A", ":", "%25", "%")
)

// RootHandle is the coarse authorization boundary of the document tree. A
// grant held on a RootHandle covers every NodeHandle nested below it.
type RootHandle struct {
	uri string
}

// ParseRootHandle validates s as a tree handle.
func ParseRootHandle(s string) (RootHandle, error) {
	if !strings.HasPrefix(s, TreeURIHeader) || strings.Contains(s, documentMarker) {
		return RootHandle{}, &PathError{Op: "parse", Path: s, Err: ErrInvalidPath}
	}
	return RootHandle{uri: s}, nil
}

// String returns the handle's opaque representation.
func (r RootHandle) String() string { return r.uri }

// IsZero reports whether r was never built.
func (r RootHandle) IsZero() bool { return r.uri == "" }

// TreeDocumentID returns the document ID of the tree's top directory, e.g.
// "primary:Android/data/com.example".
func (r RootHandle) TreeDocumentID() string {
	return documentVolume + handleDecoder.Replace(strings.TrimPrefix(r.uri, TreeURIHeader))
}

// Document builds the node handle of a provider-issued document ID under
// this tree.
func (r RootHandle) Document(documentID string) NodeHandle {
	documentPath := strings.TrimPrefix(documentID, documentVolume)
	return NodeHandle{uri: r.uri + DocumentURIInfix + handleEncoder.Replace(documentPath)}
}

// NodeHandle locates one document below a RootHandle.
type NodeHandle struct {
	uri string
}

// NewNodeHandle wraps a caller-supplied handle without validating it.
func NewNodeHandle(s string) NodeHandle {
	return NodeHandle{uri: s}
}

// String returns the handle's opaque representation.
func (n NodeHandle) String() string { return n.uri }

// IsZero reports whether n was never built.
func (n NodeHandle) IsZero() bool { return n.uri == "" }

// Root truncates the handle back to the tree it was built under.
func (n NodeHandle) Root() (RootHandle, bool) {
	i := strings.Index(n.uri, documentMarker)
	if i < 0 || !strings.HasPrefix(n.uri, TreeURIHeader) {
		return RootHandle{}, false
	}
	return RootHandle{uri: n.uri[:i]}, true
}

// DocumentID decodes the document part of the handle, e.g.
// "primary:Android/data/com.example/a.txt".
func (n NodeHandle) DocumentID() (string, error) {
	i := strings.Index(n.uri, documentMarker)
	if i < 0 {
		return "", &PathError{Op: "documentid", Path: n.uri, Err: ErrInvalidPath}
	}
	return handleDecoder.Replace(n.uri[i+len(documentMarker):]), nil
}

// DocumentPath is DocumentID without the volume prefix.
func (n NodeHandle) DocumentPath() (string, error) {
	id, err := n.DocumentID()
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(id, documentVolume), nil
}

// HandleBuilder derives tree and node handles from document paths.
type HandleBuilder struct {
	segments int
}

// NewHandleBuilder returns a builder using the platform's root segment count.
func NewHandleBuilder(p Platform) HandleBuilder {
	return HandleBuilder{segments: p.RootSegments()}
}

// Segments is the number of path segments a RootHandle covers.
func (b HandleBuilder) Segments() int {
	return b.segments
}

// Root builds the RootHandle for path: the header followed by the first N
// segments.
func (b HandleBuilder) Root(path string) (RootHandle, error) {
	segments, err := b.split(path)
	if err != nil {
		return RootHandle{}, err
	}
	return RootHandle{uri: TreeURIHeader + joinSegments(segments[:b.segments])}, nil
}

// Node builds the NodeHandle for path: the tree part, the document infix and
// then every segment of the path. The tree identity and the full path are
// two separately escaped components of one locator.
func (b HandleBuilder) Node(path string) (NodeHandle, error) {
	segments, err := b.split(path)
	if err != nil {
		return NodeHandle{}, err
	}
	uri := TreeURIHeader + joinSegments(segments[:b.segments]) +
		DocumentURIInfix + joinSegments(segments)
	return NodeHandle{uri: uri}, nil
}

// Handles builds both handles for path.
func (b HandleBuilder) Handles(path string) (RootHandle, NodeHandle, error) {
	root, err := b.Root(path)
	if err != nil {
		return RootHandle{}, NodeHandle{}, err
	}
	node, err := b.Node(path)
	if err != nil {
		return RootHandle{}, NodeHandle{}, err
	}
	return root, node, nil
}

func (b HandleBuilder) split(path string) ([]string, error) {
	segments := SplitPath(path)
	if b.segments <= 0 || len(segments) < b.segments {
		return nil, &PathError{Op: "handle", Path: path, Err: ErrInvalidPath}
	}
	return segments, nil
}

func joinSegments(segments []string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = segmentEncoder.Replace(s)
	}
	return strings.Join(escaped, HandleSeparator)
}
