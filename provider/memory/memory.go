// Package memory provides an in-memory document provider for the scoped and
// opaque backends. Useful for tests and for hosts that stage documents
// before handing them to the platform.
package memory

import (
	"bytes"
	"context"
	"errors"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gobeaver/storagekit"
)

// document is a file or directory stored in memory
type document struct {
	content  []byte
	mimeType string
	modTime  time.Time
}

func (d *document) isDir() bool {
	return d.mimeType == storagekit.MimeTypeDir
}

// Provider implements storagekit.DocumentProvider over a map keyed by
// document path. Handles are resolved by decoding the document ID, cleaning
// it and checking that it stays inside the tree the handle names.
type Provider struct {
	mu      sync.RWMutex
	docs    map[string]*document
	maxSize int64 // Maximum total storage size (0 = unlimited)
	size    int64 // Current total size
}

// Config holds configuration for the memory provider
type Config struct {
	// MaxSize is the maximum total storage size in bytes (0 = unlimited)
	MaxSize int64
}

// ErrNoSpace is returned when a write would exceed MaxSize.
var ErrNoSpace = errors.New("no space left in provider")

// New creates a new in-memory document provider
func New(cfg ...Config) *Provider {
	var maxSize int64
	if len(cfg) > 0 {
		maxSize = cfg[0].MaxSize
	}

	p := &Provider{
		docs:    make(map[string]*document),
		maxSize: maxSize,
	}
	p.docs[""] = &document{mimeType: storagekit.MimeTypeDir, modTime: time.Now()}
	return p
}

// Query implements storagekit.DocumentProvider
func (p *Provider) Query(ctx context.Context, node storagekit.NodeHandle) (*storagekit.Document, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	_, docPath, err := resolve("query", node)
	if err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	doc, ok := p.docs[docPath]
	if !ok {
		return nil, &storagekit.PathError{Op: "query", Path: docPath, Err: storagekit.ErrNotExist}
	}
	return &storagekit.Document{
		ID:           documentID(docPath),
		DisplayName:  path.Base(docPath),
		MimeType:     doc.mimeType,
		Size:         int64(len(doc.content)),
		LastModified: doc.modTime,
	}, nil
}

// Open implements storagekit.DocumentProvider. Write modes require the
// document to exist; content is committed when the stream is closed.
func (p *Provider) Open(ctx context.Context, node storagekit.NodeHandle, mode storagekit.Mode) (storagekit.Stream, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	_, docPath, err := resolve("open", node)
	if err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	doc, ok := p.docs[docPath]
	if !ok {
		return nil, &storagekit.PathError{Op: "open", Path: docPath, Err: storagekit.ErrNotExist}
	}
	if doc.isDir() {
		return nil, &storagekit.PathError{Op: "open", Path: docPath, Err: storagekit.ErrIsDir}
	}

	if !mode.Writable() {
		// Return a copy of the content to prevent modification
		content := append([]byte(nil), doc.content...)
		return &readStream{Reader: bytes.NewReader(content)}, nil
	}
	return &writeStream{p: p, path: docPath, mode: mode}, nil
}

// ListChildren implements storagekit.DocumentProvider
func (p *Provider) ListChildren(ctx context.Context, node storagekit.NodeHandle) ([]string, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	_, docPath, err := resolve("list", node)
	if err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	doc, ok := p.docs[docPath]
	if !ok {
		return nil, &storagekit.PathError{Op: "list", Path: docPath, Err: storagekit.ErrNotExist}
	}
	if !doc.isDir() {
		return nil, &storagekit.PathError{Op: "list", Path: docPath, Err: storagekit.ErrNotDir}
	}

	var ids []string
	for k := range p.docs {
		if k != "" && parentOf(k) == docPath {
			ids = append(ids, documentID(k))
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// CreateDocument implements storagekit.DocumentProvider
func (p *Provider) CreateDocument(ctx context.Context, parent storagekit.NodeHandle, mimeType, name string) (storagekit.NodeHandle, error) {
	select {
	case <-ctx.Done():
		return storagekit.NodeHandle{}, ctx.Err()
	default:
	}

	root, parentPath, err := resolve("create", parent)
	if err != nil {
		return storagekit.NodeHandle{}, err
	}
	if !validName(name) {
		return storagekit.NodeHandle{}, &storagekit.PathError{Op: "create", Path: name, Err: storagekit.ErrInvalidPath}
	}
	if mimeType == "" {
		mimeType = storagekit.GuessContentType(name, nil)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	dir, ok := p.docs[parentPath]
	if !ok {
		return storagekit.NodeHandle{}, &storagekit.PathError{Op: "create", Path: parentPath, Err: storagekit.ErrNotExist}
	}
	if !dir.isDir() {
		return storagekit.NodeHandle{}, &storagekit.PathError{Op: "create", Path: parentPath, Err: storagekit.ErrNotDir}
	}

	child := join(parentPath, name)
	if _, exists := p.docs[child]; exists {
		return storagekit.NodeHandle{}, &storagekit.PathError{Op: "create", Path: child, Err: storagekit.ErrExist}
	}
	p.docs[child] = &document{mimeType: mimeType, modTime: time.Now()}
	return root.Document(documentID(child)), nil
}

// RenameDocument implements storagekit.DocumentProvider. Directories are
// renamed with everything below them.
func (p *Provider) RenameDocument(ctx context.Context, node storagekit.NodeHandle, name string) (storagekit.NodeHandle, error) {
	select {
	case <-ctx.Done():
		return storagekit.NodeHandle{}, ctx.Err()
	default:
	}

	root, docPath, err := resolve("rename", node)
	if err != nil {
		return storagekit.NodeHandle{}, err
	}
	if !validName(name) || docPath == "" {
		return storagekit.NodeHandle{}, &storagekit.PathError{Op: "rename", Path: docPath, Err: storagekit.ErrInvalidPath}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.docs[docPath]; !ok {
		return storagekit.NodeHandle{}, &storagekit.PathError{Op: "rename", Path: docPath, Err: storagekit.ErrNotExist}
	}
	target := join(parentOf(docPath), name)
	if target == docPath {
		return root.Document(documentID(target)), nil
	}
	if _, exists := p.docs[target]; exists {
		return storagekit.NodeHandle{}, &storagekit.PathError{Op: "rename", Path: target, Err: storagekit.ErrExist}
	}

	now := time.Now()
	for _, from := range p.subtree(docPath) {
		doc := p.docs[from]
		delete(p.docs, from)
		doc.modTime = now
		p.docs[target+strings.TrimPrefix(from, docPath)] = doc
	}
	return root.Document(documentID(target)), nil
}

// DeleteDocument implements storagekit.DocumentProvider
func (p *Provider) DeleteDocument(ctx context.Context, node storagekit.NodeHandle) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	_, docPath, err := resolve("delete", node)
	if err != nil {
		return err
	}
	if docPath == "" {
		return &storagekit.PathError{Op: "delete", Path: docPath, Err: storagekit.ErrInvalidPath}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.docs[docPath]; !ok {
		return &storagekit.PathError{Op: "delete", Path: docPath, Err: storagekit.ErrNotExist}
	}
	for _, doc := range p.subtree(docPath) {
		p.size -= int64(len(p.docs[doc].content))
		delete(p.docs, doc)
	}
	return nil
}

// MkdirAll creates the directory at a document path together with any
// missing parents. It bypasses handles and is meant for seeding.
func (p *Provider) MkdirAll(docPath string) error {
	docPath = clean(docPath)

	p.mu.Lock()
	defer p.mu.Unlock()

	if doc, ok := p.docs[docPath]; ok && !doc.isDir() {
		return &storagekit.PathError{Op: "mkdir", Path: docPath, Err: storagekit.ErrNotDir}
	}
	return p.ensureDirs(docPath)
}

// Put stores data at a document path, creating parents as needed.
func (p *Provider) Put(docPath string, data []byte) error {
	docPath = clean(docPath)
	if docPath == "" {
		return &storagekit.PathError{Op: "put", Path: docPath, Err: storagekit.ErrInvalidPath}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureDirs(parentOf(docPath)); err != nil {
		return err
	}
	var old int64
	if doc, ok := p.docs[docPath]; ok {
		if doc.isDir() {
			return &storagekit.PathError{Op: "put", Path: docPath, Err: storagekit.ErrIsDir}
		}
		old = int64(len(doc.content))
	}
	if err := p.reserve(docPath, int64(len(data))-old); err != nil {
		return err
	}
	p.docs[docPath] = &document{
		content:  append([]byte(nil), data...),
		mimeType: storagekit.GuessContentType(docPath, data),
		modTime:  time.Now(),
	}
	return nil
}

// Get returns the content stored at a document path.
func (p *Provider) Get(docPath string) ([]byte, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	doc, ok := p.docs[clean(docPath)]
	if !ok || doc.isDir() {
		return nil, false
	}
	return append([]byte(nil), doc.content...), true
}

// Size returns the total bytes stored.
func (p *Provider) Size() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.size
}

// DocumentCount returns the number of documents, directories included.
func (p *Provider) DocumentCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.docs) - 1
}

// commit applies a closed write stream. Must not be called with lock held.
func (p *Provider) commit(docPath string, mode storagekit.Mode, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	doc, ok := p.docs[docPath]
	if !ok {
		return &storagekit.PathError{Op: "write", Path: docPath, Err: storagekit.ErrNotExist}
	}

	var content []byte
	switch mode {
	case storagekit.ModeAppend:
		content = append(append([]byte(nil), doc.content...), data...)
	case storagekit.ModeOverwrite:
		content = append([]byte(nil), data...)
		if len(doc.content) > len(data) {
			content = append(content, doc.content[len(data):]...)
		}
	default:
		content = append([]byte(nil), data...)
	}

	if err := p.reserve(docPath, int64(len(content)-len(doc.content))); err != nil {
		return err
	}
	doc.content = content
	doc.modTime = time.Now()
	return nil
}

// reserve accounts for delta bytes. Must be called with lock held.
func (p *Provider) reserve(docPath string, delta int64) error {
	if p.maxSize > 0 && p.size+delta > p.maxSize {
		return &storagekit.PathError{Op: "write", Path: docPath, Err: ErrNoSpace}
	}
	p.size += delta
	return nil
}

// ensureDirs creates docPath and its parents. Must be called with lock held.
func (p *Provider) ensureDirs(docPath string) error {
	if docPath == "" {
		return nil
	}
	if doc, ok := p.docs[docPath]; ok {
		if !doc.isDir() {
			return &storagekit.PathError{Op: "mkdir", Path: docPath, Err: storagekit.ErrNotDir}
		}
		return nil
	}
	if err := p.ensureDirs(parentOf(docPath)); err != nil {
		return err
	}
	p.docs[docPath] = &document{mimeType: storagekit.MimeTypeDir, modTime: time.Now()}
	return nil
}

// subtree returns docPath and every document below it. Must be called with
// lock held.
func (p *Provider) subtree(docPath string) []string {
	paths := []string{docPath}
	prefix := docPath + "/"
	for k := range p.docs {
		if strings.HasPrefix(k, prefix) {
			paths = append(paths, k)
		}
	}
	return paths
}

// resolve decodes node into a clean document path inside its tree.
func resolve(op string, node storagekit.NodeHandle) (storagekit.RootHandle, string, error) {
	root, ok := node.Root()
	if !ok {
		return storagekit.RootHandle{}, "", &storagekit.PathError{Op: op, Path: node.String(), Err: storagekit.ErrInvalidPath}
	}
	raw, err := node.DocumentPath()
	if err != nil {
		return storagekit.RootHandle{}, "", err
	}

	docPath := clean(raw)
	tree := clean(strings.TrimPrefix(root.TreeDocumentID(), "primary:"))
	if docPath != tree && !strings.HasPrefix(docPath, tree+"/") {
		return storagekit.RootHandle{}, "", &storagekit.PathError{Op: op, Path: raw, Err: storagekit.ErrPermission}
	}
	return root, docPath, nil
}

func clean(p string) string {
	p = path.Clean("/" + p)
	return strings.TrimPrefix(p, "/")
}

func parentOf(p string) string {
	dir := path.Dir(p)
	if dir == "." {
		return ""
	}
	return dir
}

func join(dir, name string) string {
	if dir == "" {
		return name
	}
	return dir + "/" + name
}

func documentID(docPath string) string {
	return "primary:" + docPath
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.Contains(name, "/")
}

// readStream is a read-only Stream
type readStream struct {
	*bytes.Reader
}

func (s *readStream) Write([]byte) (int, error) {
	return 0, storagekit.ErrNotSupported
}

func (s *readStream) Close() error { return nil }

// writeStream buffers writes until Close
type writeStream struct {
	p      *Provider
	path   string
	mode   storagekit.Mode
	buf    bytes.Buffer
	closed bool
}

func (s *writeStream) Read([]byte) (int, error) {
	return 0, storagekit.ErrNotSupported
}

func (s *writeStream) Write(b []byte) (int, error) {
	if s.closed {
		return 0, storagekit.ErrIO
	}
	return s.buf.Write(b)
}

func (s *writeStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.p.commit(s.path, s.mode, s.buf.Bytes())
}

var _ storagekit.DocumentProvider = (*Provider)(nil)
