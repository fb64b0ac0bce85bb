package storagekit

import "strings"

// Backend identifies the storage mechanism a File is bound to.
type Backend int

const (
	// BackendDirect is ordinary hierarchical filesystem access.
	BackendDirect Backend = iota
	// BackendScoped is the permission-scoped document tree.
	BackendScoped
	// BackendOpaque is a caller-supplied document handle with no derivable path.
	BackendOpaque
)

// String returns a string representation of the Backend.
func (b Backend) String() string {
	switch b {
	case BackendDirect:
		return "direct"
	case BackendScoped:
		return "scoped"
	case BackendOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

const (
	// ScopedStorageVersion is the first platform version that restricts the
	// app-private shared directories behind the document tree.
	ScopedStorageVersion = 30

	// ExtendedTreeVersion is the first platform version whose tree grants
	// cover three path segments instead of two.
	ExtendedTreeVersion = 33

	// DefaultStorageRoot is the shared storage mount point.
	DefaultStorageRoot = "/sdcard"
)

// scopedPrefixes lists the directories the platform serves only through the
// document tree. Matching is case-insensitive and segment aligned.
var scopedPrefixes = []string{
	"sdcard/Android/data", "storage/emulated/0/Android/data",
	"sdcard/Android/obb", "storage/emulated/0/Android/obb",
	"sdcard/Android/sandbox", "storage/emulated/0/Android/sandbox",
}

// Platform describes the host platform the classifier and handle builder
// answer for.
type Platform struct {
	// Version is the platform API level.
	Version int

	// StorageRoot is the absolute path of shared storage, e.g. "/sdcard".
	StorageRoot string
}

// Classify selects the backend for path. It performs no I/O and does not
// resolve "..": classification is on the literal path.
func (p Platform) Classify(path string) Backend {
	if p.Version < ScopedStorageVersion {
		return BackendDirect
	}
	if _, ok := matchScopedPrefix(NormalizePath(path)); ok {
		return BackendScoped
	}
	return BackendDirect
}

// RootSegments is the number of leading document path segments that form a
// tree grant on this platform.
func (p Platform) RootSegments() int {
	if p.Version < ExtendedTreeVersion {
		return 2
	}
	return 3
}

// DocumentPath translates a shared-storage path into the document path the
// tree addresses, e.g. "/sdcard/Android/data/x/a.txt" to
// "Android/data/x/a.txt". Paths outside the scoped prefixes are returned
// normalized.
func (p Platform) DocumentPath(path string) string {
	raw := NormalizePath(path)
	prefix, ok := matchScopedPrefix(raw)
	if !ok {
		return raw
	}

	segments := strings.Split(prefix, Separator)
	header := strings.Join(segments[len(segments)-2:], Separator)
	if len(raw) == len(prefix) {
		return header
	}
	return header + Separator + raw[len(prefix)+1:]
}

// AbsolutePath places a document path back under the storage root.
func (p Platform) AbsolutePath(documentPath string) string {
	root := p.StorageRoot
	if root == "" {
		root = DefaultStorageRoot
	}
	return strings.TrimSuffix(root, Separator) + Separator + NormalizePath(documentPath)
}

// matchScopedPrefix returns the allow-list entry raw starts with.
func matchScopedPrefix(raw string) (string, bool) {
	for _, prefix := range scopedPrefixes {
		if len(raw) < len(prefix) || !strings.EqualFold(raw[:len(prefix)], prefix) {
			continue
		}
		if len(raw) == len(prefix) || raw[len(prefix)] == '/' {
			return prefix, true
		}
	}
	return "", false
}
