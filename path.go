package storagekit

import "strings"

// Separator is the path separator used by every backend at the model layer.
const Separator = "/"

// NormalizePath trims exactly one leading and one trailing separator.
// Nothing else is touched: ".." and repeated separators stay literal.
func NormalizePath(p string) string {
	p = strings.TrimPrefix(p, Separator)
	p = strings.TrimSuffix(p, Separator)
	return p
}

// SplitPath returns the segments of the normalized path. An empty path has
// no segments.
func SplitPath(p string) []string {
	p = NormalizePath(p)
	if p == "" {
		return nil
	}
	return strings.Split(p, Separator)
}

// ResolvePath joins a child onto a parent without resolving either side.
func ResolvePath(parent, child string) string {
	return NormalizePath(parent) + Separator + NormalizePath(child)
}

// baseName returns the last segment of a normalized path.
func baseName(p string) string {
	p = NormalizePath(p)
	if i := strings.LastIndex(p, Separator); i >= 0 {
		return p[i+1:]
	}
	return p
}
