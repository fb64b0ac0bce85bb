package storagekit

import (
	"context"

	"github.com/gobwas/glob"
)

// FileSelector filters files during Find.
//
// Example:
//
//	selector := storagekit.And(
//	    storagekit.Glob("*.jpg"),
//	    storagekit.FuncSelector(func(f *storagekit.FileInfo) bool {
//	        return f.Size < 10*1024*1024
//	    }),
//	)
//	files, err := storagekit.Find(ctx, dir, selector, true)
type FileSelector interface {
	// Match returns true if the file should be included in results.
	Match(file *FileInfo) bool

	// TraverseDescendants returns true if directory descendants should be traversed.
	// Only called for directories (file.IsDir == true).
	TraverseDescendants(file *FileInfo) bool
}

// Find lists the files below dir matching selector. Every child is
// re-resolved through dir.Child and stat'ed, so on the scoped backend each
// entry costs one provider query.
func Find(ctx context.Context, dir File, selector FileSelector, recursive bool) ([]FileInfo, error) {
	if selector == nil {
		selector = All()
	}

	var results []FileInfo
	if err := findRecursive(ctx, dir, selector, recursive, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func findRecursive(ctx context.Context, dir File, selector FileSelector, recursive bool, results *[]FileInfo) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	names, err := dir.List(ctx)
	if err != nil {
		return err
	}

	for _, name := range names {
		child, err := dir.Child(name)
		if err != nil {
			return err
		}
		info, err := child.Stat(ctx)
		if err != nil {
			return err
		}

		if info.IsDir {
			if recursive && selector.TraverseDescendants(info) {
				if err := findRecursive(ctx, child, selector, recursive, results); err != nil {
					return err
				}
			}
		} else if selector.Match(info) {
			*results = append(*results, *info)
		}
	}

	return nil
}

// AllSelector matches all files and traverses all directories.
type AllSelector struct{}

func (s AllSelector) Match(file *FileInfo) bool               { return true }
func (s AllSelector) TraverseDescendants(file *FileInfo) bool { return true }

// All returns a selector that matches all files.
func All() FileSelector {
	return AllSelector{}
}

type globSelector struct {
	pattern glob.Glob
}

// Glob creates a selector matching file names against pattern.
// Supports: *, ?, [abc], [a-z], {a,b}
//
// Examples:
//
//	Glob("*.txt")           // All .txt files
//	Glob("{*.obb,*.apk}")   // Expansion files and packages
//	Glob("[a-z]*.json")     // JSON files starting with lowercase
//
// An invalid pattern matches nothing.
func Glob(pattern string) FileSelector {
	g, err := glob.Compile(pattern)
	if err != nil {
		return FuncSelector(func(*FileInfo) bool { return false })
	}
	return &globSelector{pattern: g}
}

func (s *globSelector) Match(file *FileInfo) bool {
	return s.pattern.Match(file.Name)
}

func (s *globSelector) TraverseDescendants(file *FileInfo) bool {
	return true
}

type andSelector struct {
	selectors []FileSelector
}

// And matches only if ALL selectors match.
func And(selectors ...FileSelector) FileSelector {
	return &andSelector{selectors: selectors}
}

func (s *andSelector) Match(file *FileInfo) bool {
	for _, sel := range s.selectors {
		if !sel.Match(file) {
			return false
		}
	}
	return true
}

func (s *andSelector) TraverseDescendants(file *FileInfo) bool {
	for _, sel := range s.selectors {
		if sel.TraverseDescendants(file) {
			return true
		}
	}
	return false
}

type orSelector struct {
	selectors []FileSelector
}

// Or matches if ANY selector matches.
func Or(selectors ...FileSelector) FileSelector {
	return &orSelector{selectors: selectors}
}

func (s *orSelector) Match(file *FileInfo) bool {
	for _, sel := range s.selectors {
		if sel.Match(file) {
			return true
		}
	}
	return false
}

func (s *orSelector) TraverseDescendants(file *FileInfo) bool {
	for _, sel := range s.selectors {
		if sel.TraverseDescendants(file) {
			return true
		}
	}
	return false
}

type notSelector struct {
	selector FileSelector
}

// Not inverts a selector's match result.
func Not(selector FileSelector) FileSelector {
	return &notSelector{selector: selector}
}

func (s *notSelector) Match(file *FileInfo) bool {
	return !s.selector.Match(file)
}

func (s *notSelector) TraverseDescendants(file *FileInfo) bool {
	return true
}

type funcSelector struct {
	matchFn    func(*FileInfo) bool
	traverseFn func(*FileInfo) bool
}

// FuncSelector creates a selector from a custom function.
func FuncSelector(fn func(*FileInfo) bool) FileSelector {
	return &funcSelector{
		matchFn:    fn,
		traverseFn: func(*FileInfo) bool { return true },
	}
}

// FuncSelectorFull creates a selector with custom match and traverse functions.
func FuncSelectorFull(matchFn, traverseFn func(*FileInfo) bool) FileSelector {
	return &funcSelector{
		matchFn:    matchFn,
		traverseFn: traverseFn,
	}
}

func (s *funcSelector) Match(file *FileInfo) bool               { return s.matchFn(file) }
func (s *funcSelector) TraverseDescendants(file *FileInfo) bool { return s.traverseFn(file) }
