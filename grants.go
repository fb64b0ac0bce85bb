package storagekit

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// Access is a set of grant capabilities.
type Access uint8

const (
	// AccessRead allows reading documents under the root.
	AccessRead Access = 1 << iota
	// AccessWrite allows writing documents under the root.
	AccessWrite

	// AccessReadWrite is the pair the broker requests and checks for.
	AccessReadWrite = AccessRead | AccessWrite
)

// Has reports whether a holds every capability in want.
func (a Access) Has(want Access) bool {
	return a&want == want
}

// String returns the capabilities as "r", "w" or "rw".
func (a Access) String() string {
	s := ""
	if a.Has(AccessRead) {
		s += "r"
	}
	if a.Has(AccessWrite) {
		s += "w"
	}
	if s == "" {
		return "-"
	}
	return s
}

// Grant is one persisted tree grant.
type Grant struct {
	Root      RootHandle
	Access    Access
	GrantedAt time.Time
}

// GrantStore is the platform's persisted grant set. Grants survive process
// restarts for stores backed by disk.
type GrantStore interface {
	// Grants returns every grant currently held.
	Grants(ctx context.Context) ([]Grant, error)

	// Persist records access on root, merging with any existing grant.
	Persist(ctx context.Context, root RootHandle, access Access) error

	// Release removes access from root. Releasing a grant that is not held
	// is an error.
	Release(ctx context.Context, root RootHandle, access Access) error
}

// MemoryGrantStore keeps grants in process memory.
type MemoryGrantStore struct {
	mu     sync.RWMutex
	grants map[RootHandle]Grant
}

// NewMemoryGrantStore creates an empty grant store.
func NewMemoryGrantStore() *MemoryGrantStore {
	return &MemoryGrantStore{
		grants: make(map[RootHandle]Grant),
	}
}

// Grants implements GrantStore
func (s *MemoryGrantStore) Grants(ctx context.Context) ([]Grant, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	grants := make([]Grant, 0, len(s.grants))
	for _, g := range s.grants {
		grants = append(grants, g)
	}
	sort.Slice(grants, func(i, j int) bool {
		return grants[i].Root.String() < grants[j].Root.String()
	})
	return grants, nil
}

// Persist implements GrantStore
func (s *MemoryGrantStore) Persist(ctx context.Context, root RootHandle, access Access) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.grants[root]
	g.Root = root
	g.Access |= access
	g.GrantedAt = time.Now()
	s.grants[root] = g
	return nil
}

// Release implements GrantStore
func (s *MemoryGrantStore) Release(ctx context.Context, root RootHandle, access Access) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.grants[root]
	if !ok || g.Access&access == 0 {
		return &PathError{Op: "release", Path: root.String(), Err: ErrNotExist}
	}
	g.Access &^= access
	if g.Access == 0 {
		delete(s.grants, root)
		return nil
	}
	s.grants[root] = g
	return nil
}

// StorageAccess reports the whole-storage grant the direct backend relies
// on. It is a single process-wide grant, not keyed by path.
type StorageAccess interface {
	// Granted reports whether the process currently holds broad storage access.
	Granted(ctx context.Context) bool

	// Release gives broad storage access back.
	Release(ctx context.Context) error
}

// StaticStorageAccess is a StorageAccess whose state is set by the host
// integration, e.g. after the user toggles the platform setting.
type StaticStorageAccess struct {
	granted atomic.Bool
}

// NewStaticStorageAccess creates a StorageAccess in the given state.
func NewStaticStorageAccess(granted bool) *StaticStorageAccess {
	s := &StaticStorageAccess{}
	s.granted.Store(granted)
	return s
}

// Set records the current grant state.
func (s *StaticStorageAccess) Set(granted bool) {
	s.granted.Store(granted)
}

// Granted implements StorageAccess
func (s *StaticStorageAccess) Granted(ctx context.Context) bool {
	return checkContext(ctx) == nil && s.granted.Load()
}

// Release implements StorageAccess
func (s *StaticStorageAccess) Release(ctx context.Context) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if !s.granted.Swap(false) {
		return ErrNotExist
	}
	return nil
}

var (
	_ GrantStore    = (*MemoryGrantStore)(nil)
	_ StorageAccess = (*StaticStorageAccess)(nil)
)
