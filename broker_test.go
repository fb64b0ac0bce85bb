package storagekit

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSurface struct{ err error }

func (s failingSurface) RequestTreeAccess(context.Context, *Host, Token, RootHandle) error {
	return s.err
}

func (s failingSurface) RequestStorageAccess(context.Context, *Host, Token) error {
	return s.err
}

type failingGrantStore struct{ err error }

func (s failingGrantStore) Grants(context.Context) ([]Grant, error) { return nil, s.err }

func (s failingGrantStore) Persist(context.Context, RootHandle, Access) error { return s.err }

func (s failingGrantStore) Release(context.Context, RootHandle, Access) error { return s.err }

func testRoot(t *testing.T, path string) RootHandle {
	t.Helper()
	root, err := NewHandleBuilder(Platform{Version: 33}).Root(path)
	require.NoError(t, err)
	return root
}

// recorder collects callback results.
type recorder struct{ got []bool }

func (r *recorder) fn(granted bool) { r.got = append(r.got, granted) }

func TestBrokerRequestPermission(t *testing.T) {
	ctx := context.Background()
	root := testRoot(t, "Android/data/com.example")

	t.Run("granted outcome persists the grant", func(t *testing.T) {
		surface := NewChannelSurface(1)
		b := NewBroker(nil, nil, surface, nil)
		h := NewHost("main", true)
		rec := &recorder{}

		assert.False(t, b.CheckPermission(ctx, root))
		require.NoError(t, b.RequestPermission(ctx, h, root, rec.fn))
		assert.Equal(t, 1, b.Pending(h))

		req := <-surface.Requests()
		assert.Equal(t, RequestTree, req.Kind)
		assert.Equal(t, root, req.Root)
		assert.Same(t, h, req.Host)
		assert.Empty(t, rec.got)

		assert.True(t, b.Deliver(ctx, h, Outcome{Token: req.Token, Granted: true, Handle: root.String()}))
		assert.Equal(t, []bool{true}, rec.got)
		assert.True(t, b.CheckPermission(ctx, root))
		assert.Equal(t, 0, b.Pending(h))

		assert.False(t, b.Deliver(ctx, h, Outcome{Token: req.Token, Granted: true, Handle: root.String()}))
		assert.Equal(t, []bool{true}, rec.got)
	})

	t.Run("a different tree is not accepted", func(t *testing.T) {
		surface := NewChannelSurface(1)
		b := NewBroker(nil, nil, surface, nil)
		h := NewHost("main", true)
		rec := &recorder{}

		require.NoError(t, b.RequestPermission(ctx, h, root, rec.fn))
		req := <-surface.Requests()
		other := testRoot(t, "Android/data/com.other")

		assert.True(t, b.Deliver(ctx, h, Outcome{Token: req.Token, Granted: true, Handle: other.String()}))
		assert.Equal(t, []bool{false}, rec.got)
		assert.False(t, b.CheckPermission(ctx, root))
		assert.False(t, b.CheckPermission(ctx, other))
	})

	t.Run("denied root can be requested again", func(t *testing.T) {
		surface := NewChannelSurface(1)
		b := NewBroker(nil, nil, surface, nil)
		h := NewHost("main", true)
		rec := &recorder{}

		require.NoError(t, b.RequestPermission(ctx, h, root, rec.fn))
		req := <-surface.Requests()
		b.Deliver(ctx, h, Outcome{Token: req.Token})

		require.NoError(t, b.RequestPermission(ctx, h, root, rec.fn))
		req = <-surface.Requests()
		b.Deliver(ctx, h, Outcome{Token: req.Token, Granted: true, Handle: root.String()})

		assert.Equal(t, []bool{false, true}, rec.got)
		assert.True(t, b.CheckPermission(ctx, root))
	})

	t.Run("outcome from a foreign host is ignored", func(t *testing.T) {
		surface := NewChannelSurface(1)
		b := NewBroker(nil, nil, surface, nil)
		owner := NewHost("owner", true)
		other := NewHost("other", true)
		rec := &recorder{}

		require.NoError(t, b.RequestPermission(ctx, owner, root, rec.fn))
		req := <-surface.Requests()

		outcome := Outcome{Token: req.Token, Granted: true, Handle: root.String()}
		assert.False(t, b.Deliver(ctx, other, outcome))
		assert.Empty(t, rec.got)
		assert.True(t, b.Deliver(ctx, owner, outcome))
		assert.Equal(t, []bool{true}, rec.got)
	})

	t.Run("non interactive host", func(t *testing.T) {
		b := NewBroker(nil, nil, NewChannelSurface(1), nil)

		err := b.RequestPermission(ctx, NewHost("worker", false), root, func(bool) {})
		assert.True(t, IsNoInteractiveContext(err))
		err = b.RequestPermission(ctx, nil, root, func(bool) {})
		assert.True(t, IsNoInteractiveContext(err))
	})

	t.Run("zero root", func(t *testing.T) {
		b := NewBroker(nil, nil, NewChannelSurface(1), nil)
		err := b.RequestPermission(ctx, NewHost("main", true), RootHandle{}, func(bool) {})
		assert.True(t, IsInvalidPath(err))
	})

	t.Run("surface failure cancels the registration", func(t *testing.T) {
		h := NewHost("main", true)

		b := NewBroker(nil, nil, nil, nil)
		err := b.RequestPermission(ctx, h, root, func(bool) {})
		assert.True(t, IsNoInteractiveContext(err))
		assert.Equal(t, 0, b.Pending(h))

		boom := errors.New("boom")
		b = NewBroker(nil, nil, failingSurface{err: boom}, nil)
		err = b.RequestPermission(ctx, h, root, func(bool) {})
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, b.Pending(h))
	})

	t.Run("closed surface", func(t *testing.T) {
		surface := NewChannelSurface(1)
		surface.Close()
		surface.Close()

		b := NewBroker(nil, nil, surface, nil)
		err := b.RequestPermission(ctx, NewHost("main", true), root, func(bool) {})
		assert.True(t, IsNoInteractiveContext(err))
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		b := NewBroker(nil, nil, NewChannelSurface(0), nil)
		err := b.RequestPermission(cctx, NewHost("main", true), root, func(bool) {})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("persist failure reports denied", func(t *testing.T) {
		surface := NewChannelSurface(1)
		b := NewBroker(failingGrantStore{err: errors.New("disk full")}, nil, surface, nil)
		h := NewHost("main", true)
		rec := &recorder{}

		require.NoError(t, b.RequestPermission(ctx, h, root, rec.fn))
		req := <-surface.Requests()
		assert.True(t, b.Deliver(ctx, h, Outcome{Token: req.Token, Granted: true, Handle: root.String()}))
		assert.Equal(t, []bool{false}, rec.got)
		assert.False(t, b.CheckPermission(ctx, root))
	})

	t.Run("detach drops pending requests", func(t *testing.T) {
		surface := NewChannelSurface(2)
		b := NewBroker(nil, nil, surface, nil)
		h := NewHost("main", true)
		rec := &recorder{}

		require.NoError(t, b.RequestPermission(ctx, h, root, rec.fn))
		require.NoError(t, b.RequestStorageAccess(ctx, h, rec.fn))
		assert.Equal(t, 2, b.Detach(h))

		req := <-surface.Requests()
		assert.False(t, b.Deliver(ctx, h, Outcome{Token: req.Token, Granted: true, Handle: root.String()}))
		assert.Empty(t, rec.got)
	})
}

func TestBrokerReleasePermission(t *testing.T) {
	ctx := context.Background()
	root := testRoot(t, "Android/data/com.example")

	grants := NewMemoryGrantStore()
	require.NoError(t, grants.Persist(ctx, root, AccessReadWrite))
	b := NewBroker(grants, nil, nil, nil)

	assert.True(t, b.CheckPermission(ctx, root))
	assert.True(t, b.ReleasePermission(ctx, root))
	assert.False(t, b.CheckPermission(ctx, root))
	assert.False(t, b.ReleasePermission(ctx, root))
	assert.False(t, b.ReleasePermission(ctx, RootHandle{}))
}

func TestBrokerCheckPermission(t *testing.T) {
	ctx := context.Background()
	root := testRoot(t, "Android/data/com.example")

	t.Run("read only grant is not enough", func(t *testing.T) {
		grants := NewMemoryGrantStore()
		require.NoError(t, grants.Persist(ctx, root, AccessRead))
		assert.False(t, NewBroker(grants, nil, nil, nil).CheckPermission(ctx, root))
	})

	t.Run("grant on another root does not cover", func(t *testing.T) {
		grants := NewMemoryGrantStore()
		require.NoError(t, grants.Persist(ctx, testRoot(t, "Android/data/com.other"), AccessReadWrite))
		assert.False(t, NewBroker(grants, nil, nil, nil).CheckPermission(ctx, root))
	})

	t.Run("store failure reports false", func(t *testing.T) {
		b := NewBroker(failingGrantStore{err: errors.New("corrupt")}, nil, nil, nil)
		assert.False(t, b.CheckPermission(ctx, root))
	})

	t.Run("zero root", func(t *testing.T) {
		assert.False(t, NewBroker(nil, nil, nil, nil).CheckPermission(ctx, RootHandle{}))
	})
}

func TestBrokerStorageAccess(t *testing.T) {
	ctx := context.Background()
	access := NewStaticStorageAccess(false)
	surface := NewChannelSurface(1)
	b := NewBroker(nil, access, surface, nil)
	h := NewHost("main", true)
	rec := &recorder{}

	assert.False(t, b.CheckStorageAccess(ctx))
	require.NoError(t, b.RequestStorageAccess(ctx, h, rec.fn))

	req := <-surface.Requests()
	assert.Equal(t, RequestStorage, req.Kind)
	assert.True(t, req.Root.IsZero())

	access.Set(true)
	assert.True(t, b.Deliver(ctx, h, Outcome{Token: req.Token, Granted: true}))
	assert.Equal(t, []bool{true}, rec.got)
	assert.True(t, b.CheckStorageAccess(ctx))

	assert.True(t, b.ReleaseStorageAccess(ctx))
	assert.False(t, b.CheckStorageAccess(ctx))
	assert.False(t, b.ReleaseStorageAccess(ctx))

	err := b.RequestStorageAccess(ctx, NewHost("worker", false), rec.fn)
	assert.True(t, IsNoInteractiveContext(err))
}

func TestChannelSurfaceFull(t *testing.T) {
	ctx := context.Background()
	root := testRoot(t, "Android/data/com.example")
	surface := NewChannelSurface(1)
	b := NewBroker(nil, nil, surface, nil)
	h := NewHost("main", true)

	require.NoError(t, b.RequestPermission(ctx, h, root, func(bool) {}))

	done := make(chan error, 1)
	go func() { done <- b.RequestPermission(ctx, h, root, func(bool) {}) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrSurfaceBusy)
	case <-time.After(time.Second):
		t.Fatal("RequestPermission blocked on a full surface")
	}
	assert.Equal(t, 1, b.Pending(h))

	closed := make(chan struct{})
	go func() {
		surface.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close blocked")
	}

	req, ok := <-surface.Requests()
	require.True(t, ok)
	assert.True(t, b.Deliver(ctx, h, Outcome{Token: req.Token, Granted: true, Handle: root.String()}))
	_, ok = <-surface.Requests()
	assert.False(t, ok)
}

func TestBrokerSameRootRequests(t *testing.T) {
	ctx := context.Background()
	root := testRoot(t, "Android/data/com.example")

	t.Run("each request gets its own token", func(t *testing.T) {
		surface := NewChannelSurface(2)
		b := NewBroker(nil, nil, surface, nil)
		h := NewHost("main", true)
		first, second := &recorder{}, &recorder{}

		require.NoError(t, b.RequestPermission(ctx, h, root, first.fn))
		require.NoError(t, b.RequestPermission(ctx, h, root, second.fn))
		assert.Equal(t, 2, b.Pending(h))

		reqA := <-surface.Requests()
		reqB := <-surface.Requests()
		assert.NotEqual(t, reqA.Token, reqB.Token)

		assert.True(t, b.Deliver(ctx, h, Outcome{Token: reqA.Token, Granted: true, Handle: root.String()}))
		assert.Equal(t, []bool{true}, first.got)
		assert.Empty(t, second.got)
		assert.Equal(t, 1, b.Pending(h))

		assert.True(t, b.Deliver(ctx, h, Outcome{Token: reqB.Token}))
		assert.Equal(t, []bool{true}, first.got)
		assert.Equal(t, []bool{false}, second.got)
	})

	t.Run("concurrent requests and racing deliveries fire once", func(t *testing.T) {
		const requests = 32
		surface := NewChannelSurface(requests)
		b := NewBroker(nil, nil, surface, nil)
		h := NewHost("main", true)

		var fired [requests]atomic.Int32
		var wg sync.WaitGroup
		for i := range requests {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, b.RequestPermission(ctx, h, root, func(bool) { fired[i].Add(1) }))
			}()
		}
		wg.Wait()
		require.Equal(t, requests, b.Pending(h))

		tokens := make(map[Token]bool)
		var delivered atomic.Int32
		for range requests {
			req := <-surface.Requests()
			assert.False(t, tokens[req.Token], "token issued twice")
			tokens[req.Token] = true

			for range 3 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					if b.Deliver(ctx, h, Outcome{Token: req.Token, Granted: true, Handle: root.String()}) {
						delivered.Add(1)
					}
				}()
			}
		}
		wg.Wait()

		assert.Equal(t, int32(requests), delivered.Load())
		assert.Equal(t, 0, b.Pending(h))
		for i := range fired {
			assert.Equal(t, int32(1), fired[i].Load(), "callback %d", i)
		}
	})
}
