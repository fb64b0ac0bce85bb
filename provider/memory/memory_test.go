package memory

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gobeaver/storagekit"
)

var builder = storagekit.NewHandleBuilder(storagekit.Platform{Version: 33})

func node(t *testing.T, docPath string) storagekit.NodeHandle {
	t.Helper()
	n, err := builder.Node(docPath)
	require.NoError(t, err)
	return n
}

func write(t *testing.T, p *Provider, docPath string, mode storagekit.Mode, data string) {
	t.Helper()
	stream, err := p.Open(context.Background(), node(t, docPath), mode)
	require.NoError(t, err)
	_, err = io.WriteString(stream, data)
	require.NoError(t, err)
	require.NoError(t, stream.Close())
}

func read(t *testing.T, p *Provider, docPath string) string {
	t.Helper()
	stream, err := p.Open(context.Background(), node(t, docPath), storagekit.ModeRead)
	require.NoError(t, err)
	defer stream.Close()
	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	return string(data)
}

func TestProviderQuery(t *testing.T) {
	ctx := context.Background()
	p := New()
	require.NoError(t, p.Put("Android/data/x/a.txt", []byte("hello")))

	doc, err := p.Query(ctx, node(t, "Android/data/x/a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "primary:Android/data/x/a.txt", doc.ID)
	assert.Equal(t, "a.txt", doc.DisplayName)
	assert.Equal(t, "text/plain", doc.MimeType)
	assert.Equal(t, int64(5), doc.Size)
	assert.False(t, doc.IsDir())

	dir, err := p.Query(ctx, node(t, "Android/data/x"))
	require.NoError(t, err)
	assert.True(t, dir.IsDir())

	_, err = p.Query(ctx, node(t, "Android/data/x/missing"))
	assert.True(t, storagekit.IsNotExist(err))

	_, err = p.Query(ctx, storagekit.NewNodeHandle("content://media/external/file/1"))
	assert.True(t, storagekit.IsInvalidPath(err))
}

func TestProviderTreeContainment(t *testing.T) {
	ctx := context.Background()
	p := New()
	require.NoError(t, p.Put("Android/data/y/secret", []byte("s")))

	escaping := node(t, "Android/data/x/../y/secret")
	_, err := p.Query(ctx, escaping)
	assert.True(t, storagekit.IsPermission(err))
	_, err = p.Open(ctx, escaping, storagekit.ModeRead)
	assert.True(t, storagekit.IsPermission(err))
	assert.True(t, storagekit.IsPermission(p.DeleteDocument(ctx, escaping)))

	require.NoError(t, p.MkdirAll("Android/data/x/sub"))
	inside := node(t, "Android/data/x/sub/..")
	doc, err := p.Query(ctx, inside)
	require.NoError(t, err)
	assert.Equal(t, "primary:Android/data/x", doc.ID)
}

func TestProviderOpenModes(t *testing.T) {
	p := New()
	require.NoError(t, p.Put("Android/data/x/f", []byte("hello world")))

	write(t, p, "Android/data/x/f", storagekit.ModeOverwrite, "HELLO")
	assert.Equal(t, "HELLO world", read(t, p, "Android/data/x/f"))

	write(t, p, "Android/data/x/f", storagekit.ModeAppend, "!")
	assert.Equal(t, "HELLO world!", read(t, p, "Android/data/x/f"))

	write(t, p, "Android/data/x/f", storagekit.ModeTruncate, "x")
	assert.Equal(t, "x", read(t, p, "Android/data/x/f"))
	assert.Equal(t, int64(1), p.Size())

	ctx := context.Background()
	_, err := p.Open(ctx, node(t, "Android/data/x/missing"), storagekit.ModeTruncate)
	assert.True(t, storagekit.IsNotExist(err))
	_, err = p.Open(ctx, node(t, "Android/data/x"), storagekit.ModeRead)
	assert.ErrorIs(t, err, storagekit.ErrIsDir)

	r, err := p.Open(ctx, node(t, "Android/data/x/f"), storagekit.ModeRead)
	require.NoError(t, err)
	_, err = r.Write([]byte("no"))
	assert.ErrorIs(t, err, storagekit.ErrNotSupported)

	w, err := p.Open(ctx, node(t, "Android/data/x/f"), storagekit.ModeAppend)
	require.NoError(t, err)
	_, err = w.Read(make([]byte, 1))
	assert.ErrorIs(t, err, storagekit.ErrNotSupported)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	_, err = w.Write([]byte("late"))
	assert.Error(t, err)
}

func TestProviderWriteIsCommittedOnClose(t *testing.T) {
	ctx := context.Background()
	p := New()
	require.NoError(t, p.Put("Android/data/x/f", []byte("old")))

	w, err := p.Open(ctx, node(t, "Android/data/x/f"), storagekit.ModeTruncate)
	require.NoError(t, err)
	_, err = io.WriteString(w, "new")
	require.NoError(t, err)

	got, _ := p.Get("Android/data/x/f")
	assert.Equal(t, "old", string(got))

	require.NoError(t, w.Close())
	got, _ = p.Get("Android/data/x/f")
	assert.Equal(t, "new", string(got))
}

func TestProviderCreateDocument(t *testing.T) {
	ctx := context.Background()
	p := New()
	require.NoError(t, p.MkdirAll("Android/data/x"))
	parent := node(t, "Android/data/x")

	created, err := p.CreateDocument(ctx, parent, "", "a.json")
	require.NoError(t, err)
	assert.Equal(t, node(t, "Android/data/x/a.json"), created)

	doc, err := p.Query(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, "application/json", doc.MimeType)
	assert.Equal(t, int64(0), doc.Size)

	_, err = p.CreateDocument(ctx, parent, "", "a.json")
	assert.True(t, storagekit.IsExist(err))

	dir, err := p.CreateDocument(ctx, parent, storagekit.MimeTypeDir, "sub")
	require.NoError(t, err)
	doc, err = p.Query(ctx, dir)
	require.NoError(t, err)
	assert.True(t, doc.IsDir())

	_, err = p.CreateDocument(ctx, created, "", "child")
	assert.ErrorIs(t, err, storagekit.ErrNotDir)
	_, err = p.CreateDocument(ctx, node(t, "Android/data/x/none"), "", "child")
	assert.True(t, storagekit.IsNotExist(err))

	for _, name := range []string{"", ".", "..", "a/b"} {
		_, err = p.CreateDocument(ctx, parent, "", name)
		assert.True(t, storagekit.IsInvalidPath(err), name)
	}
}

func TestProviderListChildren(t *testing.T) {
	ctx := context.Background()
	p := New()
	require.NoError(t, p.Put("Android/data/x/b.txt", nil))
	require.NoError(t, p.Put("Android/data/x/a.txt", nil))
	require.NoError(t, p.Put("Android/data/x/sub/c.txt", nil))

	ids, err := p.ListChildren(ctx, node(t, "Android/data/x"))
	require.NoError(t, err)
	assert.Equal(t, []string{
		"primary:Android/data/x/a.txt",
		"primary:Android/data/x/b.txt",
		"primary:Android/data/x/sub",
	}, ids)

	_, err = p.ListChildren(ctx, node(t, "Android/data/x/a.txt"))
	assert.ErrorIs(t, err, storagekit.ErrNotDir)
	_, err = p.ListChildren(ctx, node(t, "Android/data/x/none"))
	assert.True(t, storagekit.IsNotExist(err))
}

func TestProviderRenameDocument(t *testing.T) {
	ctx := context.Background()
	p := New()
	require.NoError(t, p.Put("Android/data/x/dir/a.txt", []byte("a")))
	require.NoError(t, p.Put("Android/data/x/dir/deep/b.txt", []byte("b")))
	require.NoError(t, p.Put("Android/data/x/taken", nil))

	renamed, err := p.RenameDocument(ctx, node(t, "Android/data/x/dir"), "moved")
	require.NoError(t, err)
	assert.Equal(t, node(t, "Android/data/x/moved"), renamed)

	got, ok := p.Get("Android/data/x/moved/deep/b.txt")
	require.True(t, ok)
	assert.Equal(t, "b", string(got))
	_, ok = p.Get("Android/data/x/dir/a.txt")
	assert.False(t, ok)

	same, err := p.RenameDocument(ctx, renamed, "moved")
	require.NoError(t, err)
	assert.Equal(t, renamed, same)

	_, err = p.RenameDocument(ctx, renamed, "taken")
	assert.True(t, storagekit.IsExist(err))
	_, err = p.RenameDocument(ctx, node(t, "Android/data/x/none"), "y")
	assert.True(t, storagekit.IsNotExist(err))
	_, err = p.RenameDocument(ctx, renamed, "../y")
	assert.True(t, storagekit.IsInvalidPath(err))
}

func TestProviderDeleteDocument(t *testing.T) {
	ctx := context.Background()
	p := New()
	require.NoError(t, p.Put("Android/data/x/dir/a.txt", []byte("aaa")))
	require.NoError(t, p.Put("Android/data/x/dir/sub/b.txt", []byte("bb")))
	require.NoError(t, p.Put("Android/data/x/keep.txt", []byte("k")))
	assert.Equal(t, int64(6), p.Size())

	require.NoError(t, p.DeleteDocument(ctx, node(t, "Android/data/x/dir")))
	assert.Equal(t, int64(1), p.Size())
	_, ok := p.Get("Android/data/x/dir/sub/b.txt")
	assert.False(t, ok)
	_, ok = p.Get("Android/data/x/keep.txt")
	assert.True(t, ok)

	assert.True(t, storagekit.IsNotExist(p.DeleteDocument(ctx, node(t, "Android/data/x/dir"))))
	// Android, data, x, keep.txt
	assert.Equal(t, 4, p.DocumentCount())
}

func TestProviderMaxSize(t *testing.T) {
	p := New(Config{MaxSize: 4})
	require.NoError(t, p.Put("Android/data/x/a", []byte("abc")))

	err := p.Put("Android/data/x/b", []byte("de"))
	assert.ErrorIs(t, err, ErrNoSpace)

	stream, err := p.Open(context.Background(), node(t, "Android/data/x/a"), storagekit.ModeAppend)
	require.NoError(t, err)
	_, err = io.WriteString(stream, "xy")
	require.NoError(t, err)
	assert.ErrorIs(t, stream.Close(), ErrNoSpace)

	got, _ := p.Get("Android/data/x/a")
	assert.Equal(t, "abc", string(got))
	assert.Equal(t, int64(3), p.Size())
}

func TestProviderSeedHelpers(t *testing.T) {
	p := New()
	require.NoError(t, p.Put("Android/data/x/f", []byte("f")))

	assert.ErrorIs(t, p.MkdirAll("Android/data/x/f"), storagekit.ErrNotDir)
	assert.ErrorIs(t, p.Put("Android/data/x", []byte("d")), storagekit.ErrIsDir)
	assert.True(t, storagekit.IsInvalidPath(p.Put("", nil)))
	assert.ErrorIs(t, p.Put("Android/data/x/f/g", nil), storagekit.ErrNotDir)

	_, ok := p.Get("Android/data/x")
	assert.False(t, ok)
}

func TestProviderContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New()
	n := node(t, "Android/data/x")
	_, err := p.Query(ctx, n)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = p.ListChildren(ctx, n)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, p.DeleteDocument(ctx, n), context.Canceled)
}
