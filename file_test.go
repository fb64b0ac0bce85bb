package storagekit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMode(t *testing.T) {
	for _, m := range []Mode{ModeRead, ModeOverwrite, ModeAppend, ModeTruncate} {
		parsed, err := ParseMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, parsed)
	}

	assert.False(t, ModeRead.Writable())
	assert.True(t, ModeAppend.Writable())
	assert.Equal(t, "?", Mode(9).String())

	_, err := ParseMode("x")
	assert.True(t, IsNotSupported(err))
}

func TestStorageError(t *testing.T) {
	assert.NoError(t, storageError("op", "p", nil))

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"fs not exist", fs.ErrNotExist, ErrNotExist},
		{"fs exist", fs.ErrExist, ErrExist},
		{"fs permission", fs.ErrPermission, ErrPermission},
		{"unsupported", errors.ErrUnsupported, ErrNotSupported},
		{"sentinel", ErrNotEmpty, ErrNotEmpty},
		{"wrapped sentinel", fmt.Errorf("provider: %w", ErrIsDir), ErrIsDir},
		{"anything else", errors.New("disk on fire"), ErrIO},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := storageError("stat", "/x", tt.err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, tt.err)

			var pe *PathError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, "stat", pe.Op)
			assert.Equal(t, "/x", pe.Path)
		})
	}

	inner := &PathError{Op: "query", Path: "a", Err: ErrNotExist}
	assert.Same(t, inner, storageError("stat", "b", inner))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/plain", GuessContentType("a.TXT", nil))
	assert.Equal(t, "application/vnd.android.package-archive", GuessContentType("app.apk", nil))
	assert.Equal(t, MIMETypeOctetStream, GuessContentType("noext", nil))
	assert.Equal(t, "image/png", GuessContentType("noext", []byte("\x89PNG\r\n\x1a\n")))

	assert.True(t, IsTextFile("text/plain; charset=utf-8"))
	assert.True(t, IsTextFile("application/json"))
	assert.False(t, IsTextFile("image/png"))
}

func TestLookupCharset(t *testing.T) {
	enc, err := LookupCharset("")
	require.NoError(t, err)
	assert.NotNil(t, enc)

	for _, name := range []string{"UTF-8", "ISO-8859-1", "windows-1252", "Shift_JIS"} {
		enc, err := LookupCharset(name)
		require.NoError(t, err, name)
		assert.NotNil(t, enc, name)
	}

	_, err = LookupCharset("klingon")
	assert.True(t, IsNotSupported(err))
}

// mediaProvider answers Query for media-style handles that name no tree.
type mediaProvider struct {
	unavailableProvider
	docs map[string]*Document
}

func (p mediaProvider) Query(_ context.Context, node NodeHandle) (*Document, error) {
	if doc, ok := p.docs[node.String()]; ok {
		return doc, nil
	}
	return nil, &PathError{Op: "query", Path: node.String(), Err: ErrNotExist}
}

func TestOpaqueFileName(t *testing.T) {
	ctx := context.Background()
	docs := mediaProvider{docs: map[string]*Document{
		"content://media/external/file/42": {ID: "42", DisplayName: "IMG_0001.jpg", MimeType: "image/jpeg", Size: 3},
		"content://media/external/file/43": {ID: "43"},
	}}
	r := NewResolver(Platform{Version: 33}, nil, docs, nil, nil)

	open := func(handle string) File {
		f, err := r.OpenHandle(handle)
		require.NoError(t, err)
		return f
	}

	t.Run("display name without a tree", func(t *testing.T) {
		f := open("content://media/external/file/42")
		assert.Equal(t, "IMG_0001.jpg", f.Name())

		info, err := f.Stat(ctx)
		require.NoError(t, err)
		assert.Equal(t, "IMG_0001.jpg", info.Name)
		assert.Equal(t, "image/jpeg", info.ContentType)
	})

	t.Run("last segment without a display name", func(t *testing.T) {
		assert.Equal(t, "43", open("content://media/external/file/43").Name())
		assert.Equal(t, "44", open("content://media/external/file/44").Name())
	})

	t.Run("document id wins for tree handles", func(t *testing.T) {
		root, err := NewHandleBuilder(Platform{Version: 33}).Root("Android/data/com.example")
		require.NoError(t, err)
		f := open(root.Document("primary:Android/data/com.example/a.txt").String())
		assert.Equal(t, "a.txt", f.Name())
	})
}
