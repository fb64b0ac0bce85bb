package storagekit_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/gobeaver/storagekit"
	"github.com/gobeaver/storagekit/provider/memory"
)

// fixture is a facade over in-memory primitives with a host whose consent
// flows are answered by the test.
type fixture struct {
	kio     *storagekit.Facade
	fs      afero.Fs
	docs    *memory.Provider
	surface *storagekit.ChannelSurface
	host    *storagekit.Host
}

func newFixture(t *testing.T, version int) *fixture {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/sdcard/Download", 0o755))

	docs := memory.New()
	require.NoError(t, docs.MkdirAll("Android/data/com.example"))

	surface := storagekit.NewChannelSurface(4)
	host := storagekit.NewHost("test", true)

	cfg := storagekit.DefaultConfig()
	cfg.PlatformVersion = version

	kio, err := storagekit.New(cfg,
		storagekit.WithFs(fs),
		storagekit.WithDocumentProvider(docs),
		storagekit.WithAuthorizationSurface(surface),
		storagekit.WithHost(host),
		storagekit.WithLogger(slog.New(slog.DiscardHandler)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = kio.Close() })

	return &fixture{kio: kio, fs: fs, docs: docs, surface: surface, host: host}
}

func (fx *fixture) open(t *testing.T, path string) storagekit.File {
	t.Helper()
	f, err := fx.kio.Open(path)
	require.NoError(t, err)
	return f
}

// grant runs the consent flow for f and confirms the requested tree.
func (fx *fixture) grant(t *testing.T, f storagekit.File) {
	t.Helper()
	ctx := context.Background()

	var granted bool
	require.NoError(t, fx.kio.RequestPermission(ctx, f.AbsolutePath(), func(g bool) { granted = g }))
	req := <-fx.surface.Requests()
	require.True(t, fx.kio.Deliver(ctx, storagekit.Outcome{
		Token:   req.Token,
		Granted: true,
		Handle:  req.Root.String(),
	}))
	require.True(t, granted)
}
