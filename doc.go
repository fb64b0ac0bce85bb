// Package storagekit provides one file API over two storage mechanisms:
// ordinary hierarchical filesystem access, and a permission-scoped document
// tree that is reachable only after the user grants access to a subtree.
//
// Callers open files by path. The path is classified, and files under the
// platform's app-private shared directories (Android/data, Android/obb,
// Android/sandbox) are bound to the document tree; everything else goes
// straight to the filesystem.
//
// # Basic Usage
//
//	docs := memory.New() // or the platform's provider
//	surface := storagekit.NewChannelSurface(1)
//	host := storagekit.NewHost("main", true)
//
//	kio, err := storagekit.New(storagekit.DefaultConfig(),
//	    storagekit.WithDocumentProvider(docs),
//	    storagekit.WithAuthorizationSurface(surface),
//	    storagekit.WithHost(host),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer kio.Close()
//
//	path := "/sdcard/Android/data/com.example/files/a.txt"
//	err = kio.CheckOrRequestPermission(ctx, path, func(granted bool) {
//	    if granted {
//	        _ = kio.WriteText(ctx, path, "hello", "")
//	    }
//	})
//
// # Permissions
//
// Scoped files check the grant on their RootHandle before every operation
// and fail with ErrPermission when it is not held. RequestPermission never
// blocks: the consent flow is started on the AuthorizationSurface and the
// callback runs when the host hands the outcome to Broker.Deliver (or
// Facade.Deliver) with the same Token.
//
//	for req := range surface.Requests() {
//	    picked := showPicker(req.Root) // host UI
//	    kio.Deliver(ctx, storagekit.Outcome{
//	        Token:   req.Token,
//	        Granted: picked != "",
//	        Handle:  picked,
//	    })
//	}
//
// Pending requests belong to the Host they were issued from and are dropped
// without firing once that Host is detached or garbage collected.
//
// # Grant Stores
//
// Grants are read from a GrantStore on every check. The "memory" store is
// built in; importing github.com/gobeaver/storagekit/store/badger registers
// a persistent "badger" store.
//
// # Configuration
//
// Configuration loads from the environment with the BEAVER_ prefix:
//
//	BEAVER_STORAGEKIT_PLATFORM_VERSION=33
//	BEAVER_STORAGEKIT_STORAGE_ROOT=/sdcard
//	BEAVER_STORAGEKIT_GRANT_STORE=badger
//	BEAVER_STORAGEKIT_GRANT_STORE_PATH=/data/grants
//	BEAVER_STORAGEKIT_LOG_LEVEL=debug
package storagekit
