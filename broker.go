package storagekit

import (
	"context"
	"log/slog"
)

// Broker decides whether an operation may proceed and obtains consent when
// it may not. It never caches grant state: every check is a fresh read of
// the grant store.
//
// Per root the observable states are Unchecked, Granted and Denied. A
// request moves Unchecked to Granted or Denied once the outcome is
// delivered; a denied root can be requested again.
type Broker struct {
	grants   GrantStore
	storage  StorageAccess
	surface  AuthorizationSurface
	registry *Registry
	log      *slog.Logger
}

// NewBroker creates a broker. Nil collaborators fall back to an in-memory
// grant store, storage access that is granted, a surface that always
// reports ErrNoInteractiveContext, and a discard logger.
func NewBroker(grants GrantStore, storage StorageAccess, surface AuthorizationSurface, logger *slog.Logger) *Broker {
	if grants == nil {
		grants = NewMemoryGrantStore()
	}
	if storage == nil {
		storage = NewStaticStorageAccess(true)
	}
	if surface == nil {
		surface = unavailableSurface{}
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &Broker{
		grants:   grants,
		storage:  storage,
		surface:  surface,
		registry: NewRegistry(),
		log:      logger.With("component", "broker"),
	}
}

// Grants returns the store the broker reads grants from.
func (b *Broker) Grants() GrantStore {
	return b.grants
}

// CheckPermission reports whether a read and write grant is held on exactly
// root. Store failures report false.
func (b *Broker) CheckPermission(ctx context.Context, root RootHandle) bool {
	if root.IsZero() {
		return false
	}
	grants, err := b.grants.Grants(ctx)
	if err != nil {
		b.log.Warn("failed to read grants", "root", root.String(), "error", err)
		return false
	}
	for _, g := range grants {
		if g.Root == root && g.Access.Has(AccessReadWrite) {
			return true
		}
	}
	return false
}

// RequestPermission asks host to show the consent flow for root. It returns
// once the flow is launched; fn runs later, once, when the outcome reaches
// Deliver. A surface failure cancels the registration and is returned.
func (b *Broker) RequestPermission(ctx context.Context, host *Host, root RootHandle, fn func(granted bool)) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if !host.Interactive() {
		return &PathError{Op: "request", Path: root.String(), Err: ErrNoInteractiveContext}
	}
	if root.IsZero() {
		return &PathError{Op: "request", Path: root.String(), Err: ErrInvalidPath}
	}

	token := b.registry.register(host, registration{kind: RequestTree, root: root, fn: fn})
	if err := b.surface.RequestTreeAccess(ctx, host, token, root); err != nil {
		b.registry.cancel(host, token)
		b.log.Warn("consent flow failed to launch", "host", host.String(), "root", root.String(), "error", err)
		return storageError("request", root.String(), err)
	}

	b.log.Debug("tree access requested", "host", host.String(), "token", token.String(), "root", root.String())
	return nil
}

// ReleasePermission gives up the read and write grant on root. Any failure,
// including a grant that is not held, reports false.
func (b *Broker) ReleasePermission(ctx context.Context, root RootHandle) bool {
	if root.IsZero() {
		return false
	}
	if err := b.grants.Release(ctx, root, AccessReadWrite); err != nil {
		b.log.Debug("release failed", "root", root.String(), "error", err)
		return false
	}
	b.log.Info("grant released", "root", root.String())
	return true
}

// CheckStorageAccess reports whether broad storage access is held.
func (b *Broker) CheckStorageAccess(ctx context.Context) bool {
	return b.storage.Granted(ctx)
}

// RequestStorageAccess asks host to show the broad storage consent flow.
// fn receives the storage access state at delivery time.
func (b *Broker) RequestStorageAccess(ctx context.Context, host *Host, fn func(granted bool)) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if !host.Interactive() {
		return &PathError{Op: "request", Path: "storage", Err: ErrNoInteractiveContext}
	}

	token := b.registry.register(host, registration{kind: RequestStorage, fn: fn})
	if err := b.surface.RequestStorageAccess(ctx, host, token); err != nil {
		b.registry.cancel(host, token)
		b.log.Warn("consent flow failed to launch", "host", host.String(), "error", err)
		return storageError("request", "storage", err)
	}

	b.log.Debug("storage access requested", "host", host.String(), "token", token.String())
	return nil
}

// ReleaseStorageAccess gives broad storage access back.
func (b *Broker) ReleaseStorageAccess(ctx context.Context) bool {
	if err := b.storage.Release(ctx); err != nil {
		b.log.Debug("storage release failed", "error", err)
		return false
	}
	return true
}

// Deliver routes the outcome of a consent flow to the registration waiting
// on its token. Only the host that issued the request can deliver to it;
// unknown, consumed and foreign tokens are ignored and report false. The
// callback runs on the calling goroutine.
func (b *Broker) Deliver(ctx context.Context, host *Host, outcome Outcome) bool {
	reg, ok := b.registry.take(host, outcome.Token)
	if !ok {
		b.log.Debug("ignoring outcome for unknown token", "host", host.String(), "token", outcome.Token.String())
		return false
	}

	granted := false
	switch reg.kind {
	case RequestTree:
		granted = b.acceptTree(ctx, reg.root, outcome)
	case RequestStorage:
		granted = b.storage.Granted(ctx)
	}

	b.log.Info("permission outcome delivered",
		"host", host.String(),
		"kind", reg.kind.String(),
		"root", reg.root.String(),
		"granted", granted,
	)

	if reg.fn != nil {
		reg.fn(granted)
	}
	return true
}

// acceptTree persists the grant when the user confirmed the tree that was
// requested.
func (b *Broker) acceptTree(ctx context.Context, root RootHandle, outcome Outcome) bool {
	if !outcome.Granted {
		return false
	}
	if outcome.Handle != root.String() {
		b.log.Warn("user picked a different tree", "requested", root.String(), "picked", outcome.Handle)
		return false
	}
	if err := b.grants.Persist(ctx, root, AccessReadWrite); err != nil {
		b.log.Error("failed to persist grant", "root", root.String(), "error", err)
		return false
	}
	return true
}

// Detach drops every pending registration of host without running the
// callbacks.
func (b *Broker) Detach(host *Host) int {
	n := b.registry.Detach(host)
	if n > 0 {
		b.log.Debug("host detached", "host", host.String(), "dropped", n)
	}
	return n
}

// Pending returns the number of requests host is still waiting on.
func (b *Broker) Pending(host *Host) int {
	return b.registry.Pending(host)
}
