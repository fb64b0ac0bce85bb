package storagekit

import (
	"log/slog"

	"github.com/spf13/afero"
)

// Resolver turns paths and handles into Files. It classifies the path,
// derives handles for the scoped backend and binds the result to the
// storage primitives and the broker.
type Resolver struct {
	platform Platform
	builder  HandleBuilder
	fs       afero.Fs
	docs     DocumentProvider
	broker   *Broker
	log      *slog.Logger
}

// NewResolver creates a resolver. A nil fs uses the OS filesystem and a nil
// provider fails every scoped operation with ErrNotSupported.
func NewResolver(platform Platform, fs afero.Fs, docs DocumentProvider, broker *Broker, logger *slog.Logger) *Resolver {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if docs == nil {
		docs = unavailableProvider{}
	}
	if logger == nil {
		logger = discardLogger()
	}
	if broker == nil {
		broker = NewBroker(nil, nil, nil, logger)
	}
	return &Resolver{
		platform: platform,
		builder:  NewHandleBuilder(platform),
		fs:       fs,
		docs:     docs,
		broker:   broker,
		log:      logger.With("component", "resolver"),
	}
}

// Platform returns the platform the resolver classifies for.
func (r *Resolver) Platform() Platform { return r.platform }

// Broker returns the broker files consult.
func (r *Resolver) Broker() *Broker { return r.broker }

// Open classifies path and returns the File bound to the selected backend.
// It does not touch storage.
func (r *Resolver) Open(path string) (File, error) {
	switch backend := r.platform.Classify(path); backend {
	case BackendScoped:
		f, err := newScopedFile(r, r.platform.DocumentPath(path))
		if err != nil {
			return nil, err
		}
		r.log.Debug("resolved", "path", path, "backend", backend.String(), "root", f.root.String())
		return f, nil
	default:
		return newDirectFile(r, path), nil
	}
}

// OpenHandle wraps a caller-supplied handle. The handle is not validated.
func (r *Resolver) OpenHandle(handle string) (File, error) {
	if handle == "" {
		return nil, &PathError{Op: "open", Path: handle, Err: ErrInvalidPath}
	}
	return newOpaqueFile(r, NewNodeHandle(handle)), nil
}
