package storagekit

import (
	"log/slog"

	"github.com/spf13/afero"
)

// Option configures the collaborators New wires together. Collaborators that
// cannot come from the environment are passed this way.
type Option func(*Options)

// Options contains the collaborators of a Facade
type Options struct {
	// Fs is the direct storage primitive
	Fs afero.Fs

	// Documents is the scoped storage primitive
	Documents DocumentProvider

	// Surface launches consent flows
	Surface AuthorizationSurface

	// StorageAccess reports the broad storage grant
	StorageAccess StorageAccess

	// Grants overrides the grant store built from the config
	Grants GrantStore

	// Logger overrides the logger built from the config
	Logger *slog.Logger

	// Host is the host permission requests are issued from
	Host *Host
}

// WithFs sets the filesystem the direct backend runs on
func WithFs(fs afero.Fs) Option {
	return func(o *Options) {
		o.Fs = fs
	}
}

// WithDocumentProvider sets the provider behind the scoped and opaque backends
func WithDocumentProvider(docs DocumentProvider) Option {
	return func(o *Options) {
		o.Documents = docs
	}
}

// WithAuthorizationSurface sets the surface consent flows are launched on
func WithAuthorizationSurface(surface AuthorizationSurface) Option {
	return func(o *Options) {
		o.Surface = surface
	}
}

// WithStorageAccess sets the broad storage grant
func WithStorageAccess(access StorageAccess) Option {
	return func(o *Options) {
		o.StorageAccess = access
	}
}

// WithGrantStore sets the grant store, bypassing the configured one
func WithGrantStore(grants GrantStore) Option {
	return func(o *Options) {
		o.Grants = grants
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithHost sets the host permission requests are issued from
func WithHost(host *Host) Option {
	return func(o *Options) {
		o.Host = host
	}
}

func processOptions(options ...Option) *Options {
	opts := &Options{}
	for _, option := range options {
		option(opts)
	}
	return opts
}
