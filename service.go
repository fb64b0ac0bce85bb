package storagekit

import (
	"fmt"
	"sync"

	"github.com/gobeaver/beaver-kit/config"
)

// Global instance
var (
	defaultFacade *Facade
	defaultOnce   sync.Once
	defaultErr    error
)

// Builder provides a way to create Facade instances with custom prefixes
type Builder struct {
	prefix string
}

// WithPrefix creates a new Builder with the specified prefix
func WithPrefix(prefix string) *Builder {
	return &Builder{prefix: prefix}
}

// Init initializes the global Facade instance using the builder's prefix
func (b *Builder) Init(options ...Option) error {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return err
	}
	return Init(cfg, options...)
}

// New creates a new Facade instance using the builder's prefix
func (b *Builder) New(options ...Option) (*Facade, error) {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: b.prefix}); err != nil {
		return nil, err
	}
	return New(cfg, options...)
}

// Init initializes the global instance. A nil config is loaded from the
// environment.
func Init(cfg *Config, options ...Option) error {
	defaultOnce.Do(func() {
		if cfg == nil {
			cfg, defaultErr = GetConfig()
			if defaultErr != nil {
				return
			}
		}
		defaultFacade, defaultErr = New(cfg, options...)
	})

	return defaultErr
}

// New wires a Facade from cfg. Options override what the config selects.
func New(cfg *Config, options ...Option) (*Facade, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	opts := processOptions(options...)

	logger := opts.Logger
	if logger == nil {
		var err error
		logger, err = NewLogger(cfg.LogLevel, cfg.LogFormat)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	grants := opts.Grants
	if grants == nil {
		var err error
		grants, err = CreateGrantStore(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create grant store: %w", err)
		}
	}

	broker := NewBroker(grants, opts.StorageAccess, opts.Surface, logger)
	resolver := NewResolver(cfg.Platform(), opts.Fs, opts.Documents, broker, logger)

	logger.Debug("storagekit ready",
		"platform_version", cfg.PlatformVersion,
		"storage_root", cfg.StorageRoot,
		"grant_store", cfg.GrantStore,
		"root_segments", cfg.Platform().RootSegments(),
	)

	return &Facade{
		resolver: resolver,
		broker:   broker,
		host:     opts.Host,
		log:      logger,
	}, nil
}

// Default returns the global instance, initializing if needed with error handling
func Default() (*Facade, error) {
	if defaultFacade == nil {
		if err := Init(nil); err != nil {
			return nil, err
		}
	}
	return defaultFacade, nil
}

// NewFromEnv creates instance from environment variables (convenience constructor)
func NewFromEnv(options ...Option) (*Facade, error) {
	cfg, err := GetConfig()
	if err != nil {
		return nil, err
	}
	return New(cfg, options...)
}

// Reset clears the global instance (for testing)
func Reset() {
	defaultFacade = nil
	defaultOnce = sync.Once{}
	defaultErr = nil
}
