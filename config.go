package storagekit

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gobeaver/beaver-kit/config"
)

// Grant store names known to CreateGrantStore.
const (
	GrantStoreMemory = "memory"
	GrantStoreBadger = "badger"
)

type Config struct {
	// Platform API level the classifier answers for
	PlatformVersion int `env:"STORAGEKIT_PLATFORM_VERSION,default:33" validate:"gte=1"`

	// Mount point of shared storage
	StorageRoot string `env:"STORAGEKIT_STORAGE_ROOT,default:/sdcard" validate:"oneof=/sdcard /storage/emulated/0"`

	// Grant store backend (memory, badger)
	GrantStore     string `env:"STORAGEKIT_GRANT_STORE,default:memory" validate:"required"`
	GrantStorePath string `env:"STORAGEKIT_GRANT_STORE_PATH"`

	// Logging
	LogLevel  string `env:"STORAGEKIT_LOG_LEVEL,default:info" validate:"oneof=debug info warn error"`
	LogFormat string `env:"STORAGEKIT_LOG_FORMAT,default:text" validate:"oneof=text json logfmt"`
}

// Platform returns the platform described by the config.
func (c *Config) Platform() Platform {
	return Platform{Version: c.PlatformVersion, StorageRoot: c.StorageRoot}
}

// DefaultConfig returns the values the environment loader falls back to.
func DefaultConfig() *Config {
	return &Config{
		PlatformVersion: ExtendedTreeVersion,
		StorageRoot:     DefaultStorageRoot,
		GrantStore:      GrantStoreMemory,
		LogLevel:        "info",
		LogFormat:       LogFormatText,
	}
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks struct tags, then the rules tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}

	if c.GrantStore == GrantStoreBadger && c.GrantStorePath == "" {
		return fmt.Errorf("GrantStorePath: required when GrantStore is %q", GrantStoreBadger)
	}
	return nil
}

// formatValidationError reports the first failed field.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", e.Field(), e.Tag(), e.Value())
	}
	return err
}
