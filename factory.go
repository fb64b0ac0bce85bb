package storagekit

import (
	"fmt"
	"sync"
)

// GrantStoreFactory is a function that creates a GrantStore from a config
type GrantStoreFactory func(cfg *Config) (GrantStore, error)

var (
	grantStoreFactories = make(map[string]GrantStoreFactory)
	factoryMutex        sync.RWMutex
)

func init() {
	RegisterGrantStore(GrantStoreMemory, func(*Config) (GrantStore, error) {
		return NewMemoryGrantStore(), nil
	})
}

// RegisterGrantStore registers a grant store factory function
func RegisterGrantStore(name string, factory GrantStoreFactory) {
	factoryMutex.Lock()
	defer factoryMutex.Unlock()
	grantStoreFactories[name] = factory
}

// CreateGrantStore creates a grant store instance from config
func CreateGrantStore(cfg *Config) (GrantStore, error) {
	factoryMutex.RLock()
	factory, exists := grantStoreFactories[cfg.GrantStore]
	factoryMutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("grant store %s not registered", cfg.GrantStore)
	}

	return factory(cfg)
}
