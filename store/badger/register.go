package badger

import "github.com/gobeaver/storagekit"

func init() {
	storagekit.RegisterGrantStore(storagekit.GrantStoreBadger, func(cfg *storagekit.Config) (storagekit.GrantStore, error) {
		storeCfg, err := configFrom(cfg)
		if err != nil {
			return nil, err
		}
		return Open(storeCfg)
	})
}

// configFrom derives the store configuration, including a logger at the
// configured level and format, from the library configuration.
func configFrom(cfg *storagekit.Config) (Config, error) {
	logger, err := storagekit.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return Config{}, err
	}
	return Config{Path: cfg.GrantStorePath, Logger: logger}, nil
}
