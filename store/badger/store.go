// Package badger persists permission grants in BadgerDB so they survive
// process restarts, the way the platform keeps persisted URI grants.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/gobeaver/storagekit"
)

// keyPrefix namespaces grant records. Keys are "grant/<root handle>".
const keyPrefix = "grant/"

// Config holds configuration for the badger grant store
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps the database in memory, for tests.
	InMemory bool

	// Logger receives badger's own log output. Nil discards it.
	Logger *slog.Logger

	// Options overrides the badger options derived from the fields above.
	Options *badgerdb.Options
}

// record is the stored value of one grant
type record struct {
	Access    uint8     `json:"access"`
	GrantedAt time.Time `json:"granted_at"`
}

// Store implements storagekit.GrantStore on BadgerDB. It is safe for
// concurrent use.
type Store struct {
	db *badgerdb.DB
}

// Open opens or creates the store.
func Open(cfg Config) (*Store, error) {
	var opts badgerdb.Options
	switch {
	case cfg.Options != nil:
		opts = *cfg.Options
	case cfg.InMemory:
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	case cfg.Path == "":
		return nil, errors.New("badger grant store: path is required")
	default:
		opts = badgerdb.DefaultOptions(cfg.Path)
	}

	if cfg.Options == nil {
		if cfg.Logger != nil {
			opts = opts.WithLogger(&logAdapter{log: cfg.Logger.With("component", "badger")})
		} else {
			opts = opts.WithLogger(nil)
		}
		opts = opts.WithLoggingLevel(badgerdb.WARNING)
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.Path, err)
	}
	return &Store{db: db}, nil
}

// Grants implements storagekit.GrantStore
func (s *Store) Grants(ctx context.Context) ([]storagekit.Grant, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var grants []storagekit.Grant
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			root, err := storagekit.ParseRootHandle(strings.TrimPrefix(string(item.Key()), keyPrefix))
			if err != nil {
				continue
			}

			var rec record
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return fmt.Errorf("decode grant %s: %w", root, err)
			}
			grants = append(grants, storagekit.Grant{
				Root:      root,
				Access:    storagekit.Access(rec.Access),
				GrantedAt: rec.GrantedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return grants, nil
}

// Persist implements storagekit.GrantStore
func (s *Store) Persist(ctx context.Context, root storagekit.RootHandle, access storagekit.Access) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		rec, _, err := get(txn, root)
		if err != nil {
			return err
		}
		rec.Access |= uint8(access)
		rec.GrantedAt = time.Now().UTC()
		return put(txn, root, rec)
	})
}

// Release implements storagekit.GrantStore
func (s *Store) Release(ctx context.Context, root storagekit.RootHandle, access storagekit.Access) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		rec, found, err := get(txn, root)
		if err != nil {
			return err
		}
		if !found || rec.Access&uint8(access) == 0 {
			return &storagekit.PathError{Op: "release", Path: root.String(), Err: storagekit.ErrNotExist}
		}

		rec.Access &^= uint8(access)
		if rec.Access == 0 {
			return txn.Delete(key(root))
		}
		return put(txn, root, rec)
	})
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

func key(root storagekit.RootHandle) []byte {
	return []byte(keyPrefix + root.String())
}

func get(txn *badgerdb.Txn, root storagekit.RootHandle) (record, bool, error) {
	var rec record
	item, err := txn.Get(key(root))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return rec, false, nil
	}
	if err != nil {
		return rec, false, err
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	return rec, err == nil, err
}

func put(txn *badgerdb.Txn, root storagekit.RootHandle, rec record) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return txn.Set(key(root), val)
}

// logAdapter routes badger's printf-style logging into slog
type logAdapter struct {
	log *slog.Logger
}

func (l *logAdapter) Errorf(format string, args ...interface{}) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *logAdapter) Warningf(format string, args ...interface{}) {
	l.log.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *logAdapter) Infof(format string, args ...interface{}) {
	l.log.Info(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *logAdapter) Debugf(format string, args ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

var (
	_ storagekit.GrantStore = (*Store)(nil)
	_ badgerdb.Logger       = (*logAdapter)(nil)
)
