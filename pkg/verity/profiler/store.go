package profiler

import (
	"bytes"
	"encoding/gob"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/jamesainslie/verity/pkg/verity/logging"
)

// StoreVersion is incremented when the on-disk profile format changes.
// A store written by a different version is treated as empty.
const StoreVersion = 1

const (
	keySeparator = '\x00'
	entryPrefix  = "profile"
	versionKey   = "meta\x00version"
)

var storeLogger = logging.Get("profiler")

// Store persists rule execution profiles in a badger keyspace. One record
// per rule id plus a version record; the whole profile is written in a
// single batch so a crash never leaves a partial generation behind.
type Store struct {
	db *badger.DB
}

// OpenStore opens or creates a profile store at the given path.
func OpenStore(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the store.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load reads the full profile map. A store written by an unknown format
// version loads as empty; individual records that fail to decode are
// skipped with a warning. Profiles are an optimization, so degraded loads
// are never fatal.
func (s *Store) Load() (map[string]Entry, error) {
	entries := make(map[string]Entry)

	err := s.db.View(func(txn *badger.Txn) error {
		if !versionMatches(txn) {
			storeLogger.Warn("profile store version mismatch, starting empty", "want", StoreVersion)
			return nil
		}

		prefix := makeKey("")
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			id := string(item.Key()[len(prefix):])

			var e Entry
			if err := item.Value(func(val []byte) error {
				return decodeEntry(val, &e)
			}); err != nil {
				storeLogger.Warn("skipping undecodable profile record", "rule", id, "error", err)
				continue
			}
			entries[id] = e
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Save writes the full profile map, replacing prior records for the same
// rule ids, and stamps the format version.
func (s *Store) Save(entries map[string]Entry) error {
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	if err := wb.Set([]byte(versionKey), []byte{StoreVersion}); err != nil {
		return err
	}

	for id, e := range entries {
		value, err := encodeEntry(e)
		if err != nil {
			return err
		}
		if err := wb.Set(makeKey(id), value); err != nil {
			return err
		}
	}
	return wb.Flush()
}

func versionMatches(txn *badger.Txn) bool {
	item, err := txn.Get([]byte(versionKey))
	if errors.Is(err, badger.ErrKeyNotFound) {
		// Fresh store: no records yet, version gets stamped on Save.
		return true
	}
	if err != nil {
		return false
	}
	ok := false
	_ = item.Value(func(val []byte) error {
		ok = len(val) == 1 && val[0] == StoreVersion
		return nil
	})
	return ok
}

// makeKey builds the record key for a rule id: profile\x00<id>.
func makeKey(id string) []byte {
	return []byte(entryPrefix + string(keySeparator) + id)
}

func encodeEntry(e Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeEntry(data []byte, e *Entry) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(e)
}
