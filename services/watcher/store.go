package watcher

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// SeenStore remembers which chat list states have already been
// reported, persisted so a restart does not replay old activity as
// new. Entries expire on their own, the set stays small.
type SeenStore struct {
	db *badger.DB
}

const seenTTL = 7 * 24 * time.Hour

func OpenSeenStore(path string) (*SeenStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &SeenStore{db: db}, nil
}

// OpenSeenStoreInMemory backs the store with badger's in-memory mode.
func OpenSeenStoreInMemory() (*SeenStore, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &SeenStore{db: db}, nil
}

func (s *SeenStore) Close() error {
	return s.db.Close()
}

func stateKey(chat, preview, timeLabel string) []byte {
	h := sha256.New()
	for _, part := range []string{chat, preview, timeLabel} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return []byte("seen:" + hex.EncodeToString(h.Sum(nil))[:24])
}

func (s *SeenStore) Seen(chat, preview, timeLabel string) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(stateKey(chat, preview, timeLabel))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SeenStore) Mark(chat, preview, timeLabel string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(stateKey(chat, preview, timeLabel), []byte{1}).
			WithTTL(seenTTL)
		return txn.SetEntry(entry)
	})
}
