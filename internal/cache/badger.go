// Cloud Frequency - Earth Engine Cloud Cover Map Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cloudfrequency

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/tomtom215/cloudfrequency/internal/logging"
)

// Badger persists entries in an embedded BadgerDB so the cache survives
// restarts of a single instance. Expiry uses Badger's per-entry TTL.
type Badger struct {
	db *badger.DB
}

// NewBadger opens (or creates) the database at path.
func NewBadger(path string) (*Badger, error) {
	if path == "" {
		return nil, fmt.Errorf("badger path is required")
	}
	opts := badger.DefaultOptions(path)
	// Reduce logging verbosity
	opts.Logger = nil

	b, err := openBadger(opts)
	if err != nil {
		return nil, err
	}
	logging.Info().Str("path", path).Msg("Badger cache opened")
	return b, nil
}

// newInMemoryBadger opens a throwaway database for tests.
func newInMemoryBadger() (*Badger, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return openBadger(opts)
}

func openBadger(opts badger.Options) (*Badger, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}
	return &Badger{db: db}, nil
}

// Get reads key. Badger hides expired entries, so they surface as
// ErrKeyNotFound.
func (b *Badger) Get(_ context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		recordLookup(BackendBadger, false, nil)
		return nil, false, nil
	}
	if err != nil {
		recordLookup(BackendBadger, false, err)
		return nil, false, fmt.Errorf("badger get: %w", err)
	}
	recordLookup(BackendBadger, true, nil)
	return data, true, nil
}

// Set writes key with a TTL.
func (b *Badger) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value).WithTTL(ttl)
		return txn.SetEntry(e)
	})
	recordSetError(BackendBadger, err)
	if err != nil {
		return fmt.Errorf("badger set: %w", err)
	}
	return nil
}

// gcDiscardRatio is the stale fraction a value log file needs before GC
// rewrites it.
const gcDiscardRatio = 0.5

// CollectGarbage rewrites value log files until none qualifies. Badger never
// reclaims expired entries on its own.
func (b *Badger) CollectGarbage() error {
	for rewritten := 0; ; rewritten++ {
		err := b.db.RunValueLogGC(gcDiscardRatio)
		switch {
		case err == nil:
			continue
		case errors.Is(err, badger.ErrNoRewrite),
			errors.Is(err, badger.ErrRejected),
			errors.Is(err, badger.ErrGCInMemoryMode):
			if rewritten > 0 {
				logging.Debug().Int("files", rewritten).Msg("Badger value log GC rewrote files")
			}
			return nil
		default:
			return fmt.Errorf("badger value log GC: %w", err)
		}
	}
}

// Close flushes and closes the database.
func (b *Badger) Close() error {
	return b.db.Close()
}
