// Package storage provides persistent data storage for the exoplanet
// service. It uses BoltDB to keep a cache of archive star lookups and a log
// of extracted feature records that can be exported for model training.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	starsBucket    = "stars"    // Bucket name for archive cache entries
	featuresBucket = "features" // Bucket name for feature records

	dbFileName = "exotransit-data.db"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("not found")

// Store provides persistent storage using BoltDB.
type Store struct {
	db *bbolt.DB
}

// New creates a new storage instance under dataPath, creating the database
// file and its buckets when missing.
func New(dataPath string) (*Store, error) {
	dbPath := filepath.Join(dataPath, dbFileName)

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{starsBucket, featuresBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("create %s bucket: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database. Closing twice is a no-op.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// StarRecord is a cached archive lookup.
type StarRecord struct {
	StarID    string         `json:"star_id"`
	Source    string         `json:"source"`
	Info      map[string]any `json:"info,omitempty"`
	Time      []float64      `json:"time"`
	Flux      []float64      `json:"flux"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// PutStar stores or replaces the cache entry for rec.StarID.
func (s *Store) PutStar(rec StarRecord) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(starsBucket))

		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal star record: %w", err)
		}
		return b.Put([]byte(rec.StarID), data)
	})
}

// GetStar returns the cache entry for starID. Entries older than maxAge are
// reported as ErrNotFound; a zero maxAge disables expiry.
func (s *Store) GetStar(starID string, maxAge time.Duration) (StarRecord, error) {
	var rec StarRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(starsBucket)).Get([]byte(starID))
		if data == nil {
			return ErrNotFound
		}
		if err := json.Unmarshal(data, &rec); err != nil {
			return fmt.Errorf("unmarshal star record: %w", err)
		}
		return nil
	})
	if err != nil {
		return StarRecord{}, err
	}
	if maxAge > 0 && time.Since(rec.FetchedAt) > maxAge {
		return StarRecord{}, ErrNotFound
	}
	return rec, nil
}

// PruneStars deletes cache entries fetched before cutoff and returns how
// many were removed. Unreadable entries are removed too.
func (s *Store) PruneStars(cutoff time.Time) (int, error) {
	removed := 0
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(starsBucket))
		var stale [][]byte

		err := b.ForEach(func(k, v []byte) error {
			var rec StarRecord
			if err := json.Unmarshal(v, &rec); err != nil || rec.FetchedAt.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return fmt.Errorf("delete star %q: %w", k, err)
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}
