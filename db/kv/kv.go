// Package kv persists light client checkpoints in a bolt database.
package kv

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

var log = logrus.WithField("prefix", "db")

const databaseFileName = "lightclient.db"

// Store is a bolt backed key value store for the light client.
type Store struct {
	db           *bolt.DB
	databasePath string
}

// NewKVStore opens or creates the database in dirPath and its buckets.
func NewKVStore(dirPath string) (*Store, error) {
	return openKVStore(dirPath, checkpointBucket)
}

func openKVStore(dirPath string, buckets ...[]byte) (*Store, error) {
	if err := os.MkdirAll(dirPath, 0700); err != nil {
		return nil, err
	}
	datafile := filepath.Join(dirPath, databaseFileName)
	boltDB, err := bolt.Open(datafile, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, errors.New("cannot obtain database lock, database may be in use by another process")
		}
		return nil, errors.Wrap(err, "could not open database")
	}
	kv := &Store{db: boltDB, databasePath: datafile}
	if err := kv.db.Update(func(tx *bolt.Tx) error {
		return createBuckets(tx, buckets...)
	}); err != nil {
		if closeErr := boltDB.Close(); closeErr != nil {
			log.WithError(closeErr).Error("Could not close database")
		}
		return nil, errors.Wrap(err, "could not create buckets")
	}
	log.WithField("path", datafile).Debug("Opened database")
	return kv, nil
}

// Close closes the underlying bolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// DatabasePath at which this database writes files.
func (s *Store) DatabasePath() string {
	return s.databasePath
}

func createBuckets(tx *bolt.Tx, buckets ...[]byte) error {
	for _, bucket := range buckets {
		if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
			return err
		}
	}
	return nil
}
